package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/calderahq/storefront-backend/pkg/db/models"
	"github.com/calderahq/storefront-backend/pkg/enums"
	pkgerrors "github.com/calderahq/storefront-backend/pkg/errors"
	"github.com/calderahq/storefront-backend/pkg/types"
)

// LineItemRequest is one purchased variant. UnitPrice is a decimal string
// ("19.90") so clients never deal in float cents.
type LineItemRequest struct {
	VariantRef string `json:"variant_ref" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Qty        int    `json:"qty" validate:"required,min=1"`
	UnitPrice  string `json:"unit_price" validate:"required"`
}

// CreateOrderRequest finalizes a paid checkout. PaymentReference is the
// token handed back by the payment collaborator; without it no order exists.
type CreateOrderRequest struct {
	CustomerName     string            `json:"customer_name" validate:"required"`
	CustomerEmail    string            `json:"customer_email" validate:"required,email"`
	CustomerPhone    *string           `json:"customer_phone"`
	ShippingAddress  types.Address     `json:"shipping_address" validate:"required"`
	Items            []LineItemRequest `json:"items" validate:"required,min=1,dive"`
	Total            string            `json:"total" validate:"required"`
	PaymentReference string            `json:"payment_reference" validate:"required"`
}

type LineItemDTO struct {
	VariantRef     string `json:"variant_ref"`
	Name           string `json:"name"`
	Qty            int    `json:"qty"`
	UnitPriceCents int    `json:"unit_price_cents"`
	TotalCents     int    `json:"total_cents"`
}

type OrderDTO struct {
	ID               uuid.UUID         `json:"id"`
	OrderNumber      string            `json:"order_number"`
	CustomerName     string            `json:"customer_name"`
	CustomerEmail    string            `json:"customer_email"`
	CustomerPhone    *string           `json:"customer_phone,omitempty"`
	ShippingAddress  types.Address     `json:"shipping_address"`
	Status           enums.OrderStatus `json:"status"`
	TotalCents       int               `json:"total_cents"`
	PaymentReference string            `json:"payment_reference"`
	Items            []LineItemDTO     `json:"items"`
	CreatedAt        time.Time         `json:"created_at"`
}

// OrderSummaryDTO is the list row: enough for an order history screen
// without the full shipping snapshot.
type OrderSummaryDTO struct {
	OrderNumber string            `json:"order_number"`
	Status      enums.OrderStatus `json:"status"`
	TotalCents  int               `json:"total_cents"`
	ItemCount   int               `json:"item_count"`
	Items       []LineItemDTO     `json:"items"`
	CreatedAt   time.Time         `json:"created_at"`
}

func itemDTO(item models.OrderLineItem) LineItemDTO {
	return LineItemDTO{
		VariantRef:     item.VariantRef,
		Name:           item.Name,
		Qty:            item.Qty,
		UnitPriceCents: item.UnitPriceCents,
		TotalCents:     item.TotalCents,
	}
}

func itemDTOs(items []models.OrderLineItem) []LineItemDTO {
	out := make([]LineItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, itemDTO(item))
	}
	return out
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	return &OrderDTO{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		CustomerName:     o.CustomerName,
		CustomerEmail:    o.CustomerEmail,
		CustomerPhone:    o.CustomerPhone,
		ShippingAddress:  o.ShippingAddress,
		Status:           o.Status,
		TotalCents:       o.TotalCents,
		PaymentReference: o.PaymentReference,
		Items:            itemDTOs(o.Items),
		CreatedAt:        o.CreatedAt,
	}
}

func summaryFromModel(o models.Order) OrderSummaryDTO {
	return OrderSummaryDTO{
		OrderNumber: o.OrderNumber,
		Status:      o.Status,
		TotalCents:  o.TotalCents,
		ItemCount:   len(o.Items),
		Items:       itemDTOs(o.Items),
		CreatedAt:   o.CreatedAt,
	}
}

// parseCents converts a decimal money string to integer cents. Amounts that
// do not land on a whole cent are rejected rather than rounded.
func parseCents(value string) (int, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid money amount: "+value)
	}
	if d.IsNegative() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "money amount cannot be negative: "+value)
	}
	cents := d.Mul(decimal.NewFromInt(100))
	if !cents.IsInteger() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "money amount has sub-cent precision: "+value)
	}
	return int(cents.IntPart()), nil
}
