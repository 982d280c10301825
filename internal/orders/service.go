package orders

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderahq/storefront-backend/pkg/db"
	"github.com/calderahq/storefront-backend/pkg/db/models"
	"github.com/calderahq/storefront-backend/pkg/enums"
	pkgerrors "github.com/calderahq/storefront-backend/pkg/errors"
)

// orderNumberAttempts bounds retries when a generated number collides.
const orderNumberAttempts = 3

// Service finalizes paid checkouts. It never talks to a payment processor;
// the payment reference in the request is taken as proof of confirmation.
type Service interface {
	CreateOrder(ctx context.Context, userID *uuid.UUID, req CreateOrderRequest) (*OrderDTO, error)
	ListMyOrders(ctx context.Context, userID uuid.UUID, email string) ([]OrderSummaryDTO, error)
	GetOrder(ctx context.Context, userID uuid.UUID, email, orderNumber string) (*OrderDTO, error)
}

type orderRepository interface {
	CreateWithItems(ctx context.Context, order *models.Order) error
	ListForCustomer(ctx context.Context, userID uuid.UUID, email string) ([]models.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
}

type service struct {
	orders orderRepository
	now    func() time.Time
}

type ServiceParams struct {
	OrderRepo orderRepository

	// Now overrides the clock in tests.
	Now func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.OrderRepo == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{orders: params.OrderRepo, now: now}, nil
}

// CreateOrder writes the order and all line items atomically and returns the
// finished record. Totals are cross-checked against the items before any
// write so a client bug cannot record a mismatched amount. A nil userID is a
// guest checkout; the order is later retrievable by its customer email.
func (s *service) CreateOrder(ctx context.Context, userID *uuid.UUID, req CreateOrderRequest) (*OrderDTO, error) {
	if len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}

	totalCents, err := parseCents(req.Total)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderLineItem, 0, len(req.Items))
	sumCents := 0
	for _, item := range req.Items {
		unitCents, err := parseCents(item.UnitPrice)
		if err != nil {
			return nil, err
		}
		lineCents := unitCents * item.Qty
		sumCents += lineCents
		items = append(items, models.OrderLineItem{
			VariantRef:     item.VariantRef,
			Name:           item.Name,
			Qty:            item.Qty,
			UnitPriceCents: unitCents,
			TotalCents:     lineCents,
		})
	}
	if sumCents != totalCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("order total %d does not match line items %d", totalCents, sumCents))
	}

	order := &models.Order{
		UserID:           userID,
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		CustomerPhone:    req.CustomerPhone,
		ShippingAddress:  req.ShippingAddress,
		Status:           enums.OrderStatusPaid,
		TotalCents:       totalCents,
		PaymentReference: req.PaymentReference,
		Items:            items,
	}

	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number, err := newOrderNumber(s.now())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		order.OrderNumber = number

		err = s.orders.CreateWithItems(ctx, order)
		if err == nil {
			return FromModel(order), nil
		}
		if db.IsUniqueViolation(err, "idx_orders_order_number") {
			continue
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order could not be persisted")
	}
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "order could not be persisted")
}

// ListMyOrders returns the caller's history newest first. Matching on email
// as well as user id picks up orders placed as a guest before the account
// existed.
func (s *service) ListMyOrders(ctx context.Context, userID uuid.UUID, email string) ([]OrderSummaryDTO, error) {
	records, err := s.orders.ListForCustomer(ctx, userID, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	out := make([]OrderSummaryDTO, 0, len(records))
	for _, record := range records {
		out = append(out, summaryFromModel(record))
	}
	return out, nil
}

// GetOrder looks up a single order by number, scoped to the caller. A number
// belonging to someone else reads the same as one that does not exist.
func (s *service) GetOrder(ctx context.Context, userID uuid.UUID, email, orderNumber string) (*OrderDTO, error) {
	order, err := s.orders.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find order")
	}
	owned := (order.UserID != nil && *order.UserID == userID) || order.CustomerEmail == email
	if !owned {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return FromModel(order), nil
}

// newOrderNumber derives a human-readable number from the creation time plus
// a random 4-digit suffix. The timestamp alone can collide under concurrent
// checkouts; the suffix and the unique index close that hole.
func newOrderNumber(now time.Time) (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	suffix := binary.BigEndian.Uint32(buf[:]) % 10000
	return fmt.Sprintf("%s-%04d", now.Format("20060102150405"), suffix), nil
}
