package models

import (
	"time"

	"github.com/calderahq/storefront-backend/pkg/enums"
	"github.com/calderahq/storefront-backend/pkg/types"
	"github.com/google/uuid"
)

// Order is the immutable record written once payment has been confirmed.
// Customer contact fields are snapshots taken at creation; UserID is optional
// so guest checkouts still resolve by email.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber      string            `gorm:"column:order_number;type:text;not null;uniqueIndex"`
	UserID           *uuid.UUID        `gorm:"column:user_id;type:uuid"`
	CustomerName     string            `gorm:"column:customer_name;not null"`
	CustomerEmail    string            `gorm:"column:customer_email;not null;index"`
	CustomerPhone    *string           `gorm:"column:customer_phone"`
	ShippingAddress  types.Address     `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	Status           enums.OrderStatus `gorm:"column:status;type:text;not null;default:'paid'"`
	TotalCents       int               `gorm:"column:total_cents;not null"`
	PaymentReference string            `gorm:"column:payment_reference;not null"`
	Items            []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
