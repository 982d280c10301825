package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calderahq/storefront-backend/pkg/db"
	"github.com/calderahq/storefront-backend/pkg/db/models"
)

// Repository persists orders. CreateWithItems is the only write in scope;
// orders are immutable after it returns.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateWithItems writes the order and its line items in one transaction.
// Either everything lands or nothing does; readers never see an order
// without its items.
func (r *Repository) CreateWithItems(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
	}
	return db.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
}

// ListForCustomer returns orders owned by the user id or placed as a guest
// with the same email, newest first.
func (r *Repository) ListForCustomer(ctx context.Context, userID uuid.UUID, email string) ([]models.Order, error) {
	var out []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ? OR customer_email = ?", userID, email).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}
