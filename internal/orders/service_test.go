package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/calderahq/storefront-backend/pkg/db/models"
	"github.com/calderahq/storefront-backend/pkg/enums"
	pkgerrors "github.com/calderahq/storefront-backend/pkg/errors"
	"github.com/calderahq/storefront-backend/pkg/types"
)

type stubOrderRepo struct {
	orders    []*models.Order
	createErr error

	// failUniqueTimes makes the first N creates fail with a unique
	// violation on the order number index.
	failUniqueTimes int
	attempts        []string
}

func (r *stubOrderRepo) CreateWithItems(_ context.Context, order *models.Order) error {
	r.attempts = append(r.attempts, order.OrderNumber)
	if r.failUniqueTimes > 0 {
		r.failUniqueTimes--
		return fmt.Errorf(`duplicate key value violates unique constraint "idx_orders_order_number"`)
	}
	if r.createErr != nil {
		return r.createErr
	}
	clone := *order
	r.orders = append(r.orders, &clone)
	return nil
}

func (r *stubOrderRepo) ListForCustomer(_ context.Context, userID uuid.UUID, email string) ([]models.Order, error) {
	var out []models.Order
	for _, o := range r.orders {
		if (o.UserID != nil && *o.UserID == userID) || o.CustomerEmail == email {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *stubOrderRepo) FindByOrderNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	for _, o := range r.orders {
		if o.OrderNumber == orderNumber {
			clone := *o
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func testOrderService(t *testing.T, repo *stubOrderRepo) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		OrderRepo: repo,
		Now:       func() time.Time { return time.Date(2026, 8, 30, 14, 30, 5, 0, time.UTC) },
	})
	require.NoError(t, err)
	return svc
}

func ptrUUID(id uuid.UUID) *uuid.UUID {
	return &id
}

func validCreateRequest() CreateOrderRequest {
	return CreateOrderRequest{
		CustomerName:  "Ann Example",
		CustomerEmail: "ann@x.com",
		ShippingAddress: types.Address{
			Line1:      "12 Harbor Rd",
			City:       "Portland",
			State:      "ME",
			PostalCode: "04101",
			Country:    "US",
		},
		Items: []LineItemRequest{
			{VariantRef: "sku-100", Name: "Widget", Qty: 2, UnitPrice: "19.90"},
			{VariantRef: "sku-200", Name: "Gadget", Qty: 1, UnitPrice: "5.00"},
		},
		Total:            "44.80",
		PaymentReference: "pay_abc123",
	}
}

func TestCreateOrder_Success(t *testing.T) {
	repo := &stubOrderRepo{}
	svc := testOrderService(t, repo)
	userID := uuid.New()

	dto, err := svc.CreateOrder(context.Background(), &userID, validCreateRequest())
	require.NoError(t, err)

	assert.Regexp(t, `^20260830143005-\d{4}$`, dto.OrderNumber)
	assert.Equal(t, enums.OrderStatusPaid, dto.Status)
	assert.Equal(t, 4480, dto.TotalCents)
	require.Len(t, dto.Items, 2)
	assert.Equal(t, 3980, dto.Items[0].TotalCents)
	assert.Equal(t, 1990, dto.Items[0].UnitPriceCents)
	assert.Equal(t, "pay_abc123", dto.PaymentReference)

	require.Len(t, repo.orders, 1)
	require.NotNil(t, repo.orders[0].UserID)
	assert.Equal(t, userID, *repo.orders[0].UserID)
}

func TestCreateOrder_GuestCheckout(t *testing.T) {
	repo := &stubOrderRepo{}
	svc := testOrderService(t, repo)

	dto, err := svc.CreateOrder(context.Background(), nil, validCreateRequest())
	require.NoError(t, err)

	require.Len(t, repo.orders, 1)
	assert.Nil(t, repo.orders[0].UserID)

	// The guest's order shows up later under an account registered with the
	// same email.
	registered := uuid.New()
	out, err := svc.ListMyOrders(context.Background(), registered, "ann@x.com")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, dto.OrderNumber, out[0].OrderNumber)
}

func TestCreateOrder_TotalMismatch(t *testing.T) {
	repo := &stubOrderRepo{}
	svc := testOrderService(t, repo)

	req := validCreateRequest()
	req.Total = "44.81"

	_, err := svc.CreateOrder(context.Background(), ptrUUID(uuid.New()), req)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Empty(t, repo.attempts, "nothing may be written on a mismatched total")
}

func TestCreateOrder_RejectsSubCentAndBadAmounts(t *testing.T) {
	svc := testOrderService(t, &stubOrderRepo{})

	for _, bad := range []string{"19.999", "abc", "-5.00"} {
		req := validCreateRequest()
		req.Items[0].UnitPrice = bad
		_, err := svc.CreateOrder(context.Background(), ptrUUID(uuid.New()), req)
		require.Error(t, err, bad)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code(), bad)
	}
}

func TestCreateOrder_RetriesOnOrderNumberCollision(t *testing.T) {
	repo := &stubOrderRepo{failUniqueTimes: 2}
	svc := testOrderService(t, repo)

	dto, err := svc.CreateOrder(context.Background(), ptrUUID(uuid.New()), validCreateRequest())
	require.NoError(t, err)
	require.Len(t, repo.attempts, 3)
	assert.Equal(t, repo.attempts[2], dto.OrderNumber)
}

func TestCreateOrder_PersistenceFailure(t *testing.T) {
	repo := &stubOrderRepo{createErr: fmt.Errorf("connection reset")}
	svc := testOrderService(t, repo)

	_, err := svc.CreateOrder(context.Background(), ptrUUID(uuid.New()), validCreateRequest())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInternal, pkgerrors.As(err).Code())
}

func TestListMyOrders_IncludesGuestOrdersByEmail(t *testing.T) {
	userID := uuid.New()
	repo := &stubOrderRepo{orders: []*models.Order{
		{OrderNumber: "a", UserID: &userID, CustomerEmail: "ann@x.com", Items: []models.OrderLineItem{{}, {}}},
		{OrderNumber: "b", UserID: nil, CustomerEmail: "ann@x.com", Items: []models.OrderLineItem{{}}},
		{OrderNumber: "c", UserID: nil, CustomerEmail: "bob@x.com"},
	}}
	svc := testOrderService(t, repo)

	out, err := svc.ListMyOrders(context.Background(), userID, "ann@x.com")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 2, out[0].ItemCount)
	assert.Equal(t, 1, out[1].ItemCount)
}

func TestGetOrder_ScopedToCaller(t *testing.T) {
	owner := uuid.New()
	repo := &stubOrderRepo{orders: []*models.Order{
		{OrderNumber: "20260830143005-0001", UserID: &owner, CustomerEmail: "ann@x.com"},
	}}
	svc := testOrderService(t, repo)

	dto, err := svc.GetOrder(context.Background(), owner, "ann@x.com", "20260830143005-0001")
	require.NoError(t, err)
	assert.Equal(t, "20260830143005-0001", dto.OrderNumber)

	// A stranger's lookup reads the same as a missing order.
	_, errStranger := svc.GetOrder(context.Background(), uuid.New(), "bob@x.com", "20260830143005-0001")
	_, errMissing := svc.GetOrder(context.Background(), owner, "ann@x.com", "20990101000000-0000")
	for _, err := range []error{errStranger, errMissing} {
		require.Error(t, err)
		appErr := pkgerrors.As(err)
		assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
		assert.Equal(t, "order not found", appErr.Message())
	}
}
