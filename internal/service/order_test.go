package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motoforge/storefront/internal/domain"
	"github.com/motoforge/storefront/internal/repository/memory"
	apperrors "github.com/motoforge/storefront/pkg/errors"
	"github.com/motoforge/storefront/pkg/validator"
)

func newTestOrderService(t *testing.T, delay time.Duration) (*OrderService, *memory.OrderRepository) {
	t.Helper()
	repo := memory.NewOrderRepository()
	svc := NewOrderService(repo, memory.NewProductRepository(nil), newTestLogger(), delay)
	t.Cleanup(svc.Close)
	return svc, repo
}

func validOrderInput() CreateOrderInput {
	return CreateOrderInput{
		CustomerName:  "Ada Rider",
		CustomerEmail: "ada@example.com",
		Items: []CreateOrderItemInput{
			{ProductID: "1", Quantity: 1},
			{ProductID: "6", Quantity: 2},
		},
	}
}

func TestCreateOrder_PricesFromCatalog(t *testing.T) {
	svc, _ := newTestOrderService(t, time.Hour)

	order, err := svc.CreateOrder(context.Background(), "sess-1", validOrderInput())
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "sess-1", order.SessionID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Carbon Fiber Helmet", order.Items[0].Name)
	assert.True(t, decimal.RequireFromString("179.98").Equal(order.Items[1].LineTotal), "line total %s", order.Items[1].LineTotal)
	assert.Equal(t, "629.97", order.Total.StringFixed(2))
	assert.Equal(t, order.CreatedAt, order.UpdatedAt)
}

func TestCreateOrder_ValidationError(t *testing.T) {
	svc, _ := newTestOrderService(t, time.Hour)

	_, err := svc.CreateOrder(context.Background(), "sess-1", CreateOrderInput{
		CustomerName:  "",
		CustomerEmail: "not-an-email",
		Items:         []CreateOrderItemInput{{ProductID: "1", Quantity: 0}},
	})
	require.Error(t, err)

	var valErr *validator.ValidationError
	require.True(t, errors.As(err, &valErr))
	fields := valErr.Fields()
	assert.Contains(t, fields, "CustomerName")
	assert.Contains(t, fields, "CustomerEmail")
	assert.Contains(t, fields, "Items[0].Quantity")
}

func TestCreateOrder_NoItems(t *testing.T) {
	svc, _ := newTestOrderService(t, time.Hour)

	input := validOrderInput()
	input.Items = nil
	_, err := svc.CreateOrder(context.Background(), "sess-1", input)

	var valErr *validator.ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Contains(t, valErr.Fields(), "Items")
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	svc, repo := newTestOrderService(t, time.Hour)

	input := validOrderInput()
	input.Items = append(input.Items, CreateOrderItemInput{ProductID: "nope", Quantity: 1})
	_, err := svc.CreateOrder(context.Background(), "sess-1", input)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	orders, err := repo.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateOrder_OutOfStock(t *testing.T) {
	svc, _ := newTestOrderService(t, time.Hour)

	input := validOrderInput()
	input.Items = []CreateOrderItemInput{{ProductID: "4", Quantity: 1}}
	_, err := svc.CreateOrder(context.Background(), "sess-1", input)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateOrder_MovesToProcessing(t *testing.T) {
	svc, _ := newTestOrderService(t, 10*time.Millisecond)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "sess-1", validOrderInput())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := svc.GetOrder(ctx, order.ID)
		return err == nil && got.Status == domain.OrderStatusProcessing
	}, 2*time.Second, 5*time.Millisecond)
}

func TestClose_StopsPaymentSimulation(t *testing.T) {
	svc, _ := newTestOrderService(t, 50*time.Millisecond)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "sess-1", validOrderInput())
	require.NoError(t, err)
	svc.Close()

	time.Sleep(100 * time.Millisecond)
	got, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
}

func TestListOrders_BySessionNewestFirst(t *testing.T) {
	svc, _ := newTestOrderService(t, time.Hour)
	ctx := context.Background()

	first, err := svc.CreateOrder(ctx, "sess-1", validOrderInput())
	require.NoError(t, err)
	_, err = svc.CreateOrder(ctx, "sess-2", validOrderInput())
	require.NoError(t, err)
	second, err := svc.CreateOrder(ctx, "sess-1", validOrderInput())
	require.NoError(t, err)

	orders, err := svc.ListOrders(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
}

func TestGetOrder_NotFound(t *testing.T) {
	svc, _ := newTestOrderService(t, time.Hour)

	_, err := svc.GetOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.GetOrder(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
