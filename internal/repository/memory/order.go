package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/motoforge/storefront/internal/domain"
	apperrors "github.com/motoforge/storefront/pkg/errors"
)

// OrderRepository keeps orders in a process-local list. Orders are lost on
// restart.
type OrderRepository struct {
	mu     sync.RWMutex
	orders []*domain.Order
}

// NewOrderRepository creates an empty order list.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{}
}

// Create appends a copy of order.
func (r *OrderRepository) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.orders {
		if o.ID == order.ID {
			return apperrors.Conflict("order " + order.ID + " already exists")
		}
	}
	r.orders = append(r.orders, cloneOrder(order))
	return nil
}

// Get returns a copy of the order with id.
func (r *OrderRepository) Get(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, o := range r.orders {
		if o.ID == id {
			return cloneOrder(o), nil
		}
	}
	return nil, apperrors.NotFound("order", id)
}

// List returns copies of the session's orders, newest first.
func (r *OrderRepository) List(_ context.Context, sessionID string) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Order, 0, len(r.orders))
	for _, o := range slices.Backward(r.orders) {
		if sessionID == "" || o.SessionID == sessionID {
			out = append(out, *cloneOrder(o))
		}
	}
	return out, nil
}

// UpdateStatus sets the status of the order with id.
func (r *OrderRepository) UpdateStatus(_ context.Context, id, status string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.orders {
		if o.ID == id {
			o.Status = status
			o.UpdatedAt = at
			return nil
		}
	}
	return apperrors.NotFound("order", id)
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	return &c
}
