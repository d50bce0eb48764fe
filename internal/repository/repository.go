package repository

import (
	"context"
	"time"

	"github.com/motoforge/storefront/internal/domain"
	"github.com/motoforge/storefront/internal/store"
)

// WishlistRepository persists one wishlist snapshot per shopper session.
type WishlistRepository interface {
	// Load returns the saved snapshot. It returns an error wrapping
	// apperrors.ErrNotFound when the session has none and one wrapping
	// domain.ErrCorruptSnapshot when the saved blob cannot be decoded.
	Load(ctx context.Context, sessionID string) ([]domain.WishlistItem, error)

	// Save overwrites the session's snapshot with items.
	Save(ctx context.Context, sessionID string, items []domain.WishlistItem) error
}

// ProductRepository reads the product catalog.
type ProductRepository interface {
	// List returns every product matching filter in catalog order.
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)

	// Get returns a product by ID.
	Get(ctx context.Context, id string) (*domain.Product, error)
}

// OrderRepository stores mock orders.
type OrderRepository interface {
	// Create stores a new order.
	Create(ctx context.Context, order *domain.Order) error

	// Get returns an order by ID.
	Get(ctx context.Context, id string) (*domain.Order, error)

	// List returns the orders placed by a session, newest first. An empty
	// sessionID lists every order.
	List(ctx context.Context, sessionID string) ([]domain.Order, error)

	// UpdateStatus sets an order's status.
	UpdateStatus(ctx context.Context, id, status string, at time.Time) error
}

// sessionBackend binds a WishlistRepository to one session.
type sessionBackend struct {
	repo      WishlistRepository
	sessionID string
}

// ForSession adapts repo to the store.Backend of a single session.
func ForSession(repo WishlistRepository, sessionID string) store.Backend {
	return &sessionBackend{repo: repo, sessionID: sessionID}
}

func (b *sessionBackend) Load(ctx context.Context) ([]domain.WishlistItem, error) {
	return b.repo.Load(ctx, b.sessionID)
}

func (b *sessionBackend) Save(ctx context.Context, items []domain.WishlistItem) error {
	return b.repo.Save(ctx, b.sessionID, items)
}
