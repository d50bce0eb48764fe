package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/motoforge/storefront/internal/domain"
	"github.com/motoforge/storefront/pkg/breaker"
	apperrors "github.com/motoforge/storefront/pkg/errors"
)

// Guarded wraps a WishlistRepository in a circuit breaker so a dead backend
// fails fast. Missing and corrupt snapshots do not count as backend failures.
type Guarded struct {
	repo    WishlistRepository
	breaker *breaker.Breaker[[]domain.WishlistItem]
}

// NewGuarded wraps repo. metrics may be nil.
func NewGuarded(repo WishlistRepository, cfg breaker.Config, metrics *breaker.Metrics, logger *slog.Logger) *Guarded {
	return &Guarded{
		repo:    repo,
		breaker: breaker.New[[]domain.WishlistItem](cfg, metrics, logger, isBackendHealthy),
	}
}

func isBackendHealthy(err error) bool {
	return err == nil ||
		errors.Is(err, apperrors.ErrNotFound) ||
		errors.Is(err, apperrors.ErrInvalidInput) ||
		errors.Is(err, domain.ErrCorruptSnapshot)
}

// Load implements WishlistRepository.
func (g *Guarded) Load(ctx context.Context, sessionID string) ([]domain.WishlistItem, error) {
	return g.breaker.Execute(ctx, func() ([]domain.WishlistItem, error) {
		return g.repo.Load(ctx, sessionID)
	})
}

// Save implements WishlistRepository.
func (g *Guarded) Save(ctx context.Context, sessionID string, items []domain.WishlistItem) error {
	_, err := g.breaker.Execute(ctx, func() ([]domain.WishlistItem, error) {
		return nil, g.repo.Save(ctx, sessionID, items)
	})
	return err
}
