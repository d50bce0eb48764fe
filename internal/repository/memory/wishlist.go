// Package memory holds process-local repositories: an ephemeral wishlist
// backend, the static product catalog and the mock order list.
package memory

import (
	"context"
	"sync"

	"github.com/motoforge/storefront/internal/domain"
	apperrors "github.com/motoforge/storefront/pkg/errors"
)

// WishlistRepository keeps encoded snapshots in a map. Snapshots are stored
// in their persisted JSON form so decode rules apply exactly as for durable
// backends.
type WishlistRepository struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewWishlistRepository creates an empty in-memory wishlist repository.
func NewWishlistRepository() *WishlistRepository {
	return &WishlistRepository{blobs: make(map[string][]byte)}
}

// Load returns the snapshot stored for sessionID.
func (r *WishlistRepository) Load(_ context.Context, sessionID string) ([]domain.WishlistItem, error) {
	r.mu.RLock()
	data, ok := r.blobs[sessionID]
	r.mu.RUnlock()

	if !ok {
		return nil, apperrors.NotFound("wishlist", sessionID)
	}
	return domain.DecodeItems(data)
}

// Save replaces the snapshot for sessionID.
func (r *WishlistRepository) Save(_ context.Context, sessionID string, items []domain.WishlistItem) error {
	data, err := domain.EncodeItems(items)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.blobs[sessionID] = data
	r.mu.Unlock()
	return nil
}

// Put stores a raw blob for sessionID, bypassing encoding.
func (r *WishlistRepository) Put(sessionID string, raw []byte) {
	r.mu.Lock()
	r.blobs[sessionID] = raw
	r.mu.Unlock()
}

// Len returns the number of stored snapshots.
func (r *WishlistRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}
