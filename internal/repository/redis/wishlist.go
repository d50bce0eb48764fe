package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/motoforge/storefront/internal/domain"
	"github.com/motoforge/storefront/pkg/database"
	apperrors "github.com/motoforge/storefront/pkg/errors"
)

const keyPrefix = "wishlist:"

// WishlistRepository implements repository.WishlistRepository using Redis.
// Each session's snapshot is one string key that expires after ttl without
// writes.
type WishlistRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewWishlistRepository creates a Redis-backed wishlist repository. A zero
// ttl keeps snapshots forever.
func NewWishlistRepository(client redis.UniversalClient, ttl time.Duration) *WishlistRepository {
	return &WishlistRepository{
		client: client,
		ttl:    ttl,
	}
}

// Load fetches and decodes the session's snapshot.
func (r *WishlistRepository) Load(ctx context.Context, sessionID string) (items []domain.WishlistItem, err error) {
	key := keyPrefix + sessionID

	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "LoadWishlist", "GET "+keyPrefix+"<session>")
	defer func() { end(err) }()

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("wishlist", sessionID)
		}
		return nil, fmt.Errorf("redis get wishlist: %w", err)
	}

	return domain.DecodeItems(data)
}

// Save overwrites the session's snapshot and refreshes its TTL.
func (r *WishlistRepository) Save(ctx context.Context, sessionID string, items []domain.WishlistItem) (err error) {
	key := keyPrefix + sessionID

	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "SaveWishlist", "SET "+keyPrefix+"<session>")
	defer func() { end(err) }()

	data, err := domain.EncodeItems(items)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set wishlist: %w", err)
	}
	return nil
}
