package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/motoforge/storefront/internal/domain"
	"github.com/motoforge/storefront/pkg/database"
	apperrors "github.com/motoforge/storefront/pkg/errors"
)

// DBTX is the subset of pgxpool.Pool the repository needs. pgxmock pools
// satisfy it in tests.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WishlistRepository implements repository.WishlistRepository using one
// JSONB row per session in wishlist_snapshots.
type WishlistRepository struct {
	db  DBTX
	now func() time.Time
}

// NewWishlistRepository creates a new PostgreSQL-backed wishlist repository.
func NewWishlistRepository(db DBTX) *WishlistRepository {
	return &WishlistRepository{db: db, now: time.Now}
}

const loadQuery = `SELECT items FROM wishlist_snapshots WHERE session_id = $1`

// Load fetches and decodes the session's snapshot row.
func (r *WishlistRepository) Load(ctx context.Context, sessionID string) (items []domain.WishlistItem, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "LoadWishlist", loadQuery)
	defer func() { end(err) }()

	var data []byte
	if err := r.db.QueryRow(ctx, loadQuery, sessionID).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("wishlist", sessionID)
		}
		return nil, fmt.Errorf("load wishlist snapshot: %w", err)
	}

	return domain.DecodeItems(data)
}

const saveQuery = `
		INSERT INTO wishlist_snapshots (session_id, items, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO UPDATE
		SET items = EXCLUDED.items, updated_at = EXCLUDED.updated_at`

// Save upserts the session's snapshot row.
func (r *WishlistRepository) Save(ctx context.Context, sessionID string, items []domain.WishlistItem) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "SaveWishlist", saveQuery)
	defer func() { end(err) }()

	data, err := domain.EncodeItems(items)
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, saveQuery, sessionID, data, r.now().UTC()); err != nil {
		return fmt.Errorf("save wishlist snapshot: %w", err)
	}
	return nil
}
