// Package file stores wishlist snapshots as one JSON file per session, the
// server-side analogue of browser local storage.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/motoforge/storefront/internal/domain"
	"github.com/motoforge/storefront/pkg/database"
	apperrors "github.com/motoforge/storefront/pkg/errors"
	"github.com/motoforge/storefront/pkg/validator"
)

// WishlistRepository implements repository.WishlistRepository on the local
// filesystem. Writes go to a temp file that is renamed over the target, so a
// crash never leaves a half-written snapshot.
type WishlistRepository struct {
	dir string
}

// NewWishlistRepository creates the directory if needed.
func NewWishlistRepository(dir string) (*WishlistRepository, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create wishlist dir: %w", err)
	}
	return &WishlistRepository{dir: dir}, nil
}

func (r *WishlistRepository) path(sessionID string) (string, error) {
	if !validator.IsSessionID(sessionID) {
		return "", apperrors.InvalidInput("invalid session id")
	}
	return filepath.Join(r.dir, sessionID+".json"), nil
}

// Load reads and decodes the session's snapshot file.
func (r *WishlistRepository) Load(ctx context.Context, sessionID string) (items []domain.WishlistItem, err error) {
	p, err := r.path(sessionID)
	if err != nil {
		return nil, err
	}

	_, end := database.TraceQuery(ctx, database.SystemFile, "LoadWishlist", "read "+filepath.Base(p))
	defer func() { end(err) }()

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NotFound("wishlist", sessionID)
		}
		return nil, fmt.Errorf("read wishlist file: %w", err)
	}
	return domain.DecodeItems(data)
}

// Save atomically replaces the session's snapshot file.
func (r *WishlistRepository) Save(ctx context.Context, sessionID string, items []domain.WishlistItem) (err error) {
	p, err := r.path(sessionID)
	if err != nil {
		return err
	}

	_, end := database.TraceQuery(ctx, database.SystemFile, "SaveWishlist", "write "+filepath.Base(p))
	defer func() { end(err) }()

	data, err := domain.EncodeItems(items)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.dir, sessionID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp wishlist file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write wishlist file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync wishlist file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close wishlist file: %w", err)
	}
	if err = os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("rename wishlist file: %w", err)
	}
	return nil
}

// Ping verifies the directory is still writable.
func (r *WishlistRepository) Ping(_ context.Context) error {
	f, err := os.CreateTemp(r.dir, ".ping-*")
	if err != nil {
		return fmt.Errorf("wishlist dir not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
