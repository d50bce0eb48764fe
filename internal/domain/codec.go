package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/motoforge/storefront/pkg/validator"
)

// ErrCorruptSnapshot marks a persisted wishlist that cannot be decoded or
// fails shape validation.
var ErrCorruptSnapshot = errors.New("corrupt wishlist snapshot")

// snapshotItem mirrors WishlistItem. Only id and addedAt are checked on load;
// the store keeps every other field as given, so anything it wrote must read
// back.
type snapshotItem struct {
	ID          string    `json:"id" validate:"required"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Image       string    `json:"image"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	AddedAt     time.Time `json:"addedAt" validate:"required"`
}

type snapshot struct {
	Items []snapshotItem `validate:"dive"`
}

// EncodeItems serializes items to the persisted JSON array format. A nil
// slice encodes as an empty array.
func EncodeItems(items []WishlistItem) ([]byte, error) {
	if items == nil {
		items = []WishlistItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode wishlist: %w", err)
	}
	return data, nil
}

// DecodeItems parses a persisted snapshot. It returns (nil, nil) for an empty
// blob or a JSON null, and an error wrapping ErrCorruptSnapshot for anything
// that is not a well-formed array of items. Duplicate ids keep the first
// occurrence.
func DecodeItems(data []byte) ([]WishlistItem, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var snap snapshot
	if err := json.Unmarshal(trimmed, &snap.Items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if err := validator.Validate(snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	items := make([]WishlistItem, 0, len(snap.Items))
	seen := make(map[string]struct{}, len(snap.Items))
	for _, si := range snap.Items {
		if _, dup := seen[si.ID]; dup {
			continue
		}
		seen[si.ID] = struct{}{}
		items = append(items, WishlistItem{
			ID:          si.ID,
			Name:        si.Name,
			Price:       si.Price,
			Image:       si.Image,
			Category:    si.Category,
			Description: si.Description,
			AddedAt:     si.AddedAt,
		})
	}
	return items, nil
}
