package domain

import "time"

// WishlistItem is a product the shopper has saved for later.
type WishlistItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Image       string    `json:"image"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	AddedAt     time.Time `json:"addedAt"`
}

// ItemInput holds the caller-supplied fields of a wishlist item. AddedAt is
// always assigned by the store.
type ItemInput struct {
	ID          string  `json:"id" validate:"required,max=128"`
	Name        string  `json:"name" validate:"required,max=256"`
	Price       float64 `json:"price" validate:"gte=0"`
	Image       string  `json:"image" validate:"max=2048"`
	Category    string  `json:"category" validate:"max=128"`
	Description string  `json:"description,omitempty" validate:"max=4096"`
}

// NewItem builds a WishlistItem from input stamped with addedAt in UTC.
func NewItem(input ItemInput, addedAt time.Time) WishlistItem {
	return WishlistItem{
		ID:          input.ID,
		Name:        input.Name,
		Price:       input.Price,
		Image:       input.Image,
		Category:    input.Category,
		Description: input.Description,
		AddedAt:     addedAt.UTC(),
	}
}

// State is the wishlist of one session. ItemCount always equals len(Items).
type State struct {
	Items     []WishlistItem `json:"items"`
	ItemCount int            `json:"itemCount"`
}

// NewState builds a State from items, deriving ItemCount.
func NewState(items []WishlistItem) State {
	if items == nil {
		items = []WishlistItem{}
	}
	return State{Items: items, ItemCount: len(items)}
}

// IndexOf returns the position of the item with id, or -1.
func (s State) IndexOf(id string) int {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Contains reports whether an item with id is present.
func (s State) Contains(id string) bool {
	return s.IndexOf(id) >= 0
}

// Clone returns a copy whose Items slice does not alias s.
func (s State) Clone() State {
	items := make([]WishlistItem, len(s.Items))
	copy(items, s.Items)
	return State{Items: items, ItemCount: len(items)}
}

// ToggleResult reports what a toggle did.
type ToggleResult string

const (
	ToggleAdded   ToggleResult = "added"
	ToggleRemoved ToggleResult = "removed"
	// ToggleIgnored means the input had no id and nothing changed.
	ToggleIgnored ToggleResult = "ignored"
)
