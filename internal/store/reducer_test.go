package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/motoforge/storefront/internal/domain"
)

func wi(id string) domain.WishlistItem {
	return domain.NewItem(domain.ItemInput{ID: id, Name: id}, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestReduce(t *testing.T) {
	base := domain.NewState([]domain.WishlistItem{wi("a"), wi("b")})

	tests := []struct {
		name        string
		action      Action
		wantIDs     []string
		wantChanged bool
	}{
		{"add new", Action{Type: ActionAdd, Item: wi("c")}, []string{"a", "b", "c"}, true},
		{"add existing", Action{Type: ActionAdd, Item: wi("a")}, []string{"a", "b"}, false},
		{"add empty id", Action{Type: ActionAdd, Item: domain.WishlistItem{}}, []string{"a", "b"}, false},
		{"remove present", Action{Type: ActionRemove, ID: "a"}, []string{"b"}, true},
		{"remove absent", Action{Type: ActionRemove, ID: "z"}, []string{"a", "b"}, false},
		{"clear", Action{Type: ActionClear}, []string{}, true},
		{"hydrate dedupes", Action{Type: ActionHydrate, Items: []domain.WishlistItem{wi("x"), wi("x"), wi("y")}}, []string{"x", "y"}, true},
		{"unknown", Action{Type: "bogus"}, []string{"a", "b"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, changed := Reduce(base, tt.action)

			ids := make([]string, 0, len(next.Items))
			for _, it := range next.Items {
				ids = append(ids, it.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, len(next.Items), next.ItemCount)
		})
	}

	assert.Len(t, base.Items, 2, "input state must not be mutated")
	assert.Equal(t, "a", base.Items[0].ID)
}

func TestReduce_ClearEmptyIsNoOp(t *testing.T) {
	_, changed := Reduce(domain.NewState(nil), Action{Type: ActionClear})
	assert.False(t, changed)
}
