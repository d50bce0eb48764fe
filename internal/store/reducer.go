// Package store holds the per-session wishlist state container. Every
// mutation is an Action applied by Reduce; the Store serialises actions,
// records them in a bounded history and notifies subscribers such as the
// Persister.
package store

import (
	"github.com/motoforge/storefront/internal/domain"
)

// ActionType names a wishlist transition.
type ActionType string

const (
	ActionHydrate ActionType = "hydrate"
	ActionAdd     ActionType = "add"
	ActionRemove  ActionType = "remove"
	ActionClear   ActionType = "clear"
)

// Action is a single requested transition. Item is used by add, ID by
// remove and Items by hydrate.
type Action struct {
	Type  ActionType
	Item  domain.WishlistItem
	ID    string
	Items []domain.WishlistItem
}

// Reduce applies a to s and returns the next state plus whether anything
// changed. It never mutates s; the returned state owns a fresh Items slice
// whenever changed is true.
func Reduce(s domain.State, a Action) (domain.State, bool) {
	switch a.Type {
	case ActionHydrate:
		items := make([]domain.WishlistItem, 0, len(a.Items))
		seen := make(map[string]struct{}, len(a.Items))
		for _, item := range a.Items {
			if _, dup := seen[item.ID]; dup || item.ID == "" {
				continue
			}
			seen[item.ID] = struct{}{}
			items = append(items, item)
		}
		return domain.NewState(items), true

	case ActionAdd:
		if a.Item.ID == "" || s.Contains(a.Item.ID) {
			return s, false
		}
		items := make([]domain.WishlistItem, len(s.Items), len(s.Items)+1)
		copy(items, s.Items)
		return domain.NewState(append(items, a.Item)), true

	case ActionRemove:
		idx := s.IndexOf(a.ID)
		if idx < 0 {
			return s, false
		}
		items := make([]domain.WishlistItem, 0, len(s.Items)-1)
		items = append(items, s.Items[:idx]...)
		items = append(items, s.Items[idx+1:]...)
		return domain.NewState(items), true

	case ActionClear:
		if len(s.Items) == 0 {
			return s, false
		}
		return domain.NewState(nil), true

	default:
		return s, false
	}
}
