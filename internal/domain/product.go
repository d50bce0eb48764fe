package domain

import "strings"

// Product is a catalog entry.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	InStock     bool    `json:"inStock"`
}

// ProductFilter narrows a catalog listing. Zero values match everything.
type ProductFilter struct {
	Category string
	Search   string
	InStock  *bool
}

// Matches reports whether p satisfies every set field of f. Category is a
// case-insensitive exact match; Search is a case-insensitive substring of the
// name or description.
func (f ProductFilter) Matches(p Product) bool {
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.InStock != nil && p.InStock != *f.InStock {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	return true
}

// ItemInput converts the product into wishlist input.
func (p Product) ItemInput() ItemInput {
	return ItemInput{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Image:       p.Image,
		Category:    p.Category,
		Description: p.Description,
	}
}
