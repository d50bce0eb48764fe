package memory

import (
	"context"

	"github.com/motoforge/storefront/internal/domain"
	apperrors "github.com/motoforge/storefront/pkg/errors"
)

// ProductRepository serves a fixed product list.
type ProductRepository struct {
	products []domain.Product
	byID     map[string]int
}

// NewProductRepository creates a catalog from products. A nil slice loads
// the built-in storefront catalog.
func NewProductRepository(products []domain.Product) *ProductRepository {
	if products == nil {
		products = DefaultCatalog()
	}
	byID := make(map[string]int, len(products))
	for i, p := range products {
		byID[p.ID] = i
	}
	return &ProductRepository{products: products, byID: byID}
}

// List returns products matching filter in catalog order.
func (r *ProductRepository) List(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		if filter.Matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Get returns the product with id.
func (r *ProductRepository) Get(_ context.Context, id string) (*domain.Product, error) {
	i, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	p := r.products[i]
	return &p, nil
}

// DefaultCatalog returns the storefront's mock product data.
func DefaultCatalog() []domain.Product {
	return []domain.Product{
		{ID: "1", Name: "Carbon Fiber Helmet", Price: 449.99, Image: "/images/products/helmet-carbon.jpg", Category: "gear", Description: "DOT and ECE certified full-face helmet with a carbon fiber shell.", InStock: true},
		{ID: "2", Name: "Leather Riding Jacket", Price: 389.00, Image: "/images/products/jacket-leather.jpg", Category: "gear", Description: "Cowhide jacket with CE level 2 armour at shoulders and elbows.", InStock: true},
		{ID: "3", Name: "Titanium Slip-On Exhaust", Price: 899.00, Image: "/images/products/exhaust-titanium.jpg", Category: "exhausts", Description: "Lightweight titanium slip-on with removable dB killer.", InStock: true},
		{ID: "4", Name: "Stainless 2-into-1 Exhaust", Price: 1249.00, Image: "/images/products/exhaust-2into1.jpg", Category: "exhausts", Description: "Full stainless system for a deeper tone and more midrange.", InStock: false},
		{ID: "5", Name: "LED Headlight Kit", Price: 179.50, Image: "/images/products/led-headlight.jpg", Category: "lighting", Description: "7-inch round LED headlight with halo daytime running light.", InStock: true},
		{ID: "6", Name: "Sequential Turn Signals", Price: 89.99, Image: "/images/products/turn-signals.jpg", Category: "lighting", Description: "Pair of sequential LED indicators, E-marked.", InStock: true},
		{ID: "7", Name: "Brat Style Seat", Price: 259.00, Image: "/images/products/seat-brat.jpg", Category: "seats", Description: "Flat tuck-and-roll seat for cafe racer and brat builds.", InStock: true},
		{ID: "8", Name: "Solo Sprung Seat", Price: 319.00, Image: "/images/products/seat-solo.jpg", Category: "seats", Description: "Vintage solo seat with chrome springs and mounting kit.", InStock: false},
		{ID: "9", Name: "Clip-On Handlebars", Price: 149.00, Image: "/images/products/clip-ons.jpg", Category: "controls", Description: "Adjustable aluminium clip-ons for 41mm forks.", InStock: true},
		{ID: "10", Name: "Bar-End Mirrors", Price: 69.00, Image: "/images/products/bar-end-mirrors.jpg", Category: "controls", Description: "CNC machined bar-end mirrors, sold as a pair.", InStock: true},
		{ID: "11", Name: "Armoured Riding Gloves", Price: 79.99, Image: "/images/products/gloves.jpg", Category: "gear", Description: "Goatskin gloves with carbon knuckle protection.", InStock: true},
		{ID: "12", Name: "Tank Grip Pads", Price: 39.00, Image: "/images/products/tank-grips.jpg", Category: "accessories", Description: "Textured rubber knee pads for better tank grip.", InStock: true},
	}
}
