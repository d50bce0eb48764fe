package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/motoforge/storefront/internal/domain"
	"github.com/motoforge/storefront/internal/service"
	"github.com/motoforge/storefront/pkg/httputil"
)

// ProductHandler handles HTTP requests for catalog endpoints.
type ProductHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.CatalogService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{service: svc, logger: logger}
}

// ListProducts handles GET /api/v1/products?category=&search=&inStock=&page=&per_page=
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	inStock, ok := httputil.ParseOptionalBool(w, r, "inStock")
	if !ok {
		return
	}

	q := r.URL.Query()
	products, err := h.service.ListProducts(r.Context(), domain.ProductFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		InStock:  inStock,
	})
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	page, perPage := httputil.PageParams(r)
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(products, page, perPage))
}

// GetProduct handles GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, product)
}
