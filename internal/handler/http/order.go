package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/motoforge/storefront/internal/service"
	apperrors "github.com/motoforge/storefront/pkg/errors"
	"github.com/motoforge/storefront/pkg/httputil"
)

// OrderHandler handles HTTP requests for mock order endpoints.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{service: svc, logger: logger}
}

// CreateOrder handles POST /api/v1/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req service.CreateOrderInput
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.service.CreateOrder(r.Context(), sessionIDFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, order)
}

// ListOrders handles GET /api/v1/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context(), sessionIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	page, perPage := httputil.PageParams(r)
	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(orders, page, perPage))
}

// GetOrder handles GET /api/v1/orders/{id}. Orders of other sessions are
// reported as not found.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), id.String())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if order.SessionID != sessionIDFromContext(r.Context()) {
		writeError(w, r, apperrors.NotFound("order", id.String()), h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, order)
}
