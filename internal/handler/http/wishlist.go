package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/motoforge/storefront/internal/domain"
	"github.com/motoforge/storefront/internal/service"
	"github.com/motoforge/storefront/pkg/httputil"
)

// WishlistHandler handles HTTP requests for wishlist endpoints.
type WishlistHandler struct {
	service *service.WishlistService
	logger  *slog.Logger
}

// NewWishlistHandler creates a new wishlist HTTP handler.
func NewWishlistHandler(svc *service.WishlistService, logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{service: svc, logger: logger}
}

// --- Response DTOs ---

// MutationResponse is returned by every wishlist mutation: what happened and
// the wishlist afterwards.
type MutationResponse struct {
	domain.State
	Added   *bool               `json:"added,omitempty"`
	Removed *bool               `json:"removed,omitempty"`
	Cleared *int                `json:"cleared,omitempty"`
	Result  domain.ToggleResult `json:"result,omitempty"`
}

// MembershipResponse answers an isInWishlist query.
type MembershipResponse struct {
	ProductID  string `json:"productId"`
	InWishlist bool   `json:"inWishlist"`
}

// --- Handlers ---

// GetWishlist handles GET /api/v1/wishlist
func (h *WishlistHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.GetWishlist(r.Context(), sessionIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, state)
}

// ClearWishlist handles DELETE /api/v1/wishlist
func (h *WishlistHandler) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.Clear(r.Context(), sessionIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, MutationResponse{State: domain.NewState(nil), Cleared: &removed})
}

// GetHistory handles GET /api/v1/wishlist/history
func (h *WishlistHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.History(r.Context(), sessionIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, history)
}

// AddItem handles POST /api/v1/wishlist/items. It responds 201 when the
// item was added and 200 when it was already saved.
func (h *WishlistHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req service.AddItemInput
	if !decodeJSON(w, r, &req) {
		return
	}

	added, state, err := h.service.AddItem(r.Context(), sessionIDFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	httputil.WriteData(w, status, MutationResponse{State: state, Added: &added})
}

// IsInWishlist handles GET /api/v1/wishlist/items/{productId}
func (h *WishlistHandler) IsInWishlist(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	in, err := h.service.IsInWishlist(r.Context(), sessionIDFromContext(r.Context()), productID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, MembershipResponse{ProductID: productID, InWishlist: in})
}

// RemoveItem handles DELETE /api/v1/wishlist/items/{productId}
func (h *WishlistHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	removed, state, err := h.service.RemoveItem(r.Context(), sessionIDFromContext(r.Context()), chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, MutationResponse{State: state, Removed: &removed})
}

// Toggle handles POST /api/v1/wishlist/toggle
func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req service.AddItemInput
	if !decodeJSON(w, r, &req) {
		return
	}

	result, state, err := h.service.Toggle(r.Context(), sessionIDFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, MutationResponse{State: state, Result: result})
}
