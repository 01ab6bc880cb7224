package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shopfront-dev/storefront/internal/catalog"
	"github.com/shopfront-dev/storefront/internal/httpserver"
)

type addCartItemRequest struct {
	Product   catalog.Product    `json:"product"`
	Quantity  int                `json:"quantity"`
	Variation *catalog.Variation `json:"variation,omitempty"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

// GetCart handles GET /api/cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	httpserver.JSON(w, http.StatusOK, s.Cart.Summary())
}

// AddCartItem handles POST /api/cart/items. A missing or non-positive
// quantity adds one.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := httpserver.Decode(r, &req); err != nil {
		httpserver.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Product.ID) == "" {
		httpserver.Error(w, http.StatusBadRequest, "product.id is required")
		return
	}
	if req.Variation != nil && strings.TrimSpace(req.Variation.ID) == "" {
		httpserver.Error(w, http.StatusBadRequest, "variation.id is required when variation is set")
		return
	}
	s := h.session(w, r)
	if s == nil {
		return
	}
	s.Cart.Add(r.Context(), req.Product, req.Quantity, req.Variation)
	httpserver.JSON(w, http.StatusOK, s.Cart.Summary())
}

// UpdateCartItem handles PATCH /api/cart/items/{productID}?variation=.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := httpserver.Decode(r, &req); err != nil {
		httpserver.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Quantity == nil {
		httpserver.Error(w, http.StatusBadRequest, "quantity is required")
		return
	}
	s := h.session(w, r)
	if s == nil {
		return
	}
	productID := chi.URLParam(r, "productID")
	if !s.Cart.UpdateQuantity(r.Context(), productID, r.URL.Query().Get("variation"), *req.Quantity) {
		httpserver.Error(w, http.StatusNotFound, "cart item not found: "+productID)
		return
	}
	httpserver.JSON(w, http.StatusOK, s.Cart.Summary())
}

// RemoveCartItem handles DELETE /api/cart/items/{productID}?variation=.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	productID := chi.URLParam(r, "productID")
	if !s.Cart.Remove(r.Context(), productID, r.URL.Query().Get("variation")) {
		httpserver.Error(w, http.StatusNotFound, "cart item not found: "+productID)
		return
	}
	httpserver.JSON(w, http.StatusOK, s.Cart.Summary())
}

// ClearCart handles DELETE /api/cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	s.Cart.Clear(r.Context())
	httpserver.JSON(w, http.StatusOK, s.Cart.Summary())
}

// OpenCart handles POST /api/cart/open.
func (h *Handler) OpenCart(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	s.Cart.Open()
	httpserver.JSON(w, http.StatusOK, s.Cart.Summary())
}

// CloseCart handles POST /api/cart/close.
func (h *Handler) CloseCart(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	s.Cart.Close()
	httpserver.JSON(w, http.StatusOK, s.Cart.Summary())
}

// ToggleCart handles POST /api/cart/toggle.
func (h *Handler) ToggleCart(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	s.Cart.Toggle()
	httpserver.JSON(w, http.StatusOK, s.Cart.Summary())
}
