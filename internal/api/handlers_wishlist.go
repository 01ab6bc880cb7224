package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shopfront-dev/storefront/internal/catalog"
	"github.com/shopfront-dev/storefront/internal/httpserver"
)

type wishlistRequest struct {
	Product catalog.Product `json:"product"`
}

type wishlistResponse struct {
	Items []catalog.Product `json:"items"`
	Count int               `json:"count"`
}

func decodeWishlistRequest(w http.ResponseWriter, r *http.Request) (catalog.Product, bool) {
	var req wishlistRequest
	if err := httpserver.Decode(r, &req); err != nil {
		httpserver.Error(w, http.StatusBadRequest, err.Error())
		return catalog.Product{}, false
	}
	if strings.TrimSpace(req.Product.ID) == "" {
		httpserver.Error(w, http.StatusBadRequest, "product.id is required")
		return catalog.Product{}, false
	}
	return req.Product, true
}

// ListWishlist handles GET /api/wishlist.
func (h *Handler) ListWishlist(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	items := s.Wishlist.Items()
	httpserver.JSON(w, http.StatusOK, wishlistResponse{Items: items, Count: len(items)})
}

// AddWishlist handles POST /api/wishlist. Adding a present product is a
// no-op answered with 200; a new product gets 201.
func (h *Handler) AddWishlist(w http.ResponseWriter, r *http.Request) {
	product, ok := decodeWishlistRequest(w, r)
	if !ok {
		return
	}
	s := h.session(w, r)
	if s == nil {
		return
	}
	status := http.StatusOK
	if s.Wishlist.Add(r.Context(), product) {
		status = http.StatusCreated
	}
	items := s.Wishlist.Items()
	httpserver.JSON(w, status, wishlistResponse{Items: items, Count: len(items)})
}

// ToggleWishlist handles POST /api/wishlist/toggle.
func (h *Handler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	product, ok := decodeWishlistRequest(w, r)
	if !ok {
		return
	}
	s := h.session(w, r)
	if s == nil {
		return
	}
	present := s.Wishlist.Toggle(r.Context(), product)
	httpserver.JSON(w, http.StatusOK, map[string]any{
		"product_id": product.ID,
		"present":    present,
	})
}

// GetWishlistItem handles GET /api/wishlist/{productID}.
func (h *Handler) GetWishlistItem(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	productID := chi.URLParam(r, "productID")
	httpserver.JSON(w, http.StatusOK, map[string]any{
		"product_id": productID,
		"present":    s.Wishlist.Contains(productID),
	})
}

// RemoveWishlistItem handles DELETE /api/wishlist/{productID}.
func (h *Handler) RemoveWishlistItem(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	productID := chi.URLParam(r, "productID")
	if !s.Wishlist.Remove(r.Context(), productID) {
		httpserver.Error(w, http.StatusNotFound, "wishlist item not found: "+productID)
		return
	}
	items := s.Wishlist.Items()
	httpserver.JSON(w, http.StatusOK, wishlistResponse{Items: items, Count: len(items)})
}

// ClearWishlist handles DELETE /api/wishlist.
func (h *Handler) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	s := h.session(w, r)
	if s == nil {
		return
	}
	s.Wishlist.Clear(r.Context())
	httpserver.JSON(w, http.StatusOK, wishlistResponse{Items: []catalog.Product{}, Count: 0})
}
