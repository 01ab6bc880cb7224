package api

import (
	"errors"
	"net/http"

	"github.com/shopfront-dev/storefront/internal/auth"
	"github.com/shopfront-dev/storefront/internal/backend"
	"github.com/shopfront-dev/storefront/internal/httpserver"
	"github.com/shopfront-dev/storefront/internal/orders"
)

type placeOrderRequest struct {
	Shipping     orders.Shipping `json:"shipping"`
	ShippingZone string          `json:"shippingZone"`
}

// userFromRequest verifies the bearer token, if any. It writes a 401 and
// returns ok=false for invalid tokens. A nil user id means guest.
func (h *Handler) userFromRequest(w http.ResponseWriter, r *http.Request) (userID *string, token string, ok bool) {
	token = auth.BearerToken(r)
	userID, err := h.verifier.UserID(token)
	if err != nil {
		httpserver.Error(w, http.StatusUnauthorized, err.Error())
		return nil, "", false
	}
	return userID, token, true
}

// PlaceOrder handles POST /api/orders. The session cart is the order
// content and is cleared once the backend accepts the order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := httpserver.Decode(r, &req); err != nil {
		httpserver.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, token, ok := h.userFromRequest(w, r)
	if !ok {
		return
	}
	s := h.session(w, r)
	if s == nil {
		return
	}

	ctx := r.Context()
	if token != "" {
		ctx = backend.WithAccessToken(ctx, token)
	}
	order, err := h.orders.Place(ctx, orders.PlaceRequest{
		UserID:       userID,
		Items:        orders.ItemsFromCart(s.Cart.Items()),
		Shipping:     req.Shipping,
		ShippingZone: req.ShippingZone,
	})
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	s.Cart.Clear(r.Context())
	s.Cart.Close()
	h.logger.Info("order placed", "session", s.ID, "order_id", order.ID, "total", order.Total)
	httpserver.JSON(w, http.StatusCreated, order)
}

// ListOrders handles GET /api/orders for the signed-in user.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, token, ok := h.userFromRequest(w, r)
	if !ok {
		return
	}
	if userID == nil {
		httpserver.Error(w, http.StatusUnauthorized, "sign in to list orders")
		return
	}

	list, err := h.orders.ListByUser(backend.WithAccessToken(r.Context(), token), *userID)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	httpserver.JSON(w, http.StatusOK, map[string]any{"orders": list})
}

func (h *Handler) writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orders.ErrInvalidOrder):
		httpserver.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, backend.ErrNotConfigured):
		httpserver.Error(w, http.StatusServiceUnavailable, err.Error())
	default:
		// Remote failures and malformed backend responses.
		h.logger.Error("backend request failed", "err", err)
		httpserver.Error(w, http.StatusBadGateway, err.Error())
	}
}
