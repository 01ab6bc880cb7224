// Package api implements the storefront HTTP API: cart, wishlist,
// navigation tracking, orders and branding, one state set per session.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopfront-dev/storefront/internal/auth"
	"github.com/shopfront-dev/storefront/internal/branding"
	"github.com/shopfront-dev/storefront/internal/httpserver"
	"github.com/shopfront-dev/storefront/internal/orders"
	"github.com/shopfront-dev/storefront/internal/session"
)

// SessionCookie is read when no X-Session-ID header is sent.
const SessionCookie = "sf_session"

// Deps are the services the handlers delegate to.
type Deps struct {
	Sessions *session.Manager
	Orders   *orders.Service
	Verifier *auth.Verifier
	Head     *branding.Head
	Logger   *slog.Logger
}

// Handler holds all API handler state.
type Handler struct {
	sessions *session.Manager
	orders   *orders.Service
	verifier *auth.Verifier
	head     *branding.Head
	mw       *httpserver.Middleware
	logger   *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps, mw *httpserver.Middleware) *Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Verifier == nil {
		deps.Verifier = auth.NewVerifier("")
	}
	return &Handler{
		sessions: deps.Sessions,
		orders:   deps.Orders,
		verifier: deps.Verifier,
		head:     deps.Head,
		mw:       mw,
		logger:   deps.Logger.With("component", "api"),
	}
}

// Routes mounts the API routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(h.mw.FaultInjection)

		r.Get("/cart", h.GetCart)
		r.Delete("/cart", h.ClearCart)
		r.Post("/cart/items", h.AddCartItem)
		r.Patch("/cart/items/{productID}", h.UpdateCartItem)
		r.Delete("/cart/items/{productID}", h.RemoveCartItem)
		r.Post("/cart/open", h.OpenCart)
		r.Post("/cart/close", h.CloseCart)
		r.Post("/cart/toggle", h.ToggleCart)

		r.Get("/wishlist", h.ListWishlist)
		r.Post("/wishlist", h.AddWishlist)
		r.Delete("/wishlist", h.ClearWishlist)
		r.Post("/wishlist/toggle", h.ToggleWishlist)
		r.Get("/wishlist/{productID}", h.GetWishlistItem)
		r.Delete("/wishlist/{productID}", h.RemoveWishlistItem)

		r.Post("/navigate", h.Navigate)

		r.Post("/orders", h.PlaceOrder)
		r.Get("/orders", h.ListOrders)

		r.Get("/branding", h.GetBranding)
	})
}

// session resolves the caller's session from the X-Session-ID header or the
// session cookie. It writes a 400 and returns nil for invalid ids.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *session.Session {
	id := r.Header.Get("X-Session-ID")
	if id == "" {
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}
	}
	s, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrInvalidID) {
			httpserver.Error(w, http.StatusBadRequest, "invalid session id")
			return nil
		}
		httpserver.Error(w, http.StatusInternalServerError, err.Error())
		return nil
	}
	return s
}

// stateSnapshot is the admin view of the service.
type stateSnapshot struct {
	Sessions []session.State   `json:"sessions"`
	Branding branding.Snapshot `json:"branding"`
}

// Snapshot implements admin.StateStore.
func (h *Handler) Snapshot() any {
	snap := stateSnapshot{Sessions: h.sessions.Snapshot()}
	if h.head != nil {
		snap.Branding = h.head.Snapshot()
	}
	return snap
}

// Reset implements admin.StateStore.
func (h *Handler) Reset(ctx context.Context) {
	h.sessions.Reset(ctx)
}

// GetBranding handles GET /api/branding.
func (h *Handler) GetBranding(w http.ResponseWriter, r *http.Request) {
	if h.head == nil {
		httpserver.JSON(w, http.StatusOK, branding.Snapshot{})
		return
	}
	httpserver.JSON(w, http.StatusOK, h.head.Snapshot())
}
