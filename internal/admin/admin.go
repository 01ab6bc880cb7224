// Package admin provides the /admin/* control plane for state inspection,
// reset and fault injection.
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/shopfront-dev/storefront/internal/httpserver"
	"github.com/shopfront-dev/storefront/internal/relay"
	"github.com/shopfront-dev/storefront/internal/tracking"
)

// StateStore is the service state the control plane can inspect and reset.
type StateStore interface {
	// Snapshot returns the full state as a JSON-serializable value.
	Snapshot() any
	// Reset clears all state.
	Reset(ctx context.Context)
}

// DeliveryLog is an outbound relay with a delivery history.
type DeliveryLog interface {
	Deliveries() []relay.Delivery
	Reset()
}

// EmissionLog holds recent client-side tracking emissions.
type EmissionLog interface {
	Events() []tracking.Event
	Clear()
}

// Handler provides the admin endpoints.
type Handler struct {
	state      StateStore
	mw         *httpserver.Middleware
	deliveries []DeliveryLog
	emissions  EmissionLog
}

// NewHandler creates a new admin handler. emissions and deliveries are optional.
func NewHandler(state StateStore, mw *httpserver.Middleware, emissions EmissionLog, deliveries ...DeliveryLog) *Handler {
	return &Handler{
		state:      state,
		mw:         mw,
		deliveries: deliveries,
		emissions:  emissions,
	}
}

// Routes mounts the admin endpoints on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/health", h.handleHealth)
		r.Get("/state", h.handleGetState)
		r.Post("/reset", h.handleReset)
		r.Get("/requests", h.handleGetRequests)
		r.Get("/deliveries", h.handleGetDeliveries)
		r.Get("/emissions", h.handleGetEmissions)
		r.Get("/faults", h.handleListFaults)
		r.Post("/fault/*", h.handleInjectFault)
		r.Delete("/fault/*", h.handleRemoveFault)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpserver.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	httpserver.JSON(w, http.StatusOK, h.state.Snapshot())
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.state.Reset(r.Context())
	h.mw.ReqLog.Clear()
	h.mw.Faults.Reset()
	for _, d := range h.deliveries {
		d.Reset()
	}
	if h.emissions != nil {
		h.emissions.Clear()
	}
	httpserver.JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) handleGetRequests(w http.ResponseWriter, r *http.Request) {
	httpserver.JSON(w, http.StatusOK, h.mw.ReqLog.Entries())
}

func (h *Handler) handleGetDeliveries(w http.ResponseWriter, r *http.Request) {
	out := []relay.Delivery{}
	for _, d := range h.deliveries {
		out = append(out, d.Deliveries()...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	httpserver.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetEmissions(w http.ResponseWriter, r *http.Request) {
	if h.emissions == nil {
		httpserver.JSON(w, http.StatusOK, []tracking.Event{})
		return
	}
	httpserver.JSON(w, http.StatusOK, h.emissions.Events())
}

func (h *Handler) handleListFaults(w http.ResponseWriter, r *http.Request) {
	httpserver.JSON(w, http.StatusOK, h.mw.Faults.All())
}

func (h *Handler) handleInjectFault(w http.ResponseWriter, r *http.Request) {
	path := "/" + chi.URLParam(r, "*")

	var fault httpserver.FaultConfig
	if err := json.NewDecoder(r.Body).Decode(&fault); err != nil {
		httpserver.Error(w, http.StatusBadRequest, "invalid fault config: "+err.Error())
		return
	}
	if fault.StatusCode != 0 && (fault.StatusCode < 100 || fault.StatusCode > 599) {
		httpserver.Error(w, http.StatusBadRequest, "status_code must be a valid HTTP status")
		return
	}
	h.mw.Faults.Set(path, fault)
	httpserver.JSON(w, http.StatusOK, map[string]any{
		"status": "injected",
		"path":   path,
		"fault":  fault,
	})
}

func (h *Handler) handleRemoveFault(w http.ResponseWriter, r *http.Request) {
	path := "/" + chi.URLParam(r, "*")
	if h.mw.Faults.Remove(path) {
		httpserver.JSON(w, http.StatusOK, map[string]any{"status": "removed", "path": path})
	} else {
		httpserver.Error(w, http.StatusNotFound, "no fault registered for "+path)
	}
}
