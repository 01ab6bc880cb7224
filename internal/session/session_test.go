package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopfront-dev/storefront/internal/blob"
	"github.com/shopfront-dev/storefront/internal/catalog"
	"github.com/shopfront-dev/storefront/internal/tracking"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newManager(store blob.Store, rec *tracking.Recorder) *Manager {
	return NewManager(Options{
		Store:    store,
		Tracking: TrackingConfig{PixelID: "px-1", MeasurementID: "G-1", SiteURL: "https://shop.example"},
		Pixel:    rec,
		Pages:    rec,
		Logger:   quietLogger(),
	})
}

var shirt = catalog.Product{ID: "p1", Name: "Shirt", Price: 20}

// --- Lifecycle ---

func TestGetReturnsSameSession(t *testing.T) {
	m := newManager(nil, tracking.NewRecorder(10))
	ctx := context.Background()

	a, err := m.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	b, _ := m.Get(ctx, "abc")
	if a != b {
		t.Error("expected the same session for the same id")
	}
	def, _ := m.Get(ctx, "")
	if def.ID != DefaultID {
		t.Errorf("expected default id, got %q", def.ID)
	}
	if ids := m.IDs(); len(ids) != 2 || ids[0] != "abc" || ids[1] != DefaultID {
		t.Errorf("unexpected ids %v", ids)
	}
}

func TestInvalidID(t *testing.T) {
	m := newManager(nil, tracking.NewRecorder(10))
	for _, id := range []string{"../etc", "a b", "a/b"} {
		if _, err := m.Get(context.Background(), id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Get(%q): expected ErrInvalidID, got %v", id, err)
		}
	}
}

// --- Isolation and persistence ---

func TestSessionsAreIsolated(t *testing.T) {
	m := newManager(nil, tracking.NewRecorder(10))
	ctx := context.Background()
	a, _ := m.Get(ctx, "a")
	b, _ := m.Get(ctx, "b")

	a.Cart.Add(ctx, shirt, 2, nil)
	a.Wishlist.Add(ctx, shirt)

	if b.Cart.TotalItems() != 0 || b.Wishlist.Contains("p1") {
		t.Error("expected session b to be unaffected by session a")
	}
}

func TestStateSurvivesNewManager(t *testing.T) {
	store := blob.NewMemory()
	ctx := context.Background()

	s, _ := newManager(store, tracking.NewRecorder(10)).Get(ctx, "u1")
	s.Cart.Add(ctx, shirt, 3, nil)
	s.Wishlist.Add(ctx, shirt)

	reopened, _ := newManager(store, tracking.NewRecorder(10)).Get(ctx, "u1")
	if reopened.Cart.TotalItems() != 3 {
		t.Errorf("expected 3 cart items after reopen, got %d", reopened.Cart.TotalItems())
	}
	if !reopened.Wishlist.Contains("p1") {
		t.Error("expected wishlist to be rehydrated")
	}
}

// --- Tracking ---

func TestNavigatorEmitsThroughRecorder(t *testing.T) {
	rec := tracking.NewRecorder(10)
	m := newManager(nil, rec)
	ctx := context.Background()
	s, _ := m.Get(ctx, "nav")

	res, err := s.Navigator.Navigate(ctx, "/products")
	if err != nil {
		t.Fatalf("Navigate() error: %v", err)
	}
	if len(res.Fired) != 2 {
		t.Errorf("expected both trackers to fire, got %v", res.Fired)
	}
	if _, err := s.Navigator.Navigate(ctx, "/products"); err != nil {
		t.Fatalf("Navigate() error: %v", err)
	}
	m.Wait()
	if n := len(rec.Events()); n != 2 {
		t.Errorf("expected 2 recorded emissions, got %d", n)
	}

	snap := m.Snapshot()
	if len(snap) != 1 || len(snap[0].Gates) != 2 || snap[0].Gates[0].LastPath != "/products" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

// --- Reset ---

func TestResetClearsState(t *testing.T) {
	store := blob.NewMemory()
	m := newManager(store, tracking.NewRecorder(10))
	ctx := context.Background()
	s, _ := m.Get(ctx, "r")
	s.Cart.Add(ctx, shirt, 1, nil)

	m.Reset(ctx)
	if len(m.IDs()) != 0 {
		t.Error("expected no open sessions after reset")
	}
	again, _ := m.Get(ctx, "r")
	if again.Cart.TotalItems() != 0 {
		t.Errorf("expected empty cart after reset, got %d", again.Cart.TotalItems())
	}
}
