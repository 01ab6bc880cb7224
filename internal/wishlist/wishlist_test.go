package wishlist

import (
	"context"
	"testing"

	"github.com/shopfront-dev/storefront/internal/blob"
	"github.com/shopfront-dev/storefront/internal/catalog"
)

var (
	lamp  = catalog.Product{ID: "p1", Name: "Lamp", Price: 30}
	chair = catalog.Product{ID: "p2", Name: "Chair", Price: 80}
)

func TestAddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	w := New(ctx, blob.NewMemory(), nil)

	if !w.Add(ctx, lamp) {
		t.Error("expected first Add to add")
	}
	if w.Add(ctx, lamp) {
		t.Error("expected second Add to be a no-op")
	}
	if n := len(w.Items()); n != 1 {
		t.Errorf("expected 1 item, got %d", n)
	}
}

func TestToggleFlipsMembership(t *testing.T) {
	ctx := context.Background()
	w := New(ctx, blob.NewMemory(), nil)

	if w.Contains("p1") {
		t.Fatal("expected empty wishlist")
	}
	if !w.Toggle(ctx, lamp) || !w.Contains("p1") {
		t.Error("expected Toggle on absent product to add it")
	}
	if w.Toggle(ctx, lamp) || w.Contains("p1") {
		t.Error("expected second Toggle to remove it")
	}
	if !w.Toggle(ctx, lamp) || !w.Contains("p1") {
		t.Error("expected third Toggle to add it again")
	}
}

func TestRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	w := New(ctx, blob.NewMemory(), nil)
	w.Add(ctx, lamp)
	w.Add(ctx, chair)

	if !w.Remove(ctx, "p1") {
		t.Error("expected Remove to find p1")
	}
	if w.Remove(ctx, "p1") {
		t.Error("expected Remove of absent product to be a no-op")
	}
	w.Clear(ctx)
	if len(w.Items()) != 0 {
		t.Error("expected empty wishlist after Clear")
	}
}

func TestRehydrate(t *testing.T) {
	ctx := context.Background()
	mem := blob.NewMemory()
	w := New(ctx, mem, nil)
	w.Add(ctx, chair)
	w.Add(ctx, lamp)

	again := New(ctx, mem, nil)
	items := again.Items()
	if len(items) != 2 || items[0].ID != "p2" || items[1].ID != "p1" {
		t.Errorf("expected [p2 p1] after rehydrate, got %+v", items)
	}
}

func TestRehydrateInvalidContentIsEmpty(t *testing.T) {
	ctx := context.Background()
	mem := blob.NewMemory()
	mem.Set(ctx, StorageKey, []byte(`[{"id":`))

	if w := New(ctx, mem, nil); len(w.Items()) != 0 {
		t.Errorf("expected empty wishlist, got %+v", w.Items())
	}
}
