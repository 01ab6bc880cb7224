package admin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shopfront-dev/storefront/internal/httpserver"
	"github.com/shopfront-dev/storefront/internal/relay"
	"github.com/shopfront-dev/storefront/internal/tracking"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type mockState struct {
	resetCalled bool
}

func (m *mockState) Snapshot() any {
	return map[string]string{"key": "value"}
}

func (m *mockState) Reset(ctx context.Context) {
	m.resetCalled = true
}

type mockDeliveries struct {
	items []relay.Delivery
	reset bool
}

func (m *mockDeliveries) Deliveries() []relay.Delivery { return m.items }
func (m *mockDeliveries) Reset()                       { m.reset = true }

// ---------------------------------------------------------------------------
// Helper to create a test server
// ---------------------------------------------------------------------------

type fixture struct {
	srv        *httptest.Server
	state      *mockState
	mw         *httpserver.Middleware
	recorder   *tracking.Recorder
	conversion *mockDeliveries
	analytics  *mockDeliveries
}

func setup(t *testing.T) *fixture {
	t.Helper()
	cfg := &httpserver.Config{Name: "test-admin"}
	f := &fixture{
		state:    &mockState{},
		mw:       httpserver.NewMiddleware(cfg, httpserver.NewLogger(io.Discard, false)),
		recorder: tracking.NewRecorder(10),
		conversion: &mockDeliveries{items: []relay.Delivery{
			{ID: "d2", Relay: "conversions", Timestamp: time.Unix(200, 0)},
		}},
		analytics: &mockDeliveries{items: []relay.Delivery{
			{ID: "d1", Relay: "analytics", Timestamp: time.Unix(100, 0)},
		}},
	}

	r := chi.NewRouter()
	NewHandler(f.state, f.mw, f.recorder, f.conversion, f.analytics).Routes(r)
	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
	}
	return resp.StatusCode
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHandleHealth(t *testing.T) {
	f := setup(t)
	var body map[string]string
	if code := getJSON(t, f.srv.URL+"/admin/health", &body); code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status=ok, got %+v", body)
	}
}

func TestHandleGetState(t *testing.T) {
	f := setup(t)
	var body map[string]string
	getJSON(t, f.srv.URL+"/admin/state", &body)
	if body["key"] != "value" {
		t.Errorf("expected key=value, got %+v", body)
	}
}

func TestHandleReset(t *testing.T) {
	f := setup(t)
	f.mw.ReqLog.Add(httpserver.RequestLogEntry{Path: "/api/cart"})
	f.mw.Faults.Set("/api/orders", httpserver.FaultConfig{StatusCode: 500})
	f.recorder.Track(context.Background(), tracking.EventPageView, "/", nil)

	resp, err := http.Post(f.srv.URL+"/admin/reset", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if !f.state.resetCalled {
		t.Error("expected state Reset to be called")
	}
	if len(f.mw.ReqLog.Entries()) != 0 || len(f.mw.Faults.All()) != 0 {
		t.Error("expected request log and faults to be cleared")
	}
	if !f.conversion.reset || !f.analytics.reset {
		t.Error("expected delivery logs to be reset")
	}
	if len(f.recorder.Events()) != 0 {
		t.Error("expected emissions to be cleared")
	}
}

func TestHandleGetDeliveriesMergesByTime(t *testing.T) {
	f := setup(t)
	var got []relay.Delivery
	getJSON(t, f.srv.URL+"/admin/deliveries", &got)
	if len(got) != 2 || got[0].ID != "d1" || got[1].ID != "d2" {
		t.Errorf("expected d1 then d2, got %+v", got)
	}
}

func TestHandleGetEmissions(t *testing.T) {
	f := setup(t)
	id, _ := f.recorder.Track(context.Background(), tracking.EventPageView, "/shop", nil)

	var got []tracking.Event
	getJSON(t, f.srv.URL+"/admin/emissions", &got)
	if len(got) != 1 || got[0].ID != id || got[0].Path != "/shop" {
		t.Errorf("unexpected emissions %+v", got)
	}
}

func TestHandleGetRequests(t *testing.T) {
	f := setup(t)
	f.mw.ReqLog.Add(httpserver.RequestLogEntry{Method: "GET", Path: "/api/cart"})

	var got []httpserver.RequestLogEntry
	getJSON(t, f.srv.URL+"/admin/requests", &got)
	if len(got) != 1 || got[0].Path != "/api/cart" {
		t.Errorf("unexpected request log %+v", got)
	}
}

func TestFaultLifecycle(t *testing.T) {
	f := setup(t)

	resp, err := http.Post(f.srv.URL+"/admin/fault/api/orders", "application/json", strings.NewReader(`{"status_code":503}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if f.mw.Faults.Check("/api/orders") == nil {
		t.Fatal("expected fault registered for /api/orders")
	}

	var faults map[string]httpserver.FaultConfig
	getJSON(t, f.srv.URL+"/admin/faults", &faults)
	if faults["/api/orders"].StatusCode != 503 {
		t.Errorf("unexpected faults %+v", faults)
	}

	del := func() int {
		req, _ := http.NewRequest(http.MethodDelete, f.srv.URL+"/admin/fault/api/orders", nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}
	if code := del(); code != http.StatusOK {
		t.Errorf("expected 200 on first delete, got %d", code)
	}
	if code := del(); code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", code)
	}
}

func TestInjectFaultInvalid(t *testing.T) {
	f := setup(t)
	for _, body := range []string{"{bad json", `{"status_code":42}`} {
		resp, err := http.Post(f.srv.URL+"/admin/fault/api/cart", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, resp.StatusCode)
		}
	}
}
