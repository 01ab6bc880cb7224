package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]string{"key": "value"})

	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}
	if body["key"] != "value" {
		t.Errorf("expected key=value, got %+v", body)
	}
}

func TestJSONNilBody(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusNoContent, nil)
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body, got %s", rec.Body.String())
	}
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusBadGateway, "backend unavailable")

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
	var body struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if body.Error.Message != "backend unavailable" || body.Error.Type != "Bad Gateway" || body.Error.Code != 502 {
		t.Errorf("unexpected error body: %+v", body.Error)
	}
}

func TestDecode(t *testing.T) {
	var v struct {
		Path string `json:"path"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"path":"/a"}`))
	if err := Decode(r, &v); err != nil || v.Path != "/a" {
		t.Errorf("Decode() = %v, path %q", err, v.Path)
	}

	r = httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	if err := Decode(r, &v); err != nil {
		t.Errorf("expected empty body to be accepted, got %v", err)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"path":`))
	if err := Decode(r, &v); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

// ---------------------------------------------------------------------------
// Server
// ---------------------------------------------------------------------------

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, false).Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected debug to be suppressed, got %s", buf.String())
	}
	NewLogger(&buf, true).Debug("shown", "k", "v")
	if !strings.Contains(buf.String(), `"msg":"shown"`) {
		t.Errorf("expected JSON debug line, got %s", buf.String())
	}
}

func TestServerServeHTTP(t *testing.T) {
	s := New(&Config{Name: "test"}, NewLogger(io.Discard, false))
	s.Router.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"pong": "ok"})
	})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS header from the default chain")
	}
	entries := s.Middleware().ReqLog.Entries()
	if len(entries) != 1 || entries[0].Path != "/ping" || entries[0].RequestID == "" {
		t.Errorf("unexpected request log: %+v", entries)
	}
}

func TestServerRecoversPanics(t *testing.T) {
	s := New(&Config{Name: "test"}, NewLogger(io.Discard, false))
	s.Router.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	s := New(&Config{Name: "test", Port: 0, ShutdownGrace: time.Second}, NewLogger(io.Discard, false))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
