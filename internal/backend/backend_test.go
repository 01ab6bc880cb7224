package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestInvokeUsesAnonKeyByDefault(t *testing.T) {
	var path, auth, apikey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		apikey = r.Header.Get("apikey")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "anon", 0)
	var out map[string]any
	if err := c.Invoke(context.Background(), "place-order", map[string]any{"x": 1}, &out); err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if path != "/functions/v1/place-order" {
		t.Errorf("unexpected path %q", path)
	}
	if apikey != "anon" || auth != "Bearer anon" {
		t.Errorf("unexpected auth apikey=%q auth=%q", apikey, auth)
	}
	if out["ok"] != true {
		t.Errorf("unexpected body %+v", out)
	}
}

func TestAccessTokenOverridesBearer(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "anon", 0)
	ctx := WithAccessToken(context.Background(), "user-jwt")
	var rows []map[string]any
	if err := c.Select(ctx, "orders", url.Values{"user_id": {"eq.u1"}}, &rows); err != nil {
		t.Fatal(err)
	}
	if auth != "Bearer user-jwt" {
		t.Errorf("expected user token, got %q", auth)
	}
}

func TestSelectEncodesQuery(t *testing.T) {
	var rawQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", 0)
	q := url.Values{"order": {"created_at.desc"}}
	if err := c.Select(context.Background(), "orders", q, nil); err != nil {
		t.Fatal(err)
	}
	if rawQuery != "order=created_at.desc" {
		t.Errorf("unexpected query %q", rawQuery)
	}
}

func TestNon2xxReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"out of stock"}`))
	}))
	defer srv.Close()

	err := New(srv.URL, "", 0).Invoke(context.Background(), "place-order", nil, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusConflict {
		t.Errorf("expected 409, got %d", se.StatusCode)
	}
}

func TestNotConfigured(t *testing.T) {
	c := New("", "", 0)
	if c.Configured() {
		t.Error("expected unconfigured client")
	}
	if err := c.Select(context.Background(), "orders", nil, nil); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}
