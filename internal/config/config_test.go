package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopfront-dev/storefront/internal/blob"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadFrom("", map[string]string{})
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Tracking.CookieDelay != 500*time.Millisecond {
		t.Errorf("expected 500ms cookie delay, got %v", cfg.Tracking.CookieDelay)
	}
	if cfg.Storage.Driver != blob.DriverMemory {
		t.Errorf("expected memory storage, got %q", cfg.Storage.Driver)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
storage:
  driver: sqlite
  path: /var/lib/storefront/state.db
backend:
  url: https://backend.example
  anon_key: anon
tracking:
  pixel_id: "123"
  cookie_delay: 750ms
  conversions:
    url: https://backend.example/functions/v1/meta-capi
`)
	cfg, err := LoadFrom(path, map[string]string{})
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Driver != blob.DriverSQLite || cfg.Storage.Path != "/var/lib/storefront/state.db" {
		t.Errorf("unexpected storage %+v", cfg.Storage)
	}
	if cfg.Tracking.CookieDelay != 750*time.Millisecond {
		t.Errorf("expected 750ms, got %v", cfg.Tracking.CookieDelay)
	}
	if cfg.Tracking.Conversions.URL == "" {
		t.Error("expected conversions relay URL")
	}
	// untouched sections keep defaults
	if cfg.Tracking.Analytics.Timeout != 10*time.Second {
		t.Errorf("expected default analytics timeout, got %v", cfg.Tracking.Analytics.Timeout)
	}
}

func TestMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"), map[string]string{})
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")
	if _, err := LoadFrom(path, map[string]string{}); err == nil {
		t.Error("expected parse error")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	cfg, err := LoadFrom(path, map[string]string{
		"STOREFRONT_SERVER_PORT":            "7070",
		"STOREFRONT_STORAGE_DRIVER":         "dir",
		"STOREFRONT_STORAGE_PATH":           "/tmp/sf",
		"STOREFRONT_TRACKING_COOKIE_DELAY":  "1s",
		"STOREFRONT_TRACKING_ANALYTICS_URL": "https://relay.example/ga4",
		"STOREFRONT_AUTH_JWT_SECRET":        "s3cret",
		"STOREFRONT_TELEMETRY_ENDPOINT":     "http://collector:4318",
		"UNRELATED_SERVER_PORT":             "1",
	})
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected env port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "dir" || cfg.Storage.Path != "/tmp/sf" {
		t.Errorf("unexpected storage %+v", cfg.Storage)
	}
	if cfg.Tracking.CookieDelay != time.Second {
		t.Errorf("expected 1s delay, got %v", cfg.Tracking.CookieDelay)
	}
	if cfg.Tracking.Analytics.URL != "https://relay.example/ga4" {
		t.Errorf("unexpected analytics URL %q", cfg.Tracking.Analytics.URL)
	}
	if cfg.Auth.JWTSecret != "s3cret" || cfg.Telemetry.Endpoint != "http://collector:4318" {
		t.Errorf("unexpected auth/telemetry %+v %+v", cfg.Auth, cfg.Telemetry)
	}
}

func TestInvalidEnvValue(t *testing.T) {
	if _, err := LoadFrom("", map[string]string{"STOREFRONT_SERVER_PORT": "eighty"}); err == nil {
		t.Error("expected error for non-numeric port")
	}
}

func TestLoadFlagsOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("STOREFRONT_SERVER_PORT", "7070")

	cfg, err := Load([]string{"-config", path, "-port", "6060", "-verbose"}, nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 6060 || !cfg.Server.Verbose {
		t.Errorf("expected flags to win, got port=%d verbose=%v", cfg.Server.Port, cfg.Server.Verbose)
	}

	cfg, err = Load([]string{"-config", path}, nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected env port without flag, got %d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 70000
	cfg.Storage = blob.Config{Driver: "sqlite"}
	cfg.Tracking.CookieDelay = -time.Second

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "storage.path", "cookie_delay"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}

	cfg = Default()
	cfg.Storage.Driver = "redis"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "unknown storage.driver") {
		t.Errorf("expected unknown driver error, got %v", err)
	}
}
