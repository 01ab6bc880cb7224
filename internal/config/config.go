// Package config loads the storefront service configuration: a YAML file,
// overlaid by STOREFRONT_* environment variables, then command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/shopfront-dev/storefront/internal/blob"
)

// EnvPrefix prefixes every environment variable the service reads.
const EnvPrefix = "STOREFRONT_"

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port           int           `yaml:"port" env:"PORT"`
	Verbose        bool          `yaml:"verbose" env:"VERBOSE"`
	RequestLogSize int           `yaml:"request_log_size" env:"REQUEST_LOG_SIZE"`
	ShutdownGrace  time.Duration `yaml:"shutdown_grace" env:"SHUTDOWN_GRACE"`
}

// BackendConfig points at the hosted backend.
type BackendConfig struct {
	URL     string        `yaml:"url" env:"URL"`
	AnonKey string        `yaml:"anon_key" env:"ANON_KEY"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// AuthConfig configures access token verification.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
}

// RelayConfig is one outbound event relay.
type RelayConfig struct {
	URL     string        `yaml:"url" env:"URL"`
	APIKey  string        `yaml:"api_key" env:"API_KEY"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// TrackingConfig configures navigation tracking.
type TrackingConfig struct {
	PixelID         string        `yaml:"pixel_id" env:"PIXEL_ID"`
	MeasurementID   string        `yaml:"measurement_id" env:"MEASUREMENT_ID"`
	SiteURL         string        `yaml:"site_url" env:"SITE_URL"`
	CookieDelay     time.Duration `yaml:"cookie_delay" env:"COOKIE_DELAY"`
	EmissionLogSize int           `yaml:"emission_log_size" env:"EMISSION_LOG_SIZE"`
	Conversions     RelayConfig   `yaml:"conversions" envPrefix:"CONVERSIONS_"`
	Analytics       RelayConfig   `yaml:"analytics" envPrefix:"ANALYTICS_"`
}

// BrandingConfig holds the head values used until the backend answers.
type BrandingConfig struct {
	DefaultIcon  string `yaml:"default_icon" env:"DEFAULT_ICON"`
	DefaultTitle string `yaml:"default_title" env:"DEFAULT_TITLE"`
}

// TelemetryConfig configures OpenTelemetry tracing. An empty endpoint
// disables it.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Storage   blob.Config     `yaml:"storage" envPrefix:"STORAGE_"`
	Backend   BackendConfig   `yaml:"backend" envPrefix:"BACKEND_"`
	Auth      AuthConfig      `yaml:"auth" envPrefix:"AUTH_"`
	Tracking  TrackingConfig  `yaml:"tracking" envPrefix:"TRACKING_"`
	Branding  BrandingConfig  `yaml:"branding" envPrefix:"BRANDING_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			RequestLogSize: 1000,
			ShutdownGrace:  10 * time.Second,
		},
		Storage: blob.Config{Driver: blob.DriverMemory},
		Backend: BackendConfig{Timeout: 15 * time.Second},
		Tracking: TrackingConfig{
			CookieDelay:     500 * time.Millisecond,
			EmissionLogSize: 1000,
			Conversions:     RelayConfig{Timeout: 10 * time.Second},
			Analytics:       RelayConfig{Timeout: 10 * time.Second},
		},
		Branding: BrandingConfig{
			DefaultIcon:  "/favicon.ico",
			DefaultTitle: "Storefront",
		},
		Telemetry: TelemetryConfig{ServiceName: "storefront"},
	}
}

// LoadFrom reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path or a missing file keeps the defaults.
func LoadFrom(path string, environ map[string]string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Load parses command-line args: -config names the YAML file, -port and
// -verbose override whatever the file and environment set.
func Load(args []string, stderr io.Writer) (*Config, error) {
	fs := flag.NewFlagSet("storefront", flag.ContinueOnError)
	if stderr != nil {
		fs.SetOutput(stderr)
	}
	path := fs.String("config", os.Getenv(EnvPrefix+"CONFIG"), "path to YAML config file")
	port := fs.Int("port", 0, "HTTP listen port (overrides config)")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := LoadFrom(*path, nil)
	if err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Server.Port = *port
		case "verbose":
			cfg.Server.Verbose = *verbose
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch strings.ToLower(c.Storage.Driver) {
	case "", blob.DriverMemory:
	case blob.DriverDir, blob.DriverSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, fmt.Errorf("storage.path is required for driver %q", c.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	if c.Tracking.CookieDelay < 0 {
		errs = append(errs, errors.New("tracking.cookie_delay must not be negative"))
	}
	if c.Backend.Timeout < 0 || c.Tracking.Conversions.Timeout < 0 || c.Tracking.Analytics.Timeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	return errors.Join(errs...)
}
