// storefront serves the storefront client core over HTTP: per-session cart
// and wishlist persisted to a blob store, navigation tracking relayed to the
// conversions and analytics endpoints, and order placement against the
// hosted backend.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopfront-dev/storefront/internal/admin"
	"github.com/shopfront-dev/storefront/internal/api"
	"github.com/shopfront-dev/storefront/internal/auth"
	"github.com/shopfront-dev/storefront/internal/backend"
	"github.com/shopfront-dev/storefront/internal/blob"
	"github.com/shopfront-dev/storefront/internal/branding"
	"github.com/shopfront-dev/storefront/internal/config"
	"github.com/shopfront-dev/storefront/internal/httpserver"
	"github.com/shopfront-dev/storefront/internal/orders"
	"github.com/shopfront-dev/storefront/internal/relay"
	"github.com/shopfront-dev/storefront/internal/session"
	"github.com/shopfront-dev/storefront/internal/telemetry"
	"github.com/shopfront-dev/storefront/internal/tracking"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load(args, stderr)
	if err != nil {
		return err
	}
	logger := httpserver.NewLogger(stdout, cfg.Server.Verbose)
	slog.SetDefault(logger)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flushing traces failed", "err", err)
		}
	}()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("storefront ready",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Driver,
		"backend", cfg.Backend.URL != "",
		"pixel", cfg.Tracking.PixelID != "",
	)
	return a.server.Serve(ctx)
}

// app is the wired service.
type app struct {
	server   *httpserver.Server
	store    blob.Store
	sessions *session.Manager
	logger   *slog.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	store, err := blob.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	client := backend.New(cfg.Backend.URL, cfg.Backend.AnonKey, cfg.Backend.Timeout)

	// Relays default to the backend's anon key when no key of their own is set.
	relayHeaders := func(rc config.RelayConfig) relay.HeaderSource {
		key := rc.APIKey
		if key == "" {
			key = cfg.Backend.AnonKey
		}
		return relay.BearerHeaders(key)
	}
	conversions := relay.NewDispatcher(relay.Config{
		Name:    "conversions",
		URL:     cfg.Tracking.Conversions.URL,
		Headers: relayHeaders(cfg.Tracking.Conversions),
		Timeout: cfg.Tracking.Conversions.Timeout,
		Logger:  logger,
	})
	analytics := relay.NewDispatcher(relay.Config{
		Name:    "analytics",
		URL:     cfg.Tracking.Analytics.URL,
		Headers: relayHeaders(cfg.Tracking.Analytics),
		Timeout: cfg.Tracking.Analytics.Timeout,
		Logger:  logger,
	})
	recorder := tracking.NewRecorder(cfg.Tracking.EmissionLogSize)

	sessions := session.NewManager(session.Options{
		Store: store,
		Tracking: session.TrackingConfig{
			PixelID:          cfg.Tracking.PixelID,
			MeasurementID:    cfg.Tracking.MeasurementID,
			SiteURL:          cfg.Tracking.SiteURL,
			CookieDelay:      cfg.Tracking.CookieDelay,
			AnalyticsTimeout: cfg.Tracking.Analytics.Timeout,
		},
		Pixel:       recorder,
		Pages:       recorder,
		Conversions: relay.Conversions{D: conversions},
		Analytics:   relay.Analytics{D: analytics},
		Logger:      logger,
		Lifetime:    ctx,
	})

	head := branding.NewHead(cfg.Branding.DefaultIcon, cfg.Branding.DefaultTitle)
	if client.Configured() {
		go func() {
			loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Backend.Timeout)
			defer cancel()
			branding.NewLoader(client, logger).Apply(loadCtx, head)
		}()
	}

	srv := httpserver.New(&httpserver.Config{
		Name:           "storefront",
		Port:           cfg.Server.Port,
		Verbose:        cfg.Server.Verbose,
		RequestLogSize: cfg.Server.RequestLogSize,
		ShutdownGrace:  cfg.Server.ShutdownGrace,
	}, logger)

	handler := api.NewHandler(api.Deps{
		Sessions: sessions,
		Orders:   orders.NewService(client),
		Verifier: auth.NewVerifier(cfg.Auth.JWTSecret),
		Head:     head,
		Logger:   logger,
	}, srv.Middleware())
	handler.Routes(srv.Router)

	admin.NewHandler(handler, srv.Middleware(), recorder, conversions, analytics).Routes(srv.Router)

	return &app{server: srv, store: store, sessions: sessions, logger: logger}, nil
}

// Close waits for in-flight tracking sends and releases storage.
func (a *app) Close() {
	a.sessions.Wait()
	if err := blob.Close(a.store); err != nil {
		a.logger.Warn("closing storage failed", "err", err)
	}
}
