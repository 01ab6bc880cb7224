package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/shopfront-dev/storefront/internal/tracking")

// DefaultCookieDelay is how long the pixel tracker waits after the client
// emission before reading browser cookies for the server event.
const DefaultCookieDelay = 500 * time.Millisecond

// Pixel is the client-side pixel channel.
type Pixel interface {
	// Track emits eventName and returns the correlation id it generated.
	Track(ctx context.Context, eventName, path string, params map[string]any) (string, error)
}

// ServerEvent is the server-side copy of a client event.
type ServerEvent struct {
	EventName      string
	EventID        string
	EventSourceURL string
	UserAgent      string
	Browser        BrowserIDs
	CustomData     map[string]any
}

// ConversionsSender delivers server-side events to the pixel platform.
type ConversionsSender interface {
	SendConversion(ctx context.Context, evt ServerEvent) error
}

// AnalyticsSender delivers best-effort server events to a second provider.
type AnalyticsSender interface {
	SendAnalytics(ctx context.Context, eventName string, params map[string]any) error
}

// PixelConfig configures a PixelTracker.
type PixelConfig struct {
	PixelID          string
	SiteURL          string
	Delay            time.Duration
	AnalyticsTimeout time.Duration
	Logger           *slog.Logger
	// Lifetime bounds every cycle. Callers' cancellation is ignored once a
	// cycle starts; only Lifetime ending stops it. Defaults to Background.
	Lifetime context.Context
}

// PixelTracker is the primary tracker. One cycle:
//  1. emits the client event and captures its id,
//  2. waits Delay so browser cookies are readable,
//  3. sends the server event with the same id,
//  4. concurrently fires a best-effort analytics event whose failure is
//     only logged.
//
// Errors from steps 1-3 are returned. A started cycle runs to completion
// even if the caller's context is cancelled.
type PixelTracker struct {
	cfg         PixelConfig
	pixel       Pixel
	cookies     CookieSource
	userAgent   func() string
	conversions ConversionsSender
	analytics   AnalyticsSender
	logger      *slog.Logger
	sleep       func(ctx context.Context, d time.Duration) error

	detached sync.WaitGroup
}

// NewPixelTracker wires a PixelTracker. analytics may be nil.
func NewPixelTracker(cfg PixelConfig, pixel Pixel, cookies CookieSource, conversions ConversionsSender, analytics AnalyticsSender) *PixelTracker {
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.AnalyticsTimeout <= 0 {
		cfg.AnalyticsTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Lifetime == nil {
		cfg.Lifetime = context.Background()
	}
	t := &PixelTracker{
		cfg:         cfg,
		pixel:       pixel,
		cookies:     cookies,
		conversions: conversions,
		analytics:   analytics,
		logger:      cfg.Logger.With("tracker", "pixel"),
		sleep:       sleepContext,
	}
	if jar, ok := cookies.(*CookieJar); ok {
		t.userAgent = jar.UserAgent
	}
	return t
}

// Name implements Tracker.
func (t *PixelTracker) Name() string { return "pixel" }

// Ready implements Tracker. The tracker is ready once a pixel id is set.
func (t *PixelTracker) Ready() bool {
	return strings.TrimSpace(t.cfg.PixelID) != "" && t.pixel != nil
}

// Track implements Tracker.
func (t *PixelTracker) Track(ctx context.Context, path string) error {
	ctx, cancel := t.cycleContext(ctx)
	defer cancel()
	ctx, span := tracer.Start(ctx, "tracking.pixel.page_view",
		trace.WithAttributes(attribute.String("page.path", path)))
	defer span.End()

	sourceURL := t.sourceURL(path)
	params := map[string]any{"page_path": path}

	eventID, err := t.pixel.Track(ctx, EventPageView, path, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "client emission failed")
		return fmt.Errorf("pixel emit: %w", err)
	}
	span.SetAttributes(attribute.String("event.id", eventID))

	t.fireAnalytics(path, sourceURL)

	if err := t.sleep(ctx, t.cfg.Delay); err != nil {
		return fmt.Errorf("waiting for browser cookies: %w", err)
	}

	if t.conversions == nil {
		return nil
	}
	evt := ServerEvent{
		EventName:      EventPageView,
		EventID:        eventID,
		EventSourceURL: sourceURL,
		CustomData:     params,
	}
	if t.cookies != nil {
		evt.Browser = t.cookies.BrowserIDs()
	}
	if t.userAgent != nil {
		evt.UserAgent = t.userAgent()
	}
	if err := t.conversions.SendConversion(ctx, evt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "server emission failed")
		return fmt.Errorf("conversions relay: %w", err)
	}
	return nil
}

// cycleContext keeps the caller's values but not its cancellation. The
// cycle is cancelled only when the tracker's lifetime ends.
func (t *PixelTracker) cycleContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	stop := context.AfterFunc(t.cfg.Lifetime, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// fireAnalytics runs the second-provider event on its own goroutine.
func (t *PixelTracker) fireAnalytics(path, sourceURL string) {
	if t.analytics == nil {
		return
	}
	t.detached.Add(1)
	go func() {
		defer t.detached.Done()
		ctx, cancel := context.WithTimeout(context.Background(), t.cfg.AnalyticsTimeout)
		defer cancel()
		err := t.analytics.SendAnalytics(ctx, "page_view", map[string]any{
			"page_path":     path,
			"page_location": sourceURL,
		})
		if err != nil {
			t.logger.Warn("analytics relay failed", "path", path, "err", err)
		}
	}()
}

// Wait blocks until detached analytics sends have finished.
func (t *PixelTracker) Wait() {
	t.detached.Wait()
}

func (t *PixelTracker) sourceURL(path string) string {
	base := strings.TrimRight(t.cfg.SiteURL, "/")
	if base == "" {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
