// Package tracking turns route changes into analytics events.
//
// A Navigator fans each path change out to a set of Gates. A Gate owns one
// Tracker and decides whether the change warrants a tracking cycle: the
// tracker must be ready, no cycle may be in flight, and the path must
// differ from the last one tracked. The primary PixelTracker emits each page
// view twice, client side and server side, under one event id so the
// receiving platform can deduplicate them.
package tracking

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// EventPageView is the event name used for route changes.
const EventPageView = "PageView"

// Event is one emitted analytics event.
type Event struct {
	Name      string         `json:"event_name"`
	ID        string         `json:"event_id,omitempty"`
	Path      string         `json:"pathname"`
	Channel   string         `json:"channel"`
	Params    map[string]any `json:"params,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Tracker performs one tracking cycle for a path.
type Tracker interface {
	// Name identifies the tracker in logs.
	Name() string
	// Ready reports whether the tracker is configured to emit.
	Ready() bool
	// Track runs one cycle for path.
	Track(ctx context.Context, path string) error
}

// State is a gate's tracking state.
type State int

const (
	Idle State = iota
	Tracking
)

func (s State) String() string {
	if s == Tracking {
		return "tracking"
	}
	return "idle"
}

// Gate guards one Tracker against duplicate and overlapping cycles.
type Gate struct {
	tracker Tracker
	logger  *slog.Logger

	mu    sync.Mutex
	state State
	last  string
}

// NewGate wraps t.
func NewGate(t Tracker, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{tracker: t, logger: logger.With("tracker", t.Name())}
}

// Name returns the wrapped tracker's name.
func (g *Gate) Name() string {
	return g.tracker.Name()
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// LastPath returns the last path a cycle ran for.
func (g *Gate) LastPath() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// Observe handles a path change. It reports whether a cycle ran and that
// cycle's error. The path is recorded as last tracked and the gate returns
// to Idle whether or not the cycle succeeded. A cycle in flight is never
// interrupted; a change arriving meanwhile is dropped.
func (g *Gate) Observe(ctx context.Context, path string) (bool, error) {
	g.mu.Lock()
	if !g.tracker.Ready() || g.state == Tracking || path == g.last {
		g.mu.Unlock()
		return false, nil
	}
	g.state = Tracking
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.state = Idle
		g.last = path
		g.mu.Unlock()
	}()

	g.logger.Debug("tracking cycle", "path", path)
	return true, g.tracker.Track(ctx, path)
}

// Reset forgets the last tracked path.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = ""
}

// NormalizePath trims whitespace and maps an empty path to "/".
func NormalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	return path
}
