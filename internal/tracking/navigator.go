package tracking

import (
	"context"
	"log/slog"
)

// Result describes what a navigation triggered.
type Result struct {
	Path  string   `json:"path"`
	Fired []string `json:"fired"`
}

// Navigator delivers path changes to one primary gate and any number of
// secondary gates. Each gate decides independently whether to fire.
type Navigator struct {
	primary     *Gate
	secondaries []*Gate
	logger      *slog.Logger
}

// NewNavigator creates a Navigator. primary may be nil.
func NewNavigator(logger *slog.Logger, primary Tracker, secondaries ...Tracker) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Navigator{logger: logger}
	if primary != nil {
		n.primary = NewGate(primary, logger)
	}
	for _, t := range secondaries {
		if t != nil {
			n.secondaries = append(n.secondaries, NewGate(t, logger))
		}
	}
	return n
}

// Navigate handles a route change to path. Secondary failures are logged;
// a primary cycle failure is logged and returned.
func (n *Navigator) Navigate(ctx context.Context, path string) (Result, error) {
	path = NormalizePath(path)
	res := Result{Path: path, Fired: []string{}}

	for _, g := range n.secondaries {
		fired, err := g.Observe(ctx, path)
		if fired {
			res.Fired = append(res.Fired, g.Name())
		}
		if err != nil {
			n.logger.Warn("tracking failed", "tracker", g.Name(), "path", path, "err", err)
		}
	}

	if n.primary == nil {
		return res, nil
	}
	fired, err := n.primary.Observe(ctx, path)
	if fired {
		res.Fired = append(res.Fired, n.primary.Name())
	}
	if err != nil {
		n.logger.Error("tracking failed", "tracker", n.primary.Name(), "path", path, "err", err)
		return res, err
	}
	return res, nil
}

// Gates returns all gates, primary first.
func (n *Navigator) Gates() []*Gate {
	out := make([]*Gate, 0, len(n.secondaries)+1)
	if n.primary != nil {
		out = append(out, n.primary)
	}
	return append(out, n.secondaries...)
}

// Reset forgets the last tracked path on every gate.
func (n *Navigator) Reset() {
	for _, g := range n.Gates() {
		g.Reset()
	}
}
