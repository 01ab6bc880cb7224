package tracking

import (
	"context"
	"fmt"
	"strings"
)

// PageReporter reports a page path to the general analytics provider.
type PageReporter interface {
	ReportPage(ctx context.Context, measurementID, path string) error
}

// PageViewTracker is the secondary tracker. It reports every new path and
// carries no correlation id.
type PageViewTracker struct {
	measurementID string
	reporter      PageReporter
}

// NewPageViewTracker creates a tracker that is ready when measurementID is set.
func NewPageViewTracker(measurementID string, reporter PageReporter) *PageViewTracker {
	return &PageViewTracker{measurementID: strings.TrimSpace(measurementID), reporter: reporter}
}

// Name implements Tracker.
func (t *PageViewTracker) Name() string { return "pageview" }

// Ready implements Tracker.
func (t *PageViewTracker) Ready() bool {
	return t.measurementID != "" && t.reporter != nil
}

// Track implements Tracker.
func (t *PageViewTracker) Track(ctx context.Context, path string) error {
	if err := t.reporter.ReportPage(ctx, t.measurementID, path); err != nil {
		return fmt.Errorf("report page: %w", err)
	}
	return nil
}
