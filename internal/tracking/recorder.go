package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Channel names recorded on client-side events.
const (
	ChannelPixel    = "pixel"
	ChannelPageView = "pageview"
)

// Recorder is the in-process client channel. It stands in for the browser
// SDKs: each emission gets an id and is kept in a bounded ring buffer that
// the front-end and admin endpoints can read.
type Recorder struct {
	mu      sync.RWMutex
	entries []Event
	maxSize int
	now     func() time.Time
	newID   func() string
}

// NewRecorder creates a recorder keeping at most maxSize events.
func NewRecorder(maxSize int) *Recorder {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &Recorder{
		entries: make([]Event, 0, maxSize),
		maxSize: maxSize,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (r *Recorder) add(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) >= r.maxSize {
		r.entries = r.entries[1:]
	}
	r.entries = append(r.entries, evt)
}

// Track implements Pixel.
func (r *Recorder) Track(ctx context.Context, eventName, path string, params map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := r.newID()
	r.add(Event{
		Name:      eventName,
		ID:        id,
		Path:      path,
		Channel:   ChannelPixel,
		Params:    params,
		Timestamp: r.now(),
	})
	return id, nil
}

// ReportPage implements PageReporter.
func (r *Recorder) ReportPage(ctx context.Context, measurementID, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.add(Event{
		Name:      "page_view",
		Path:      path,
		Channel:   ChannelPageView,
		Params:    map[string]any{"send_to": measurementID, "page_path": path},
		Timestamp: r.now(),
	})
	return nil
}

// Events returns a copy of the recorded events, oldest first.
func (r *Recorder) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Event, len(r.entries))
	copy(out, r.entries)
	return out
}

// Clear removes all recorded events.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = r.entries[:0]
}
