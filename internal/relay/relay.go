// Package relay delivers analytics events to server-side endpoints as JSON
// and keeps a bounded log of delivery attempts.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HeaderSource supplies headers (credentials) added to every request.
type HeaderSource interface {
	Headers() map[string]string
}

// StaticHeaders is a fixed HeaderSource.
type StaticHeaders map[string]string

// Headers implements HeaderSource.
func (h StaticHeaders) Headers() map[string]string { return h }

// BearerHeaders authenticates with an API key the way the backend functions expect.
func BearerHeaders(apiKey string) HeaderSource {
	if apiKey == "" {
		return StaticHeaders{}
	}
	return StaticHeaders{
		"apikey":        apiKey,
		"Authorization": "Bearer " + apiKey,
	}
}

// Message is the JSON body posted to a relay endpoint.
type Message struct {
	EventName string         `json:"eventName"`
	EventID   string         `json:"eventId,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
}

// Delivery records one delivery attempt.
type Delivery struct {
	ID         string    `json:"id"`
	Relay      string    `json:"relay"`
	EventName  string    `json:"event_name"`
	EventID    string    `json:"event_id,omitempty"`
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Config configures a Dispatcher.
type Config struct {
	Name          string
	URL           string
	Headers       HeaderSource
	Logger        *slog.Logger
	Timeout       time.Duration
	MaxDeliveries int
	HTTPClient    *http.Client
}

// Dispatcher posts Messages to one URL. Each Send is a single attempt.
type Dispatcher struct {
	name    string
	url     string
	headers HeaderSource
	logger  *slog.Logger
	client  *http.Client

	mu         sync.RWMutex
	deliveries []Delivery
	maxLog     int
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxDeliveries <= 0 {
		cfg.MaxDeliveries = 500
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Headers == nil {
		cfg.Headers = StaticHeaders{}
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Dispatcher{
		name:       cfg.Name,
		url:        cfg.URL,
		headers:    cfg.Headers,
		logger:     cfg.Logger.With("relay", cfg.Name),
		client:     client,
		deliveries: make([]Delivery, 0),
		maxLog:     cfg.MaxDeliveries,
	}
}

// Enabled reports whether a URL is configured.
func (d *Dispatcher) Enabled() bool {
	return d.url != ""
}

// Send posts msg. With no URL configured it does nothing.
func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	if d.url == "" {
		d.logger.Debug("no relay URL configured, skipping delivery", "event", msg.EventName)
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range d.headers.Headers() {
		req.Header.Set(k, v)
	}

	delivery := Delivery{
		ID:        uuid.NewString(),
		Relay:     d.name,
		EventName: msg.EventName,
		EventID:   msg.EventID,
		URL:       d.url,
		Timestamp: time.Now(),
	}

	resp, err := d.client.Do(req)
	if err != nil {
		delivery.Error = err.Error()
		d.record(delivery)
		return fmt.Errorf("deliver %s: %w", msg.EventName, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	delivery.StatusCode = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("deliver %s: status %d", msg.EventName, resp.StatusCode)
		delivery.Error = err.Error()
		d.record(delivery)
		return err
	}
	d.record(delivery)
	return nil
}

func (d *Dispatcher) record(delivery Delivery) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.deliveries) >= d.maxLog {
		d.deliveries = d.deliveries[1:]
	}
	d.deliveries = append(d.deliveries, delivery)
}

// Deliveries returns all recorded delivery attempts.
func (d *Dispatcher) Deliveries() []Delivery {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Delivery, len(d.deliveries))
	copy(out, d.deliveries)
	return out
}

// Reset clears the delivery log.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliveries = d.deliveries[:0]
}
