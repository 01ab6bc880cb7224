package httpserver

import (
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/shopfront-dev/storefront/internal/httpserver")

// RequestLogEntry is one served request as shown by /admin/requests.
// Session is the X-Session-ID header; cookie-only sessions leave it empty.
type RequestLogEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	Session    string            `json:"session,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	StatusCode int               `json:"status_code"`
	Duration   time.Duration     `json:"duration_ms"`
	RequestID  string            `json:"request_id,omitempty"`
}

// RequestLog keeps the last N requests in a fixed ring.
type RequestLog struct {
	mu   sync.RWMutex
	ring []RequestLogEntry
	next int
	full bool
}

// NewRequestLog sizes the ring; non-positive sizes fall back to 1000.
func NewRequestLog(size int) *RequestLog {
	if size <= 0 {
		size = 1000
	}
	return &RequestLog{ring: make([]RequestLogEntry, size)}
}

// Add records entry, overwriting the oldest once the ring is full.
func (rl *RequestLog) Add(entry RequestLogEntry) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.ring[rl.next] = entry
	rl.next = (rl.next + 1) % len(rl.ring)
	if rl.next == 0 {
		rl.full = true
	}
}

// Entries lists recorded requests oldest first.
func (rl *RequestLog) Entries() []RequestLogEntry {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	if !rl.full {
		return append([]RequestLogEntry(nil), rl.ring[:rl.next]...)
	}
	out := make([]RequestLogEntry, 0, len(rl.ring))
	out = append(out, rl.ring[rl.next:]...)
	return append(out, rl.ring[:rl.next]...)
}

func (rl *RequestLog) Clear() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	clear(rl.ring)
	rl.next, rl.full = 0, false
}

// FaultConfig makes requests to one API path fail on purpose, e.g. to see
// how a front-end copes with the order endpoint returning 503.
type FaultConfig struct {
	StatusCode int           `json:"status_code"`
	Body       string        `json:"body,omitempty"`
	Delay      time.Duration `json:"delay_ms,omitempty"`
	Rate       float64       `json:"rate"`
	Hits       int           `json:"hits"`
}

// FaultRegistry maps exact request paths to faults.
type FaultRegistry struct {
	mu     sync.Mutex
	faults map[string]FaultConfig
}

func NewFaultRegistry() *FaultRegistry {
	return &FaultRegistry{faults: make(map[string]FaultConfig)}
}

// Set installs fault for path, replacing any previous one. Rate outside
// (0, 1] means every request.
func (fr *FaultRegistry) Set(path string, fault FaultConfig) {
	if fault.Rate <= 0 || fault.Rate > 1 {
		fault.Rate = 1
	}
	fault.Hits = 0
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.faults[path] = fault
}

// Remove reports whether a fault was installed for path.
func (fr *FaultRegistry) Remove(path string) bool {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	_, ok := fr.faults[path]
	delete(fr.faults, path)
	return ok
}

// Check rolls the fault for path and counts a hit when it applies.
func (fr *FaultRegistry) Check(path string) *FaultConfig {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	f, ok := fr.faults[path]
	if !ok || (f.Rate < 1 && rand.Float64() >= f.Rate) {
		return nil
	}
	f.Hits++
	fr.faults[path] = f
	return &f
}

// All snapshots the installed faults.
func (fr *FaultRegistry) All() map[string]FaultConfig {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return maps.Clone(fr.faults)
}

func (fr *FaultRegistry) Reset() {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	clear(fr.faults)
}

// Middleware holds the shared request log and fault registry.
type Middleware struct {
	cfg    *Config
	logger *slog.Logger
	ReqLog *RequestLog
	Faults *FaultRegistry
}

// NewMiddleware creates a new Middleware instance.
func NewMiddleware(cfg *Config, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{
		cfg:    cfg,
		logger: logger,
		ReqLog: NewRequestLog(cfg.RequestLogSize),
		Faults: NewFaultRegistry(),
	}
}

// CORS allows browser front-ends on any origin to call the API.
func (m *Middleware) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Session-ID, traceparent")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by downstream handlers.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// RequestLog middleware captures request details into the ring buffer.
func (m *Middleware) RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rec, r)

		entry := RequestLogEntry{
			Timestamp:  start,
			Method:     r.Method,
			Path:       r.URL.Path,
			Session:    r.Header.Get("X-Session-ID"),
			StatusCode: rec.statusCode,
			Duration:   time.Since(start),
			RequestID:  chimw.GetReqID(r.Context()),
		}
		if m.cfg.Verbose {
			entry.Headers = make(map[string]string)
			for k := range r.Header {
				if k == "Authorization" || k == "Cookie" {
					continue
				}
				entry.Headers[k] = r.Header.Get(k)
			}
		}
		m.ReqLog.Add(entry)

		m.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.statusCode,
			"duration", entry.Duration,
			"request_id", entry.RequestID,
		)
	})
}

// Trace starts a server span per request, continuing any incoming trace
// context.
func (m *Middleware) Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			))
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		if rctx := chi.RouteContext(ctx); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				span.SetName(r.Method + " " + pattern)
			}
		}
		span.SetAttributes(attribute.Int("http.response.status_code", rec.statusCode))
		if rec.statusCode >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.statusCode))
		}
	})
}

// FaultInjection applies any fault registered for the request path. Mount it
// on the API routes only so admin endpoints stay reachable.
func (m *Middleware) FaultInjection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fault := m.Faults.Check(r.URL.Path); fault != nil {
			if fault.Delay > 0 {
				timer := time.NewTimer(fault.Delay)
				select {
				case <-timer.C:
				case <-r.Context().Done():
					timer.Stop()
					return
				}
			}
			if fault.StatusCode > 0 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(fault.StatusCode)
				if fault.Body != "" {
					fmt.Fprint(w, fault.Body)
				} else {
					fmt.Fprintf(w, `{"error":{"message":"injected fault","type":%q,"code":%d}}`, http.StatusText(fault.StatusCode), fault.StatusCode)
				}
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
