// Package session keeps one set of client state per browser session: cart,
// wishlist, cookie jar and navigation trackers, all namespaced in the shared
// blob store.
package session

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/shopfront-dev/storefront/internal/blob"
	"github.com/shopfront-dev/storefront/internal/cart"
	"github.com/shopfront-dev/storefront/internal/tracking"
	"github.com/shopfront-dev/storefront/internal/wishlist"
)

// DefaultID is used when the client sends no session id.
const DefaultID = "default"

// ErrInvalidID is returned for session ids that cannot be used as a storage
// namespace.
var ErrInvalidID = errors.New("session: invalid session id")

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// TrackingConfig holds the tracker settings shared by every session.
type TrackingConfig struct {
	PixelID          string
	MeasurementID    string
	SiteURL          string
	CookieDelay      time.Duration
	AnalyticsTimeout time.Duration
}

// Options wires a Manager.
type Options struct {
	Store       blob.Store
	Tracking    TrackingConfig
	Pixel       tracking.Pixel
	Pages       tracking.PageReporter
	Conversions tracking.ConversionsSender
	Analytics   tracking.AnalyticsSender
	Logger      *slog.Logger
	// Lifetime ends in-flight tracking cycles; request cancellation does not.
	Lifetime context.Context
}

// Session is the state belonging to one client.
type Session struct {
	ID        string
	Cart      *cart.Store
	Wishlist  *wishlist.Store
	Cookies   *tracking.CookieJar
	Navigator *tracking.Navigator
	CreatedAt time.Time

	pixel *tracking.PixelTracker
}

// Manager creates sessions on first use and keeps them for the process
// lifetime.
type Manager struct {
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. A nil Store keeps sessions in memory only.
func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Store == nil {
		opts.Store = blob.NewMemory()
	}
	return &Manager{
		opts:     opts,
		logger:   opts.Logger,
		sessions: make(map[string]*Session),
	}
}

// NormalizeID maps an empty id to DefaultID and validates the rest.
func NormalizeID(id string) (string, error) {
	if id == "" {
		return DefaultID, nil
	}
	if !validID.MatchString(id) {
		return "", ErrInvalidID
	}
	return id, nil
}

// Get returns the session for id, opening and rehydrating it on first use.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	id, err := NormalizeID(id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	s := m.open(ctx, id)
	m.sessions[id] = s
	return s, nil
}

func (m *Manager) open(ctx context.Context, id string) *Session {
	logger := m.logger.With("session", id)
	store := blob.Namespace(m.opts.Store, "sessions/"+id)
	jar := &tracking.CookieJar{}

	s := &Session{
		ID:        id,
		Cart:      cart.New(ctx, store, logger),
		Wishlist:  wishlist.New(ctx, store, logger),
		Cookies:   jar,
		CreatedAt: time.Now().UTC(),
	}

	tc := m.opts.Tracking
	var primary tracking.Tracker
	if m.opts.Pixel != nil {
		s.pixel = tracking.NewPixelTracker(tracking.PixelConfig{
			PixelID:          tc.PixelID,
			SiteURL:          tc.SiteURL,
			Delay:            tc.CookieDelay,
			AnalyticsTimeout: tc.AnalyticsTimeout,
			Logger:           logger,
			Lifetime:         m.opts.Lifetime,
		}, m.opts.Pixel, jar, m.opts.Conversions, m.opts.Analytics)
		primary = s.pixel
	}
	var secondaries []tracking.Tracker
	if m.opts.Pages != nil {
		secondaries = append(secondaries, tracking.NewPageViewTracker(tc.MeasurementID, m.opts.Pages))
	}
	s.Navigator = tracking.NewNavigator(logger, primary, secondaries...)

	logger.Debug("session opened", "cart_items", s.Cart.TotalItems(), "wishlist_items", len(s.Wishlist.Items()))
	return s
}

// IDs returns the ids of open sessions in sorted order.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GateState is the admin view of one tracker gate.
type GateState struct {
	Tracker  string `json:"tracker"`
	State    string `json:"state"`
	LastPath string `json:"last_path"`
}

// State is the admin view of one session.
type State struct {
	ID       string              `json:"id"`
	Cart     cart.Summary        `json:"cart"`
	Wishlist int                 `json:"wishlist_items"`
	Browser  tracking.BrowserIDs `json:"browser"`
	Gates    []GateState         `json:"gates"`
}

// Snapshot returns the state of every open session.
func (m *Manager) Snapshot() []State {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })

	out := make([]State, 0, len(sessions))
	for _, s := range sessions {
		st := State{
			ID:       s.ID,
			Cart:     s.Cart.Summary(),
			Wishlist: len(s.Wishlist.Items()),
			Browser:  s.Cookies.BrowserIDs(),
			Gates:    []GateState{},
		}
		for _, g := range s.Navigator.Gates() {
			st.Gates = append(st.Gates, GateState{Tracker: g.Name(), State: g.State().String(), LastPath: g.LastPath()})
		}
		out = append(out, st)
	}
	return out
}

// Reset empties every open session's stored collections and forgets all
// sessions.
func (m *Manager) Reset(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.Cart.Clear(ctx)
		s.Wishlist.Clear(ctx)
		s.Navigator.Reset()
		delete(m.sessions, id)
	}
}

// Wait blocks until every session's detached tracking sends have finished.
func (m *Manager) Wait() {
	m.mu.Lock()
	var trackers []*tracking.PixelTracker
	for _, s := range m.sessions {
		if s.pixel != nil {
			trackers = append(trackers, s.pixel)
		}
	}
	m.mu.Unlock()
	for _, t := range trackers {
		t.Wait()
	}
}
