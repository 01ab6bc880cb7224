// Package branding loads the site's favicon and name from the backend and
// applies them to the document head.
package branding

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
)

// Setting keys read from the site_settings table.
const (
	KeyFaviconURL = "favicon_url"
	KeySiteName   = "site_name"
)

// Document is the part of the page head branding can change.
type Document interface {
	SetIcon(href string)
	SetTitle(title string)
}

// Head is an in-process Document.
type Head struct {
	mu    sync.RWMutex
	icon  string
	title string
}

// NewHead creates a Head with default values.
func NewHead(defaultIcon, defaultTitle string) *Head {
	return &Head{icon: defaultIcon, title: defaultTitle}
}

// SetIcon implements Document.
func (h *Head) SetIcon(href string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.icon = href
}

// SetTitle implements Document.
func (h *Head) SetTitle(title string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.title = title
}

// Snapshot is a point-in-time view of a Head.
type Snapshot struct {
	FaviconURL string `json:"favicon_url"`
	SiteName   string `json:"site_name"`
}

// Snapshot returns the current values.
func (h *Head) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Snapshot{FaviconURL: h.icon, SiteName: h.title}
}

// Source reads rows from a backend table.
type Source interface {
	Select(ctx context.Context, table string, query url.Values, out any) error
}

// Loader fetches branding settings.
type Loader struct {
	src    Source
	logger *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(src Source, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{src: src, logger: logger.With("component", "branding")}
}

type settingRow struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Apply loads the settings and applies any non-empty value to doc. Failures
// are logged and leave doc unchanged. It reports whether anything was applied.
func (l *Loader) Apply(ctx context.Context, doc Document) bool {
	q := url.Values{}
	q.Set("select", "key,value")
	q.Set("key", "in.("+KeyFaviconURL+","+KeySiteName+")")

	var rows []settingRow
	if err := l.src.Select(ctx, "site_settings", q, &rows); err != nil {
		l.logger.Warn("loading site settings failed, keeping defaults", "err", err)
		return false
	}

	applied := false
	for _, row := range rows {
		if row.Value == "" {
			continue
		}
		switch row.Key {
		case KeyFaviconURL:
			doc.SetIcon(row.Value)
			applied = true
		case KeySiteName:
			doc.SetTitle(row.Value)
			applied = true
		}
	}
	return applied
}
