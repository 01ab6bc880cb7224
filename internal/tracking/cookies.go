package tracking

import "sync"

// BrowserIDs are the first-party identifiers the pixel SDK stores in cookies.
type BrowserIDs struct {
	FBP string `json:"fbp,omitempty"`
	FBC string `json:"fbc,omitempty"`
}

// CookieSource reads the current browser identifiers.
type CookieSource interface {
	BrowserIDs() BrowserIDs
}

// CookieJar is a CookieSource fed by the client on each request.
type CookieJar struct {
	mu        sync.RWMutex
	ids       BrowserIDs
	userAgent string
}

// Update stores the latest identifiers. Empty values keep what was known.
func (j *CookieJar) Update(ids BrowserIDs, userAgent string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if ids.FBP != "" {
		j.ids.FBP = ids.FBP
	}
	if ids.FBC != "" {
		j.ids.FBC = ids.FBC
	}
	if userAgent != "" {
		j.userAgent = userAgent
	}
}

// BrowserIDs implements CookieSource.
func (j *CookieJar) BrowserIDs() BrowserIDs {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.ids
}

// UserAgent returns the last user agent seen.
func (j *CookieJar) UserAgent() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.userAgent
}
