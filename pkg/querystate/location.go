package querystate

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Mode determines how URL updates are recorded in history.
type Mode int

const (
	// ModePush adds a new history entry.
	ModePush Mode = iota

	// ModeReplace rewrites the current history entry in place.
	ModeReplace
)

// String returns the mode name used in config files and URL patches.
func (m Mode) String() string {
	if m == ModePush {
		return "push"
	}
	return "replace"
}

// ParseMode parses "push" or "replace" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "push":
		return ModePush, nil
	case "replace", "":
		return ModeReplace, nil
	}
	return ModeReplace, fmt.Errorf("querystate: unknown url mode %q", s)
}

// Location is the address bar the Store reads from and writes to.
//
// URL must return a copy the caller may modify. Navigate must not call
// back into the Store that invoked it.
type Location interface {
	URL() *url.URL
	Navigate(u *url.URL, mode Mode)
}

// History is an in-memory Location with browser-like history semantics.
// It is safe for concurrent use.
type History struct {
	mu      sync.Mutex
	entries []*url.URL
	index   int
}

// NewHistory creates a history whose single entry is raw.
func NewHistory(raw string) (*History, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("querystate: parse %q: %w", raw, err)
	}
	return &History{entries: []*url.URL{u}}, nil
}

// MustHistory is like NewHistory but panics on a malformed URL.
func MustHistory(raw string) *History {
	h, err := NewHistory(raw)
	if err != nil {
		panic(err)
	}
	return h
}

// URL returns a copy of the current entry.
func (h *History) URL() *url.URL {
	h.mu.Lock()
	defer h.mu.Unlock()
	return cloneURL(h.entries[h.index])
}

// Navigate records u. Push drops any forward entries first.
func (h *History) Navigate(u *url.URL, mode Mode) {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := cloneURL(u)
	if mode == ModeReplace {
		h.entries[h.index] = next
		return
	}
	h.entries = append(h.entries[:h.index+1], next)
	h.index++
}

// Back moves to the previous entry. It reports false at the oldest entry.
func (h *History) Back() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == 0 {
		return false
	}
	h.index--
	return true
}

// Forward moves to the next entry. It reports false at the newest entry.
func (h *History) Forward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index >= len(h.entries)-1 {
		return false
	}
	h.index++
	return true
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func cloneURL(u *url.URL) *url.URL {
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}
