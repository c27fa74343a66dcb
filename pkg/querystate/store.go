// Package querystate keeps a listing's search term and page number in sync
// with the query string of an address bar.
//
// The address bar is an injected Location rather than ambient global state,
// so the same Store runs against an in-memory History in tests and the CLI
// and against a remote browser in the live view.
//
// Example:
//
//	loc := querystate.MustHistory("https://app.example/attendees?search=ana&page=3")
//	store := querystate.New(loc)
//
//	store.Search() // "ana"
//	store.Page()   // 3
//
//	store.SetSearchAndPage("bruno", 1)
//	loc.URL().String() // https://app.example/attendees?page=1&search=bruno
package querystate

import (
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// Default query parameter names.
const (
	DefaultSearchKey = "search"
	DefaultPageKey   = "page"
)

// Option configures a Store.
type Option func(*Store)

// WithMode sets how URL writes are recorded. The default is ModeReplace.
func WithMode(mode Mode) Option {
	return func(s *Store) {
		s.mode = mode
	}
}

// WithKeys overrides the query parameter names. Empty values keep the defaults.
func WithKeys(searchKey, pageKey string) Option {
	return func(s *Store) {
		if searchKey != "" {
			s.searchKey = searchKey
		}
		if pageKey != "" {
			s.pageKey = pageKey
		}
	}
}

// Store owns the authoritative search and page values.
// It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	loc       Location
	mode      Mode
	searchKey string
	pageKey   string

	search string
	page   int
}

// New creates a Store initialized from loc's current query parameters.
func New(loc Location, opts ...Option) *Store {
	s := &Store{
		loc:       loc,
		mode:      ModeReplace,
		searchKey: DefaultSearchKey,
		pageKey:   DefaultPageKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reload()
	return s
}

// Reload re-reads search and page from the location, e.g. after the
// user moved through history.
func (s *Store) Reload() {
	q := s.loc.URL().Query()

	s.mu.Lock()
	s.search = q.Get(s.searchKey)
	s.page = ParsePage(q.Get(s.pageKey))
	s.mu.Unlock()
}

// Search returns the current search term.
func (s *Store) Search() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.search
}

// Page returns the current 1-based page.
func (s *Store) Page() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// State returns search and page together.
func (s *Store) State() (search string, page int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.search, s.page
}

// Mode returns the history mode used for writes.
func (s *Store) Mode() Mode {
	return s.mode
}

// URL returns a copy of the location's current URL.
func (s *Store) URL() *url.URL {
	return s.loc.URL()
}

// SetSearch writes value to the search parameter. An empty value removes it.
func (s *Store) SetSearch(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = value
	s.write(func(q url.Values) {
		s.putSearch(q, value)
	})
}

// SetPage writes page to the page parameter. Callers are expected to pass
// an already clamped value.
func (s *Store) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = page
	s.write(func(q url.Values) {
		q.Set(s.pageKey, strconv.Itoa(page))
	})
}

// SetSearchAndPage writes both parameters in a single navigation.
func (s *Store) SetSearchAndPage(value string, page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = value
	s.page = page
	s.write(func(q url.Values) {
		s.putSearch(q, value)
		q.Set(s.pageKey, strconv.Itoa(page))
	})
}

func (s *Store) putSearch(q url.Values, value string) {
	if value == "" {
		q.Del(s.searchKey)
		return
	}
	q.Set(s.searchKey, value)
}

// write applies edit to the location's query and navigates. Callers hold s.mu
// so URL writes land in the same order as the in-memory updates.
func (s *Store) write(edit func(url.Values)) {
	u := s.loc.URL()
	q := u.Query()
	edit(q)
	u.RawQuery = q.Encode()
	s.loc.Navigate(u, s.mode)
}

// ParsePage parses a page parameter. Anything that is not a positive
// integer yields 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
