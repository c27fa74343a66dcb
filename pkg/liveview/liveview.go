// Package liveview serves attendee listings over HTTP.
//
// Two routes are mounted:
//
//	GET /attendees       one-shot JSON snapshot of the listing for the
//	                     request's ?search=&page= (server-side first render)
//	GET /attendees/live  websocket session driving a listing.Controller
//
// A live session is seeded from the upgrade request's query string. After
// every controller transition the server sends a "view" message, and every
// time the listing state is written to the URL it sends a "url" message the
// browser applies with history.replaceState or history.pushState.
package liveview

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/passin-dev/attendees/pkg/attendee"
	"github.com/passin-dev/attendees/pkg/listing"
	"github.com/passin-dev/attendees/pkg/querystate"
)

// Recorder receives fetch outcomes and session activity. *metrics.Metrics
// implements it.
type Recorder interface {
	listing.Observer
	SessionOpened()
	SessionClosed()
	Command(kind string)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder reports fetches and sessions to r.
func WithRecorder(r Recorder) Option {
	return func(s *Server) {
		s.recorder = r
	}
}

// WithMode sets how URL writes are recorded. The default is ModeReplace.
func WithMode(mode querystate.Mode) Option {
	return func(s *Server) {
		s.mode = mode
	}
}

// WithKeys overrides the search and page query parameter names.
func WithKeys(searchKey, pageKey string) Option {
	return func(s *Server) {
		s.searchKey = searchKey
		s.pageKey = pageKey
	}
}

// WithFetchTimeout bounds every request a session issues.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.fetchTimeout = d
	}
}

// WithCheckOrigin sets the websocket origin check. The default accepts
// same-host origins only.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(s *Server) {
		s.upgrader.CheckOrigin = fn
	}
}

// Server serves listings backed by one attendee.Fetcher.
type Server struct {
	fetcher      attendee.Fetcher
	logger       *slog.Logger
	recorder     Recorder
	mode         querystate.Mode
	searchKey    string
	pageKey      string
	fetchTimeout time.Duration
	upgrader     websocket.Upgrader
	router       chi.Router
}

// New creates a Server.
func New(fetcher attendee.Fetcher, opts ...Option) *Server {
	s := &Server{
		fetcher:      fetcher,
		logger:       slog.Default(),
		mode:         querystate.ModeReplace,
		searchKey:    querystate.DefaultSearchKey,
		pageKey:      querystate.DefaultPageKey,
		fetchTimeout: listing.DefaultFetchTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/attendees", s.handleSnapshot)
	r.Get("/attendees/live", s.handleLive)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// newController builds a controller reading and writing loc.
func (s *Server) newController(loc querystate.Location, logger *slog.Logger) *listing.Controller {
	store := querystate.New(loc,
		querystate.WithMode(s.mode),
		querystate.WithKeys(s.searchKey, s.pageKey),
	)
	opts := []listing.Option{
		listing.WithLogger(logger),
		listing.WithFetchTimeout(s.fetchTimeout),
	}
	if s.recorder != nil {
		opts = append(opts, listing.WithObserver(s.recorder))
	}
	return listing.New(store, s.fetcher, opts...)
}

// handleSnapshot fetches once and returns the settled View. When the
// requested page was out of range the canonical URL is reported in
// Content-Location.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := s.logger.With("request_id", middleware.GetReqID(ctx))

	history, err := querystate.NewHistory(r.URL.RequestURI())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ServerMessage{Type: TypeError, Error: err.Error()})
		return
	}
	ctrl := s.newController(history, logger)
	ctrl.Start(ctx)

	view, err := ctrl.Await(ctx)
	if err != nil {
		// Client went away.
		return
	}

	if history.URL().RawQuery != r.URL.RawQuery {
		w.Header().Set("Content-Location", history.URL().RequestURI())
	}
	status := http.StatusOK
	if view.State == listing.Failed {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, view)
}

// handleLive upgrades to a websocket and runs a session until the client
// disconnects.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	sess := newSession(s, conn, r)
	sess.run(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
