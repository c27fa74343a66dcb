package fixture

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// HandlerOption configures the fixture handler.
type HandlerOption func(*handler)

// WithLatency delays every listing response by d.
func WithLatency(d time.Duration) HandlerOption {
	return func(h *handler) {
		h.latency = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

type handler struct {
	store   *Store
	latency time.Duration
	logger  *slog.Logger
}

// Handler serves GET /events/{eventId}/attendees from store.
func Handler(store *Store, opts ...HandlerOption) http.Handler {
	h := &handler{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/events/{eventId}/attendees", h.listAttendees)
	return r
}

func (h *handler) listAttendees(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if _, err := uuid.Parse(eventID); err != nil {
		writeError(w, http.StatusBadRequest, "eventId must be a UUID")
		return
	}

	pageIndex := 0
	if raw := r.URL.Query().Get("pageIndex"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "pageIndex must be a non-negative integer")
			return
		}
		pageIndex = n
	}
	query := r.URL.Query().Get("query")

	if h.latency > 0 {
		select {
		case <-time.After(h.latency):
		case <-r.Context().Done():
			return
		}
	}

	page, err := h.store.List(r.Context(), eventID, pageIndex, query)
	if err != nil {
		h.logger.Error("fixture list failed", "event_id", eventID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Debug("fixture list",
		"event_id", eventID,
		"page_index", pageIndex,
		"query", query,
		"total", page.Total,
	)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(page)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
