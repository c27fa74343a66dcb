package liveview

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/passin-dev/attendees/pkg/listing"
	"github.com/passin-dev/attendees/pkg/pagination"
	"github.com/passin-dev/attendees/pkg/querystate"
)

const writeWait = 10 * time.Second

// remoteLocation is the browser's address bar as seen from the server.
// Navigate records the new URL and forwards it to the browser.
type remoteLocation struct {
	mu         sync.Mutex
	u          *url.URL
	onNavigate func(u *url.URL, mode querystate.Mode)
}

func (l *remoteLocation) URL() *url.URL {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := *l.u
	return &c
}

func (l *remoteLocation) Navigate(u *url.URL, mode querystate.Mode) {
	c := *u
	l.mu.Lock()
	l.u = &c
	l.mu.Unlock()
	l.onNavigate(&c, mode)
}

// setQuery applies a URL the browser moved to on its own (back/forward).
func (l *remoteLocation) setQuery(rawQuery string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := *l.u
	c.RawQuery = rawQuery
	l.u = &c
}

// outbox is an unbounded FIFO drained by the session writer, so producers
// (controller subscribers, URL writes) never block.
type outbox struct {
	mu      sync.Mutex
	pending []ServerMessage
	wake    chan struct{}
}

func newOutbox() *outbox {
	return &outbox{wake: make(chan struct{}, 1)}
}

func (o *outbox) push(m ServerMessage) {
	o.mu.Lock()
	o.pending = append(o.pending, m)
	o.mu.Unlock()
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *outbox) drain() []ServerMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	msgs := o.pending
	o.pending = nil
	return msgs
}

type session struct {
	srv    *Server
	conn   *websocket.Conn
	logger *slog.Logger
	loc    *remoteLocation
	ctrl   *listing.Controller
	out    *outbox
}

func newSession(srv *Server, conn *websocket.Conn, r *http.Request) *session {
	page := *r.URL
	page.Path = strings.TrimSuffix(page.Path, "/live")

	s := &session{
		srv:    srv,
		conn:   conn,
		logger: srv.logger.With("request_id", middleware.GetReqID(r.Context())),
		out:    newOutbox(),
	}
	s.loc = &remoteLocation{u: &page, onNavigate: s.sendURL}
	s.ctrl = srv.newController(s.loc, s.logger)
	return s
}

func (s *session) sendURL(u *url.URL, mode querystate.Mode) {
	s.out.push(ServerMessage{Type: TypeURL, Mode: mode.String(), URL: u.RequestURI()})
}

func (s *session) sendError(format string, args ...any) {
	s.out.push(ServerMessage{Type: TypeError, Error: fmt.Sprintf(format, args...)})
}

// run serves the session until the connection drops. In-flight fetches
// are canceled on return.
func (s *session) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if rec := s.srv.recorder; rec != nil {
		rec.SessionOpened()
		defer rec.SessionClosed()
	}
	s.logger.Debug("live session opened", "url", s.loc.URL().RequestURI())

	unsubscribe := s.ctrl.Subscribe(func(v listing.View) {
		s.out.push(ServerMessage{Type: TypeView, View: &v})
	})
	defer unsubscribe()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(ctx)
	}()

	s.ctrl.Start(ctx)
	s.readLoop(ctx)

	cancel()
	<-writerDone
	s.conn.Close()
	s.logger.Debug("live session closed")
}

func (s *session) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.out.wake:
		}
		for _, msg := range s.out.drain() {
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				s.logger.Debug("live session write failed", "error", err)
				// Unblocks readLoop.
				s.conn.Close()
				return
			}
		}
	}
}

func (s *session) readLoop(ctx context.Context) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("live session read failed", "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError("malformed command: %v", err)
			continue
		}
		s.handle(ctx, msg)
	}
}

func (s *session) handle(ctx context.Context, msg ClientMessage) {
	if rec := s.srv.recorder; rec != nil {
		rec.Command(msg.Type)
	}

	switch msg.Type {
	case CmdSearch:
		s.ctrl.SetSearch(ctx, msg.Value)
	case CmdPage:
		s.ctrl.SetPage(ctx, querystate.ParsePage(msg.Value))
	case CmdRefresh:
		s.ctrl.Refresh(ctx)
	case CmdPopState:
		u, err := url.Parse(msg.Value)
		if err != nil {
			s.sendError("malformed popstate url %q", msg.Value)
			return
		}
		s.loc.setQuery(u.RawQuery)
		s.ctrl.Reload(ctx)
	default:
		action, ok := pagination.ParseAction(msg.Type)
		if !ok {
			s.sendError("unknown command %q", msg.Type)
			return
		}
		s.ctrl.Navigate(ctx, action)
	}
}
