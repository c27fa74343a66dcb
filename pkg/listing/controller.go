// Package listing synchronizes an attendee listing with its URL-backed
// search and page state.
//
// A Controller reacts to discrete search/page changes: it writes the new
// state through a querystate.Store, issues one fetch per change and applies
// only the response to the most recently issued request. Responses to
// superseded requests are discarded, so a slow answer for page 1 can never
// overwrite the result for page 2 that was requested after it.
//
// Basic usage:
//
//	store := querystate.New(location)
//	ctrl := listing.New(store, client)
//	ctrl.Start(ctx)
//
//	ctrl.SetSearch(ctx, "ana") // page resets to 1, one fetch
//	ctrl.NextPage(ctx)         // no-op when already on the last page
//
//	view, err := ctrl.Await(ctx)
package listing

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/passin-dev/attendees/internal/errors"
	"github.com/passin-dev/attendees/pkg/attendee"
	"github.com/passin-dev/attendees/pkg/pagination"
	"github.com/passin-dev/attendees/pkg/querystate"
)

// DefaultFetchTimeout bounds how long the controller stays in Fetching.
const DefaultFetchTimeout = 10 * time.Second

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver sets the observer notified about every request.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithFetchTimeout bounds each request. Zero or negative disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.timeout = d
	}
}

// WithCancelSuperseded controls whether issuing a request cancels the one
// still in flight (default true). Superseded responses are ignored either way.
func WithCancelSuperseded(cancel bool) Option {
	return func(c *Controller) {
		c.cancelSuperseded = cancel
	}
}

// Controller is the state machine tying a querystate.Store to an
// attendee.Fetcher. It is safe for concurrent use.
type Controller struct {
	store            *querystate.Store
	fetcher          attendee.Fetcher
	logger           *slog.Logger
	observer         Observer
	timeout          time.Duration
	cancelSuperseded bool

	mu     sync.Mutex
	seq    uint64 // sequence number of the latest issued request
	state  State
	key    attendee.Query // key of the latest issued request
	cancel context.CancelFunc
	idle   chan struct{} // closed when the latest request finishes

	result    attendee.Page
	resultFor attendee.Query
	hasResult bool
	err       error

	// notifyMu is taken before mu is released so subscribers see
	// transitions in the order they were applied.
	notifyMu sync.Mutex
	subs     map[int]func(View)
	nextSub  int
}

// New creates a Controller. Nothing is fetched until Start.
func New(store *querystate.Store, fetcher attendee.Fetcher, opts ...Option) *Controller {
	c := &Controller{
		store:            store,
		fetcher:          fetcher,
		logger:           slog.Default(),
		observer:         noopObserver{},
		timeout:          DefaultFetchTimeout,
		cancelSuperseded: true,
		state:            Idle,
		subs:             make(map[int]func(View)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the controller's query state store.
func (c *Controller) Store() *querystate.Store {
	return c.store
}

// Start issues the first fetch for the URL-derived state. It reports false
// if the controller was already started. ctx bounds every request issued
// afterwards on behalf of this call chain.
func (c *Controller) Start(ctx context.Context) bool {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return false
	}
	c.issueLocked(ctx)
	c.unlockAndNotify()
	return true
}

// SetSearch changes the search term and resets the page to 1 in a single
// navigation. Setting the current term again does nothing.
func (c *Controller) SetSearch(ctx context.Context, value string) bool {
	c.mu.Lock()
	if value == c.store.Search() {
		c.mu.Unlock()
		return false
	}
	c.store.SetSearchAndPage(value, 1)
	c.issueLocked(ctx)
	c.unlockAndNotify()
	return true
}

// SetPage moves to page, clamped to the pages known for the current search.
// It reports false when the clamped page is the current one.
func (c *Controller) SetPage(ctx context.Context, page int) bool {
	c.mu.Lock()
	m := c.modelLocked()
	target := page
	if c.totalKnownLocked() {
		target = m.Clamp(page)
	} else if target < 1 {
		target = 1
	}
	return c.goToLocked(ctx, target)
}

// FirstPage navigates to page 1. Disabled on page 1.
func (c *Controller) FirstPage(ctx context.Context) bool {
	return c.navigate(ctx, pagination.First)
}

// PreviousPage navigates one page back. Disabled on page 1.
func (c *Controller) PreviousPage(ctx context.Context) bool {
	return c.navigate(ctx, pagination.Previous)
}

// NextPage navigates one page forward. Disabled on the last page and
// whenever there are no pages.
func (c *Controller) NextPage(ctx context.Context) bool {
	return c.navigate(ctx, pagination.Next)
}

// LastPage navigates to the last page. Disabled on the last page and
// whenever there are no pages.
func (c *Controller) LastPage(ctx context.Context) bool {
	return c.navigate(ctx, pagination.Last)
}

// Navigate applies a pagination action. It reports false when the action
// is disabled.
func (c *Controller) Navigate(ctx context.Context, a pagination.Action) bool {
	return c.navigate(ctx, a)
}

func (c *Controller) navigate(ctx context.Context, a pagination.Action) bool {
	c.mu.Lock()
	target, ok := c.modelLocked().Target(a)
	if !ok {
		c.mu.Unlock()
		c.logger.Debug("navigation disabled", "action", a.String(), "page", c.store.Page())
		return false
	}
	return c.goToLocked(ctx, target)
}

// goToLocked writes page and fetches. It releases c.mu.
func (c *Controller) goToLocked(ctx context.Context, page int) bool {
	if page == c.store.Page() {
		c.mu.Unlock()
		return false
	}
	c.store.SetPage(page)
	c.issueLocked(ctx)
	c.unlockAndNotify()
	return true
}

// Refresh re-issues the request for the current state, e.g. after a failure.
func (c *Controller) Refresh(ctx context.Context) {
	c.mu.Lock()
	c.issueLocked(ctx)
	c.unlockAndNotify()
}

// Reload re-reads search and page from the store's location (after a
// history move) and fetches if they changed. It reports whether a request
// was issued.
func (c *Controller) Reload(ctx context.Context) bool {
	c.mu.Lock()
	c.store.Reload()
	search, page := c.store.State()
	if c.state != Idle && c.key == (attendee.Query{Page: page, Search: search}) {
		c.mu.Unlock()
		return false
	}
	c.issueLocked(ctx)
	c.unlockAndNotify()
	return true
}

// View returns a snapshot of the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Await blocks until no request is in flight and returns the view.
func (c *Controller) Await(ctx context.Context) (View, error) {
	for {
		c.mu.Lock()
		if c.state != Fetching {
			v := c.viewLocked()
			c.mu.Unlock()
			return v, nil
		}
		idle := c.idle
		c.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return c.View(), ctx.Err()
		}
	}
}

// Subscribe registers fn to receive the view after every transition.
// fn runs synchronously, in transition order, and must not call back into
// the Controller. The returned function unregisters it.
func (c *Controller) Subscribe(fn func(View)) (unsubscribe func()) {
	c.notifyMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.notifyMu.Unlock()

	return func() {
		c.notifyMu.Lock()
		delete(c.subs, id)
		c.notifyMu.Unlock()
	}
}

// issueLocked starts a request for the store's current state. Callers hold c.mu.
func (c *Controller) issueLocked(parent context.Context) {
	search, page := c.store.State()
	q := attendee.Query{Page: page, Search: search}

	if c.cancel != nil && c.cancelSuperseded {
		c.cancel()
	}

	c.seq++
	seq := c.seq

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, c.timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}

	done := make(chan struct{})
	c.cancel = cancel
	c.idle = done
	c.key = q
	c.state = Fetching

	c.logger.Debug("listing fetch started", "seq", seq, "page", q.Page, "search", q.Search)
	c.observer.FetchStarted(q)

	go c.run(parent, ctx, cancel, seq, q, done)
}

func (c *Controller) run(parent, ctx context.Context, cancel context.CancelFunc, seq uint64, q attendee.Query, done chan struct{}) {
	defer close(done)
	defer cancel()

	start := time.Now()
	page, err := c.fetcher.Fetch(ctx, q)
	elapsed := time.Since(start)

	c.mu.Lock()
	if seq != c.seq {
		latest := c.seq
		c.mu.Unlock()
		c.logger.Debug("stale response discarded",
			"code", apperrors.CodeStaleResponse,
			"seq", seq,
			"latest_seq", latest,
			"page", q.Page,
			"search", q.Search,
		)
		c.observer.FetchFinished(q, OutcomeDiscarded, elapsed)
		return
	}
	c.cancel = nil

	if err != nil {
		err = classify(err)
		c.state = Failed
		c.err = err
		c.logger.Warn("listing fetch failed",
			"code", apperrors.CodeOf(err),
			"page", q.Page,
			"search", q.Search,
			"kept_previous", c.hasResult,
			"error", err,
		)
		c.unlockAndNotify()
		c.observer.FetchFinished(q, OutcomeFailed, elapsed)
		return
	}

	c.state = Settled
	c.err = nil
	c.result = page
	c.resultFor = q
	c.hasResult = true
	c.logger.Debug("listing settled",
		"seq", seq,
		"page", q.Page,
		"search", q.Search,
		"total", page.Total,
		"count", len(page.Attendees),
	)

	// A shared link may point past the last page; pull it back in range.
	if last := pagination.New(page.Total, q.Page).LastValidPage(); q.Page > last {
		c.logger.Info("page out of range, clamping",
			"page", q.Page,
			"last_page", last,
			"search", q.Search,
		)
		c.store.SetPage(last)
		c.issueLocked(parent)
	}
	c.unlockAndNotify()
	c.observer.FetchFinished(q, OutcomeSettled, elapsed)
}

// unlockAndNotify releases c.mu and delivers the resulting view.
func (c *Controller) unlockAndNotify() {
	v := c.viewLocked()
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	for _, fn := range c.subs {
		fn(v)
	}
}

// totalKnownLocked reports whether the applied result belongs to the
// current search, i.e. whether its total bounds the current pages.
func (c *Controller) totalKnownLocked() bool {
	return c.hasResult && c.resultFor.Search == c.store.Search()
}

func (c *Controller) modelLocked() pagination.Model {
	total := 0
	if c.totalKnownLocked() {
		total = c.result.Total
	}
	return pagination.New(total, c.store.Page())
}

func (c *Controller) viewLocked() View {
	search, page := c.store.State()
	m := c.modelLocked()

	v := View{
		Search:        search,
		Page:          page,
		PageCount:     m.PageCount(),
		CanGoFirst:    m.CanGoFirst(),
		CanGoPrevious: m.CanGoPrevious(),
		CanGoNext:     m.CanGoNext(),
		CanGoLast:     m.CanGoLast(),
		Attendees:     []attendee.Attendee{},
		State:         c.state,
	}
	if c.hasResult {
		v.Attendees = c.result.Attendees
		v.Total = c.result.Total
		resultFor := c.resultFor
		v.ResultFor = &resultFor
	}
	if c.state == Failed && c.err != nil {
		v.Err = c.err.Error()
		v.ErrCode = apperrors.CodeOf(c.err)
		v.RefreshFailed = c.hasResult
	}
	return v
}

// classify makes sure a fetch error carries a registered code.
func classify(err error) error {
	if apperrors.CodeOf(err) != "" {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return apperrors.New(apperrors.CodeFetchTimeout).Wrap(err)
	}
	return apperrors.New(apperrors.CodeNetworkFailure).Wrap(err)
}
