package attendee

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/passin-dev/attendees/internal/errors"
	"github.com/passin-dev/attendees/pkg/pagination"
)

const (
	// DefaultTimeout bounds a single listing request.
	DefaultTimeout = 10 * time.Second

	defaultTracerName = "attendees"

	// maxBodyBytes caps how much of a response is read.
	maxBodyBytes = 4 << 20
)

// Fetcher loads one page of attendees.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) (Page, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, q Query) (Page, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, q Query) (Page, error) {
	return f(ctx, q)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout. Zero or negative disables it.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracerName sets the OpenTelemetry tracer name (default: "attendees").
func WithTracerName(name string) ClientOption {
	return func(c *Client) {
		c.tracerName = name
	}
}

// Client fetches attendee pages over HTTP.
type Client struct {
	endpoint   *url.URL
	http       *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	tracerName string
	tracer     trace.Tracer
}

// NewClient creates a client for the event's listing under baseURL.
func NewClient(baseURL, eventID string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, apperrors.New(apperrors.CodeConfigInvalid).WithDetail("event id is required")
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, apperrors.New(apperrors.CodeConfigInvalid).
			WithDetail(fmt.Sprintf("invalid API base URL %q", baseURL)).
			Wrap(err)
	}

	c := &Client{
		endpoint:   base.JoinPath("events", eventID, "attendees"),
		http:       http.DefaultClient,
		timeout:    DefaultTimeout,
		logger:     slog.Default(),
		tracerName: defaultTracerName,
	}
	for _, opt := range opts {
		opt(c)
	}
	// Resolve tracer from global provider
	c.tracer = otel.Tracer(c.tracerName)
	return c, nil
}

// Endpoint returns the listing URL without query parameters.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// RequestURL builds the listing URL for q.
func (c *Client) RequestURL(q Query) string {
	u := *c.endpoint
	params := url.Values{}
	params.Set("pageIndex", strconv.Itoa(pagination.Offset(q.Page)))
	if q.Search != "" {
		params.Set("query", q.Search)
	}
	u.RawQuery = params.Encode()
	return u.String()
}

// Fetch issues one GET for q.
func (c *Client) Fetch(ctx context.Context, q Query) (Page, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ctx, span := c.tracer.Start(ctx, "attendee.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int("attendees.page", q.Page),
			attribute.Int("attendees.search_length", len(q.Search)),
		),
	)
	defer span.End()

	page, status, err := c.do(ctx, q)
	if status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperrors.CodeOf(err))
		c.logger.Debug("attendee fetch failed",
			"page", q.Page,
			"search", q.Search,
			"code", apperrors.CodeOf(err),
			"error", err,
		)
		return Page{}, err
	}

	span.SetAttributes(
		attribute.Int("attendees.total", page.Total),
		attribute.Int("attendees.count", len(page.Attendees)),
	)
	span.SetStatus(codes.Ok, "")
	return page, nil
}

func (c *Client) do(ctx context.Context, q Query) (Page, int, error) {
	target := c.RequestURL(q)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Page{}, 0, apperrors.New(apperrors.CodeNetworkFailure).WithDetail("GET " + target).Wrap(err)
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return Page{}, 0, transportError(target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return Page{}, resp.StatusCode, apperrors.New(apperrors.CodeInvalidResponse).
			WithDetail(fmt.Sprintf("GET %s returned %s", target, resp.Status))
	}

	var raw struct {
		Attendees []Attendee `json:"attendees"`
		Total     *int       `json:"total"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&raw); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Page{}, resp.StatusCode, transportError(target, ctxErr)
		}
		return Page{}, resp.StatusCode, apperrors.New(apperrors.CodeInvalidResponse).
			WithDetail("decode body of GET " + target).
			Wrap(err)
	}
	if err := validate(raw.Attendees, raw.Total); err != nil {
		return Page{}, resp.StatusCode, apperrors.New(apperrors.CodeInvalidResponse).
			WithDetail(err.Error())
	}

	attendees := raw.Attendees
	if attendees == nil {
		attendees = []Attendee{}
	}
	return Page{Attendees: attendees, Total: *raw.Total}, resp.StatusCode, nil
}

func validate(attendees []Attendee, total *int) error {
	switch {
	case total == nil:
		return fmt.Errorf("response has no total")
	case *total < 0:
		return fmt.Errorf("response total %d is negative", *total)
	case len(attendees) > pagination.PageSize:
		return fmt.Errorf("response holds %d attendees, page size is %d", len(attendees), pagination.PageSize)
	case len(attendees) > *total:
		return fmt.Errorf("response holds %d attendees but total is %d", len(attendees), *total)
	}
	return nil
}

func transportError(target string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return apperrors.New(apperrors.CodeFetchTimeout).WithDetail("GET " + target).Wrap(err)
	}
	return apperrors.New(apperrors.CodeNetworkFailure).WithDetail("GET " + target).Wrap(err)
}
