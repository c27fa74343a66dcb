// Package metrics exports Prometheus metrics for attendee listings.
//
// Metrics collected (default namespace "attendees"):
//   - attendees_fetches_total: Counter of finished fetches by outcome
//     (settled, failed, discarded)
//   - attendees_fetch_duration_seconds: Histogram of fetch duration by outcome
//   - attendees_fetches_in_flight: Gauge of fetches started and not finished
//   - attendees_live_sessions: Gauge of open live sessions
//   - attendees_commands_total: Counter of live session commands by type
//
// Example:
//
//	m := metrics.New(metrics.WithRegistry(reg))
//	ctrl := listing.New(store, client, listing.WithObserver(m))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/passin-dev/attendees/pkg/attendee"
	"github.com/passin-dev/attendees/pkg/listing"
)

// Option customizes New.
type Option func(*options)

type options struct {
	namespace   string
	subsystem   string
	constLabels prometheus.Labels
	buckets     []float64
	registerer  prometheus.Registerer
}

// WithNamespace replaces the "attendees" metric name prefix.
func WithNamespace(namespace string) Option {
	return func(o *options) { o.namespace = namespace }
}

// WithSubsystem inserts a second name segment, e.g. attendees_edge_live_sessions.
func WithSubsystem(subsystem string) Option {
	return func(o *options) { o.subsystem = subsystem }
}

// WithConstLabels attaches fixed labels (event, region, ...) to every series.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(o *options) { o.constLabels = labels }
}

// WithBuckets sets the fetch duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(o *options) { o.buckets = buckets }
}

// WithRegistry registers the collectors on r instead of
// prometheus.DefaultRegisterer.
func WithRegistry(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// Metrics is a listing.Observer backed by Prometheus collectors. It also
// tracks live sessions for the liveview package.
type Metrics struct {
	fetchesTotal  *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	inFlight      prometheus.Gauge
	liveSessions  prometheus.Gauge
	commandsTotal *prometheus.CounterVec
}

var _ listing.Observer = (*Metrics)(nil)

// New registers the collectors and returns the Metrics. Registering twice
// against the same registry panics, as with promauto.
func New(opts ...Option) *Metrics {
	o := options{
		namespace:  "attendees",
		buckets:    prometheus.DefBuckets,
		registerer: prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&o)
	}
	factory := promauto.With(o.registerer)

	return &Metrics{
		fetchesTotal: factory.NewCounterVec(prometheus.CounterOpts(o.opts("fetches_total",
			"Total number of finished attendee fetches by outcome")), []string{"outcome"}),
		fetchDuration: factory.NewHistogramVec(o.histogram("fetch_duration_seconds",
			"Attendee fetch duration in seconds"), []string{"outcome"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts(o.opts("fetches_in_flight",
			"Number of attendee fetches started and not yet finished"))),
		liveSessions: factory.NewGauge(prometheus.GaugeOpts(o.opts("live_sessions",
			"Number of open live listing sessions"))),
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts(o.opts("commands_total",
			"Total live session commands by type")), []string{"type"}),
	}
}

func (o options) opts(name, help string) prometheus.Opts {
	return prometheus.Opts{
		Namespace:   o.namespace,
		Subsystem:   o.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: o.constLabels,
	}
}

func (o options) histogram(name, help string) prometheus.HistogramOpts {
	base := o.opts(name, help)
	return prometheus.HistogramOpts{
		Namespace:   base.Namespace,
		Subsystem:   base.Subsystem,
		Name:        base.Name,
		Help:        base.Help,
		ConstLabels: base.ConstLabels,
		Buckets:     o.buckets,
	}
}

// FetchStarted implements listing.Observer.
func (m *Metrics) FetchStarted(attendee.Query) {
	m.inFlight.Inc()
}

// FetchFinished implements listing.Observer. Discarded responses are
// counted separately from failures.
func (m *Metrics) FetchFinished(_ attendee.Query, outcome listing.Outcome, elapsed time.Duration) {
	m.inFlight.Dec()
	label := outcome.String()
	m.fetchesTotal.WithLabelValues(label).Inc()
	m.fetchDuration.WithLabelValues(label).Observe(elapsed.Seconds())
}

// SessionOpened records a new live session.
func (m *Metrics) SessionOpened() {
	m.liveSessions.Inc()
}

// SessionClosed records a live session ending.
func (m *Metrics) SessionClosed() {
	m.liveSessions.Dec()
}

// Command records a live session command. Unknown types are folded into
// "unknown" to keep label cardinality bounded.
func (m *Metrics) Command(kind string) {
	switch kind {
	case "search", "first", "previous", "next", "last", "page", "refresh", "popstate":
	default:
		kind = "unknown"
	}
	m.commandsTotal.WithLabelValues(kind).Inc()
}
