package metrics

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passin-dev/attendees/pkg/attendee"
	"github.com/passin-dev/attendees/pkg/listing"
	"github.com/passin-dev/attendees/pkg/querystate"
)

func TestFetchOutcomes(t *testing.T) {
	m := New(WithRegistry(prometheus.NewRegistry()))

	q := attendee.Query{Page: 1}
	m.FetchStarted(q)
	m.FetchStarted(q)
	m.FetchStarted(q)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.inFlight))

	m.FetchFinished(q, listing.OutcomeSettled, 20*time.Millisecond)
	m.FetchFinished(q, listing.OutcomeDiscarded, 40*time.Millisecond)
	m.FetchFinished(q, listing.OutcomeDiscarded, 40*time.Millisecond)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchesTotal.WithLabelValues("settled")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.fetchesTotal.WithLabelValues("discarded")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.fetchesTotal.WithLabelValues("failed")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.fetchDuration))
}

func TestSessionsAndCommands(t *testing.T) {
	m := New(WithRegistry(prometheus.NewRegistry()))

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.liveSessions))

	m.Command("next")
	m.Command("next")
	m.Command("drop table")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("next")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("unknown")))
}

func TestNamespaceAndExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(
		WithRegistry(reg),
		WithNamespace("passin"),
		WithSubsystem("edge"),
		WithConstLabels(prometheus.Labels{"event": "demo"}),
		WithBuckets([]float64{0.1, 1}),
	)
	m.SessionOpened()
	m.FetchStarted(attendee.Query{Page: 1})
	m.FetchFinished(attendee.Query{Page: 1}, listing.OutcomeSettled, 50*time.Millisecond)

	expected := `
# HELP passin_edge_live_sessions Number of open live listing sessions
# TYPE passin_edge_live_sessions gauge
passin_edge_live_sessions{event="demo"} 1
# HELP passin_edge_fetch_duration_seconds Attendee fetch duration in seconds
# TYPE passin_edge_fetch_duration_seconds histogram
passin_edge_fetch_duration_seconds_bucket{event="demo",outcome="settled",le="0.1"} 1
passin_edge_fetch_duration_seconds_bucket{event="demo",outcome="settled",le="1"} 1
passin_edge_fetch_duration_seconds_bucket{event="demo",outcome="settled",le="+Inf"} 1
passin_edge_fetch_duration_seconds_sum{event="demo",outcome="settled"} 0.05
passin_edge_fetch_duration_seconds_count{event="demo",outcome="settled"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"passin_edge_live_sessions", "passin_edge_fetch_duration_seconds"))
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(WithRegistry(reg))
	assert.Panics(t, func() { New(WithRegistry(reg)) })
}

func TestControllerReportsOutcomes(t *testing.T) {
	m := New(WithRegistry(prometheus.NewRegistry()))

	fetcher := attendee.FetcherFunc(func(ctx context.Context, q attendee.Query) (attendee.Page, error) {
		return attendee.Page{Attendees: []attendee.Attendee{}, Total: 0}, nil
	})
	ctrl := listing.New(querystate.New(querystate.MustHistory("http://app.test/")), fetcher,
		listing.WithObserver(m))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ctrl.Start(ctx)
	_, err := ctrl.Await(ctx)
	require.NoError(t, err)

	// FetchFinished runs after the view is published.
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.fetchesTotal.WithLabelValues("settled")) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
}
