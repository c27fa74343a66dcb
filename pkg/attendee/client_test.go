package attendee_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passin-dev/attendees/internal/fixture"
	"github.com/passin-dev/attendees/pkg/attendee"
)

const eventID = "9e9bd979-9d10-4915-b339-3786b1634f33"

func newFixtureServer(t *testing.T, n int) *httptest.Server {
	t.Helper()
	store, err := fixture.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Seed(context.Background(), eventID, n, time.Now()))

	srv := httptest.NewServer(fixture.Handler(store))
	t.Cleanup(srv.Close)
	return srv
}

func TestRequestURL(t *testing.T) {
	c, err := attendee.NewClient("http://localhost:3333", eventID)
	require.NoError(t, err)

	tests := []struct {
		name string
		q    attendee.Query
		want url.Values
	}{
		{"first page no search", attendee.Query{Page: 1}, url.Values{"pageIndex": {"0"}}},
		{"third page", attendee.Query{Page: 3}, url.Values{"pageIndex": {"2"}}},
		{"with search", attendee.Query{Page: 2, Search: "ana maria"}, url.Values{"pageIndex": {"1"}, "query": {"ana maria"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(c.RequestURL(tt.q))
			require.NoError(t, err)
			assert.Equal(t, "/events/"+eventID+"/attendees", u.Path)
			assert.Equal(t, tt.want, u.Query())
		})
	}
}

func TestEmptySearchOmitsQueryParam(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte(`{"attendees":[],"total":0}`))
	}))
	defer srv.Close()

	c, err := attendee.NewClient(srv.URL, eventID)
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), attendee.Query{Page: 1, Search: ""})
	require.NoError(t, err)

	_, present := got["query"]
	assert.False(t, present, "empty search must not send query=")
	assert.Equal(t, "0", got.Get("pageIndex"))
}

func TestFetchAgainstFixture(t *testing.T) {
	srv := newFixtureServer(t, 25)
	c, err := attendee.NewClient(srv.URL, eventID)
	require.NoError(t, err)

	page, err := c.Fetch(context.Background(), attendee.Query{Page: 3})
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total)
	assert.Len(t, page.Attendees, 5)

	page, err = c.Fetch(context.Background(), attendee.Query{Page: 1, Search: "Carla"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	for _, a := range page.Attendees {
		assert.Contains(t, a.Name, "Carla")
	}
}

func TestFetchPreservesOrderAndNulls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"attendees":[
			{"id":"b","name":"B","email":"b@x","createdAt":"2026-01-02T00:00:00Z","checkedInAt":null},
			{"id":"a","name":"A","email":"a@x","createdAt":"2026-01-01T00:00:00Z","checkedInAt":"2026-01-03T10:00:00Z"}
		],"total":2}`))
	}))
	defer srv.Close()

	c, err := attendee.NewClient(srv.URL, eventID)
	require.NoError(t, err)
	page, err := c.Fetch(context.Background(), attendee.Query{Page: 1})
	require.NoError(t, err)

	require.Len(t, page.Attendees, 2)
	assert.Equal(t, "b", page.Attendees[0].ID, "server order is kept")
	assert.False(t, page.Attendees[0].CheckedIn())
	assert.True(t, page.Attendees[1].CheckedIn())
}

func TestFetchInvalidResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"message":"boom"}`},
		{"not found", http.StatusNotFound, ``},
		{"malformed json", http.StatusOK, `{"attendees":[`},
		{"missing total", http.StatusOK, `{"attendees":[]}`},
		{"negative total", http.StatusOK, `{"attendees":[],"total":-1}`},
		{"more than total", http.StatusOK, `{"attendees":[{"id":"a"}],"total":0}`},
		{"oversized page", http.StatusOK, `{"attendees":[{},{},{},{},{},{},{},{},{},{},{}],"total":50}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := attendee.NewClient(srv.URL, eventID)
			require.NoError(t, err)
			_, err = c.Fetch(context.Background(), attendee.Query{Page: 1})
			require.Error(t, err)
			assert.True(t, attendee.IsInvalidResponse(err), "got %v", err)
			assert.False(t, attendee.IsNetworkFailure(err))
		})
	}
}

func TestFetchNetworkFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	c, err := attendee.NewClient("http://"+addr, eventID)
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), attendee.Query{Page: 1})
	require.Error(t, err)
	assert.True(t, attendee.IsNetworkFailure(err), "got %v", err)
	assert.False(t, attendee.IsInvalidResponse(err))
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := attendee.NewClient(srv.URL, eventID, attendee.WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Fetch(context.Background(), attendee.Query{Page: 1})
	require.Error(t, err)
	assert.True(t, attendee.IsNetworkFailure(err), "got %v", err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNewClientValidation(t *testing.T) {
	_, err := attendee.NewClient("localhost:3333", eventID)
	assert.Error(t, err, "base URL needs a scheme")

	_, err = attendee.NewClient("http://localhost:3333", " ")
	assert.Error(t, err, "event id is required")

	c, err := attendee.NewClient("http://localhost:3333/api/", eventID)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3333/api/events/"+eventID+"/attendees", c.Endpoint())
}

func TestFetcherFunc(t *testing.T) {
	var f attendee.Fetcher = attendee.FetcherFunc(func(ctx context.Context, q attendee.Query) (attendee.Page, error) {
		return attendee.Page{Total: q.Page}, nil
	})
	page, err := f.Fetch(context.Background(), attendee.Query{Page: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
}
