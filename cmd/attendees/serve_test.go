package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passin-dev/attendees/internal/config"
	"github.com/passin-dev/attendees/internal/errors"
	"github.com/passin-dev/attendees/pkg/listing"
)

// syncBuffer is written by a running command while the test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// startCommand runs a long-lived command in the background. stop cancels
// it and returns its error.
func startCommand(t *testing.T, args ...string) (out *syncBuffer, stop func() error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	out = &syncBuffer{}
	cmd := newRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	return out, func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(10 * time.Second):
			t.Fatal("command did not stop")
			return nil
		}
	}
}

// printedURL waits for "<label> http://..." in out and returns the URL.
func printedURL(t *testing.T, out *syncBuffer, label string) string {
	t.Helper()
	re := regexp.MustCompile(regexp.QuoteMeta(label) + `\s+(http://\S+)`)
	var found string
	require.Eventually(t, func() bool {
		m := re.FindStringSubmatch(out.String())
		if m == nil {
			return false
		}
		found = m[1]
		return true
	}, 5*time.Second, 10*time.Millisecond, "no %q line in output:\n%s", label, out)
	return found
}

func get(t *testing.T, url string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestFixtureServesSeededAttendees(t *testing.T) {
	out, stop := startCommand(t, "fixture", "--addr", "127.0.0.1:0", "--seed", "25")
	api := printedURL(t, out, "API:")
	assert.Contains(t, out.String(), "Seeded 25 attendees")

	status, body := get(t, api+"?pageIndex=2")
	require.Equal(t, http.StatusOK, status, string(body))
	var page struct {
		Attendees []json.RawMessage `json:"attendees"`
		Total     int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, 25, page.Total)
	assert.Len(t, page.Attendees, 5)

	t.Setenv("ATTENDEES_API_BASE_URL", strings.TrimSuffix(api, "/events/"+config.DefaultEventID+"/attendees"))
	listed, err := execute(t, "list", "--page", "3")
	require.NoError(t, err)
	assert.Contains(t, listed, "5 de 25")

	require.NoError(t, stop())
}

func TestServeSnapshotAndMetrics(t *testing.T) {
	t.Setenv("ATTENDEES_API_BASE_URL", startFixture(t, 25))
	t.Setenv("ATTENDEES_METRICS_SUBSYSTEM", "smoke")
	t.Setenv("ATTENDEES_METRICS_LABELS", "event:demo")

	out, stop := startCommand(t, "serve", "--addr", "127.0.0.1:0", "--metrics-addr", "127.0.0.1:0")
	live := printedURL(t, out, "Live:")
	metricsURL := printedURL(t, out, "Metrics:")
	assert.NotEqual(t, live, metricsURL)

	status, body := get(t, live+"?search=Ana")
	require.Equal(t, http.StatusOK, status, string(body))
	var v listing.View
	require.NoError(t, json.Unmarshal(body, &v))
	assert.Equal(t, listing.Settled, v.State)
	assert.Equal(t, 3, v.Total)

	// The fetch is counted after the snapshot is answered.
	require.Eventually(t, func() bool {
		resp, err := http.Get(metricsURL)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return strings.Contains(string(body), `attendees_smoke_fetches_total{event="demo",outcome="settled"} 1`)
	}, 5*time.Second, 20*time.Millisecond)

	_, body = get(t, metricsURL)
	assert.Contains(t, string(body), "go_goroutines")

	require.NoError(t, stop())
}

func TestServeRejectsSharedAddress(t *testing.T) {
	_, err := execute(t, "serve", "--addr", "127.0.0.1:18080", "--metrics-addr", "127.0.0.1:18080")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeCLIUsage))
}
