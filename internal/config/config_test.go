package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passin-dev/attendees/internal/errors"
	"github.com/passin-dev/attendees/pkg/querystate"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "attendees.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNew(t *testing.T) {
	cfg := New()

	assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, DefaultEventID, cfg.API.EventID)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, "replace", cfg.URL.Mode)
	assert.Equal(t, "search", cfg.URL.SearchKey)
	assert.Equal(t, "page", cfg.URL.PageKey)
	assert.Equal(t, ":8080", cfg.Serve.Addr)
	assert.Equal(t, ":9090", cfg.Serve.MetricsAddr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "pt-BR", cfg.Locale)
	assert.Empty(t, cfg.Telemetry.Endpoint)
	assert.Equal(t, "attendees", cfg.Metrics.Namespace)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, New().API, cfg.API)
	assert.Empty(t, cfg.Path())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
api:
  baseURL: https://api.passin.dev
  timeout: 3s
url:
  mode: push
log:
  level: debug
locale: en-US
metrics:
  subsystem: edge
  labels:
    event: summit
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, "https://api.passin.dev", cfg.API.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, DefaultEventID, cfg.API.EventID, "unset fields keep defaults")
	assert.Equal(t, querystate.ModePush, cfg.Mode())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	assert.Equal(t, "en-US", cfg.Language().String())
	assert.Equal(t, DefaultAddr, cfg.Serve.Addr)
	assert.Equal(t, "edge", cfg.Metrics.Subsystem)
	assert.Equal(t, map[string]string{"event": "summit"}, cfg.Metrics.Labels)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
api:
  baseURL: https://file.example
serve:
  addr: ":7000"
`)
	t.Setenv("ATTENDEES_API_BASE_URL", "https://env.example")
	t.Setenv("ATTENDEES_API_TIMEOUT", "250ms")
	t.Setenv("ATTENDEES_URL_SEARCH_KEY", "q")
	t.Setenv("ATTENDEES_LOG_LEVEL", "warn")
	t.Setenv("ATTENDEES_TELEMETRY_ENDPOINT", "http://localhost:4318")
	t.Setenv("ATTENDEES_METRICS_LABELS", "event:summit,region:sa")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example", cfg.API.BaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.API.Timeout)
	assert.Equal(t, "q", cfg.URL.SearchKey)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "http://localhost:4318", cfg.Telemetry.Endpoint)
	assert.Equal(t, ":7000", cfg.Serve.Addr, "file value survives when no variable is set")
	assert.Equal(t, map[string]string{"event": "summit", "region": "sa"}, cfg.Metrics.Labels)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.CodeConfigNotFound))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "api: [unterminated"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.CodeConfigParse))
	})

	t.Run("malformed env", func(t *testing.T) {
		t.Setenv("ATTENDEES_API_TIMEOUT", "soon")
		_, err := Load("")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.CodeConfigParse))
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api" }},
		{"ftp base url", func(c *Config) { c.API.BaseURL = "ftp://host" }},
		{"event id not a uuid", func(c *Config) { c.API.EventID = "event-1" }},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }},
		{"unknown mode", func(c *Config) { c.URL.Mode = "teleport" }},
		{"empty search key", func(c *Config) { c.URL.SearchKey = "" }},
		{"same keys", func(c *Config) { c.URL.PageKey = c.URL.SearchKey }},
		{"unknown level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad locale", func(c *Config) { c.Locale = "not a locale!" }},
		{"bare telemetry host", func(c *Config) { c.Telemetry.Endpoint = "collector:4318" }},
		{"dashed metrics namespace", func(c *Config) { c.Metrics.Namespace = "pass-in" }},
		{"metrics subsystem with digit first", func(c *Config) { c.Metrics.Subsystem = "9edge" }},
		{"reserved metrics label", func(c *Config) { c.Metrics.Labels = map[string]string{"__name__": "x"} }},
		{"dotted metrics label", func(c *Config) { c.Metrics.Labels = map[string]string{"event.id": "x"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.CodeOf(err))
		})
	}
}

func TestHelpersFallBack(t *testing.T) {
	cfg := New()
	cfg.URL.Mode = "teleport"
	cfg.Log.Level = "loud"
	cfg.Locale = "not a locale!"

	assert.Equal(t, querystate.ModeReplace, cfg.Mode())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
	assert.Equal(t, "pt-BR", cfg.Language().String())
}
