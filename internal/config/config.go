package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/prometheus/common/model"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/passin-dev/attendees/internal/errors"
	"github.com/passin-dev/attendees/pkg/querystate"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "ATTENDEES_"

	// EnvConfigPath names the config file when no --config flag is given.
	EnvConfigPath = "ATTENDEES_CONFIG"

	// DefaultBaseURL is the default attendee API base URL.
	DefaultBaseURL = "http://localhost:3333"

	// DefaultEventID is the event listed when none is configured.
	DefaultEventID = "9e9bd979-9d10-4915-b339-3786b1634f33"

	// DefaultTimeout bounds a single attendee request.
	DefaultTimeout = 10 * time.Second

	// DefaultAddr is the default listen address of the serve command.
	DefaultAddr = ":8080"

	// DefaultMetricsAddr is the default listen address of the metrics server.
	DefaultMetricsAddr = ":9090"

	// DefaultLocale is the locale used for rendered text.
	DefaultLocale = "pt-BR"

	// DefaultMetricsNamespace prefixes exported metric names.
	DefaultMetricsNamespace = "attendees"
)

// Config is the complete configuration.
type Config struct {
	// API locates the remote attendee listing.
	API APIConfig `yaml:"api" envPrefix:"API_"`

	// URL controls how listing state is written to the URL.
	URL URLConfig `yaml:"url" envPrefix:"URL_"`

	// Serve contains the listen addresses of the serve command.
	Serve ServeConfig `yaml:"serve" envPrefix:"SERVE_"`

	// Log contains logging configuration.
	Log LogConfig `yaml:"log" envPrefix:"LOG_"`

	// Locale is a BCP 47 tag for rendered text.
	Locale string `yaml:"locale" env:"LOCALE"`

	// Telemetry configures trace export.
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`

	// Metrics names the Prometheus series exported by serve.
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`

	// path stores where the config was loaded from.
	path string
}

// APIConfig locates the remote attendee listing.
type APIConfig struct {
	// BaseURL is the API root, e.g. http://localhost:3333.
	BaseURL string `yaml:"baseURL" env:"BASE_URL"`

	// EventID is the UUID of the event whose attendees are listed.
	EventID string `yaml:"eventId" env:"EVENT_ID"`

	// Timeout bounds each request (e.g. "10s").
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// URLConfig controls how listing state is written to the URL.
type URLConfig struct {
	// Mode is "replace" (default) or "push".
	Mode string `yaml:"mode" env:"MODE"`

	// SearchKey is the query parameter holding the search term.
	SearchKey string `yaml:"searchKey" env:"SEARCH_KEY"`

	// PageKey is the query parameter holding the 1-based page.
	PageKey string `yaml:"pageKey" env:"PAGE_KEY"`
}

// ServeConfig contains the listen addresses of the serve command.
type ServeConfig struct {
	Addr        string `yaml:"addr" env:"ADDR"`
	MetricsAddr string `yaml:"metricsAddr" env:"METRICS_ADDR"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
}

// TelemetryConfig configures trace export.
type TelemetryConfig struct {
	// Endpoint is an OTLP/HTTP collector URL, e.g. http://localhost:4318.
	// Empty disables export.
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
}

// MetricsConfig names the Prometheus series exported by serve.
type MetricsConfig struct {
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	Subsystem string `yaml:"subsystem" env:"SUBSYSTEM"`

	// Labels are added to every series, e.g. event: summit-2026.
	// From the environment: ATTENDEES_METRICS_LABELS=event:summit-2026,region:sa
	Labels map[string]string `yaml:"labels" env:"LABELS"`
}

// New returns a Config with defaults applied.
func New() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			EventID: DefaultEventID,
			Timeout: DefaultTimeout,
		},
		URL: URLConfig{
			Mode:      querystate.ModeReplace.String(),
			SearchKey: querystate.DefaultSearchKey,
			PageKey:   querystate.DefaultPageKey,
		},
		Serve: ServeConfig{
			Addr:        DefaultAddr,
			MetricsAddr: DefaultMetricsAddr,
		},
		Log:     LogConfig{Level: "info"},
		Locale:  DefaultLocale,
		Metrics: MetricsConfig{Namespace: DefaultMetricsNamespace},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := New()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return errors.New(errors.CodeConfigNotFound).
				WithDetail("No config file at " + path)
		}
		return errors.New(errors.CodeConfigParse).Wrap(err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.New(errors.CodeConfigParse).
			WithDetail("Failed to parse " + path + ": " + err.Error()).
			WithSuggestion("Check that the file is valid YAML")
	}
	c.path = path
	return nil
}

// loadEnv overlays variables that are set. Unset variables keep the
// current value.
func (c *Config) loadEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return errors.New(errors.CodeConfigParse).
			WithDetail("Failed to read " + EnvPrefix + "* environment: " + err.Error()).
			Wrap(err)
	}
	return nil
}

// Path returns the file the config was loaded from, or "".
func (c *Config) Path() string {
	return c.path
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("api.baseURL must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}
	if _, err := uuid.Parse(c.API.EventID); err != nil {
		return invalid("api.eventId must be a UUID, got %q", c.API.EventID)
	}
	if c.API.Timeout <= 0 {
		return invalid("api.timeout must be positive, got %s", c.API.Timeout)
	}
	if _, err := querystate.ParseMode(c.URL.Mode); err != nil {
		return invalid("url.mode must be replace or push, got %q", c.URL.Mode)
	}
	if c.URL.SearchKey == "" || c.URL.PageKey == "" || c.URL.SearchKey == c.URL.PageKey {
		return invalid("url.searchKey and url.pageKey must be distinct and non-empty")
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return invalid("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if _, err := language.Parse(c.Locale); err != nil {
		return invalid("locale must be a BCP 47 tag, got %q", c.Locale)
	}
	if c.Telemetry.Endpoint != "" {
		if u, err := url.Parse(c.Telemetry.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			return invalid("telemetry.endpoint must be an absolute URL, got %q", c.Telemetry.Endpoint)
		}
	}
	return c.Metrics.validate()
}

func (m MetricsConfig) validate() error {
	// An empty namespace or subsystem is legal and drops the segment.
	for field, v := range map[string]string{"namespace": m.Namespace, "subsystem": m.Subsystem} {
		if v != "" && !model.IsValidLegacyMetricName(model.LabelValue(v)) {
			return invalid("metrics.%s must be a valid metric name segment, got %q", field, v)
		}
	}
	for name := range m.Labels {
		if !model.LabelName(name).IsValid() || strings.HasPrefix(name, "__") {
			return invalid("metrics.labels: %q is not a valid label name", name)
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.New(errors.CodeConfigInvalid).WithDetail(fmt.Sprintf(format, args...))
}

// Mode returns the parsed URL mode, ModeReplace when invalid.
func (c *Config) Mode() querystate.Mode {
	mode, err := querystate.ParseMode(c.URL.Mode)
	if err != nil {
		return querystate.ModeReplace
	}
	return mode
}

// LogLevel returns the parsed log level, info when invalid.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Language returns the parsed locale, falling back to DefaultLocale.
func (c *Config) Language() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.MustParse(DefaultLocale)
	}
	return tag
}
