package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/passin-dev/attendees/internal/config"
	"github.com/passin-dev/attendees/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┌┬┐┌┬┐┌─┐┌┐┌┌┬┐┌─┐┌─┐┌─┐
  ├─┤ │  │ ├┤ │││ ││├┤ ├┤ └─┐
  ┴ ┴ ┴  ┴ └─┘┘└┘─┴┘└─┘└─┘└─┘
`

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
	noColor    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "attendees",
		Short: "Browse an event's attendee list",
		Long: `attendees lists the people registered for an event.

The listing state (search term and page) lives in the URL query string,
so any listing can be shared or resumed from its URL. Features include:

  • One-shot listing from a URL or flags
  • Live listing server over WebSocket with URL sync
  • Prometheus metrics and OpenTelemetry tracing
  • SQLite-backed fixture API for local development`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				errors.DisableColors()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv(config.EnvConfigPath),
		"YAML config file (env "+config.EnvConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level override: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored error output")

	rootCmd.AddCommand(
		listCmd(opts),
		serveCmd(opts),
		fixtureCmd(opts),
		versionCmd(),
	)
	return rootCmd
}

// loadConfig loads and validates the configuration, applying the
// --log-level override.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger returns a text logger on stderr at the configured level.
func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))
}

// usageError reports a bad flag combination.
func usageError(format string, args ...any) error {
	return errors.New(errors.CodeCLIUsage).WithDetail(fmt.Sprintf(format, args...))
}

// printBanner prints the ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
