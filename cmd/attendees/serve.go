package main

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/passin-dev/attendees/internal/telemetry"
	"github.com/passin-dev/attendees/pkg/attendee"
	"github.com/passin-dev/attendees/pkg/liveview"
	"github.com/passin-dev/attendees/pkg/metrics"
)

const shutdownTimeout = 5 * time.Second

func serveCmd(opts *rootOptions) *cobra.Command {
	var (
		addr        string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve live attendee listings",
		Long: `Serve live attendee listings.

Routes:
  GET /attendees        JSON snapshot for ?search=&page=
  GET /attendees/live   WebSocket session with URL sync

Prometheus metrics are served on a separate address at /metrics.
Traces are exported when telemetry.endpoint is configured.

Examples:
  attendees serve
  attendees serve --addr :8000 --metrics-addr :9100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, opts, addr, metricsAddr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Metrics listen address (default from config)")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, opts *rootOptions, addr, metricsAddr string) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Serve.Addr = addr
	}
	if metricsAddr != "" {
		cfg.Serve.MetricsAddr = metricsAddr
	}
	if cfg.Serve.Addr == cfg.Serve.MetricsAddr && !ephemeral(cfg.Serve.Addr) {
		return usageError("listen and metrics addresses must differ, both are %s", cfg.Serve.Addr)
	}
	logger := newLogger(cfg)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.Endpoint, "attendees", version)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("trace flush failed", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(
		metrics.WithRegistry(registry),
		metrics.WithNamespace(cfg.Metrics.Namespace),
		metrics.WithSubsystem(cfg.Metrics.Subsystem),
		metrics.WithConstLabels(prometheus.Labels(cfg.Metrics.Labels)),
	)

	client, err := attendee.NewClient(cfg.API.BaseURL, cfg.API.EventID,
		attendee.WithTimeout(cfg.API.Timeout),
		attendee.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	live := liveview.New(client,
		liveview.WithLogger(logger),
		liveview.WithRecorder(m),
		liveview.WithMode(cfg.Mode()),
		liveview.WithKeys(cfg.URL.SearchKey, cfg.URL.PageKey),
		liveview.WithFetchTimeout(cfg.API.Timeout),
	)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	servers := []*http.Server{
		{Handler: live, ReadHeaderTimeout: 5 * time.Second},
		{Handler: metricsMux, ReadHeaderTimeout: 5 * time.Second},
	}
	liveLn, liveAddr, err := listen(cfg.Serve.Addr)
	if err != nil {
		return err
	}
	metricsLn, metricsShown, err := listen(cfg.Serve.MetricsAddr)
	if err != nil {
		liveLn.Close()
		return err
	}
	listeners := []net.Listener{liveLn, metricsLn}

	out := cmd.OutOrStdout()
	printBanner(out)
	success(out, "Listing %s", client.Endpoint())
	info(out, "Live:    http://%s/attendees", liveAddr)
	info(out, "Metrics: http://%s/metrics", metricsShown)
	if cfg.Telemetry.Endpoint == "" {
		warn(out, "Tracing disabled (telemetry.endpoint not set)")
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, srv := range servers {
		ln := listeners[i]
		g.Go(func() error {
			logger.Info("listening", "addr", ln.Addr().String())
			if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}
		return stderrors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}

// listen binds addr and returns the address to print: the bound port,
// with "localhost" when addr names no host.
func listen(addr string) (net.Listener, string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", err
	}
	host, _, _ := net.SplitHostPort(addr)
	if host == "" {
		host = "localhost"
	}
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	return ln, net.JoinHostPort(host, port), nil
}

// ephemeral reports whether addr asks the kernel to pick the port.
func ephemeral(addr string) bool {
	_, port, err := net.SplitHostPort(addr)
	return err == nil && port == "0"
}
