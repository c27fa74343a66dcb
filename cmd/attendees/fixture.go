package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/passin-dev/attendees/internal/fixture"
)

func fixtureCmd(opts *rootOptions) *cobra.Command {
	var (
		addr    string
		seed    int
		dbPath  string
		latency time.Duration
	)

	cmd := &cobra.Command{
		Use:   "fixture",
		Short: "Run a local attendee API backed by SQLite",
		Long: `Run a local attendee API backed by SQLite.

Serves GET /events/{eventId}/attendees with the same contract as the real
API, seeded with generated attendees for the configured event. Use
--latency to make out-of-order responses easy to reproduce.

Examples:
  attendees fixture
  attendees fixture --seed 250 --latency 800ms
  attendees fixture --db ./attendees.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if seed < 0 {
				return usageError("--seed must not be negative, got %d", seed)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runFixture(ctx, cmd, opts, addr, seed, dbPath, latency)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":3333", "Listen address")
	cmd.Flags().IntVar(&seed, "seed", 120, "Number of attendees to generate (0 keeps the database as is)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database file (default in-memory)")
	cmd.Flags().DurationVar(&latency, "latency", 0, "Artificial delay per response")

	return cmd
}

func runFixture(ctx context.Context, cmd *cobra.Command, opts *rootOptions, addr string, seed int, dbPath string, latency time.Duration) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store, err := fixture.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if seed > 0 {
		if err := store.Seed(ctx, cfg.API.EventID, seed, time.Now()); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Handler:           fixture.Handler(store, fixture.WithLatency(latency), fixture.WithLogger(logger)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	ln, shown, err := listen(addr)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	success(out, "Seeded %d attendees for event %s", seed, cfg.API.EventID)
	info(out, "API: http://%s/events/%s/attendees", shown, cfg.API.EventID)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
