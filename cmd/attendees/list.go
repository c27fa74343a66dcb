package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/passin-dev/attendees/internal/errors"
	"github.com/passin-dev/attendees/internal/textview"
	"github.com/passin-dev/attendees/pkg/attendee"
	"github.com/passin-dev/attendees/pkg/listing"
	"github.com/passin-dev/attendees/pkg/querystate"
)

func listCmd(opts *rootOptions) *cobra.Command {
	var (
		rawURL string
		search string
		page   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of attendees",
		Long: `Print one page of attendees.

The search term and page are read from --url, the way a shared link is
opened. --search and --page override them; changing the search without
--page starts again at page 1. The resulting URL is printed last, so it
can be passed back with --url.

Examples:
  attendees list
  attendees list --search ana
  attendees list --url "/attendees?search=ana&page=2" --page 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			flags := cmd.Flags()
			if flags.Changed("page") && page < 1 {
				return usageError("--page must be at least 1, got %d", page)
			}
			return runList(ctx, cmd, opts, rawURL, listOverrides{
				search:    search,
				searchSet: flags.Changed("search"),
				page:      page,
				pageSet:   flags.Changed("page"),
			})
		},
	}

	cmd.Flags().StringVarP(&rawURL, "url", "u", "/attendees", "Listing URL whose query holds the search and page")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Search term (resets the page unless --page is given)")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "1-based page number")

	return cmd
}

type listOverrides struct {
	search    string
	searchSet bool
	page      int
	pageSet   bool
}

func runList(ctx context.Context, cmd *cobra.Command, opts *rootOptions, rawURL string, o listOverrides) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	client, err := attendee.NewClient(cfg.API.BaseURL, cfg.API.EventID,
		attendee.WithTimeout(cfg.API.Timeout),
		attendee.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	history, err := querystate.NewHistory(rawURL)
	if err != nil {
		return usageError("invalid --url: %v", err)
	}
	store := querystate.New(history,
		querystate.WithMode(cfg.Mode()),
		querystate.WithKeys(cfg.URL.SearchKey, cfg.URL.PageKey),
	)

	// Flags act like the user typing before the first fetch.
	switch {
	case o.searchSet && o.pageSet:
		store.SetSearchAndPage(o.search, o.page)
	case o.searchSet && o.search != store.Search():
		store.SetSearchAndPage(o.search, 1)
	case o.pageSet:
		store.SetPage(o.page)
	}

	ctrl := listing.New(store, client,
		listing.WithLogger(logger),
		listing.WithFetchTimeout(cfg.API.Timeout),
	)
	ctrl.Start(ctx)
	view, err := ctrl.Await(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := textview.New(cfg.Language()).Render(out, view); err != nil {
		return err
	}
	fmt.Fprintln(out, store.URL().String())

	if view.State == listing.Failed {
		return errors.New(view.ErrCode).WithDetail(view.Err)
	}
	return nil
}
