package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/flix-app/flix-cache/pkg/lifecycle"
	"github.com/flix-app/flix-cache/pkg/logging"
	"github.com/flix-app/flix-cache/pkg/pagination"
	"github.com/flix-app/flix-cache/pkg/strategy"
	"github.com/spf13/cobra"
)

// withApp builds the components for a one-shot command.
func withApp(cmd *cobra.Command, ctx *commandContext, fn func(*app) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, ctx.logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

type installOutput struct {
	Version   string            `json:"version"`
	State     string            `json:"state"`
	Partition string            `json:"partition"`
	Cached    []string          `json:"cached"`
	Failed    map[string]string `json:"failed,omitempty"`
	Duration  string            `json:"duration"`
	Error     string            `json:"error,omitempty"`
}

func newInstallCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Pre-cache the manifest into the static partition",
		Long: "Pre-cache the manifest into the static partition of the configured version.\n" +
			"Results outlive the process only with the redis store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, ctx, func(a *app) error {
				report, err := a.controller.Install(cmd.Context())
				if errors.Is(err, lifecycle.ErrAlreadyInstalled) {
					return err
				}

				out := installOutput{
					Version:   a.cfg.Version,
					State:     a.controller.State().String(),
					Partition: report.Partition,
					Cached:    report.Cached,
					Duration:  report.Duration.Round(time.Millisecond).String(),
				}
				if len(report.Failed) > 0 {
					out.Failed = make(map[string]string, len(report.Failed))
					for _, f := range report.Failed {
						out.Failed[f.Path] = f.Err.Error()
					}
				}
				if err != nil {
					out.Error = err.Error()
				}
				return writeJSON(cmd, out)
			})
		},
	}
}

func newActivateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "activate",
		Short: "Delete every partition that does not belong to the configured version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, ctx, func(a *app) error {
				logger := logging.NewLogger("lifecycle")
				deleted, err := lifecycle.Activate(cmd.Context(), a.store, a.controller.Names(), &logger)
				if err != nil {
					return fmt.Errorf("activate: %w", err)
				}
				if deleted == nil {
					deleted = []string{}
				}
				return writeJSON(cmd, map[string]any{
					"version": a.cfg.Version,
					"deleted": deleted,
				})
			})
		},
	}
}

func newPartitionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "partitions",
		Short: "List the partitions in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, ctx, func(a *app) error {
				names, err := a.store.Names(cmd.Context())
				if err != nil {
					return fmt.Errorf("list partitions: %w", err)
				}
				sort.Strings(names)

				current := a.controller.Names()
				out := cmd.OutOrStdout()
				for _, name := range names {
					marker := " "
					if current.Contains(name) {
						marker = "*"
					}
					fmt.Fprintf(out, "%s %s\n", marker, name)
				}
				return nil
			})
		},
	}
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Forward pending watchlist mutations to the sync endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, ctx, func(a *app) error {
				report, err := a.syncer.Drain(cmd.Context())
				if werr := writeJSON(cmd, report); werr != nil {
					return werr
				}
				return err
			})
		},
	}
}

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var showBody bool

	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Resolve a GET request through the request strategies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, ctx, func(a *app) error {
				req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, args[0], nil)
				if err != nil {
					return fmt.Errorf("build request: %w", err)
				}

				resp := a.router.Route(cmd.Context(), req)
				defer resp.Body.Close()

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%d %s class=%s source=%s\n",
					resp.StatusCode,
					http.StatusText(resp.StatusCode),
					a.router.Classify(req),
					resp.Header.Get(strategy.HeaderSource),
				)
				if showBody {
					if _, err := io.Copy(out, resp.Body); err != nil {
						return fmt.Errorf("read body: %w", err)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showBody, "body", false, "Print the response body")
	return cmd
}

type prefetchOutput struct {
	Endpoint   string         `json:"endpoint"`
	TotalPages int            `json:"total_pages"`
	Requested  int            `json:"requested"`
	Fetched    int            `json:"fetched"`
	Items      int            `json:"items"`
	Failed     map[int]string `json:"failed,omitempty"`
}

func newPrefetchCommand(ctx *commandContext) *cobra.Command {
	var (
		maxPages    int
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "prefetch ENDPOINT",
		Short: "Fetch every page of a listing so it is available offline",
		Long: "Fetch every page of a metadata API listing (e.g. /movie/popular) through the\n" +
			"API strategy, storing each page in the dynamic partition.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, ctx, func(a *app) error {
				api, err := a.requireAPI()
				if err != nil {
					return err
				}

				logger := logging.NewLogger("pagination")
				cfg := pagination.DefaultConfig()
				cfg.MaxPages = maxPages
				cfg.MaxConcurrency = concurrency
				cfg.Logger = &logger

				result, err := pagination.NewBatchFetcher(api, cfg).FetchAllPages(cmd.Context(), args[0])
				if result == nil {
					return fmt.Errorf("prefetch %s: %w", args[0], err)
				}

				out := prefetchOutput{
					Endpoint:   args[0],
					TotalPages: result.TotalPages,
					Requested:  result.Requested,
					Fetched:    len(result.Pages),
					Items:      len(result.Items()),
				}
				if len(result.Failed) > 0 {
					out.Failed = make(map[int]string, len(result.Failed))
					for page, ferr := range result.Failed {
						out.Failed[page] = ferr.Error()
					}
				}
				if werr := writeJSON(cmd, out); werr != nil {
					return werr
				}
				return err
			})
		},
	}

	cmd.Flags().IntVar(&maxPages, "max-pages", 10, "Highest page to fetch")
	cmd.Flags().IntVar(&concurrency, "concurrency", 5, "Parallel page requests")
	return cmd
}
