package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kitbuilder587/brave-search/internal/config"
	"github.com/kitbuilder587/brave-search/internal/metrics"
	"github.com/kitbuilder587/brave-search/internal/pacer"
	"github.com/kitbuilder587/brave-search/internal/repository"
	"github.com/kitbuilder587/brave-search/internal/repository/postgres"
	"github.com/kitbuilder587/brave-search/internal/search"
	"github.com/kitbuilder587/brave-search/internal/search/brave"
	"github.com/kitbuilder587/brave-search/internal/service"
)

type options struct {
	endpoint string
	count    int
	offset   int
	raw      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "bravesearch [query]",
		Short: "Paced search over Brave web, news, image and video endpoints",
		Long: `bravesearch sends queries to the Brave Search API. All endpoints share
one pacer, so requests start at least PACER_MIN_INTERVAL_MS apart.

Examples:
  bravesearch "weekend in porto"
  bravesearch -e news "lisbon airport strike"
  bravesearch -e images --raw "azulejo"
  bravesearch -e all -n 5 "douro valley wineries"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run(cmd.Context(), cmd.OutOrStdout(), opts, strings.Join(args, " "))
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.endpoint, "endpoint", "e", "web", "Endpoint: web, news, images, videos or all")
	cmd.Flags().IntVarP(&opts.count, "count", "n", search.DefaultCount, "Number of results per page")
	cmd.Flags().IntVarP(&opts.offset, "offset", "o", 0, "Pagination offset")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Print the undecoded response body")

	return cmd
}

func run(ctx context.Context, out io.Writer, opts *options, query string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: m.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	var history repository.HistoryRepository
	if cfg.Database.URL != "" {
		db, err := postgres.New(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		history = postgres.NewHistoryRepo(db)
	}

	p := pacer.New(pacer.Config{
		MinInterval: cfg.Pacer.MinInterval,
		OnWait:      m.RecordPacerWait,
	})

	brCfg := brave.Config{APIKey: cfg.Brave.APIKey, Timeout: cfg.Brave.Timeout}
	var clients []search.Client
	for _, c := range brave.NewClients(cfg.EnabledEndpoints(), p, brCfg, logger) {
		clients = append(clients, c.WithMetrics(m))
	}

	svc, err := service.NewSearchService(service.SearchServiceDeps{
		Clients: clients,
		History: history,
		Logger:  logger,
		Metrics: m,
	})
	if err != nil {
		return err
	}

	req := search.Request{Query: query, Count: opts.count, Offset: opts.offset}

	if opts.endpoint == "all" {
		if opts.raw {
			return errors.New("--raw needs a single endpoint")
		}
		all, err := svc.SearchAll(ctx, req)
		if err != nil {
			return err
		}
		for _, res := range all {
			printResults(out, res)
		}
		return nil
	}

	kind, err := search.ParseKind(opts.endpoint)
	if err != nil {
		return fmt.Errorf("%w: %q", err, opts.endpoint)
	}

	if opts.raw {
		body, err := svc.SearchRaw(ctx, kind, req)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, body)
		return nil
	}

	res, err := svc.Search(ctx, kind, req)
	if err != nil {
		return err
	}
	printResults(out, res)
	return nil
}

func printResults(out io.Writer, res *search.Results) {
	fmt.Fprintf(out, "## %s: %q (%d results, %s, id %s)\n\n",
		res.Endpoint, res.OriginalQuery, res.Len(),
		res.Timestamp.Format(time.RFC3339), res.CorrelationID)

	for i, r := range res.Results {
		fmt.Fprintf(out, "[%d] %s\n    %s\n", i+1, r.Title, r.URL)
		if r.HasDescription() {
			fmt.Fprintf(out, "    %s\n", *r.Description)
		}
	}
	fmt.Fprintln(out)
}
