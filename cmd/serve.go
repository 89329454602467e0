package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ridoystarlord/redatlas/boundary"
	"github.com/ridoystarlord/redatlas/metrics"
	"github.com/ridoystarlord/redatlas/query"
	"github.com/ridoystarlord/redatlas/runner"
	"github.com/ridoystarlord/redatlas/table"
	"github.com/ridoystarlord/redatlas/web"
)

var (
	serveAddr     string
	serveNoIngest bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Launch the map and table explorer",
	Long: `Launch the web explorer.

The map view at / plots the regions of the selected loci or diseases over a
world boundary layer. The table view at /tables filters and exports the
configured tab-separated tables. A JSON API is served under /api and
Prometheus metrics under /metrics.

When the store is empty and ingest.on_start is set, the spreadsheets are
loaded before the server starts listening.

Examples:
  redatlas serve                   # Listen on server.addr (default :8080)
  redatlas serve --addr :9000      # Listen elsewhere
  redatlas serve --no-ingest       # Never load on start
`,
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr = serveAddr
		}
		if err := serve(); err != nil {
			fmt.Println("❌ Server error:", err)
			os.Exit(1)
		}
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", ":8080", "Address to listen on")
	serveCmd.Flags().BoolVar(&serveNoIngest, "no-ingest", false, "Do not load an empty store before serving")
}

func serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	if cfg.Ingest.OnStart && !serveNoIngest {
		empty, err := db.IsEmpty(ctx)
		if err != nil {
			return err
		}
		if empty {
			logger.Info("Store is empty, ingesting before serving")
			r := runner.New(db, cfg.Sources, logger, m)
			if _, err := r.Ingest(ctx, runner.Options{Mode: cfg.Ingest.Mode}); err != nil {
				return fmt.Errorf("initial ingestion: %w", err)
			}
		}
	}
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	srv := web.New(web.Deps{
		Config:     cfg,
		DB:         db,
		Engine:     query.NewEngine(db, cfg.Colors, logger, m),
		Catalog:    table.NewCatalog(cfg, logger),
		Boundaries: boundary.NewFetcher(cfg.Boundary, logger, m),
		Metrics:    m,
		Gatherer:   reg,
		Log:        logger,
	})

	fmt.Printf("🚀 Starting REDatlas on http://localhost%s\n", cfg.Server.Addr)
	fmt.Println("Press Ctrl+C to stop the server")
	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}
	logger.Info("Explorer stopped", zap.String("addr", cfg.Server.Addr))
	return nil
}
