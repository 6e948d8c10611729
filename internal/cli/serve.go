package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/chazu/dfm/pkg/metrics"
	"github.com/chazu/dfm/pkg/scoring"
	"github.com/chazu/dfm/pkg/server"
)

// NewServeCmd creates the 'serve' command for running the HTTP API.
func NewServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis and scoring HTTP API",
		Long: `Serve the HTTP API:

  POST /v1/score          score a part description
  POST /v1/analyze        analyze a part script or base64 STL
  POST /v1/analyze/score  analyze (or take a record) and score
  GET  /healthz           liveness
  GET  /metrics           Prometheus metrics

Shuts down gracefully on SIGINT or SIGTERM.`,
		Example: `  dfm serve
  dfm serve --addr 127.0.0.1:9090 --config dfm.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg.Log)

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			srv, err := server.New(server.Config{
				Analyzer:       newAnalyzer(cfg, logger),
				Scorer:         scoring.New(cfg.Scoring),
				Logger:         logger,
				Metrics:        metrics.New(reg),
				Gatherer:       reg,
				CacheSize:      cfg.Server.CacheSize,
				MaxBodyBytes:   cfg.Server.MaxBodyBytes,
				RequestTimeout: cfg.Server.RequestTimeout,
				Version:        opts.version,
			})
			if err != nil {
				return fmt.Errorf("failed to build server: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
				return err
			}
			logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from config)")
	return cmd
}
