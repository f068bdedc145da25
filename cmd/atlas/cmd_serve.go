package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/miradorstack/atlas/internal/api"
	"github.com/miradorstack/atlas/internal/engine"
	"github.com/miradorstack/atlas/internal/metrics"
	"github.com/miradorstack/atlas/internal/schema"
	"github.com/miradorstack/atlas/internal/services"
	"github.com/miradorstack/atlas/internal/store"
	"github.com/miradorstack/atlas/internal/utils"
)

func newServeCmd(a *app) *cobra.Command {
	var thresholdsPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Evaluator gRPC API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if thresholdsPath == "" {
				thresholdsPath = a.cfg.Pipeline.Thresholds
			}
			return a.serve(cmd, thresholdsPath)
		},
	}
	cmd.Flags().StringVar(&thresholdsPath, "thresholds", "", "Thresholds file (JSON or YAML)")
	return cmd
}

func (a *app) serve(cmd *cobra.Command, thresholdsPath string) error {
	cfg := a.cfg
	logger := a.logger
	logger.Info("starting atlas", slog.String("address", cfg.Server.Address))

	if thresholdsPath == "" {
		return a.fail("thresholds required", utils.MissingInput("load thresholds", "thresholds file", nil))
	}
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return a.fail("failed to register metrics", err)
	}

	evaluator, run, err := a.evaluator(cmd, thresholdsPath, cfg.Pipeline.Profile, cfg.Pipeline.Seed)
	if err != nil {
		return a.fail("failed to load thresholds", err)
	}
	validator, err := schema.New()
	if err != nil {
		return a.fail("failed to compile schemas", err)
	}

	var sink engine.Sink
	if cfg.Store.SQLitePath != "" {
		sqliteSink, err := store.OpenSQLite(cmd.Context(), cfg.Store.SQLitePath, run.RunID)
		if err != nil {
			return a.fail("failed to open sqlite store", err)
		}
		defer sqliteSink.Close()
		sink = sqliteSink
	}

	pipeline := engine.NewPipeline(logger, evaluator, validator, engine.Options{Workers: cfg.Pipeline.Workers})
	service := services.NewEvaluationService(logger, pipeline, sink)

	server, err := api.NewServer(cfg.Server, service)
	if err != nil {
		return a.fail("failed to create gRPC server", err)
	}

	ctx, stop := context.WithCancel(cmd.Context())
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	latency := pipeline.Latency()
	logger.Info("atlas stopped", slog.Int("evaluations", latency.Count), slog.Duration("p95", latency.P95))
	return nil
}
