package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/pj-tributario-go/internal/config"
	"github.com/boddenberg/pj-tributario-go/internal/domain"
	"github.com/boddenberg/pj-tributario-go/internal/handler"
	"github.com/boddenberg/pj-tributario-go/internal/infra/cache"
	"github.com/boddenberg/pj-tributario-go/internal/infra/observability"
	"github.com/boddenberg/pj-tributario-go/internal/infra/resilience"
	"github.com/boddenberg/pj-tributario-go/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			serve(cfg)
		},
	}
	cmd.Flags().IntVar(&cfg.Port, "port", cfg.Port, "listen port (env PORT)")
	return cmd
}

func serve(cfg *config.Config) {
	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("tables_file", cfg.TablesFile),
		zap.String("tables_url", cfg.TablesURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Bool("jwt_enabled", cfg.JWTSecret != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Rate tables ---
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 2*cfg.HTTPTimeout)
	tables, err := openTables(loadCtx, cfg, metrics, logger)
	cancelLoad()
	if err != nil {
		logger.Fatal("rate tables unavailable", zap.Error(err))
	}

	// --- Cache ---
	resultCache := cache.New[*domain.ComputationResult](cfg.CacheTTL, cache.WithMaxEntries(10_000))
	defer resultCache.Close()

	// --- Services ---
	compareSvc := service.NewCompareService(
		tables,
		resultCache,
		resilience.NewBulkhead(cfg.MaxConcurrency),
		metrics,
		logger,
	)

	// --- Router ---
	router := handler.NewRouter(compareSvc, metrics, logger, handler.Options{
		JWTSecret:          cfg.JWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
