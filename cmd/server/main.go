package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/rootscope/internal/adapter/api"
	"github.com/V4T54L/rootscope/internal/adapter/api/handler"
	"github.com/V4T54L/rootscope/internal/adapter/api/middleware"
	"github.com/V4T54L/rootscope/internal/adapter/metrics"
	"github.com/V4T54L/rootscope/internal/adapter/repository/file"
	"github.com/V4T54L/rootscope/internal/adapter/repository/memory"
	"github.com/V4T54L/rootscope/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/rootscope/internal/adapter/repository/redis"
	"github.com/V4T54L/rootscope/internal/dataset"
	"github.com/V4T54L/rootscope/internal/domain"
	"github.com/V4T54L/rootscope/internal/pkg/config"
	"github.com/V4T54L/rootscope/internal/pkg/logger"
	"github.com/V4T54L/rootscope/internal/usecase"

	_ "github.com/lib/pq" // Keep for postgres driver
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	m := metrics.NewQueryMetrics(prometheus.DefaultRegisterer)

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Load the dataset snapshot ---
	var source domain.DatasetSource
	switch cfg.DatasetBackend {
	case config.BackendPostgres:
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		source = postgres.NewDatasetRepository(db, logger)
	default:
		source = file.NewDatasetRepository(cfg.DataDir, cfg.FirstSeenFile, logger)
	}

	snap, err := dataset.Build(ctx, source, dataset.Options{
		Floor:       cfg.MonthFloor(),
		LabelPrefix: cfg.SourceLabelPrefix,
	})
	if err != nil {
		logger.Error("failed to load dataset", "backend", cfg.DatasetBackend, "error", err)
		os.Exit(1)
	}
	stats := snap.Stats()
	logger.Info("dataset loaded",
		"records", stats.Records,
		"sources", stats.Sources,
		"registered", stats.Registered,
		"first_month", stats.FirstMonth,
		"last_month", stats.LastMonth,
	)

	// --- Upload store ---
	var uploads domain.UploadRepository
	var probe handler.StoreProbe
	uploadStore := cfg.UploadStore
	if uploadStore == config.UploadStoreRedis {
		redisOpts, err := redis.ParseURL(cfg.RedisAddr)
		if err != nil {
			logger.Error("failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("could not connect to redis, falling back to in-memory upload store", "error", err)
			uploadStore = config.UploadStoreMemory
		} else {
			redisUploads := redisrepo.NewUploadRepository(redisClient, logger)
			go redisUploads.StartHealthCheck(ctx, 5*time.Second)
			uploads, probe = redisUploads, redisUploads
		}
	}
	if uploadStore == config.UploadStoreMemory {
		memUploads := memory.NewUploadRepository(logger)
		go memUploads.StartJanitor(ctx, time.Minute)
		uploads = memUploads
	}

	// --- Initialize Use Cases ---
	aggregateUseCase := usecase.NewAggregateUseCase(snap, logger)
	compareUseCase := usecase.NewCompareUseCase(snap, uploads, cfg.UploadTTL, logger)

	m.DatasetRecords.Set(float64(stats.Records))
	m.RegisteredIDs.Set(float64(stats.Registered))
	m.ComparisonRows.Set(float64(len(compareUseCase.Rows())))

	// --- Start Admin and Metrics Server ---
	adminHandler := handler.NewAdminHandler(snap, uploadStore, probe, logger)
	adminServer := &http.Server{
		Addr:    cfg.AdminServerAddr,
		Handler: api.NewAdminRouter(adminHandler, prometheus.DefaultGatherer, logger),
	}

	go func() {
		logger.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Initialize Query Server ---
	limiter := middleware.NewRateLimiter(cfg.UploadRateLimit, cfg.UploadRateBurst, logger)
	go limiter.StartCleanup(ctx, time.Minute, 10*time.Minute)

	queryServer := &http.Server{
		Addr:         cfg.HTTPServerAddr,
		Handler:      api.NewRouter(cfg, logger, m, aggregateUseCase, compareUseCase, limiter),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting query server", "addr", queryServer.Addr)
		if err := queryServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("query server failed", "error", err)
			stop() // Trigger shutdown on server error
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	logger.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown failed", "error", err)
	}
	if err := queryServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("query server shutdown failed", "error", err)
	}

	logger.Info("servers shut down gracefully")
}
