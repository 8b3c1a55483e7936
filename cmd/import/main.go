// Command import copies the JSON source and first-seen documents from DATA_DIR into
// PostgreSQL so the server can run with DATASET_BACKEND=postgres.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/V4T54L/rootscope/internal/adapter/repository/file"
	"github.com/V4T54L/rootscope/internal/adapter/repository/postgres"
	"github.com/V4T54L/rootscope/internal/dataset"
	"github.com/V4T54L/rootscope/internal/pkg/config"
	"github.com/V4T54L/rootscope/internal/pkg/logger"

	_ "github.com/lib/pq" // Keep for postgres driver
)

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall import timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.PostgresURL == "" {
		logger.Error("POSTGRES_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	src := file.NewDatasetRepository(cfg.DataDir, cfg.FirstSeenFile, logger)
	docs, err := src.LoadSources(ctx)
	if err != nil {
		logger.Error("failed to read source documents", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	firstSeen, err := src.LoadFirstSeen(ctx)
	if err != nil {
		logger.Error("failed to read first-seen document", "error", err)
		os.Exit(1)
	}

	// Reject malformed data before touching the database.
	if _, err := dataset.LoadRecords(docs); err != nil {
		logger.Error("invalid source documents", "error", err)
		os.Exit(1)
	}
	if _, err := dataset.LoadRegistry(firstSeen); err != nil {
		logger.Error("invalid first-seen document", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := postgres.NewDatasetRepository(db, logger)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("failed to prepare schema", "error", err)
		os.Exit(1)
	}
	if err := repo.ImportSources(ctx, docs); err != nil {
		logger.Error("failed to import sources", "error", err)
		os.Exit(1)
	}
	if err := repo.ImportFirstSeen(ctx, firstSeen); err != nil {
		logger.Error("failed to import first-seen dates", "error", err)
		os.Exit(1)
	}

	sites := 0
	for _, doc := range docs {
		sites += len(doc.Sites)
	}
	logger.Info("import complete", "sources", len(docs), "sites", sites, "first_seen", len(firstSeen))
}
