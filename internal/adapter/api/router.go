package api

import (
	"log/slog"
	"net/http"

	"github.com/V4T54L/rootscope/internal/adapter/api/handler"
	"github.com/V4T54L/rootscope/internal/adapter/api/middleware"
	"github.com/V4T54L/rootscope/internal/adapter/metrics"
	"github.com/V4T54L/rootscope/internal/pkg/config"
)

// NewRouter creates and configures the main HTTP router for the query service.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	m *metrics.QueryMetrics,
	aggregator handler.Aggregator,
	comparer handler.Comparer,
	limiter *middleware.RateLimiter,
) http.Handler {
	mux := http.NewServeMux()

	queryHandler := handler.NewQueryHandler(aggregator, logger, m)
	compareHandler := handler.NewCompareHandler(comparer, logger, m, cfg.MaxUploadSize)

	// Aggregation
	mux.HandleFunc("GET /api/options", queryHandler.GetOptions)
	mux.HandleFunc("GET /api/months", queryHandler.GetMonths)
	mux.HandleFunc("GET /api/aggregate", queryHandler.GetAggregate)

	// Uploads and comparison
	mux.Handle("POST /api/uploads", limiter.Limit(http.HandlerFunc(compareHandler.Upload)))
	mux.HandleFunc("POST /api/uploads/{token}/compare", compareHandler.CompareUpload)
	mux.HandleFunc("DELETE /api/uploads/{token}", compareHandler.DeleteUpload)
	mux.Handle("POST /api/compare", limiter.Limit(http.HandlerFunc(compareHandler.CompareOnce)))

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return middleware.Logging(logger)(mux)
}
