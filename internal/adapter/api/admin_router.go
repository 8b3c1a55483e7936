package api

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/V4T54L/rootscope/internal/adapter/api/handler"
	"github.com/V4T54L/rootscope/internal/adapter/api/middleware"
)

// NewAdminRouter creates and configures the HTTP router for admin operations.
func NewAdminRouter(adminHandler *handler.AdminHandler, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /health", adminHandler.HealthCheck)
	mux.HandleFunc("GET /admin/dataset", adminHandler.GetDataset)

	return middleware.Logging(logger)(mux)
}
