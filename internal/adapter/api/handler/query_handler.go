package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/V4T54L/rootscope/internal/adapter/metrics"
	"github.com/V4T54L/rootscope/internal/domain"
	"github.com/V4T54L/rootscope/internal/usecase"
)

// Aggregator is the read side the query handler depends on.
type Aggregator interface {
	Options() usecase.FilterOptions
	Months() []string
	Aggregate(q domain.Query) (*domain.AggregateResult, error)
}

// QueryHandler serves filter options and aggregations.
type QueryHandler struct {
	uc      Aggregator
	logger  *slog.Logger
	metrics *metrics.QueryMetrics
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(uc Aggregator, logger *slog.Logger, m *metrics.QueryMetrics) *QueryHandler {
	return &QueryHandler{uc: uc, logger: logger, metrics: m}
}

// GetOptions returns the selectable sources, countries and cutoff marks.
// GET /api/options
func (h *QueryHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, h.logger, http.StatusOK, h.uc.Options())
}

// GetMonths returns every month of the cutoff index.
// GET /api/months
func (h *QueryHandler) GetMonths(w http.ResponseWriter, r *http.Request) {
	months := h.uc.Months()
	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"months":         months,
		"default_cutoff": len(months) - 1,
	})
}

// GetAggregate runs one aggregation.
// GET /api/aggregate?source=..&country=..&exclude=..&cutoff=N&sort=desc&limit=N&view=flat
func (h *QueryHandler) GetAggregate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		h.metrics.QueryDuration.WithLabelValues("aggregate").Observe(time.Since(start).Seconds())
	}()

	q, err := h.parseQuery(r.URL.Query())
	if err != nil {
		h.metrics.QueriesTotal.WithLabelValues("aggregate", "invalid").Inc()
		respondWithError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.uc.Aggregate(q)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuery) {
			h.metrics.QueriesTotal.WithLabelValues("aggregate", "invalid").Inc()
			respondWithError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		h.metrics.QueriesTotal.WithLabelValues("aggregate", "error").Inc()
		h.logger.Error("failed to aggregate", "error", err)
		respondWithError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}

	status := "ok"
	if result.Empty {
		status = "empty"
	}
	h.metrics.QueriesTotal.WithLabelValues("aggregate", status).Inc()
	respondWithJSON(w, h.logger, http.StatusOK, result)
}

func (h *QueryHandler) parseQuery(values url.Values) (domain.Query, error) {
	q := domain.Query{
		Sources:      listParam(values, "source"),
		CountryAllow: listParam(values, "country"),
		CountryDeny:  listParam(values, "exclude"),
		Sort:         domain.SortOrder(values.Get("sort")),
		View:         domain.ViewMode(values.Get("view")),
	}

	if len(q.Sources) == 0 {
		for _, s := range h.uc.Options().Sources {
			q.Sources = append(q.Sources, s.Tag)
		}
	}

	if raw := values.Get("cutoff"); raw != "" {
		cutoff, err := strconv.Atoi(raw)
		if err != nil {
			return q, errors.New("invalid cutoff parameter")
		}
		q.CutoffIndex = cutoff
	} else {
		q.CutoffIndex = h.uc.Options().DefaultCutoff
	}

	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return q, errors.New("invalid limit parameter")
		}
		q.Limit = limit
	}
	return q, nil
}

// listParam accepts both repeated keys and comma-separated values.
func listParam(values url.Values, key string) []string {
	var out []string
	for _, v := range values[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
