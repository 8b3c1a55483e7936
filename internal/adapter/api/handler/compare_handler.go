package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/rootscope/internal/adapter/metrics"
	"github.com/V4T54L/rootscope/internal/adapter/tabular"
	"github.com/V4T54L/rootscope/internal/domain"
)

const uploadFormField = "file"

var errUnsupportedMediaType = errors.New("unsupported media type")

// Comparer is the upload and comparison side the compare handler depends on.
type Comparer interface {
	Upload(ctx context.Context, filename string, columns []string, rows [][]string) (*domain.UploadedDataset, error)
	CompareUpload(ctx context.Context, token, column string) (*domain.ComparisonResult, error)
	CompareDataset(ds *domain.UploadedDataset, column string) *domain.ComparisonResult
	DiscardUpload(ctx context.Context, token string) error
}

// CompareHandler handles dataset uploads and delta comparisons.
type CompareHandler struct {
	uc            Comparer
	logger        *slog.Logger
	metrics       *metrics.QueryMetrics
	maxUploadSize int64
}

// NewCompareHandler creates a new CompareHandler.
func NewCompareHandler(uc Comparer, logger *slog.Logger, m *metrics.QueryMetrics, maxUploadSize int64) *CompareHandler {
	return &CompareHandler{
		uc:            uc,
		logger:        logger,
		metrics:       m,
		maxUploadSize: maxUploadSize,
	}
}

// Upload parses a CSV upload and stores it under a new token.
// POST /api/uploads
func (h *CompareHandler) Upload(w http.ResponseWriter, r *http.Request) {
	filename, table, size, ok := h.readTable(w, r)
	if !ok {
		return
	}

	ds, err := h.uc.Upload(r.Context(), filename, table.Columns, table.Rows)
	if err != nil {
		h.metrics.UploadsTotal.WithLabelValues("error_store").Inc()
		h.logger.Error("failed to store upload", "error", err)
		respondWithError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.metrics.UploadsTotal.WithLabelValues("accepted").Inc()
	h.metrics.UploadBytesTotal.Add(float64(size))
	respondWithJSON(w, h.logger, http.StatusCreated, ds)
}

// CompareUpload compares one column of a stored upload.
// POST /api/uploads/{token}/compare
func (h *CompareHandler) CompareUpload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		h.metrics.QueryDuration.WithLabelValues("compare").Observe(time.Since(start).Seconds())
	}()

	token := r.PathValue("token")
	if _, err := uuid.Parse(token); err != nil {
		h.metrics.QueriesTotal.WithLabelValues("compare", "invalid").Inc()
		respondWithError(w, h.logger, http.StatusNotFound, domain.ErrUploadNotFound.Error())
		return
	}

	var payload struct {
		Column string `json:"column"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.metrics.QueriesTotal.WithLabelValues("compare", "invalid").Inc()
		respondWithError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.uc.CompareUpload(r.Context(), token, payload.Column)
	if err != nil {
		if errors.Is(err, domain.ErrUploadNotFound) {
			h.metrics.QueriesTotal.WithLabelValues("compare", "invalid").Inc()
			respondWithError(w, h.logger, http.StatusNotFound, err.Error())
			return
		}
		h.metrics.QueriesTotal.WithLabelValues("compare", "error").Inc()
		h.logger.Error("failed to compare upload", "error", err, "token", token)
		respondWithError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.respondWithComparison(w, result)
}

// DeleteUpload forgets a stored upload.
// DELETE /api/uploads/{token}
func (h *CompareHandler) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if _, err := uuid.Parse(token); err != nil {
		respondWithError(w, h.logger, http.StatusNotFound, domain.ErrUploadNotFound.Error())
		return
	}
	if err := h.uc.DiscardUpload(r.Context(), token); err != nil {
		h.logger.Error("failed to discard upload", "error", err, "token", token)
		respondWithError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompareOnce parses a CSV upload and compares one column without storing it.
// POST /api/compare?column=..
func (h *CompareHandler) CompareOnce(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		h.metrics.QueryDuration.WithLabelValues("compare").Observe(time.Since(start).Seconds())
	}()

	filename, table, _, ok := h.readTable(w, r)
	if !ok {
		return
	}

	ds := &domain.UploadedDataset{
		Filename: filename,
		Columns:  table.Columns,
		Rows:     table.Rows,
	}
	h.respondWithComparison(w, h.uc.CompareDataset(ds, r.URL.Query().Get("column")))
}

func (h *CompareHandler) respondWithComparison(w http.ResponseWriter, result *domain.ComparisonResult) {
	status := "ok"
	if len(result.Matched) == 0 && len(result.Missing) == 0 {
		status = "empty"
	}
	h.metrics.QueriesTotal.WithLabelValues("compare", status).Inc()
	respondWithJSON(w, h.logger, http.StatusOK, result)
}

// readTable decodes the request body as a CSV table and writes the error response itself
// when it fails.
func (h *CompareHandler) readTable(w http.ResponseWriter, r *http.Request) (string, *tabular.Table, int, bool) {
	// Enforce max body size
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	filename, data, err := h.readBody(r)
	if err == nil {
		var table *tabular.Table
		table, err = tabular.ParseCSV(bytes.NewReader(data))
		if err == nil {
			return filename, table, len(data), true
		}
	}

	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		h.metrics.UploadsTotal.WithLabelValues("error_size").Inc()
		respondWithError(w, h.logger, http.StatusRequestEntityTooLarge, "Payload too large")
	case errors.Is(err, errUnsupportedMediaType):
		h.metrics.UploadsTotal.WithLabelValues("error_media_type").Inc()
		respondWithError(w, h.logger, http.StatusUnsupportedMediaType, "Unsupported Content-Type")
	case errors.Is(err, tabular.ErrMalformed), errors.Is(err, tabular.ErrEmpty):
		h.metrics.UploadsTotal.WithLabelValues("error_parse").Inc()
		respondWithError(w, h.logger, http.StatusBadRequest, err.Error())
	default:
		h.metrics.UploadsTotal.WithLabelValues("error_parse").Inc()
		h.logger.Warn("failed to read upload", "error", err)
		respondWithError(w, h.logger, http.StatusBadRequest, "Bad request")
	}
	return "", nil, 0, false
}

func (h *CompareHandler) readBody(r *http.Request) (string, []byte, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return "", nil, errUnsupportedMediaType
	}

	switch mediaType {
	case "text/csv", "application/csv", "text/plain":
		data, err := io.ReadAll(r.Body)
		return r.URL.Query().Get("filename"), data, err
	case "multipart/form-data":
		file, header, err := r.FormFile(uploadFormField)
		if err != nil {
			return "", nil, err
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		return header.Filename, data, err
	default:
		return "", nil, errUnsupportedMediaType
	}
}
