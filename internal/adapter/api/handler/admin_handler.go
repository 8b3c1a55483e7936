package handler

import (
	"log/slog"
	"net/http"

	"github.com/V4T54L/rootscope/internal/dataset"
)

// DatasetStats reports what the loaded snapshot holds.
type DatasetStats interface {
	Stats() dataset.Stats
}

// StoreProbe reports whether a remote upload store is reachable.
type StoreProbe interface {
	Available() bool
}

// AdminHandler handles HTTP requests for service administration.
type AdminHandler struct {
	snap        DatasetStats
	store       StoreProbe
	uploadStore string
	logger      *slog.Logger
}

// NewAdminHandler creates a new AdminHandler. store may be nil for the in-memory upload store.
func NewAdminHandler(snap DatasetStats, uploadStore string, store StoreProbe, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{snap: snap, store: store, uploadStore: uploadStore, logger: logger}
}

// HealthCheck is a simple health check endpoint.
func (h *AdminHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// GetDataset reports snapshot statistics and the upload store state.
// GET /admin/dataset
func (h *AdminHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	available := true
	if h.store != nil {
		available = h.store.Available()
	}

	respondWithJSON(w, h.logger, http.StatusOK, struct {
		Dataset     dataset.Stats `json:"dataset"`
		UploadStore string        `json:"upload_store"`
		Available   bool          `json:"upload_store_available"`
	}{
		Dataset:     h.snap.Stats(),
		UploadStore: h.uploadStore,
		Available:   available,
	})
}
