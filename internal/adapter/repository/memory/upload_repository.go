package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/V4T54L/rootscope/internal/domain"
)

type uploadEntry struct {
	dataset   domain.UploadedDataset
	expiresAt time.Time
}

// UploadRepository implements domain.UploadRepository with an in-memory, time-based map.
type UploadRepository struct {
	logger  *slog.Logger
	entries map[string]uploadEntry
	mu      sync.RWMutex
	now     func() time.Time
}

// NewUploadRepository creates an empty in-memory upload repository.
func NewUploadRepository(logger *slog.Logger) *UploadRepository {
	return &UploadRepository{
		logger:  logger.With("component", "memory_upload_repository"),
		entries: make(map[string]uploadEntry),
		now:     time.Now,
	}
}

// Save stores the dataset until ttl elapses.
func (r *UploadRepository) Save(ctx context.Context, dataset domain.UploadedDataset, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[dataset.Token] = uploadEntry{
		dataset:   dataset,
		expiresAt: r.now().Add(ttl),
	}
	return nil
}

// Get returns the dataset for token. Expired entries behave as missing.
func (r *UploadRepository) Get(ctx context.Context, token string) (*domain.UploadedDataset, error) {
	r.mu.RLock()
	entry, found := r.entries[token]
	r.mu.RUnlock()

	if !found || !r.now().Before(entry.expiresAt) {
		return nil, domain.ErrUploadNotFound
	}
	ds := entry.dataset
	return &ds, nil
}

func (r *UploadRepository) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, token)
	return nil
}

// Len returns the number of stored entries, expired ones included until the next sweep.
func (r *UploadRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Sweep removes expired entries and returns how many were dropped.
func (r *UploadRepository) Sweep() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for token, entry := range r.entries {
		if !now.Before(entry.expiresAt) {
			delete(r.entries, token)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps expired uploads every interval until ctx is done.
func (r *UploadRepository) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stopping upload janitor")
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug("swept expired uploads", "count", n)
			}
		}
	}
}
