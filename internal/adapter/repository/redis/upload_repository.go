package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/rootscope/internal/domain"
)

const uploadKeyPrefix = "rootscope:upload:"

// UploadRepository implements domain.UploadRepository with one Redis string per token.
// Expiry is delegated to the key TTL.
type UploadRepository struct {
	client      *redis.Client
	logger      *slog.Logger
	isAvailable atomic.Bool
}

// NewUploadRepository creates a new Redis-backed UploadRepository.
func NewUploadRepository(client *redis.Client, logger *slog.Logger) *UploadRepository {
	repo := &UploadRepository{
		client: client,
		logger: logger.With("component", "redis_upload_repository"),
	}
	repo.isAvailable.Store(true) // Assume available initially
	return repo
}

func uploadKey(token string) string {
	return uploadKeyPrefix + token
}

// Save stores the dataset as JSON under its token with the given TTL.
func (r *UploadRepository) Save(ctx context.Context, dataset domain.UploadedDataset, ttl time.Duration) error {
	payload, err := json.Marshal(dataset)
	if err != nil {
		return fmt.Errorf("failed to marshal upload: %w", err)
	}

	if err := r.client.Set(ctx, uploadKey(dataset.Token), payload, ttl).Err(); err != nil {
		r.markUnavailable(err)
		return fmt.Errorf("failed to SET upload in redis: %w", err)
	}
	return nil
}

// Get loads the dataset for token.
func (r *UploadRepository) Get(ctx context.Context, token string) (*domain.UploadedDataset, error) {
	payload, err := r.client.Get(ctx, uploadKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrUploadNotFound
		}
		r.markUnavailable(err)
		return nil, fmt.Errorf("failed to GET upload from redis: %w", err)
	}

	var ds domain.UploadedDataset
	if err := json.Unmarshal(payload, &ds); err != nil {
		r.logger.Warn("Failed to unmarshal stored upload, discarding", "token", token, "error", err)
		_ = r.client.Del(ctx, uploadKey(token)).Err()
		return nil, domain.ErrUploadNotFound
	}
	return &ds, nil
}

func (r *UploadRepository) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, uploadKey(token)).Err(); err != nil {
		r.markUnavailable(err)
		return fmt.Errorf("failed to DEL upload in redis: %w", err)
	}
	return nil
}

// Available reports the last observed connectivity state.
func (r *UploadRepository) Available() bool {
	return r.isAvailable.Load()
}

// StartHealthCheck pings Redis every interval and logs connectivity transitions until ctx is done.
func (r *UploadRepository) StartHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("Starting Redis health check")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stopping Redis health check")
			return
		case <-ticker.C:
			if err := r.client.Ping(ctx).Err(); err != nil {
				if r.isAvailable.CompareAndSwap(true, false) {
					r.logger.Error("Redis connection lost", "error", err)
				}
			} else if r.isAvailable.CompareAndSwap(false, true) {
				r.logger.Info("Redis connection recovered")
			}
		}
	}
}

func (r *UploadRepository) markUnavailable(err error) {
	if isNetworkError(err) && r.isAvailable.CompareAndSwap(true, false) {
		r.logger.Error("Redis connection lost during request", "error", err)
	}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed)
}
