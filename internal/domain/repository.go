package domain

import (
	"context"
	"time"
)

// DatasetSource loads the raw startup datasets. It is called once per process.
type DatasetSource interface {
	// LoadSources returns every source document. Order is not significant.
	LoadSources(ctx context.Context) ([]SourceDocument, error)

	// LoadFirstSeen returns the reference identifier -> YYYY-MM-DD mapping.
	LoadFirstSeen(ctx context.Context) (map[string]string, error)
}

// UploadRepository holds uploaded datasets keyed by token.
// Implementations must be safe for concurrent use.
type UploadRepository interface {
	// Save stores the dataset under its token for ttl.
	Save(ctx context.Context, dataset UploadedDataset, ttl time.Duration) error

	// Get returns the dataset for token, or ErrUploadNotFound.
	Get(ctx context.Context, token string) (*UploadedDataset, error)

	// Delete removes the dataset. Deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error
}
