package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/V4T54L/rootscope/internal/domain"
)

// MockDatasetSource is a mock implementation of domain.DatasetSource for testing.
type MockDatasetSource struct {
	Sources      []domain.SourceDocument
	FirstSeen    map[string]string
	SourcesErr   error
	FirstSeenErr error
}

func (m *MockDatasetSource) LoadSources(ctx context.Context) ([]domain.SourceDocument, error) {
	if m.SourcesErr != nil {
		return nil, m.SourcesErr
	}
	return m.Sources, nil
}

func (m *MockDatasetSource) LoadFirstSeen(ctx context.Context) (map[string]string, error) {
	if m.FirstSeenErr != nil {
		return nil, m.FirstSeenErr
	}
	if m.FirstSeen == nil {
		return map[string]string{}, nil
	}
	return m.FirstSeen, nil
}

// MockUploadRepository is a mock implementation of domain.UploadRepository for testing.
type MockUploadRepository struct {
	mu       sync.Mutex
	Datasets map[string]domain.UploadedDataset
	LastTTL  time.Duration
	SaveErr  error
	GetErr   error
}

func (m *MockUploadRepository) Save(ctx context.Context, dataset domain.UploadedDataset, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if m.Datasets == nil {
		m.Datasets = make(map[string]domain.UploadedDataset)
	}
	m.Datasets[dataset.Token] = dataset
	m.LastTTL = ttl
	return nil
}

func (m *MockUploadRepository) Get(ctx context.Context, token string) (*domain.UploadedDataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	ds, ok := m.Datasets[token]
	if !ok {
		return nil, domain.ErrUploadNotFound
	}
	return &ds, nil
}

func (m *MockUploadRepository) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Datasets, token)
	return nil
}
