package handler

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/V4T54L/rootscope/internal/adapter/metrics"
	"github.com/V4T54L/rootscope/internal/dataset"
	"github.com/V4T54L/rootscope/internal/domain"
	"github.com/V4T54L/rootscope/internal/domain/mocks"
	"github.com/V4T54L/rootscope/internal/usecase"
)

var testToday = time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMetrics() *metrics.QueryMetrics {
	return metrics.NewQueryMetrics(prometheus.NewRegistry())
}

// newTestSnapshot holds two sources with three sites; months run 2023-01..2023-03.
func newTestSnapshot(t *testing.T) *dataset.Snapshot {
	t.Helper()
	docs := []domain.SourceDocument{
		{Source: "root_a.json", Sites: []domain.RawSite{
			{Created: "2023-01-10T08:00:00Z", Country: "US", Identifiers: []string{"x"}},
			{Created: "2023-02-15T08:00:00Z", Country: "DE", Identifiers: []string{"z"}},
		}},
		{Source: "root_b.json", Sites: []domain.RawSite{
			{Created: "2023-01-20T08:00:00Z", Country: "US", Identifiers: []string{"w"}},
		}},
	}
	records, err := dataset.LoadRecords(docs)
	if err != nil {
		t.Fatalf("failed to load records: %v", err)
	}
	registry, err := dataset.LoadRegistry(map[string]string{
		"x": "2022-10-12", // 90 days before its site
		"w": "2023-01-15", // 5 days before its site
	})
	if err != nil {
		t.Fatalf("failed to load registry: %v", err)
	}
	return dataset.NewSnapshot(records, registry, dataset.Options{
		Floor:       time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Today:       testToday,
		LabelPrefix: "root_",
	})
}

func newTestCompareUseCase(t *testing.T) (*usecase.CompareUseCase, *mocks.MockUploadRepository) {
	t.Helper()
	repo := &mocks.MockUploadRepository{}
	return usecase.NewCompareUseCase(newTestSnapshot(t), repo, time.Minute, discardLogger()), repo
}
