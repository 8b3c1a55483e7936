package usecase

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/V4T54L/rootscope/internal/dataset"
	"github.com/V4T54L/rootscope/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newSnapshot builds a snapshot with the month index running from 2023-01 to today.
func newSnapshot(t *testing.T, docs []domain.SourceDocument, firstSeen map[string]string, today time.Time) *dataset.Snapshot {
	t.Helper()
	records, err := dataset.LoadRecords(docs)
	if err != nil {
		t.Fatalf("failed to load records: %v", err)
	}
	if firstSeen == nil {
		firstSeen = map[string]string{}
	}
	registry, err := dataset.LoadRegistry(firstSeen)
	if err != nil {
		t.Fatalf("failed to load registry: %v", err)
	}
	return dataset.NewSnapshot(records, registry, dataset.Options{
		Floor:       day(2023, 1, 1),
		Today:       today,
		LabelPrefix: "root_",
	})
}

func site(created, country string, ids ...string) domain.RawSite {
	return domain.RawSite{Created: created, Country: country, Identifiers: ids}
}
