// Package dataset builds the immutable in-memory snapshot every query runs against:
// normalized site records, the first-seen registry and the month index.
package dataset

import (
	"fmt"
	"sort"
	"time"

	"github.com/V4T54L/rootscope/internal/domain"
)

// CreatedLayout is the only accepted format for a site's creation timestamp.
const CreatedLayout = "2006-01-02T15:04:05Z"

// LoadRecords normalizes source documents into site records. Documents are processed in
// ascending source order and sites in document order. A single unparsable timestamp fails
// the whole load.
func LoadRecords(docs []domain.SourceDocument) ([]domain.SiteRecord, error) {
	ordered := make([]domain.SourceDocument, len(docs))
	copy(ordered, docs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Source < ordered[j].Source })

	total := 0
	for _, doc := range ordered {
		total += len(doc.Sites)
	}

	records := make([]domain.SiteRecord, 0, total)
	for _, doc := range ordered {
		for i, site := range doc.Sites {
			created, err := time.Parse(CreatedLayout, site.Created)
			if err != nil {
				return nil, fmt.Errorf("source %s: site %d: invalid Created %q: %w", doc.Source, i, site.Created, err)
			}

			ids := make([]string, len(site.Identifiers))
			copy(ids, site.Identifiers)

			records = append(records, domain.SiteRecord{
				Identifiers: ids,
				Country:     site.Country,
				CreatedAt:   created.UTC(),
				Source:      doc.Source,
			})
		}
	}
	return records, nil
}

// CivilDate truncates t to its UTC calendar day.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// monthStart returns the first day of t's UTC month.
func monthStart(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed number of calendar days from b to a.
func DaysBetween(a, b time.Time) int {
	return int(CivilDate(a).Sub(CivilDate(b)).Hours() / 24)
}
