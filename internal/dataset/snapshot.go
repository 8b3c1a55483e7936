package dataset

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/V4T54L/rootscope/internal/domain"
)

// Options controls snapshot construction.
type Options struct {
	// Floor is the earliest month the month index may start at.
	Floor time.Time
	// Today bounds the month index; zero means time.Now().
	Today time.Time
	// LabelPrefix is stripped from source tags to form display labels.
	LabelPrefix string
}

// Snapshot is the immutable dataset built once at startup and shared by every query.
// Slices returned by its accessors must not be modified.
type Snapshot struct {
	records         []domain.SiteRecord
	registry        *Registry
	months          *MonthIndex
	sources         []domain.SourceInfo
	labels          map[string]string
	countries       []string
	maxCountryCount int
	loadedAt        time.Time
}

// Stats summarizes a snapshot for the admin API.
type Stats struct {
	Records          int       `json:"records"`
	Sources          int       `json:"sources"`
	Countries        int       `json:"countries"`
	RecordsNoCountry int       `json:"records_without_country"`
	Registered       int       `json:"registered_identifiers"`
	Months           int       `json:"months"`
	FirstMonth       string    `json:"first_month,omitempty"`
	LastMonth        string    `json:"last_month,omitempty"`
	MaxCountryCount  int       `json:"max_country_count"`
	LoadedAt         time.Time `json:"loaded_at"`
}

// Build loads both datasets from src and assembles the snapshot. Any parse failure is returned
// and the caller is expected to stop.
func Build(ctx context.Context, src domain.DatasetSource, opts Options) (*Snapshot, error) {
	docs, err := src.LoadSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	records, err := LoadRecords(docs)
	if err != nil {
		return nil, fmt.Errorf("normalize sources: %w", err)
	}

	raw, err := src.LoadFirstSeen(ctx)
	if err != nil {
		return nil, fmt.Errorf("load first-seen: %w", err)
	}
	registry, err := LoadRegistry(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize first-seen: %w", err)
	}

	return NewSnapshot(records, registry, opts), nil
}

// NewSnapshot derives the month index, source list, country list and global axis bound.
func NewSnapshot(records []domain.SiteRecord, registry *Registry, opts Options) *Snapshot {
	today := opts.Today
	if today.IsZero() {
		today = time.Now()
	}
	if registry == nil {
		registry = &Registry{dates: map[string]time.Time{}}
	}

	s := &Snapshot{
		records:  records,
		registry: registry,
		months:   BuildMonthIndex(records, opts.Floor, today),
		labels:   make(map[string]string),
		loadedAt: time.Now().UTC(),
	}

	countryCounts := make(map[string]int)
	for _, r := range records {
		if _, ok := s.labels[r.Source]; !ok {
			s.labels[r.Source] = SourceLabel(r.Source, opts.LabelPrefix)
		}
		if r.HasCountry() {
			countryCounts[r.Country]++
		}
	}

	for tag, label := range s.labels {
		s.sources = append(s.sources, domain.SourceInfo{Tag: tag, Label: label})
	}
	sort.Slice(s.sources, func(i, j int) bool { return s.sources[i].Tag < s.sources[j].Tag })

	for country, n := range countryCounts {
		s.countries = append(s.countries, country)
		if n > s.maxCountryCount {
			s.maxCountryCount = n
		}
	}
	sort.Strings(s.countries)

	return s
}

// SourceLabel derives a display label from a source tag: the prefix and any ".json"
// are removed and the rest upper-cased, so "root_a.json" becomes "A".
func SourceLabel(tag, prefix string) string {
	label := tag
	if prefix != "" {
		label = strings.ReplaceAll(label, prefix, "")
	}
	label = strings.ReplaceAll(label, ".json", "")
	return strings.ToUpper(label)
}

func (s *Snapshot) Records() []domain.SiteRecord { return s.records }

func (s *Snapshot) Registry() *Registry { return s.registry }

func (s *Snapshot) Months() *MonthIndex { return s.months }

// Sources lists every source that contributed at least one record, ordered by tag.
func (s *Snapshot) Sources() []domain.SourceInfo { return s.sources }

// SourceTags lists the tags of Sources.
func (s *Snapshot) SourceTags() []string {
	tags := make([]string, len(s.sources))
	for i, src := range s.sources {
		tags[i] = src.Tag
	}
	return tags
}

// Label returns the display label for tag, or tag itself when the snapshot has no such source.
func (s *Snapshot) Label(tag string) string {
	if l, ok := s.labels[tag]; ok {
		return l
	}
	return tag
}

// Countries lists every non-empty country in the dataset, sorted.
func (s *Snapshot) Countries() []string { return s.countries }

// MaxCountryCount is the largest per-country record count over the whole dataset.
func (s *Snapshot) MaxCountryCount() int { return s.maxCountryCount }

func (s *Snapshot) Stats() Stats {
	st := Stats{
		Records:         len(s.records),
		Sources:         len(s.sources),
		Countries:       len(s.countries),
		Registered:      s.registry.Len(),
		Months:          s.months.Len(),
		MaxCountryCount: s.maxCountryCount,
		LoadedAt:        s.loadedAt,
	}
	for _, r := range s.records {
		if !r.HasCountry() {
			st.RecordsNoCountry++
		}
	}
	if first, ok := s.months.At(0); ok {
		st.FirstMonth = first.Format(MonthLabelLayout)
	}
	if last, ok := s.months.At(s.months.Last()); ok {
		st.LastMonth = last.Format(MonthLabelLayout)
	}
	return st
}
