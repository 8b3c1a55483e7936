package usecase

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/V4T54L/rootscope/internal/dataset"
	"github.com/V4T54L/rootscope/internal/domain"
)

const (
	flatTitleFormat     = "Root servers created on or before %s"
	bySourceTitleFormat = "Per-letter root server breakdown on or before %s"

	// NoDataTitle is the title of an aggregation whose country universe is empty.
	NoDataTitle = "No data to display with current filters"

	markStep = 2
)

// FilterOptions lists what a client can choose from when building a Query.
type FilterOptions struct {
	Sources       []domain.SourceInfo `json:"sources"`
	Countries     []string            `json:"countries"`
	Marks         []dataset.MonthMark `json:"marks"`
	MaxCutoff     int                 `json:"max_cutoff"`
	DefaultCutoff int                 `json:"default_cutoff"`
	YAxisMax      int                 `json:"y_axis_max"`
}

// AggregateUseCase counts sites per country (and optionally per source) as of a cutoff month.
type AggregateUseCase struct {
	snap   *dataset.Snapshot
	logger *slog.Logger
}

// NewAggregateUseCase creates a new AggregateUseCase over an immutable snapshot.
func NewAggregateUseCase(snap *dataset.Snapshot, logger *slog.Logger) *AggregateUseCase {
	return &AggregateUseCase{
		snap:   snap,
		logger: logger.With("component", "aggregate"),
	}
}

// Options returns the sources, countries and month marks a query may use.
func (uc *AggregateUseCase) Options() FilterOptions {
	months := uc.snap.Months()
	return FilterOptions{
		Sources:       uc.snap.Sources(),
		Countries:     uc.snap.Countries(),
		Marks:         months.Marks(markStep),
		MaxCutoff:     months.Last(),
		DefaultCutoff: months.Last(),
		YAxisMax:      uc.snap.MaxCountryCount(),
	}
}

// Months returns the labels of every month in the cutoff index, oldest first.
func (uc *AggregateUseCase) Months() []string {
	months := uc.snap.Months().Months()
	labels := make([]string, len(months))
	for i, m := range months {
		labels[i] = m.Format(dataset.MonthLabelLayout)
	}
	return labels
}

type cellKey struct {
	country string
	source  string
}

type labeledSource struct {
	tag   string
	label string
}

// Aggregate filters the snapshot by q and returns a table dense over the resolved country
// universe (times the selected sources in by-source mode). A record counts when its UTC date
// is on or before day 28 of the cutoff month. An empty universe yields an Empty result.
func (uc *AggregateUseCase) Aggregate(q domain.Query) (*domain.AggregateResult, error) {
	order, err := domain.ParseSortOrder(string(q.Sort))
	if err != nil {
		return nil, err
	}
	view, err := domain.ParseViewMode(string(q.View))
	if err != nil {
		return nil, err
	}
	if q.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative, got %d", domain.ErrInvalidQuery, q.Limit)
	}
	month, ok := uc.snap.Months().At(q.CutoffIndex)
	if !ok {
		return nil, fmt.Errorf("%w: cutoff index %d outside [0, %d]", domain.ErrInvalidQuery, q.CutoffIndex, uc.snap.Months().Last())
	}
	cutoffDay := dataset.CutoffDay(month)

	sources := toSet(q.Sources)
	records := uc.snap.Records()

	// 1. Resolve the country universe.
	universe := make(map[string]struct{})
	if len(q.CountryAllow) > 0 {
		for _, c := range q.CountryAllow {
			if c != "" {
				universe[c] = struct{}{}
			}
		}
	} else {
		for _, r := range records {
			if _, ok := sources[r.Source]; ok && r.HasCountry() {
				universe[r.Country] = struct{}{}
			}
		}
	}
	for _, c := range q.CountryDeny {
		delete(universe, c)
	}

	// 2. Filter and count.
	totals := make(map[string]int, len(universe))
	cells := make(map[cellKey]int)
	for _, r := range records {
		if _, ok := sources[r.Source]; !ok {
			continue
		}
		if _, ok := universe[r.Country]; !ok {
			continue
		}
		if dataset.CivilDate(r.CreatedAt).After(cutoffDay) {
			continue
		}
		totals[r.Country]++
		cells[cellKey{country: r.Country, source: r.Source}]++
	}

	// 3. Sort by total, ties by name, then truncate.
	countries := make([]string, 0, len(universe))
	for c := range universe {
		countries = append(countries, c)
	}
	sort.Strings(countries)
	sort.SliceStable(countries, func(i, j int) bool {
		if order == domain.SortAsc {
			return totals[countries[i]] < totals[countries[j]]
		}
		return totals[countries[i]] > totals[countries[j]]
	})
	if q.Limit > 0 && len(countries) > q.Limit {
		countries = countries[:q.Limit]
	}

	result := &domain.AggregateResult{
		View:       view,
		Cutoff:     month,
		CutoffDate: cutoffDay,
		YAxisMax:   uc.snap.MaxCountryCount(),
		Countries:  countries,
		Totals:     make([]domain.CountryCount, 0, len(countries)),
	}

	if len(countries) == 0 {
		result.Empty = true
		result.Title = NoDataTitle
		uc.logger.Debug("aggregation produced no data", "cutoff", month.Format(dataset.MonthLabelLayout))
		return result, nil
	}

	for _, c := range countries {
		result.Totals = append(result.Totals, domain.CountryCount{Country: c, Count: totals[c]})
	}

	label := month.Format(dataset.MonthLabelLayout)
	if view == domain.ViewFlat {
		result.Title = fmt.Sprintf(flatTitleFormat, label)
		return result, nil
	}

	selected := uc.labeledSources(q)
	result.Title = fmt.Sprintf(bySourceTitleFormat, label)
	result.SourceLabels = make([]string, len(selected))
	for i, s := range selected {
		result.SourceLabels[i] = s.label
	}
	result.Cells = make([]domain.SourceCount, 0, len(countries)*len(selected))
	for _, c := range countries {
		for _, s := range selected {
			result.Cells = append(result.Cells, domain.SourceCount{
				Country: c,
				Source:  s.tag,
				Label:   s.label,
				Count:   cells[cellKey{country: c, source: s.tag}],
			})
		}
	}
	return result, nil
}

// labeledSources returns the distinct selected sources ordered by label, then tag.
func (uc *AggregateUseCase) labeledSources(q domain.Query) []labeledSource {
	seen := make(map[string]struct{}, len(q.Sources))
	out := make([]labeledSource, 0, len(q.Sources))
	for _, tag := range q.Sources {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}

		label, ok := q.SourceLabels[tag]
		if !ok {
			label = uc.snap.Label(tag)
		}
		out = append(out, labeledSource{tag: tag, label: label})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].label != out[j].label {
			return out[i].label < out[j].label
		}
		return out[i].tag < out[j].tag
	})
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
