package domain

import (
	"fmt"
	"time"
)

// SortOrder orders countries by their site count.
type SortOrder string

const (
	SortDesc SortOrder = "desc"
	SortAsc  SortOrder = "asc"
)

// ViewMode selects the aggregation granularity.
type ViewMode string

const (
	ViewFlat     ViewMode = "flat"
	ViewBySource ViewMode = "by_source"
)

// ParseSortOrder accepts "asc" or "desc"; the empty string means desc.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case "", SortDesc:
		return SortDesc, nil
	case SortAsc:
		return SortAsc, nil
	}
	return "", fmt.Errorf("%w: unknown sort order %q", ErrInvalidQuery, s)
}

// ParseViewMode accepts "flat" or "by_source"; the empty string means flat.
// "total" and "detailed" are accepted as aliases.
func ParseViewMode(s string) (ViewMode, error) {
	switch s {
	case "", string(ViewFlat), "total":
		return ViewFlat, nil
	case string(ViewBySource), "detailed":
		return ViewBySource, nil
	}
	return "", fmt.Errorf("%w: unknown view mode %q", ErrInvalidQuery, s)
}

// Query describes one aggregation request.
type Query struct {
	Sources      []string
	CountryAllow []string // empty means every country seen in Sources
	CountryDeny  []string
	CutoffIndex  int
	Sort         SortOrder
	Limit        int // 0 means no limit
	View         ViewMode

	// SourceLabels overrides the display label of a source tag.
	SourceLabels map[string]string
}

// CountryCount is one row of a flat aggregation.
type CountryCount struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

// SourceCount is one cell of a by-source aggregation.
type SourceCount struct {
	Country string `json:"country"`
	Source  string `json:"source"`
	Label   string `json:"label"`
	Count   int    `json:"count"`
}

// AggregateResult is the renderable output of an aggregation.
// CutoffDate is the inclusive day bound actually applied: day 28 of the cutoff month.
type AggregateResult struct {
	View         ViewMode       `json:"view"`
	Cutoff       time.Time      `json:"cutoff"`
	CutoffDate   time.Time      `json:"cutoff_date"`
	Empty        bool           `json:"empty"`
	Title        string         `json:"title"`
	YAxisMax     int            `json:"y_axis_max"`
	Countries    []string       `json:"countries"`
	SourceLabels []string       `json:"source_labels,omitempty"`
	Totals       []CountryCount `json:"totals"`
	Cells        []SourceCount  `json:"cells,omitempty"`
}
