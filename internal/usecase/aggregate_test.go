package usecase

import (
	"errors"
	"reflect"
	"testing"

	"github.com/V4T54L/rootscope/internal/dataset"
	"github.com/V4T54L/rootscope/internal/domain"
)

const (
	srcA = "root_a.json"
	srcB = "root_b.json"
)

// fixture months: 2023-01 (0) .. 2023-06 (5)
func fixtureSnapshot(t *testing.T) *dataset.Snapshot {
	t.Helper()
	docs := []domain.SourceDocument{
		{Source: srcA, Sites: []domain.RawSite{
			site("2023-01-05T00:00:00Z", "US"),
			site("2023-02-10T00:00:00Z", "US"),
			site("2023-02-11T00:00:00Z", "DE"),
			site("2023-03-01T00:00:00Z", "FR"),
			site("2023-01-20T00:00:00Z", ""),
			site("2023-04-28T23:00:00Z", "US"),
		}},
		{Source: srcB, Sites: []domain.RawSite{
			site("2023-01-15T00:00:00Z", "US"),
			site("2023-01-20T00:00:00Z", "DE"),
			site("2023-04-29T00:00:00Z", "JP"),
		}},
	}
	return newSnapshot(t, docs, nil, day(2023, 6, 15))
}

func totalsOf(res *domain.AggregateResult) map[string]int {
	out := make(map[string]int, len(res.Totals))
	for _, c := range res.Totals {
		out[c.Country] = c.Count
	}
	return out
}

func TestAggregate_Flat(t *testing.T) {
	uc := NewAggregateUseCase(fixtureSnapshot(t), discardLogger())
	both := []string{srcA, srcB}

	tests := []struct {
		name      string
		query     domain.Query
		wantOrder []string
		wantTotal map[string]int
	}{
		{
			name:      "April cutoff, all sources, desc",
			query:     domain.Query{Sources: both, CutoffIndex: 3},
			wantOrder: []string{"US", "DE", "FR", "JP"},
			wantTotal: map[string]int{"US": 4, "DE": 2, "FR": 1, "JP": 0},
		},
		{
			name:      "January cutoff, zero-count ties broken by name",
			query:     domain.Query{Sources: both, CutoffIndex: 0, Sort: domain.SortDesc},
			wantOrder: []string{"US", "DE", "FR", "JP"},
			wantTotal: map[string]int{"US": 2, "DE": 1, "FR": 0, "JP": 0},
		},
		{
			name:      "January cutoff ascending",
			query:     domain.Query{Sources: both, CutoffIndex: 0, Sort: domain.SortAsc},
			wantOrder: []string{"FR", "JP", "DE", "US"},
			wantTotal: map[string]int{"US": 2, "DE": 1, "FR": 0, "JP": 0},
		},
		{
			name:      "limit keeps the highest countries",
			query:     domain.Query{Sources: both, CutoffIndex: 3, Limit: 2},
			wantOrder: []string{"US", "DE"},
			wantTotal: map[string]int{"US": 4, "DE": 2},
		},
		{
			name:      "allow list is dense even for unseen countries",
			query:     domain.Query{Sources: both, CutoffIndex: 3, CountryAllow: []string{"XX", "US"}},
			wantOrder: []string{"US", "XX"},
			wantTotal: map[string]int{"US": 4, "XX": 0},
		},
		{
			name:      "deny list removes countries",
			query:     domain.Query{Sources: both, CutoffIndex: 3, CountryDeny: []string{"US"}},
			wantOrder: []string{"DE", "FR", "JP"},
			wantTotal: map[string]int{"DE": 2, "FR": 1, "JP": 0},
		},
		{
			name:      "universe comes from selected sources only",
			query:     domain.Query{Sources: []string{srcA}, CutoffIndex: 5},
			wantOrder: []string{"US", "DE", "FR"},
			wantTotal: map[string]int{"US": 3, "DE": 1, "FR": 1},
		},
		{
			name:      "day 28 bound excludes the 29th",
			query:     domain.Query{Sources: []string{srcB}, CutoffIndex: 3, CountryAllow: []string{"JP"}},
			wantOrder: []string{"JP"},
			wantTotal: map[string]int{"JP": 0},
		},
		{
			name:      "next month includes the 29th",
			query:     domain.Query{Sources: []string{srcB}, CutoffIndex: 4, CountryAllow: []string{"JP"}},
			wantOrder: []string{"JP"},
			wantTotal: map[string]int{"JP": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := uc.Aggregate(tt.query)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if res.Empty {
				t.Fatal("expected a non-empty result")
			}
			if !reflect.DeepEqual(res.Countries, tt.wantOrder) {
				t.Errorf("country order: got %v, want %v", res.Countries, tt.wantOrder)
			}
			if got := totalsOf(res); !reflect.DeepEqual(got, tt.wantTotal) {
				t.Errorf("totals: got %v, want %v", got, tt.wantTotal)
			}
			if res.YAxisMax != 4 {
				t.Errorf("expected global y axis max 4, got %d", res.YAxisMax)
			}
			if len(res.Cells) != 0 {
				t.Errorf("flat mode should not return cells, got %d", len(res.Cells))
			}
		})
	}
}

func TestAggregate_FlatSumsToFilteredRecords(t *testing.T) {
	snap := fixtureSnapshot(t)
	uc := NewAggregateUseCase(snap, discardLogger())

	for pos := 0; pos < snap.Months().Len(); pos++ {
		res, err := uc.Aggregate(domain.Query{Sources: []string{srcA, srcB}, CutoffIndex: pos})
		if err != nil {
			t.Fatalf("cutoff %d: %v", pos, err)
		}
		month, _ := snap.Months().At(pos)
		bound := dataset.CutoffDay(month)

		want := 0
		for _, r := range snap.Records() {
			if r.HasCountry() && !dataset.CivilDate(r.CreatedAt).After(bound) {
				want++
			}
		}
		got := 0
		for _, c := range res.Totals {
			got += c.Count
		}
		if got != want {
			t.Errorf("cutoff %d: sum of counts %d, want %d", pos, got, want)
		}
		if len(res.Totals) != 4 {
			t.Errorf("cutoff %d: expected all 4 universe countries, got %d", pos, len(res.Totals))
		}
	}
}

func TestAggregate_BySource(t *testing.T) {
	uc := NewAggregateUseCase(fixtureSnapshot(t), discardLogger())
	q := domain.Query{Sources: []string{srcB, srcA}, CutoffIndex: 3, View: domain.ViewBySource}

	res, err := uc.Aggregate(q)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !reflect.DeepEqual(res.SourceLabels, []string{"A", "B"}) {
		t.Errorf("source labels: got %v", res.SourceLabels)
	}
	if len(res.Cells) != 4*2 {
		t.Fatalf("expected dense 4x2 cells, got %d", len(res.Cells))
	}

	want := []domain.SourceCount{
		{Country: "US", Source: srcA, Label: "A", Count: 3},
		{Country: "US", Source: srcB, Label: "B", Count: 1},
		{Country: "DE", Source: srcA, Label: "A", Count: 1},
		{Country: "DE", Source: srcB, Label: "B", Count: 1},
		{Country: "FR", Source: srcA, Label: "A", Count: 1},
		{Country: "FR", Source: srcB, Label: "B", Count: 0},
		{Country: "JP", Source: srcA, Label: "A", Count: 0},
		{Country: "JP", Source: srcB, Label: "B", Count: 0},
	}
	if !reflect.DeepEqual(res.Cells, want) {
		t.Errorf("cells:\n got %+v\nwant %+v", res.Cells, want)
	}
	if res.Title != "Per-letter root server breakdown on or before 2023-04" {
		t.Errorf("unexpected title %q", res.Title)
	}

	// Per-country sums match flat mode for the same query.
	q.View = domain.ViewFlat
	flat, err := uc.Aggregate(q)
	if err != nil {
		t.Fatalf("flat query failed: %v", err)
	}
	sums := make(map[string]int)
	for _, c := range res.Cells {
		sums[c.Country] += c.Count
	}
	if !reflect.DeepEqual(sums, totalsOf(flat)) {
		t.Errorf("by-source sums %v differ from flat totals %v", sums, totalsOf(flat))
	}
	if flat.Title != "Root servers created on or before 2023-04" {
		t.Errorf("unexpected flat title %q", flat.Title)
	}
}

func TestAggregate_BySourceLimitAndLabels(t *testing.T) {
	uc := NewAggregateUseCase(fixtureSnapshot(t), discardLogger())

	res, err := uc.Aggregate(domain.Query{
		Sources:      []string{srcA, srcB, srcA},
		CutoffIndex:  3,
		View:         domain.ViewBySource,
		Limit:        1,
		SourceLabels: map[string]string{srcA: "Zulu", srcB: "Alpha"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := []domain.SourceCount{
		{Country: "US", Source: srcB, Label: "Alpha", Count: 1},
		{Country: "US", Source: srcA, Label: "Zulu", Count: 3},
	}
	if !reflect.DeepEqual(res.Cells, want) {
		t.Errorf("cells: got %+v, want %+v", res.Cells, want)
	}
}

func TestAggregate_SingleSite(t *testing.T) {
	snap := newSnapshot(t, []domain.SourceDocument{
		{Source: "a", Sites: []domain.RawSite{site("2023-03-01T00:00:00Z", "US")}},
		{Source: "b", Sites: []domain.RawSite{site("2023-05-01T00:00:00Z", "US")}},
	}, nil, day(2023, 6, 1))
	uc := NewAggregateUseCase(snap, discardLogger())

	pos, ok := snap.Months().PositionOf(day(2023, 4, 1))
	if !ok {
		t.Fatal("expected 2023-04 in month index")
	}

	res, err := uc.Aggregate(domain.Query{Sources: []string{"a", "b"}, CutoffIndex: pos})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := totalsOf(res); !reflect.DeepEqual(got, map[string]int{"US": 1}) {
		t.Errorf("got %v, want map[US:1]", got)
	}
}

func TestAggregate_EmptyAndInvalid(t *testing.T) {
	uc := NewAggregateUseCase(fixtureSnapshot(t), discardLogger())

	t.Run("No sources selected", func(t *testing.T) {
		res, err := uc.Aggregate(domain.Query{CutoffIndex: 0})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !res.Empty || res.Title != NoDataTitle {
			t.Errorf("expected empty result, got %+v", res)
		}
		if res.Totals == nil || len(res.Totals) != 0 {
			t.Errorf("expected an empty, non-nil totals slice")
		}
	})

	t.Run("Everything denied", func(t *testing.T) {
		res, err := uc.Aggregate(domain.Query{
			Sources:      []string{srcA},
			CountryAllow: []string{"US"},
			CountryDeny:  []string{"US"},
			View:         domain.ViewBySource,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !res.Empty {
			t.Error("expected empty result")
		}
	})

	invalid := []struct {
		name  string
		query domain.Query
	}{
		{"Cutoff past the end", domain.Query{CutoffIndex: 6}},
		{"Negative cutoff", domain.Query{CutoffIndex: -1}},
		{"Negative limit", domain.Query{Limit: -2}},
		{"Unknown sort", domain.Query{Sort: "random"}},
		{"Unknown view", domain.Query{View: "pie"}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Aggregate(tt.query)
			if !errors.Is(err, domain.ErrInvalidQuery) {
				t.Errorf("expected ErrInvalidQuery, got %v", err)
			}
		})
	}
}

func TestAggregate_Options(t *testing.T) {
	uc := NewAggregateUseCase(fixtureSnapshot(t), discardLogger())
	opts := uc.Options()

	if !reflect.DeepEqual(opts.Countries, []string{"DE", "FR", "JP", "US"}) {
		t.Errorf("countries: got %v", opts.Countries)
	}
	if len(opts.Sources) != 2 || opts.Sources[0].Label != "A" {
		t.Errorf("sources: got %+v", opts.Sources)
	}
	if opts.DefaultCutoff != 5 || opts.MaxCutoff != 5 {
		t.Errorf("expected default cutoff 5, got %d", opts.DefaultCutoff)
	}
	if len(opts.Marks) != 3 || opts.Marks[1].Label != "2023-03" {
		t.Errorf("marks: got %+v", opts.Marks)
	}
	if opts.YAxisMax != 4 {
		t.Errorf("expected y axis max 4, got %d", opts.YAxisMax)
	}
}
