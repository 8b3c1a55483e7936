package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/V4T54L/rootscope/internal/domain"
	"github.com/V4T54L/rootscope/internal/domain/mocks"
)

func compareFixture(t *testing.T, repo domain.UploadRepository) *CompareUseCase {
	t.Helper()
	snap := newSnapshot(t, []domain.SourceDocument{
		{Source: "root_a.json", Sites: []domain.RawSite{
			site("2023-04-01T12:00:00Z", "US", "x"),
			site("2023-02-01T00:00:00Z", "", "w", "unregistered"),
		}},
		{Source: "root_b.json", Sites: []domain.RawSite{
			site("2022-12-01T00:00:00Z", "DE", "x"),
			site("2025-01-01T00:00:00Z", "JP", "v"),
		}},
	}, map[string]string{
		"x": "2023-01-01",
		"w": "2023-01-20",
		"v": "2023-01-01",
		"z": "2023-01-01", // registered but on no site
	}, day(2025, 2, 1))
	return NewCompareUseCase(snap, repo, 10*time.Minute, discardLogger())
}

func TestBuildComparisonTable(t *testing.T) {
	uc := compareFixture(t, &mocks.MockUploadRepository{})
	rows := uc.Rows()

	if len(rows) != 4 {
		t.Fatalf("expected 4 comparison rows, got %d", len(rows))
	}

	first := rows[0]
	want := domain.ComparisonRow{
		Identifier:  "x",
		Country:     "US",
		RootCreated: day(2023, 4, 1),
		FirstSeen:   day(2023, 1, 1),
		DeltaDays:   90,
		AgeCategory: domain.Age2To4Months,
		Source:      "root_a.json",
	}
	if !reflect.DeepEqual(first, want) {
		t.Errorf("first row:\n got %+v\nwant %+v", first, want)
	}

	if rows[1].Identifier != "w" || rows[1].Country != domain.UnknownCountry {
		t.Errorf("expected row for w with Unknown country, got %+v", rows[1])
	}
	if rows[2].DeltaDays != -31 || rows[2].AgeCategory != domain.AgeNegative {
		t.Errorf("expected negative delta for root_b x, got %+v", rows[2])
	}
	if rows[3].AgeCategory != domain.AgeOverYear {
		t.Errorf("expected >1 year for v, got %v", rows[3].AgeCategory)
	}
}

func TestCompare(t *testing.T) {
	uc := compareFixture(t, &mocks.MockUploadRepository{})

	t.Run("Matched and missing", func(t *testing.T) {
		res := uc.Compare([]string{"x", "y"})

		if len(res.Matched) != 2 {
			t.Fatalf("expected 2 matched rows for x, got %d", len(res.Matched))
		}
		if res.Matched[0].DeltaDays != -31 || res.Matched[1].DeltaDays != 90 {
			t.Errorf("expected rows sorted by delta ascending, got %d then %d", res.Matched[0].DeltaDays, res.Matched[1].DeltaDays)
		}
		if !reflect.DeepEqual(res.Missing, []string{"y"}) {
			t.Errorf("missing: got %v, want [y]", res.Missing)
		}
		if res.AllFound {
			t.Error("expected AllFound to be false")
		}
	})

	t.Run("Registered identifier without a site is missing", func(t *testing.T) {
		res := uc.Compare([]string{"z"})
		if len(res.Matched) != 0 {
			t.Errorf("expected no matches, got %d", len(res.Matched))
		}
		if !reflect.DeepEqual(res.Missing, []string{"z"}) {
			t.Errorf("missing: got %v, want [z]", res.Missing)
		}
	})

	t.Run("Subset of covered identifiers", func(t *testing.T) {
		res := uc.Compare([]string{"w", "v", "w"})
		if len(res.Missing) != 0 {
			t.Errorf("expected nothing missing, got %v", res.Missing)
		}
		if !res.AllFound || res.Message != allFoundMessage {
			t.Errorf("expected success message, got %+v", res)
		}
		if len(res.Matched) != 2 {
			t.Errorf("expected 2 matches, got %d", len(res.Matched))
		}
	})

	t.Run("Disjoint set", func(t *testing.T) {
		res := uc.Compare([]string{"q", "p", "unregistered"})
		if !reflect.DeepEqual(res.Missing, []string{"p", "q", "unregistered"}) {
			t.Errorf("missing: got %v", res.Missing)
		}
		if res.Matched == nil || len(res.Matched) != 0 {
			t.Error("expected an empty, non-nil matched slice")
		}
	})
}

func TestCompare_MatchedAndMissing(t *testing.T) {
	snap := newSnapshot(t, []domain.SourceDocument{
		{Source: "a", Sites: []domain.RawSite{site("2023-04-01T00:00:00Z", "US", "x")}},
	}, map[string]string{"x": "2023-01-01"}, day(2023, 5, 1))
	uc := NewCompareUseCase(snap, &mocks.MockUploadRepository{}, time.Minute, discardLogger())

	res := uc.Compare([]string{"x", "y"})
	if len(res.Matched) != 1 || res.Matched[0].DeltaDays != 90 || res.Matched[0].AgeCategory.String() != "2–4 months" {
		t.Errorf("unexpected matched rows %+v", res.Matched)
	}
	if !reflect.DeepEqual(res.Missing, []string{"y"}) {
		t.Errorf("missing: got %v, want [y]", res.Missing)
	}
}

func TestCompareUseCase_Uploads(t *testing.T) {
	ctx := context.Background()

	t.Run("Upload then compare by token", func(t *testing.T) {
		repo := &mocks.MockUploadRepository{}
		uc := compareFixture(t, repo)

		ds, err := uc.Upload(ctx, "ids.csv", []string{"name", "nsid"}, [][]string{{"a", "x"}, {"b", ""}, {"c", "y"}})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ds.Token == "" {
			t.Fatal("expected a token to be generated")
		}
		if repo.LastTTL != 10*time.Minute {
			t.Errorf("expected ttl to be passed through, got %v", repo.LastTTL)
		}

		res, err := uc.CompareUpload(ctx, ds.Token, "nsid")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(res.Matched) != 2 || !reflect.DeepEqual(res.Missing, []string{"y"}) {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("Concurrent uploads stay separate", func(t *testing.T) {
		repo := &mocks.MockUploadRepository{}
		uc := compareFixture(t, repo)

		first, _ := uc.Upload(ctx, "first.csv", []string{"id"}, [][]string{{"x"}})
		second, _ := uc.Upload(ctx, "second.csv", []string{"other"}, [][]string{{"q"}})
		if first.Token == second.Token {
			t.Fatal("expected distinct tokens")
		}

		res, err := uc.CompareUpload(ctx, first.Token, "id")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !res.AllFound || len(res.Matched) != 2 {
			t.Errorf("first upload was affected by the second: %+v", res)
		}
	})

	t.Run("Unknown or empty column yields an empty result", func(t *testing.T) {
		repo := &mocks.MockUploadRepository{}
		uc := compareFixture(t, repo)
		ds, _ := uc.Upload(ctx, "ids.csv", []string{"nsid"}, [][]string{{"x"}})

		for _, column := range []string{"", "nope"} {
			res, err := uc.CompareUpload(ctx, ds.Token, column)
			if err != nil {
				t.Fatalf("column %q: expected no error, got %v", column, err)
			}
			if len(res.Matched) != 0 || len(res.Missing) != 0 || res.AllFound {
				t.Errorf("column %q: expected empty result, got %+v", column, res)
			}
		}
	})

	t.Run("Unknown token", func(t *testing.T) {
		uc := compareFixture(t, &mocks.MockUploadRepository{})
		_, err := uc.CompareUpload(ctx, "does-not-exist", "nsid")
		if !errors.Is(err, domain.ErrUploadNotFound) {
			t.Errorf("expected ErrUploadNotFound, got %v", err)
		}
	})

	t.Run("Store failure", func(t *testing.T) {
		uc := compareFixture(t, &mocks.MockUploadRepository{SaveErr: errors.New("redis down")})
		_, err := uc.Upload(ctx, "ids.csv", []string{"nsid"}, nil)
		if err == nil {
			t.Fatal("expected an error, got nil")
		}
	})

	t.Run("Discard", func(t *testing.T) {
		repo := &mocks.MockUploadRepository{}
		uc := compareFixture(t, repo)
		ds, _ := uc.Upload(ctx, "ids.csv", []string{"nsid"}, [][]string{{"x"}})

		if err := uc.DiscardUpload(ctx, ds.Token); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := uc.CompareUpload(ctx, ds.Token, "nsid"); !errors.Is(err, domain.ErrUploadNotFound) {
			t.Errorf("expected ErrUploadNotFound after discard, got %v", err)
		}
	})
}
