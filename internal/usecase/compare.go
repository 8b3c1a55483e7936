package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/rootscope/internal/dataset"
	"github.com/V4T54L/rootscope/internal/domain"
)

const allFoundMessage = "All uploaded identifiers exist in the first-seen dataset."

// BuildComparisonTable joins every (record, identifier) pair whose identifier is registered.
// Rows follow record order, then identifier order within a record.
func BuildComparisonTable(records []domain.SiteRecord, registry *dataset.Registry) []domain.ComparisonRow {
	var rows []domain.ComparisonRow
	for _, r := range records {
		created := dataset.CivilDate(r.CreatedAt)
		for _, id := range r.Identifiers {
			firstSeen, ok := registry.Lookup(id)
			if !ok {
				continue
			}
			delta := dataset.DaysBetween(created, firstSeen)
			rows = append(rows, domain.ComparisonRow{
				Identifier:  id,
				Country:     domain.DisplayCountry(r.Country),
				RootCreated: created,
				FirstSeen:   firstSeen,
				DeltaDays:   delta,
				AgeCategory: domain.CategorizeDelta(delta),
				Source:      r.Source,
			})
		}
	}
	return rows
}

// CompareUseCase answers membership queries against the precomputed comparison table and
// keeps uploaded datasets under per-upload tokens.
type CompareUseCase struct {
	rows      []domain.ComparisonRow
	covered   map[string]struct{}
	uploads   domain.UploadRepository
	uploadTTL time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewCompareUseCase precomputes the comparison table from the snapshot.
func NewCompareUseCase(snap *dataset.Snapshot, uploads domain.UploadRepository, uploadTTL time.Duration, logger *slog.Logger) *CompareUseCase {
	rows := BuildComparisonTable(snap.Records(), snap.Registry())
	covered := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		covered[row.Identifier] = struct{}{}
	}

	return &CompareUseCase{
		rows:      rows,
		covered:   covered,
		uploads:   uploads,
		uploadTTL: uploadTTL,
		logger:    logger.With("component", "compare"),
		now:       time.Now,
	}
}

// Rows returns the precomputed table. It must not be modified.
func (uc *CompareUseCase) Rows() []domain.ComparisonRow {
	return uc.rows
}

// Compare returns the rows whose identifier was uploaded, ordered by delta, and the uploaded
// identifiers that no row covers. An identifier present in the registry but attached to no
// site is reported missing.
func (uc *CompareUseCase) Compare(identifiers []string) *domain.ComparisonResult {
	wanted := toSet(identifiers)

	matched := make([]domain.ComparisonRow, 0)
	for _, row := range uc.rows {
		if _, ok := wanted[row.Identifier]; ok {
			matched = append(matched, row)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.DeltaDays != b.DeltaDays {
			return a.DeltaDays < b.DeltaDays
		}
		if a.Identifier != b.Identifier {
			return a.Identifier < b.Identifier
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Country < b.Country
	})

	missing := make([]string, 0)
	for id := range wanted {
		if _, ok := uc.covered[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)

	result := &domain.ComparisonResult{
		Matched:  matched,
		Missing:  missing,
		AllFound: len(missing) == 0,
	}
	if result.AllFound {
		result.Message = allFoundMessage
	} else {
		result.Message = fmt.Sprintf("%d uploaded identifiers not found in the first-seen dataset.", len(missing))
	}
	return result
}

// Upload stores a parsed table under a fresh token and returns it.
func (uc *CompareUseCase) Upload(ctx context.Context, filename string, columns []string, rows [][]string) (*domain.UploadedDataset, error) {
	ds := domain.UploadedDataset{
		Token:      uuid.NewString(),
		Filename:   filename,
		Columns:    columns,
		Rows:       rows,
		UploadedAt: uc.now().UTC(),
	}

	if err := uc.uploads.Save(ctx, ds, uc.uploadTTL); err != nil {
		uc.logger.Error("failed to store upload", "error", err, "token", ds.Token)
		return nil, fmt.Errorf("store upload: %w", err)
	}

	uc.logger.Info("stored upload", "token", ds.Token, "filename", filename, "columns", len(columns), "rows", len(rows))
	return &ds, nil
}

// CompareUpload compares the values of column in the dataset stored under token.
// An empty or unknown column yields an empty result rather than an error.
func (uc *CompareUseCase) CompareUpload(ctx context.Context, token, column string) (*domain.ComparisonResult, error) {
	ds, err := uc.uploads.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	return uc.CompareDataset(ds, column), nil
}

// CompareDataset compares the values of column in ds without storing anything.
func (uc *CompareUseCase) CompareDataset(ds *domain.UploadedDataset, column string) *domain.ComparisonResult {
	if column == "" {
		return emptyComparison()
	}
	values := ds.ColumnValues(column)
	if values == nil {
		uc.logger.Debug("comparison column not found", "column", column, "token", ds.Token)
		return emptyComparison()
	}
	return uc.Compare(values)
}

// DiscardUpload forgets the dataset stored under token.
func (uc *CompareUseCase) DiscardUpload(ctx context.Context, token string) error {
	return uc.uploads.Delete(ctx, token)
}

func emptyComparison() *domain.ComparisonResult {
	return &domain.ComparisonResult{
		Matched: []domain.ComparisonRow{},
		Missing: []string{},
	}
}
