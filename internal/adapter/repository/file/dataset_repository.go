package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/V4T54L/rootscope/internal/domain"
)

const maxParallelReads = 8

// DatasetRepository implements domain.DatasetSource over a directory of JSON files.
// Every *.json file except the first-seen file is one source, tagged with its filename.
type DatasetRepository struct {
	dir           string
	firstSeenFile string
	logger        *slog.Logger
}

// NewDatasetRepository creates a loader for dir. firstSeenFile is resolved relative to dir
// unless it is absolute.
func NewDatasetRepository(dir, firstSeenFile string, logger *slog.Logger) *DatasetRepository {
	return &DatasetRepository{
		dir:           dir,
		firstSeenFile: firstSeenFile,
		logger:        logger.With("component", "file_dataset_repository"),
	}
}

func (r *DatasetRepository) firstSeenPath() string {
	if filepath.IsAbs(r.firstSeenFile) {
		return r.firstSeenFile
	}
	return filepath.Join(r.dir, r.firstSeenFile)
}

// LoadSources reads every source document in the directory, in filename order.
func (r *DatasetRepository) LoadSources(ctx context.Context) ([]domain.SourceDocument, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data dir %s: %w", r.dir, err)
	}

	firstSeen := filepath.Clean(r.firstSeenPath())
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if filepath.Clean(filepath.Join(r.dir, e.Name())) == firstSeen {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	// Documents decode in parallel; each goroutine writes only its own slot.
	docs := make([]domain.SourceDocument, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var doc domain.SourceDocument
			if err := readJSON(filepath.Join(r.dir, name), &doc); err != nil {
				return err
			}
			doc.Source = name
			docs[i] = doc
			r.logger.Debug("loaded source document", "source", name, "sites", len(doc.Sites))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Info("loaded source documents", "dir", r.dir, "sources", len(docs))
	return docs, nil
}

// LoadFirstSeen reads the reference identifier -> date mapping.
func (r *DatasetRepository) LoadFirstSeen(ctx context.Context) (map[string]string, error) {
	raw := make(map[string]string)
	if err := readJSON(r.firstSeenPath(), &raw); err != nil {
		return nil, err
	}
	r.logger.Info("loaded first-seen dataset", "path", r.firstSeenPath(), "identifiers", len(raw))
	return raw, nil
}

func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
