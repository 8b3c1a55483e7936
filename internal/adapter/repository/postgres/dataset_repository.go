package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/V4T54L/rootscope/internal/domain"
)

// Schema creates the tables DatasetRepository reads from.
const Schema = `
CREATE TABLE IF NOT EXISTS site_records (
	id          BIGSERIAL PRIMARY KEY,
	source      TEXT NOT NULL,
	created     TIMESTAMPTZ NOT NULL,
	country     TEXT,
	identifiers TEXT[] NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS site_records_source_idx ON site_records (source, id);

CREATE TABLE IF NOT EXISTS first_seen (
	identifier TEXT PRIMARY KEY,
	first_seen DATE NOT NULL
);
`

// Timestamps are rendered in the same textual formats the JSON documents use so that
// both backends go through one parser.
const (
	selectSitesQuery = `
		SELECT source,
		       to_char(created AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'),
		       COALESCE(country, ''),
		       identifiers
		FROM site_records
		ORDER BY source, id`

	selectFirstSeenQuery = `SELECT identifier, to_char(first_seen, 'YYYY-MM-DD') FROM first_seen`
)

// DatasetRepository implements domain.DatasetSource for PostgreSQL.
type DatasetRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDatasetRepository creates a new PostgreSQL dataset repository.
func NewDatasetRepository(db *sql.DB, logger *slog.Logger) *DatasetRepository {
	return &DatasetRepository{db: db, logger: logger.With("component", "postgres_dataset_repository")}
}

// EnsureSchema creates the dataset tables if they do not exist.
func (r *DatasetRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create dataset schema: %w", err)
	}
	return nil
}

// LoadSources groups site rows by source, preserving insertion order within a source.
func (r *DatasetRepository) LoadSources(ctx context.Context) ([]domain.SourceDocument, error) {
	rows, err := r.db.QueryContext(ctx, selectSitesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query site records: %w", err)
	}
	defer rows.Close()

	var docs []domain.SourceDocument
	for rows.Next() {
		var (
			source string
			site   domain.RawSite
		)
		if err := rows.Scan(&source, &site.Created, &site.Country, pq.Array(&site.Identifiers)); err != nil {
			return nil, fmt.Errorf("failed to scan site record: %w", err)
		}
		if n := len(docs); n == 0 || docs[n-1].Source != source {
			docs = append(docs, domain.SourceDocument{Source: source})
		}
		docs[len(docs)-1].Sites = append(docs[len(docs)-1].Sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate site records: %w", err)
	}

	r.logger.Info("loaded source documents", "sources", len(docs))
	return docs, nil
}

// LoadFirstSeen reads the reference identifier -> date mapping.
func (r *DatasetRepository) LoadFirstSeen(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, selectFirstSeenQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query first-seen: %w", err)
	}
	defer rows.Close()

	raw := make(map[string]string)
	for rows.Next() {
		var id, date string
		if err := rows.Scan(&id, &date); err != nil {
			return nil, fmt.Errorf("failed to scan first-seen row: %w", err)
		}
		raw[id] = date
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate first-seen rows: %w", err)
	}

	r.logger.Info("loaded first-seen dataset", "identifiers", len(raw))
	return raw, nil
}

// ImportSources bulk-loads documents with COPY, replacing any existing rows for the same sources.
func (r *DatasetRepository) ImportSources(ctx context.Context, docs []domain.SourceDocument) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback() // Rollback is a no-op if Commit() is called

	for _, doc := range docs {
		if _, err := txn.ExecContext(ctx, `DELETE FROM site_records WHERE source = $1`, doc.Source); err != nil {
			return fmt.Errorf("failed to clear source %s: %w", doc.Source, err)
		}
	}

	stmt, err := txn.PrepareContext(ctx, pq.CopyIn("site_records", "source", "created", "country", "identifiers"))
	if err != nil {
		return err
	}
	for _, doc := range docs {
		for _, site := range doc.Sites {
			var country any
			if site.Country != "" {
				country = site.Country
			}
			ids := site.Identifiers
			if ids == nil {
				ids = []string{}
			}
			if _, err := stmt.ExecContext(ctx, doc.Source, site.Created, country, pq.Array(ids)); err != nil {
				_ = stmt.Close()
				return err
			}
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return err
	}
	if err := stmt.Close(); err != nil {
		return err
	}

	return txn.Commit()
}

// ImportFirstSeen upserts the reference mapping.
func (r *DatasetRepository) ImportFirstSeen(ctx context.Context, raw map[string]string) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	for id, date := range raw {
		_, err := txn.ExecContext(ctx, `
			INSERT INTO first_seen (identifier, first_seen) VALUES ($1, $2)
			ON CONFLICT (identifier) DO UPDATE SET first_seen = EXCLUDED.first_seen`, id, date)
		if err != nil {
			return fmt.Errorf("failed to upsert first-seen %s: %w", id, err)
		}
	}
	return txn.Commit()
}
