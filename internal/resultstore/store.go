// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resultstore indexes raw bias result files in SQLite so individual
// models and list coverage can be inspected without re-reading the JSON.
package resultstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/bias-explainer/internal/results"
	"github.com/pdiddy/bias-explainer/pkg/types"
)

const dbFile = "results.db"

// Value kinds stored in the metrics table.
const (
	kindNumber = "number"
	kindBool   = "bool"
	kindJSON   = "json"
)

// Store manages the result index database.
type Store struct {
	db         *sql.DB
	indexDir   string
	maxResults int
	logger     *zap.Logger
}

// NewStore opens or creates the result index at indexDir/results.db and
// creates the schema if it does not exist.
func NewStore(cfg types.IndexConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	indexDir := cfg.IndexDir
	if indexDir == "" {
		indexDir = types.DefaultIndexDir
	}
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(indexDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 200
	}

	s := &Store{
		db:         db,
		indexDir:   indexDir,
		maxResults: maxResults,
		logger:     logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sources (
			name TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			file_mod_time TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS models (
			source TEXT NOT NULL REFERENCES sources(name) ON DELETE CASCADE,
			model_id TEXT NOT NULL,
			PRIMARY KEY (source, model_id)
		)`,
		`CREATE TABLE IF NOT EXISTS metrics (
			source TEXT NOT NULL,
			model_id TEXT NOT NULL,
			metric TEXT NOT NULL,
			kind TEXT NOT NULL,
			num REAL,
			flag INTEGER,
			raw TEXT,
			PRIMARY KEY (source, model_id, metric),
			FOREIGN KEY (source, model_id) REFERENCES models(source, model_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_metrics_model_id ON metrics(model_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// IngestSummary holds counts from one indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of sources processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest loads every configured source and replaces its rows in the index.
// Sources whose file modification time matches the last run are skipped. A
// failing source is reported on w and counted; the others still index.
func (s *Store) Ingest(ctx context.Context, inputs types.InputsConfig, w io.Writer) (IngestSummary, error) {
	var summary IngestSummary

	for _, src := range types.Sources {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		path := inputs.Path(src)
		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", src, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedPath, storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT path, file_mod_time FROM sources WHERE name = ?`, string(src),
		).Scan(&storedPath, &storedModTime)

		if err == nil && storedPath == path && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", src)
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		set, err := results.Load(src, path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", src, err)
			summary.Failed++
			continue
		}

		if err := s.ingestSource(ctx, set, modTime); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", src, err)
			summary.Failed++
			continue
		}

		s.logger.Debug("indexed result source",
			zap.String("source", string(src)),
			zap.Int("models", len(set.Records)),
			zap.Bool("update", isUpdate))

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d models)\n", src, len(set.Records))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexed %s (%d models)\n", src, len(set.Records))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	return summary, nil
}

func (s *Store) ingestSource(ctx context.Context, set *types.ResultSet, modTime string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	src := string(set.Source)
	if _, err := tx.ExecContext(ctx, `DELETE FROM metrics WHERE source = ?`, src); err != nil {
		return fmt.Errorf("deleting old metrics: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM models WHERE source = ?`, src); err != nil {
		return fmt.Errorf("deleting old models: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sources (name, path, file_mod_time) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET path=excluded.path, file_mod_time=excluded.file_mod_time`,
		src, set.Path, modTime,
	)
	if err != nil {
		return fmt.Errorf("upserting source: %w", err)
	}

	modelStmt, err := tx.PrepareContext(ctx, `INSERT INTO models (source, model_id) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing model insert: %w", err)
	}
	defer modelStmt.Close()

	metricStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO metrics (source, model_id, metric, kind, num, flag, raw)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing metric insert: %w", err)
	}
	defer metricStmt.Close()

	for modelID, metrics := range set.Records {
		if _, err := modelStmt.ExecContext(ctx, src, modelID); err != nil {
			return fmt.Errorf("inserting model %s: %w", modelID, err)
		}
		for name, value := range metrics {
			kind, num, flag, raw, err := encodeValue(value)
			if err != nil {
				return fmt.Errorf("encoding %s.%s: %w", modelID, name, err)
			}
			if _, err := metricStmt.ExecContext(ctx, src, modelID, name, kind, num, flag, raw); err != nil {
				return fmt.Errorf("inserting metric %s.%s: %w", modelID, name, err)
			}
		}
	}

	return tx.Commit()
}

// encodeValue splits a decoded JSON value into the typed metric columns.
func encodeValue(v any) (kind string, num sql.NullFloat64, flag sql.NullBool, raw sql.NullString, err error) {
	switch x := v.(type) {
	case float64:
		return kindNumber, sql.NullFloat64{Float64: x, Valid: true}, flag, raw, nil
	case bool:
		return kindBool, num, sql.NullBool{Bool: x, Valid: true}, raw, nil
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return "", num, flag, raw, err
		}
		return kindJSON, num, flag, sql.NullString{String: string(data), Valid: true}, nil
	}
}

// decodeValue is the inverse of encodeValue.
func decodeValue(kind string, num sql.NullFloat64, flag sql.NullBool, raw sql.NullString) (any, error) {
	switch kind {
	case kindNumber:
		return num.Float64, nil
	case kindBool:
		return flag.Bool, nil
	default:
		var v any
		if err := json.Unmarshal([]byte(raw.String), &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
