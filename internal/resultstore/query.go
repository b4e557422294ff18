// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resultstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pdiddy/bias-explainer/internal/modelids"
	"github.com/pdiddy/bias-explainer/pkg/types"
)

// MetricRow is one indexed metric value.
type MetricRow struct {
	Source  types.Source `json:"source" yaml:"source"`
	ModelID string       `json:"model_id" yaml:"model_id"`
	Metric  string       `json:"metric" yaml:"metric"`
	Value   any          `json:"value" yaml:"value"`
}

// Lookup returns every metric indexed for modelID, ordered by source load
// order then metric name.
func (s *Store) Lookup(ctx context.Context, modelID string) ([]MetricRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, model_id, metric, kind, num, flag, raw
		 FROM metrics
		 WHERE model_id = ?
		 ORDER BY CASE source
		 	WHEN ? THEN 0 WHEN ? THEN 1 WHEN ? THEN 2 ELSE 3 END, metric
		 LIMIT ?`,
		modelID,
		string(types.SourceBiasAll), string(types.SourceBiasDiffered), string(types.SourceBiasControlled),
		s.maxResults,
	)
	if err != nil {
		return nil, fmt.Errorf("querying metrics: %w", err)
	}
	defer rows.Close()

	var out []MetricRow
	for rows.Next() {
		var (
			r    MetricRow
			src  string
			kind string
			num  sql.NullFloat64
			flag sql.NullBool
			raw  sql.NullString
		)
		if err := rows.Scan(&src, &r.ModelID, &r.Metric, &kind, &num, &flag, &raw); err != nil {
			return nil, fmt.Errorf("scanning metric: %w", err)
		}
		r.Source = types.Source(src)
		if r.Value, err = decodeValue(kind, num, flag, raw); err != nil {
			return nil, fmt.Errorf("decoding %s.%s: %w", r.ModelID, r.Metric, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Models lists the model identifiers indexed for src in sorted order.
func (s *Store) Models(ctx context.Context, src types.Source) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT model_id FROM models WHERE source = ? ORDER BY model_id`, string(src))
	if err != nil {
		return nil, fmt.Errorf("querying models: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning model: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Absence is a view identifier missing from one indexed source.
type Absence struct {
	View     string       `json:"view" yaml:"view"`
	ModelID  string       `json:"model_id" yaml:"model_id"`
	Source   types.Source `json:"source" yaml:"source"`
	Optional bool         `json:"optional" yaml:"optional"`
}

// Coverage reports, in list order, every identifier of v absent from one of
// the sources v reads.
func (s *Store) Coverage(ctx context.Context, v modelids.View) ([]Absence, error) {
	stmt, err := s.db.PrepareContext(ctx,
		`SELECT count(*) FROM models WHERE source = ? AND model_id = ?`)
	if err != nil {
		return nil, fmt.Errorf("preparing coverage query: %w", err)
	}
	defer stmt.Close()

	var out []Absence
	for _, id := range v.List.IDs {
		for _, ref := range v.Sources {
			var n int
			if err := stmt.QueryRowContext(ctx, string(ref.Source), id).Scan(&n); err != nil {
				return nil, fmt.Errorf("checking %s in %s: %w", id, ref.Source, err)
			}
			if n == 0 {
				out = append(out, Absence{View: v.Name(), ModelID: id, Source: ref.Source, Optional: ref.Optional})
			}
		}
	}
	return out, nil
}

// Indexed reports whether src has been ingested.
func (s *Store) Indexed(ctx context.Context, src types.Source) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sources WHERE name = ?`, string(src)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking source %s: %w", src, err)
	}
	return n > 0, nil
}
