// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/bias-explainer/internal/modelids"
	"github.com/pdiddy/bias-explainer/internal/results"
	"github.com/pdiddy/bias-explainer/pkg/types"
)

// ErrMissingModel marks a view naming a model its required source lacks.
var ErrMissingModel = errors.New("model missing from result source")

// Gap is one identifier absent from one source of a view.
type Gap struct {
	View     string
	ModelID  string
	Source   types.Source
	Optional bool
}

func (g Gap) String() string {
	if g.Optional {
		return fmt.Sprintf("%s: %s not in %s (optional)", g.View, g.ModelID, g.Source)
	}
	return fmt.Sprintf("%s: %s not in %s", g.View, g.ModelID, g.Source)
}

// Coverage lists every identifier of every view that is absent from one of
// the view's sources, required or optional, in view and list order.
func Coverage(views []modelids.View, sets results.Sets) []Gap {
	var gaps []Gap
	for _, v := range views {
		for _, id := range v.List.IDs {
			for _, ref := range v.Sources {
				if _, ok := sets[ref.Source].Lookup(id); ok {
					continue
				}
				gaps = append(gaps, Gap{View: v.Name(), ModelID: id, Source: ref.Source, Optional: ref.Optional})
			}
		}
	}
	return gaps
}

// Required filters gaps down to those in required sources.
func Required(gaps []Gap) []Gap {
	var out []Gap
	for _, g := range gaps {
		if !g.Optional {
			out = append(out, g)
		}
	}
	return out
}

// MissingError lists every gap found while building a dataset.
type MissingError struct {
	Gaps []Gap
}

func (e *MissingError) Error() string {
	parts := make([]string, len(e.Gaps))
	for i, g := range e.Gaps {
		parts[i] = g.String()
	}
	return fmt.Sprintf("%d model(s) missing from result sources: %s", len(e.Gaps), strings.Join(parts, "; "))
}

func (e *MissingError) Is(target error) bool { return target == ErrMissingModel }

// BuildOptions controls how entries are assembled.
type BuildOptions struct {
	// Precision is the number of decimal places floats are rounded to.
	// Negative disables rounding.
	Precision int

	// OnMissing decides between failing and skipping on a gap.
	OnMissing types.MissingPolicy

	Logger *zap.Logger
}

// ViewSummary counts what happened to one view.
type ViewSummary struct {
	Name    string
	Listed  int
	Written int
	Skipped int
}

// Build assembles one sequence per view from the loaded result sets. Each
// sequence follows its list's order. With MissingFail, any gap aborts the
// build with a *MissingError naming all of them.
func Build(views []modelids.View, sets results.Sets, opts BuildOptions) (types.MinimalDataset, []ViewSummary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		ds        types.MinimalDataset
		summaries []ViewSummary
		gaps      []Gap
	)

	for _, v := range views {
		for _, ref := range v.Sources {
			if _, ok := sets[ref.Source]; !ok {
				return types.MinimalDataset{}, nil, fmt.Errorf("view %s reads %s, which was not loaded", v.Name(), ref.Source)
			}
		}

		seq := types.Sequence{Name: v.Name(), Entries: make([]types.Entry, 0, v.List.Len())}
		sum := ViewSummary{Name: v.Name(), Listed: v.List.Len()}

		for _, id := range v.List.IDs {
			entry, missing := buildEntry(v, id, sets, opts.Precision, logger)
			if len(missing) > 0 {
				gaps = append(gaps, missing...)
				if opts.OnMissing == types.MissingSkip {
					for _, g := range missing {
						logger.Warn("skipping model missing from source",
							zap.String("view", g.View),
							zap.String("model", g.ModelID),
							zap.String("source", string(g.Source)))
					}
				}
				sum.Skipped++
				continue
			}
			seq.Entries = append(seq.Entries, entry)
			sum.Written++
		}

		ds.Sequences = append(ds.Sequences, seq)
		summaries = append(summaries, sum)
	}

	if len(gaps) > 0 && opts.OnMissing != types.MissingSkip {
		return types.MinimalDataset{}, nil, &MissingError{Gaps: gaps}
	}
	return ds, summaries, nil
}

// buildEntry merges the metrics of id from every source of v. It returns the
// gaps for required sources that lack id.
func buildEntry(v modelids.View, id string, sets results.Sets, precision int, logger *zap.Logger) (types.Entry, []Gap) {
	merged := make(types.Metrics)
	var gaps []Gap

	for _, ref := range v.Sources {
		m, ok := sets[ref.Source].Lookup(id)
		if !ok {
			if ref.Optional {
				logger.Debug("model absent from optional source",
					zap.String("view", v.Name()),
					zap.String("model", id),
					zap.String("source", string(ref.Source)))
				continue
			}
			gaps = append(gaps, Gap{View: v.Name(), ModelID: id, Source: ref.Source})
			continue
		}
		for k, val := range m {
			merged[ref.Prefix+k] = roundValue(val, precision)
		}
	}
	if len(gaps) > 0 {
		return types.Entry{}, gaps
	}

	if len(v.Fields) > 0 {
		projected := make(types.Metrics, len(v.Fields))
		for _, f := range v.Fields {
			if val, ok := merged[f]; ok {
				projected[f] = val
			}
		}
		merged = projected
	}

	return types.Entry{ID: id, Metrics: merged}, nil
}

// roundValue rounds floats to precision decimal places, descending into
// nested objects and arrays. Other values are returned unchanged.
func roundValue(val any, precision int) any {
	if precision < 0 {
		return val
	}
	switch x := val.(type) {
	case float64:
		return round(x, precision)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, nested := range x {
			out[k] = roundValue(nested, precision)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, nested := range x {
			out[i] = roundValue(nested, precision)
		}
		return out
	}
	return val
}

func round(x float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	scaled := x * scale
	if math.IsInf(scaled, 0) || math.IsNaN(scaled) {
		return x
	}
	r := math.Round(scaled) / scale
	if r == 0 {
		// Avoid emitting -0.
		return 0
	}
	return r
}
