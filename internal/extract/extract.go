// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns raw bias result files into the minimal display
// dataset: it loads the sources the views read, selects each view's models
// in list order, and writes one artifact.
package extract

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/pdiddy/bias-explainer/internal/modelids"
	"github.com/pdiddy/bias-explainer/internal/results"
	"github.com/pdiddy/bias-explainer/pkg/types"
)

// Options carries the collaborators of a run.
type Options struct {
	Logger *zap.Logger

	// Stdout receives the artifact when the output path is "-".
	// Defaults to os.Stdout.
	Stdout io.Writer
}

// Summary describes a completed run.
type Summary struct {
	Path  string
	Bytes int
	Views []ViewSummary
}

// Entries returns the number of entries written across all views.
func (s Summary) Entries() int {
	n := 0
	for _, v := range s.Views {
		n += v.Written
	}
	return n
}

// Skipped returns the number of entries dropped under the skip policy.
func (s Summary) Skipped() int {
	n := 0
	for _, v := range s.Views {
		n += v.Skipped
	}
	return n
}

// Dataset loads the sources that views read and builds the dataset without
// writing anything.
func Dataset(ctx context.Context, cfg types.ExtractionConfig, views []modelids.View, logger *zap.Logger) (types.MinimalDataset, []ViewSummary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := modelids.Validate(views); err != nil {
		return types.MinimalDataset{}, nil, err
	}

	sets, err := results.LoadAll(cfg.Inputs, modelids.SourcesUsed(views))
	if err != nil {
		return types.MinimalDataset{}, nil, err
	}
	for src, set := range sets {
		logger.Debug("loaded result source",
			zap.String("source", string(src)),
			zap.String("path", set.Path),
			zap.Int("models", len(set.Records)))
	}

	if err := ctx.Err(); err != nil {
		return types.MinimalDataset{}, nil, err
	}

	policy := cfg.OnMissing
	if policy == "" {
		policy = types.MissingFail
	}
	return Build(views, sets, BuildOptions{
		Precision: cfg.Precision,
		OnMissing: policy,
		Logger:    logger,
	})
}

// Run performs one extraction: load, build, encode, write. Either the whole
// artifact is written or nothing is.
func Run(ctx context.Context, cfg types.ExtractionConfig, views []modelids.View, opts Options) (Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	path := cfg.Output.Path
	if path == "" {
		path = types.DefaultOutputPath
	}

	ds, viewSummaries, err := Dataset(ctx, cfg, views, logger)
	if err != nil {
		return Summary{}, err
	}

	data, err := Encode(ds, cfg.Output.Format)
	if err != nil {
		return Summary{}, err
	}

	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	if err := writeArtifact(path, data, stdout); err != nil {
		return Summary{}, fmt.Errorf("writing %s: %w", path, err)
	}

	summary := Summary{Path: path, Bytes: len(data), Views: viewSummaries}
	logger.Info("extraction complete",
		zap.String("path", path),
		zap.Int("views", len(summary.Views)),
		zap.Int("entries", summary.Entries()),
		zap.Int("skipped", summary.Skipped()),
		zap.Int("bytes", summary.Bytes))
	return summary, nil
}
