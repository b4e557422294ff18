// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package results reads raw experiment-result files. Each file is a JSON
// object mapping model identifier to an object of metric fields.
package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/pdiddy/bias-explainer/pkg/types"
)

// Failure kinds reported by Load. Both are fatal to an extraction.
var (
	ErrRead  = errors.New("reading result file")
	ErrParse = errors.New("parsing result file")
)

// LoadError records which source failed and why. It matches ErrRead or
// ErrParse through errors.Is and unwraps to the underlying error.
type LoadError struct {
	Kind   error
	Source types.Source
	Path   string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%v %s (%s): %v", e.Kind, e.Path, e.Source, e.Err)
}

// Is reports whether target is the error's kind.
func (e *LoadError) Is(target error) bool { return target == e.Kind }

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads path and parses it as a result set for src.
func Load(src types.Source, path string) (*types.ResultSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Kind: ErrRead, Source: src, Path: path, Err: err}
	}

	var records map[string]types.Metrics
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &LoadError{Kind: ErrParse, Source: src, Path: path, Err: err}
	}
	if records == nil {
		// A literal null decodes without error but is not a mapping.
		return nil, &LoadError{Kind: ErrParse, Source: src, Path: path, Err: errors.New("top-level value is not an object")}
	}

	return &types.ResultSet{Source: src, Path: path, Records: records}, nil
}

// Sets holds the loaded result sets keyed by source.
type Sets map[types.Source]*types.ResultSet

// LoadAll loads each source in srcs, in order, from the paths in inputs. It
// stops at the first failure.
func LoadAll(inputs types.InputsConfig, srcs []types.Source) (Sets, error) {
	sets := make(Sets, len(srcs))
	for _, src := range srcs {
		path := inputs.Path(src)
		if path == "" {
			return nil, fmt.Errorf("no input path configured for %s", src)
		}
		set, err := Load(src, path)
		if err != nil {
			return nil, err
		}
		sets[src] = set
	}
	return sets, nil
}
