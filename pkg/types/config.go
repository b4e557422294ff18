// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Default input paths, relative to the working directory.
const (
	DefaultBiasAllPath        = "data/alphabetisation_bias_all_converged.json"
	DefaultBiasDifferedPath   = "data/alphabetisation_bias_differed_in_control.json"
	DefaultBiasControlledPath = "data/bias_controlled_results.json"
	DefaultOutputPath         = "data/minimal_dataset.json"
	DefaultIndexDir           = "data/index"
	DefaultPrecision          = 4
)

// StdoutPath as an output path writes the artifact to standard output.
const StdoutPath = "-"

// InputsConfig names the three result files read by the extractor.
type InputsConfig struct {
	// BiasAll is the path to the all-converged bias results.
	BiasAll string `json:"bias_all" yaml:"bias_all"`

	// BiasDiffered is the path to the differed-in-control results.
	BiasDiffered string `json:"bias_differed" yaml:"bias_differed"`

	// BiasControlled is the path to the controlled results.
	BiasControlled string `json:"bias_controlled" yaml:"bias_controlled"`
}

// Path returns the configured path for src, or "" for an unknown source.
func (c InputsConfig) Path(src Source) string {
	switch src {
	case SourceBiasAll:
		return c.BiasAll
	case SourceBiasDiffered:
		return c.BiasDiffered
	case SourceBiasControlled:
		return c.BiasControlled
	}
	return ""
}

// DefaultInputs returns the input paths the research data ships with.
func DefaultInputs() InputsConfig {
	return InputsConfig{
		BiasAll:        DefaultBiasAllPath,
		BiasDiffered:   DefaultBiasDifferedPath,
		BiasControlled: DefaultBiasControlledPath,
	}
}

// OutputFormat selects how the MinimalDataset is serialised.
type OutputFormat string

const (
	FormatJSON   OutputFormat = "json"
	FormatYAML   OutputFormat = "yaml"
	FormatModule OutputFormat = "module"
)

// MissingPolicy decides what happens when a view names a model that a
// required source does not contain.
type MissingPolicy string

const (
	// MissingFail aborts the extraction and reports every gap.
	MissingFail MissingPolicy = "fail"

	// MissingSkip drops the entry and logs a warning.
	MissingSkip MissingPolicy = "skip"
)

// OutputConfig holds where and how the artifact is written.
type OutputConfig struct {
	// Path is the artifact path; "-" writes to standard output.
	Path string `json:"path" yaml:"path"`

	// Format is json, yaml, or module.
	Format OutputFormat `json:"format" yaml:"format"`
}

// ExtractionConfig holds settings for one extraction run.
type ExtractionConfig struct {
	Inputs InputsConfig `json:"inputs" yaml:"inputs"`
	Output OutputConfig `json:"output" yaml:"output"`

	// Precision is the number of decimal places float metrics are rounded
	// to. Negative disables rounding.
	Precision int `json:"precision" yaml:"precision"`

	// OnMissing is the policy for identifiers absent from a required source.
	OnMissing MissingPolicy `json:"on_missing" yaml:"on_missing"`

	// ViewsFile optionally replaces the built-in views with a YAML file.
	ViewsFile string `json:"views_file,omitempty" yaml:"views_file,omitempty"`
}

// DefaultExtractionConfig returns the configuration that reproduces the
// no-argument behaviour of the extractor.
func DefaultExtractionConfig() ExtractionConfig {
	return ExtractionConfig{
		Inputs: DefaultInputs(),
		Output: OutputConfig{
			Path:   DefaultOutputPath,
			Format: FormatJSON,
		},
		Precision: DefaultPrecision,
		OnMissing: MissingFail,
	}
}

// IndexConfig holds settings for the SQLite result index.
type IndexConfig struct {
	// IndexDir is the directory holding results.db.
	IndexDir string `json:"index_dir" yaml:"index_dir"`

	// MaxResults limits query output (default 200).
	MaxResults int `json:"max_results" yaml:"max_results"`
}
