// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Source names one of the raw experiment-result files the extractor reads.
type Source string

const (
	// SourceBiasAll holds bias metrics for every model whose trials converged.
	SourceBiasAll Source = "bias_all"

	// SourceBiasDiffered holds the models whose behaviour changed under the
	// control condition.
	SourceBiasDiffered Source = "bias_differed"

	// SourceBiasControlled holds the bias metrics measured with the control
	// condition applied.
	SourceBiasControlled Source = "bias_controlled"
)

// Sources lists every known Source in load order.
var Sources = []Source{SourceBiasAll, SourceBiasDiffered, SourceBiasControlled}

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	for _, known := range Sources {
		if s == known {
			return true
		}
	}
	return false
}

// Metrics maps a metric name to its value as decoded from JSON: float64 for
// numbers, bool for flags. Other JSON values pass through untouched.
type Metrics map[string]any

// ResultSet is one parsed result file: model identifier to Metrics.
// It is not modified after loading.
type ResultSet struct {
	// Source names the file this set was read from.
	Source Source `json:"source" yaml:"source"`

	// Path is the filesystem path the set was read from.
	Path string `json:"path" yaml:"path"`

	// Records maps model identifier to its metrics.
	Records map[string]Metrics `json:"records" yaml:"records"`
}

// Lookup returns the metrics for modelID and whether the model is present.
func (r *ResultSet) Lookup(modelID string) (Metrics, bool) {
	if r == nil {
		return nil, false
	}
	m, ok := r.Records[modelID]
	return m, ok
}
