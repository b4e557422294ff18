// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bias-explainer/pkg/types"
)

const moduleHeader = "// Code generated by bias-explainer extract. DO NOT EDIT.\n"

// Encode serialises ds in the requested format. The same dataset always
// encodes to the same bytes.
func Encode(ds types.MinimalDataset, format types.OutputFormat) ([]byte, error) {
	switch format {
	case types.FormatJSON, "":
		data, err := json.MarshalIndent(ds, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling JSON: %w", err)
		}
		return append(data, '\n'), nil
	case types.FormatYAML:
		data, err := yaml.Marshal(ds)
		if err != nil {
			return nil, fmt.Errorf("marshaling YAML: %w", err)
		}
		return data, nil
	case types.FormatModule:
		return encodeModule(ds)
	default:
		return nil, fmt.Errorf("unsupported format %q: use json, yaml, or module", format)
	}
}

// encodeModule writes one exported constant per sequence so the front end
// can import the views by name.
func encodeModule(ds types.MinimalDataset) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(moduleHeader)
	for _, s := range ds.Sequences {
		entries := s.Entries
		if entries == nil {
			entries = []types.Entry{}
		}
		body, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling %s: %w", s.Name, err)
		}
		fmt.Fprintf(&buf, "\nexport const %s = %s;\n", s.Name, body)
	}
	return buf.Bytes(), nil
}
