// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package modelids

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// ViewFile is the on-disk representation of a set of views. A view either
// lists its identifiers or derives them from an earlier view by exclusion.
type ViewFile struct {
	Views []ViewSpec `yaml:"views"`
}

// ViewSpec is one view as written in a views file.
type ViewSpec struct {
	Name    string      `yaml:"name"`
	IDs     []string    `yaml:"ids,omitempty"`
	Derive  *DeriveSpec `yaml:"derive,omitempty"`
	Sources []SourceRef `yaml:"sources,omitempty"`
	Fields  []string    `yaml:"fields,omitempty"`
}

// DeriveSpec builds a list as an earlier view's list minus Exclude.
// A derived view without sources inherits them from From.
type DeriveSpec struct {
	From    string   `yaml:"from"`
	Exclude []string `yaml:"exclude"`
}

// LoadViews reads a views file and resolves it into validated views.
func LoadViews(path string) ([]View, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading views file: %w", err)
	}
	var vf ViewFile
	if err := yaml.Unmarshal(data, &vf); err != nil {
		return nil, fmt.Errorf("parsing views file: %w", err)
	}
	views, err := vf.Resolve()
	if err != nil {
		return nil, fmt.Errorf("views file %s: %w", path, err)
	}
	return views, nil
}

// Resolve turns the specs into views, computing derived lists in file order.
func (vf ViewFile) Resolve() ([]View, error) {
	byName := make(map[string]View, len(vf.Views))
	views := make([]View, 0, len(vf.Views))

	for _, spec := range vf.Views {
		v := View{
			List:    List{Name: spec.Name, IDs: clone(spec.IDs)},
			Sources: cloneRefs(spec.Sources),
			Fields:  clone(spec.Fields),
		}

		if spec.Derive != nil {
			if len(spec.IDs) > 0 {
				return nil, fmt.Errorf("%w: %s has both ids and derive", ErrInvalidView, spec.Name)
			}
			base, ok := byName[spec.Derive.From]
			if !ok {
				return nil, fmt.Errorf("%w: %s derives from unknown or later view %q", ErrInvalidView, spec.Name, spec.Derive.From)
			}
			v.List = Difference(spec.Name, base.List, spec.Derive.Exclude)
			if len(v.Sources) == 0 {
				v.Sources = cloneRefs(base.Sources)
			}
			if len(v.Fields) == 0 {
				v.Fields = clone(base.Fields)
			}
		}

		byName[spec.Name] = v
		views = append(views, v)
	}

	if err := Validate(views); err != nil {
		return nil, err
	}
	return views, nil
}
