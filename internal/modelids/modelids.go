// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package modelids defines the named model-identifier lists that select which
// result records reach the display dataset, and the views that pair each list
// with the result sources it reads.
package modelids

import (
	"errors"
	"fmt"

	"github.com/pdiddy/bias-explainer/pkg/types"
)

// View and list names consumed by the presentational layer.
const (
	DemoName         = "demoModelIds"
	AllName          = "allModelIds"
	FinalSummaryName = "finalSummaryModelIds"
	AdditiveName     = "additiveModelIds"
)

// ErrInvalidView is returned by Validate and LoadViews for malformed views.
var ErrInvalidView = errors.New("invalid view")

// List is a named, ordered sequence of model identifiers.
type List struct {
	Name string
	IDs  []string
}

// Len returns the number of identifiers in the list.
func (l List) Len() int { return len(l.IDs) }

// SourceRef names a source a view reads. Metrics from the source are merged
// into each entry with Prefix prepended to their keys. An Optional source may
// lack a model without that being a gap.
type SourceRef struct {
	Source   types.Source `yaml:"source"`
	Prefix   string       `yaml:"prefix,omitempty"`
	Optional bool         `yaml:"optional,omitempty"`
}

// View pairs a List with the sources its entries are built from. The first
// source is the primary one and must not be optional. Fields, when set,
// restricts each entry to those metric keys (after prefixing).
type View struct {
	List    List
	Sources []SourceRef
	Fields  []string
}

// Name returns the view's list name.
func (v View) Name() string { return v.List.Name }

var demoIDs = []string{
	"gpt-4.1",
	"claude-sonnet-4.5",
	"gemini-2.5-flash",
}

var allIDs = []string{
	"gpt-4.1",
	"gpt-4.1-mini",
	"gpt-5",
	"gpt-5-mini",
	"o3",
	"o4-mini",
	"claude-opus-4.1",
	"claude-sonnet-4.5",
	"claude-sonnet-4.5-thinking",
	"claude-haiku-4.5",
	"claude-haiku-4.5-thinking",
	"gemini-2.5-pro",
	"gemini-2.5-flash",
	"grok-4",
	"deepseek-v3.2-exp",
	"deepseek-v3.2-exp-thinking",
	"qwen3-235b-a22b",
	"kimi-k2",
	"llama-4-maverick",
}

var additiveIDs = []string{
	"gpt-4.1",
	"gpt-5-mini",
	"claude-haiku-4.5",
	"gemini-2.5-flash",
	"deepseek-v3.2-exp",
}

// SummaryExclusions are the identifiers dropped from allModelIds to form
// finalSummaryModelIds.
var SummaryExclusions = []string{
	"claude-haiku-4.5-thinking",
	"deepseek-v3.2-exp-thinking",
}

// Demo returns a copy of the demo list.
func Demo() List { return List{Name: DemoName, IDs: clone(demoIDs)} }

// All returns a copy of the full list.
func All() List { return List{Name: AllName, IDs: clone(allIDs)} }

// Additive returns a copy of the additive-effect list.
func Additive() List { return List{Name: AdditiveName, IDs: clone(additiveIDs)} }

// FinalSummary returns All with SummaryExclusions removed.
func FinalSummary() List {
	return Difference(FinalSummaryName, All(), SummaryExclusions)
}

// Default returns the four views the explainer renders, in output order.
func Default() []View {
	biasWithControl := []SourceRef{
		{Source: types.SourceBiasAll},
		{Source: types.SourceBiasControlled, Prefix: "control_", Optional: true},
	}
	biasWithDiffered := []SourceRef{
		{Source: types.SourceBiasAll},
		{Source: types.SourceBiasDiffered, Prefix: "differed_", Optional: true},
		{Source: types.SourceBiasControlled, Prefix: "control_", Optional: true},
	}
	return []View{
		{List: Demo(), Sources: biasWithControl},
		{List: All(), Sources: biasWithDiffered},
		{List: FinalSummary(), Sources: cloneRefs(biasWithDiffered)},
		{List: Additive(), Sources: []SourceRef{
			{Source: types.SourceBiasControlled},
			{Source: types.SourceBiasAll, Prefix: "raw_", Optional: true},
		}},
	}
}

// Difference returns a list named name holding the identifiers of base that
// are not in exclude, in base order. Duplicates in base are kept.
func Difference(name string, base List, exclude []string) List {
	drop := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		drop[id] = struct{}{}
	}
	out := make([]string, 0, len(base.IDs))
	for _, id := range base.IDs {
		if _, ok := drop[id]; ok {
			continue
		}
		out = append(out, id)
	}
	return List{Name: name, IDs: out}
}

// Validate checks a set of views for empty or duplicate names, duplicate
// identifiers within a list, unknown sources, and optional primary sources.
func Validate(views []View) error {
	if len(views) == 0 {
		return fmt.Errorf("%w: no views defined", ErrInvalidView)
	}
	names := make(map[string]bool, len(views))
	for i, v := range views {
		if v.Name() == "" {
			return fmt.Errorf("%w: view %d has no name", ErrInvalidView, i)
		}
		if names[v.Name()] {
			return fmt.Errorf("%w: duplicate view name %q", ErrInvalidView, v.Name())
		}
		names[v.Name()] = true

		seen := make(map[string]bool, len(v.List.IDs))
		for _, id := range v.List.IDs {
			if id == "" {
				return fmt.Errorf("%w: %s contains an empty identifier", ErrInvalidView, v.Name())
			}
			if seen[id] {
				return fmt.Errorf("%w: %s lists %q twice", ErrInvalidView, v.Name(), id)
			}
			seen[id] = true
		}

		if len(v.Sources) == 0 {
			return fmt.Errorf("%w: %s reads no sources", ErrInvalidView, v.Name())
		}
		if v.Sources[0].Optional {
			return fmt.Errorf("%w: %s primary source %s is optional", ErrInvalidView, v.Name(), v.Sources[0].Source)
		}
		for _, ref := range v.Sources {
			if !ref.Source.Valid() {
				return fmt.Errorf("%w: %s reads unknown source %q", ErrInvalidView, v.Name(), ref.Source)
			}
		}
	}
	return nil
}

// SourcesUsed returns the distinct sources the views read, in the order of
// types.Sources.
func SourcesUsed(views []View) []types.Source {
	used := make(map[types.Source]bool)
	for _, v := range views {
		for _, ref := range v.Sources {
			used[ref.Source] = true
		}
	}
	var out []types.Source
	for _, src := range types.Sources {
		if used[src] {
			out = append(out, src)
		}
	}
	return out
}

func clone(ids []string) []string {
	return append([]string(nil), ids...)
}

func cloneRefs(refs []SourceRef) []SourceRef {
	return append([]SourceRef(nil), refs...)
}
