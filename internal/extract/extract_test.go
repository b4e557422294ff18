// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bias-explainer/internal/modelids"
	"github.com/pdiddy/bias-explainer/internal/results"
	"github.com/pdiddy/bias-explainer/pkg/types"
)

// --- test helpers ---

const (
	fixtureAll        = `{"a": {"bias": 0.1}, "b": {"bias": 0.2}, "c": {"bias": 0.3}}`
	fixtureDiffered   = `{"b": {"diverged": true}}`
	fixtureControlled = `{"a": {"bias": 0.05}, "c": {"bias": 0.123456789}}`
)

func writeInputs(t *testing.T, dir string) types.InputsConfig {
	t.Helper()
	inputs := types.InputsConfig{
		BiasAll:        filepath.Join(dir, "all.json"),
		BiasDiffered:   filepath.Join(dir, "differed.json"),
		BiasControlled: filepath.Join(dir, "controlled.json"),
	}
	writeFile(t, inputs.BiasAll, fixtureAll)
	writeFile(t, inputs.BiasDiffered, fixtureDiffered)
	writeFile(t, inputs.BiasControlled, fixtureControlled)
	return inputs
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testConfig(t *testing.T) types.ExtractionConfig {
	t.Helper()
	dir := t.TempDir()
	cfg := types.DefaultExtractionConfig()
	cfg.Inputs = writeInputs(t, dir)
	cfg.Output.Path = filepath.Join(dir, "out", "minimal.json")
	return cfg
}

// fixtureViews mirrors the shape of the real views on a three-model dataset.
func fixtureViews() []modelids.View {
	all := modelids.List{Name: "all", IDs: []string{"a", "b", "c"}}
	primary := []modelids.SourceRef{{Source: types.SourceBiasAll}}
	return []modelids.View{
		{List: all, Sources: primary},
		{List: modelids.Difference("finalSummary", all, []string{"b"}), Sources: primary},
	}
}

func entry(id string, kv ...any) types.Entry {
	m := make(types.Metrics)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return types.Entry{ID: id, Metrics: m}
}

func loadSets(t *testing.T, cfg types.ExtractionConfig) results.Sets {
	t.Helper()
	sets, err := results.LoadAll(cfg.Inputs, types.Sources)
	require.NoError(t, err)
	return sets
}

// --- build tests ---

func TestBuildFinalSummaryFixture(t *testing.T) {
	cfg := testConfig(t)
	ds, summaries, err := Build(fixtureViews(), loadSets(t, cfg), BuildOptions{Precision: 4})
	require.NoError(t, err)

	want := types.MinimalDataset{Sequences: []types.Sequence{
		{Name: "all", Entries: []types.Entry{
			entry("a", "bias", 0.1), entry("b", "bias", 0.2), entry("c", "bias", 0.3),
		}},
		{Name: "finalSummary", Entries: []types.Entry{
			entry("a", "bias", 0.1), entry("c", "bias", 0.3),
		}},
	}}
	if diff := cmp.Diff(want, ds); diff != "" {
		t.Errorf("dataset mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []ViewSummary{
		{Name: "all", Listed: 3, Written: 3},
		{Name: "finalSummary", Listed: 2, Written: 2},
	}, summaries)
}

func TestBuildFollowsListOrder(t *testing.T) {
	cfg := testConfig(t)
	views := []modelids.View{{
		List:    modelids.List{Name: "reversed", IDs: []string{"c", "a", "b"}},
		Sources: []modelids.SourceRef{{Source: types.SourceBiasAll}},
	}}

	ds, _, err := Build(views, loadSets(t, cfg), BuildOptions{Precision: 4})
	require.NoError(t, err)

	seq, ok := ds.Sequence("reversed")
	require.True(t, ok)
	require.Len(t, seq.Entries, 3)
	ids := []string{seq.Entries[0].ID, seq.Entries[1].ID, seq.Entries[2].ID}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestBuildMergesSecondarySources(t *testing.T) {
	cfg := testConfig(t)
	views := []modelids.View{{
		List: modelids.List{Name: "merged", IDs: []string{"a", "b"}},
		Sources: []modelids.SourceRef{
			{Source: types.SourceBiasAll},
			{Source: types.SourceBiasDiffered, Prefix: "differed_", Optional: true},
			{Source: types.SourceBiasControlled, Prefix: "control_", Optional: true},
		},
	}}

	ds, _, err := Build(views, loadSets(t, cfg), BuildOptions{Precision: 2})
	require.NoError(t, err)

	want := []types.Entry{
		entry("a", "bias", 0.1, "control_bias", 0.05),
		entry("b", "bias", 0.2, "differed_diverged", true),
	}
	if diff := cmp.Diff(want, ds.Sequences[0].Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildProjectsFields(t *testing.T) {
	cfg := testConfig(t)
	views := []modelids.View{{
		List: modelids.List{Name: "projected", IDs: []string{"a"}},
		Sources: []modelids.SourceRef{
			{Source: types.SourceBiasAll},
			{Source: types.SourceBiasControlled, Prefix: "control_"},
		},
		Fields: []string{"control_bias", "not_present"},
	}}

	ds, _, err := Build(views, loadSets(t, cfg), BuildOptions{Precision: 4})
	require.NoError(t, err)
	assert.Equal(t, types.Metrics{"control_bias": 0.05}, ds.Sequences[0].Entries[0].Metrics)
}

func TestBuildMissingModel(t *testing.T) {
	cfg := testConfig(t)
	views := []modelids.View{{
		List: modelids.List{Name: "controlled", IDs: []string{"a", "b", "z"}},
		Sources: []modelids.SourceRef{
			{Source: types.SourceBiasControlled},
			{Source: types.SourceBiasAll, Prefix: "raw_"},
		},
	}}
	sets := loadSets(t, cfg)

	t.Run("fail reports every gap", func(t *testing.T) {
		_, _, err := Build(views, sets, BuildOptions{Precision: 4, OnMissing: types.MissingFail})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingModel)

		var me *MissingError
		require.ErrorAs(t, err, &me)
		assert.Equal(t, []Gap{
			{View: "controlled", ModelID: "b", Source: types.SourceBiasControlled},
			{View: "controlled", ModelID: "z", Source: types.SourceBiasControlled},
			{View: "controlled", ModelID: "z", Source: types.SourceBiasAll},
		}, me.Gaps)
		assert.Contains(t, err.Error(), "controlled: z not in bias_all")
	})

	t.Run("empty policy fails", func(t *testing.T) {
		_, _, err := Build(views, sets, BuildOptions{Precision: 4})
		assert.ErrorIs(t, err, ErrMissingModel)
	})

	t.Run("skip drops the entry", func(t *testing.T) {
		ds, summaries, err := Build(views, sets, BuildOptions{
			Precision: 4,
			OnMissing: types.MissingSkip,
			Logger:    zap.NewNop(),
		})
		require.NoError(t, err)
		require.Len(t, ds.Sequences[0].Entries, 1)
		assert.Equal(t, "a", ds.Sequences[0].Entries[0].ID)
		assert.Equal(t, ViewSummary{Name: "controlled", Listed: 3, Written: 1, Skipped: 2}, summaries[0])
	})
}

func TestBuildUnloadedSource(t *testing.T) {
	views := fixtureViews()
	_, _, err := Build(views, results.Sets{}, BuildOptions{})
	assert.ErrorContains(t, err, "was not loaded")
}

func TestRoundValue(t *testing.T) {
	tests := []struct {
		name      string
		in        any
		precision int
		want      any
	}{
		{"rounds to precision", 0.12346, 4, 0.1235},
		{"keeps short values", 0.1, 4, 0.1},
		{"negative precision disables", 0.123456789, -1, 0.123456789},
		{"zero precision", 2.5, 0, 3.0},
		{"no negative zero", -0.00001, 2, 0.0},
		{"bools untouched", true, 2, true},
		{"strings untouched", "n/a", 2, "n/a"},
		{"nested objects", map[string]any{"x": 1.23456}, 2, map[string]any{"x": 1.23}},
		{"arrays", []any{1.005, 2.0}, 1, []any{1.0, 2.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, roundValue(tt.in, tt.precision))
		})
	}
}

// --- encode tests ---

func TestEncodeJSON(t *testing.T) {
	ds := types.MinimalDataset{Sequences: []types.Sequence{
		{Name: "finalSummary", Entries: []types.Entry{
			entry("a", "bias", 0.1), entry("c", "bias", 0.3, "converged", true),
		}},
		{Name: "empty"},
	}}

	data, err := Encode(ds, types.FormatJSON)
	require.NoError(t, err)

	want := `{
  "finalSummary": [
    {
      "id": "a",
      "bias": 0.1
    },
    {
      "id": "c",
      "bias": 0.3,
      "converged": true
    }
  ],
  "empty": []
}
`
	assert.Equal(t, want, string(data))
}

func TestEncodeYAML(t *testing.T) {
	ds := types.MinimalDataset{Sequences: []types.Sequence{
		{Name: "zeta", Entries: []types.Entry{entry("a", "bias", 0.1)}},
		{Name: "alpha", Entries: []types.Entry{entry("b", "flag", false)}},
	}}

	data, err := Encode(ds, types.FormatYAML)
	require.NoError(t, err)

	text := string(data)
	assert.Less(t, strings.Index(text, "zeta:"), strings.Index(text, "alpha:"), "sequence order must follow the dataset")

	var decoded map[string][]map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, "a", decoded["zeta"][0]["id"])
	assert.Equal(t, 0.1, decoded["zeta"][0]["bias"])
	assert.Equal(t, false, decoded["alpha"][0]["flag"])
}

func TestEncodeModule(t *testing.T) {
	ds := types.MinimalDataset{Sequences: []types.Sequence{
		{Name: "demoModelIds", Entries: []types.Entry{entry("a", "bias", 0.1)}},
		{Name: "additiveModelIds"},
	}}

	data, err := Encode(ds, types.FormatModule)
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.HasPrefix(text, moduleHeader))
	assert.Contains(t, text, "export const demoModelIds = [\n  {\n    \"id\": \"a\",\n    \"bias\": 0.1\n  }\n];\n")
	assert.Contains(t, text, "export const additiveModelIds = [];\n")
}

func TestEncodeUnsupportedFormat(t *testing.T) {
	_, err := Encode(types.MinimalDataset{}, "csv")
	assert.ErrorContains(t, err, "unsupported format")
}

// --- run tests ---

func TestRunWritesArtifact(t *testing.T) {
	cfg := testConfig(t)

	summary, err := Run(context.Background(), cfg, fixtureViews(), Options{Logger: zap.NewNop()})
	require.NoError(t, err)
	assert.Equal(t, cfg.Output.Path, summary.Path)
	assert.Equal(t, 5, summary.Entries())
	assert.Zero(t, summary.Skipped())

	data, err := os.ReadFile(cfg.Output.Path)
	require.NoError(t, err)
	assert.Equal(t, summary.Bytes, len(data))

	var ds types.MinimalDataset
	require.NoError(t, json.Unmarshal(data, &ds))
	require.Len(t, ds.Sequences, 2)
	assert.Equal(t, "all", ds.Sequences[0].Name)
	assert.Equal(t, "finalSummary", ds.Sequences[1].Name)
	assert.Len(t, ds.Sequences[1].Entries, 2)

	entries, err := os.ReadDir(filepath.Dir(cfg.Output.Path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestRunIsDeterministic(t *testing.T) {
	cfg := testConfig(t)
	views := modelids.Default()
	// The real views over a fixture that holds every default model.
	writeDefaultFixture(t, cfg.Inputs)

	for _, format := range []types.OutputFormat{types.FormatJSON, types.FormatYAML, types.FormatModule} {
		t.Run(string(format), func(t *testing.T) {
			cfg.Output.Format = format

			_, err := Run(context.Background(), cfg, views, Options{})
			require.NoError(t, err)
			first, err := os.ReadFile(cfg.Output.Path)
			require.NoError(t, err)

			_, err = Run(context.Background(), cfg, views, Options{})
			require.NoError(t, err)
			second, err := os.ReadFile(cfg.Output.Path)
			require.NoError(t, err)

			assert.Equal(t, first, second)
		})
	}
}

func TestRunDefaultViewsLengthAndOrder(t *testing.T) {
	cfg := testConfig(t)
	writeDefaultFixture(t, cfg.Inputs)
	views := modelids.Default()

	_, err := Run(context.Background(), cfg, views, Options{})
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Output.Path)
	require.NoError(t, err)
	var ds types.MinimalDataset
	require.NoError(t, json.Unmarshal(data, &ds))

	require.Len(t, ds.Sequences, len(views))
	for i, v := range views {
		seq := ds.Sequences[i]
		assert.Equal(t, v.Name(), seq.Name)
		require.Len(t, seq.Entries, v.List.Len(), v.Name())
		for j, id := range v.List.IDs {
			assert.Equal(t, id, seq.Entries[j].ID)
		}
	}

	all, _ := ds.Sequence(modelids.AllName)
	summary, _ := ds.Sequence(modelids.FinalSummaryName)
	var remaining []types.Entry
	for _, e := range all.Entries {
		excluded := false
		for _, id := range modelids.SummaryExclusions {
			if e.ID == id {
				excluded = true
			}
		}
		if !excluded {
			remaining = append(remaining, e)
		}
	}
	if diff := cmp.Diff(remaining, summary.Entries); diff != "" {
		t.Errorf("summary is not all minus exclusions (-want +got):\n%s", diff)
	}
}

func TestRunStdout(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Path = types.StdoutPath

	var buf bytes.Buffer
	summary, err := Run(context.Background(), cfg, fixtureViews(), Options{Stdout: &buf})
	require.NoError(t, err)
	assert.Equal(t, types.StdoutPath, summary.Path)
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \"all\": ["))
}

func TestRunFailureLeavesNoArtifact(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(t *testing.T, cfg *types.ExtractionConfig)
		kind    error
	}{
		{"missing input file", func(t *testing.T, cfg *types.ExtractionConfig) {
			require.NoError(t, os.Remove(cfg.Inputs.BiasControlled))
		}, results.ErrRead},
		{"malformed input", func(t *testing.T, cfg *types.ExtractionConfig) {
			writeFile(t, cfg.Inputs.BiasDiffered, `{"b": `)
		}, results.ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.corrupt(t, &cfg)

			views := fixtureViews()
			views[0].Sources = append(views[0].Sources,
				modelids.SourceRef{Source: types.SourceBiasDiffered, Optional: true, Prefix: "d_"},
				modelids.SourceRef{Source: types.SourceBiasControlled, Optional: true, Prefix: "c_"})

			_, err := Run(context.Background(), cfg, views, Options{})
			assert.ErrorIs(t, err, tt.kind)

			_, statErr := os.Stat(filepath.Dir(cfg.Output.Path))
			assert.True(t, os.IsNotExist(statErr), "no output directory or artifact expected")
		})
	}

	t.Run("missing model keeps prior artifact", func(t *testing.T) {
		cfg := testConfig(t)
		require.NoError(t, os.MkdirAll(filepath.Dir(cfg.Output.Path), 0o755))
		writeFile(t, cfg.Output.Path, "previous")

		views := []modelids.View{{
			List:    modelids.List{Name: "gap", IDs: []string{"a", "z"}},
			Sources: []modelids.SourceRef{{Source: types.SourceBiasAll}},
		}}
		_, err := Run(context.Background(), cfg, views, Options{})
		assert.ErrorIs(t, err, ErrMissingModel)

		data, err := os.ReadFile(cfg.Output.Path)
		require.NoError(t, err)
		assert.Equal(t, "previous", string(data))
	})
}

func TestRunOverwritesPriorArtifact(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.Output.Path), 0o755))
	writeFile(t, cfg.Output.Path, strings.Repeat("stale ", 1000))

	summary, err := Run(context.Background(), cfg, fixtureViews(), Options{})
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Output.Path)
	require.NoError(t, err)
	assert.Len(t, data, summary.Bytes)
	assert.NotContains(t, string(data), "stale")
}

func TestRunInvalidViews(t *testing.T) {
	cfg := testConfig(t)
	_, err := Run(context.Background(), cfg, nil, Options{})
	assert.ErrorIs(t, err, modelids.ErrInvalidView)
}

func TestRunCanceled(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, cfg, fixtureViews(), Options{})
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(cfg.Output.Path)
	assert.True(t, os.IsNotExist(statErr))
}

// writeDefaultFixture fills the inputs with a record for every model the
// default views name.
func writeDefaultFixture(t *testing.T, inputs types.InputsConfig) {
	t.Helper()
	all := make(map[string]types.Metrics)
	controlled := make(map[string]types.Metrics)
	for i, id := range modelids.All().IDs {
		all[id] = types.Metrics{"bias": float64(i) / 7, "converged": i%2 == 0}
		controlled[id] = types.Metrics{"bias": float64(i) / 11}
	}
	differed := map[string]types.Metrics{"o3": {"diverged": true}}

	for path, v := range map[string]any{
		inputs.BiasAll:        all,
		inputs.BiasDiffered:   differed,
		inputs.BiasControlled: controlled,
	} {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		writeFile(t, path, string(data))
	}
}

func TestCoverage(t *testing.T) {
	cfg := testConfig(t)
	views := []modelids.View{{
		List: modelids.List{Name: "all", IDs: []string{"a", "b", "z"}},
		Sources: []modelids.SourceRef{
			{Source: types.SourceBiasAll},
			{Source: types.SourceBiasControlled, Prefix: "control_", Optional: true},
		},
	}}

	gaps := Coverage(views, loadSets(t, cfg))
	assert.Equal(t, []Gap{
		{View: "all", ModelID: "b", Source: types.SourceBiasControlled, Optional: true},
		{View: "all", ModelID: "z", Source: types.SourceBiasAll},
		{View: "all", ModelID: "z", Source: types.SourceBiasControlled, Optional: true},
	}, gaps)

	required := Required(gaps)
	require.Len(t, required, 1)
	assert.Equal(t, "all: z not in bias_all", required[0].String())
	assert.Equal(t, "all: b not in bias_controlled (optional)", gaps[0].String())
}
