// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package results

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bias-explainer/pkg/types"
)

func TestLoad(t *testing.T) {
	path := writeFile(t, t.TempDir(), "all.json",
		`{"gpt-4.1": {"bias": 0.125, "converged": true}, "o3": {"bias": -0.5, "converged": false}}`)

	set, err := Load(types.SourceBiasAll, path)
	require.NoError(t, err)

	assert.Equal(t, types.SourceBiasAll, set.Source)
	assert.Equal(t, path, set.Path)
	require.Len(t, set.Records, 2)

	m, ok := set.Lookup("gpt-4.1")
	require.True(t, ok)
	assert.Equal(t, 0.125, m["bias"])
	assert.Equal(t, true, m["converged"])

	_, ok = set.Lookup("absent")
	assert.False(t, ok)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
		kind error
	}{
		{"missing file", filepath.Join(dir, "absent.json"), ErrRead},
		{"directory", dir, ErrRead},
		{"malformed json", writeFile(t, dir, "bad.json", `{"gpt-4.1": {"bias": `), ErrParse},
		{"array instead of object", writeFile(t, dir, "array.json", `[1, 2, 3]`), ErrParse},
		{"null document", writeFile(t, dir, "null.json", `null`), ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := Load(types.SourceBiasControlled, tt.path)
			assert.Nil(t, set)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, types.SourceBiasControlled, le.Source)
			assert.Equal(t, tt.path, le.Path)
			assert.Contains(t, err.Error(), tt.path)
		})
	}
}

func TestLoadErrorUnwrapsToIOError(t *testing.T) {
	_, err := Load(types.SourceBiasAll, filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NotErrorIs(t, err, ErrParse)
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	inputs := types.InputsConfig{
		BiasAll:        writeFile(t, dir, "all.json", `{"a": {"bias": 1}}`),
		BiasDiffered:   writeFile(t, dir, "differed.json", `{}`),
		BiasControlled: writeFile(t, dir, "controlled.json", `{"a": {"bias": 0.5}}`),
	}

	sets, err := LoadAll(inputs, types.Sources)
	require.NoError(t, err)
	require.Len(t, sets, 3)
	assert.Empty(t, sets[types.SourceBiasDiffered].Records)
	assert.Equal(t, 0.5, sets[types.SourceBiasControlled].Records["a"]["bias"])

	t.Run("only requested sources", func(t *testing.T) {
		sets, err := LoadAll(inputs, []types.Source{types.SourceBiasAll})
		require.NoError(t, err)
		assert.Len(t, sets, 1)
	})

	t.Run("stops at first failure", func(t *testing.T) {
		broken := inputs
		broken.BiasDiffered = filepath.Join(dir, "absent.json")
		broken.BiasControlled = writeFile(t, dir, "bad.json", `nope`)

		_, err := LoadAll(broken, types.Sources)
		assert.ErrorIs(t, err, ErrRead)
	})

	t.Run("unconfigured path", func(t *testing.T) {
		_, err := LoadAll(types.InputsConfig{}, []types.Source{types.SourceBiasAll})
		assert.ErrorContains(t, err, "no input path configured")
	})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
