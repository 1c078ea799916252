package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func modelNames(models []Model) []string {
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name
	}
	return names
}

func TestFormatOf(t *testing.T) {
	tests := map[string]Format{
		"a.cue":  FormatCUE,
		"a.yaml": FormatYAML,
		"a.YML":  FormatYAML,
		"a.hcl":  FormatHCL,
	}
	for path, want := range tests {
		got, ok := FormatOf(path)
		assert.True(t, ok, path)
		assert.Equal(t, want, got, path)
	}
	_, ok := FormatOf("a.ini")
	assert.False(t, ok)
}

func TestLoadCUE(t *testing.T) {
	f, err := LoadFile("testdata/models.cue")
	require.NoError(t, err)

	assert.Equal(t, FormatCUE, f.Format)
	assert.Equal(t, []string{"CDR_base", "CDR_base!B", "LM_base"}, modelNames(f.Models))
	assert.Equal(t, "baseline with by-subject IRFs", f.Models[0].Description)
	assert.Equal(t, "y ~ C(A + B, DiracDelta())", f.Models[2].Formula)
	assert.Equal(t, "testdata/models.cue", f.Models[0].Source)
}

func TestLoadYAML(t *testing.T) {
	f, err := LoadFile("testdata/models.yaml")
	require.NoError(t, err)

	assert.Equal(t, []string{"DTSR_power", "CDR_tied"}, modelNames(f.Models))
	assert.Equal(t, "log(y) ~ C((A + B + C)**2, Gamma())", f.Models[0].Formula)
	assert.Equal(t, "shared response shape", f.Models[1].Description)
	assert.Equal(t, 2, f.Models[0].Line)
	assert.Equal(t, 4, f.Models[1].Line)
	assert.Equal(t, "testdata/models.yaml:4", f.Models[1].Pos())
}

func TestLoadHCL(t *testing.T) {
	f, err := LoadFile("testdata/models.hcl")
	require.NoError(t, err)

	assert.Equal(t, []string{"CDR_hcl", "CDR_plain"}, modelNames(f.Models))
	assert.Equal(t, "y ~ C(A + B, Normal(irf_id=N)) + (C(A, Normal()) | item)", f.Models[0].Formula)
	assert.Equal(t, "built from a local", f.Models[0].Description)
	assert.Equal(t, 5, f.Models[0].Line)
	assert.Empty(t, f.Models[1].Description)
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    error
	}{
		{"unknown extension", "models.ini", "[model_CDR]\n", ErrUnknownFormat},
		{"cue syntax", "bad.cue", "model: {", ErrInvalidConfig},
		{"cue unknown field", "bad.cue", `model: m: { formula: "y ~ C(A, Gamma())", formla: "x" }`, ErrInvalidConfig},
		{"cue non-string formula", "bad.cue", `model: m: { formula: 3 }`, ErrInvalidConfig},
		{"cue missing formula", "bad.cue", `model: m: { description: "x" }`, ErrInvalidConfig},
		{"yaml unknown top-level key", "bad.yaml", "model:\n  m:\n    formula: y ~ C(A, Gamma())\n", ErrInvalidConfig},
		{"yaml unknown model key", "bad.yaml", "models:\n  m:\n    formla: y ~ C(A, Gamma())\n", ErrInvalidConfig},
		{"yaml models not a map", "bad.yaml", "models: [a, b]\n", ErrInvalidConfig},
		{"hcl syntax", "bad.hcl", `model "m" {`, ErrInvalidConfig},
		{"hcl missing formula", "bad.hcl", `model "m" { description = "x" }`, ErrInvalidConfig},
		{"hcl unknown attribute", "bad.hcl", `model "m" { formula = "y ~ C(A, Gamma())" other = 1 }`, ErrInvalidConfig},
		{"hcl undefined local", "bad.hcl", `model "m" { formula = "y ~ ${local.nope}" }`, ErrInvalidConfig},
		{"hcl duplicate model", "bad.hcl", "model \"m\" {\n formula = \"a\"\n}\nmodel \"m\" {\n formula = \"b\"\n}\n", ErrDuplicateModel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.file, tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadEmptyFiles(t *testing.T) {
	for _, name := range []string{"empty.yaml", "empty.cue", "empty.hcl"} {
		f, err := LoadFile(writeConfig(t, name, ""))
		require.NoError(t, err, name)
		assert.Empty(t, f.Models, name)
	}
}

func TestDiscoverDirectory(t *testing.T) {
	paths, err := Discover([]string{"testdata"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join("testdata", "models.cue"),
		filepath.Join("testdata", "models.hcl"),
		filepath.Join("testdata", "models.yaml"),
		filepath.Join("testdata", "nested", "deeper", "more.yml"),
	}, paths)
}

func TestDiscoverGlobAndDedup(t *testing.T) {
	paths, err := Discover([]string{"testdata/models.yaml", "testdata/**/*.y*ml"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join("testdata", "models.yaml"),
		filepath.Join("testdata", "nested", "deeper", "more.yml"),
	}, paths)
}

func TestDiscoverErrors(t *testing.T) {
	_, err := Discover([]string{"testdata/missing.cue"})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Discover([]string{"testdata/**/*.toml"})
	assert.ErrorIs(t, err, ErrNoConfigs)

	_, err = Discover([]string{t.TempDir()})
	assert.ErrorIs(t, err, ErrNoConfigs)
}

func TestLoadAll(t *testing.T) {
	files, err := Load([]string{"testdata"})
	require.NoError(t, err)
	require.Len(t, files, 4)

	assert.Equal(t, []string{
		"CDR_base", "CDR_base!B", "LM_base",
		"CDR_hcl", "CDR_plain",
		"DTSR_power", "CDR_tied",
		"CDR_deep",
	}, modelNames(Models(files)))
}

func TestLoadRejectsDuplicatesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("models:\n  m:\n    formula: a\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.cue"), []byte(`model: m: formula: "b"`), 0644))

	_, err := Load([]string{dir})
	assert.ErrorIs(t, err, ErrDuplicateModel)
	assert.ErrorContains(t, err, "also defined at")
}
