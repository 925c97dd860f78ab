package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/qobs-build/qjit/internal/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumValue(t *testing.T) {
	e := NewEnumValue(builder.StageOpen, map[builder.Stage]string{
		builder.StagePrepare: "",
		builder.StageBuild:   "",
		builder.StageOpen:    "default",
	})
	assert.Equal(t, builder.StageOpen, e.Value())
	assert.Equal(t, "[build, open, prepare]", e.HelpString())

	require.NoError(t, e.Set("build"))
	assert.Equal(t, "build", e.String())
	assert.ErrorContains(t, e.Set("link"), "must be one of: build, open, prepare")

	items, _ := e.CompletionFunc()(nil, nil, "")
	assert.Equal(t, []string{"build", "open\tdefault", "prepare"}, items)
	items, _ = e.CompletionFunc()(nil, nil, "p")
	assert.Equal(t, []string{"prepare"}, items)
}

func TestNewEnumValueBadDefault(t *testing.T) {
	assert.Panics(t, func() { NewEnumValue("x", map[string]string{"y": ""}) })
}

func TestLoadManifestsRejectsSharedOutput(t *testing.T) {
	root := t.TempDir()
	manifest := "[library]\nname = \"calc\"\noutput = \"" + filepath.ToSlash(filepath.Join(root, "shared")) + "\"\n"
	for _, d := range []string{"a", "b"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, d, "qjit.toml"), []byte(manifest), 0o644))
	}

	_, err := loadManifests([]string{filepath.Join(root, "a"), filepath.Join(root, "b")})
	assert.ErrorContains(t, err, "both build into")

	ms, err := loadManifests([]string{filepath.Join(root, "a")})
	require.NoError(t, err)
	assert.Len(t, ms, 1)
}

func TestInitIn(t *testing.T) {
	dir := t.TempDir()
	initIn(dir, "demo")
	assert.FileExists(t, filepath.Join(dir, "qjit.toml"))
	assert.FileExists(t, filepath.Join(dir, "src", "answer.c"))

	ms, err := loadManifests([]string{dir})
	require.NoError(t, err)
	units, err := ms[0].SourceUnits()
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "answer.c", units[0].Filename())
	assert.Equal(t, "scale.c", units[1].Filename())
}
