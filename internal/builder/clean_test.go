package builder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	dir := t.TempDir()
	outputs := []string{
		"libcalc.so", "libcalc.a", "calc.mk", "calc.OBJECTS", "calc.h",
		"calc.mk.log", "calc.mk.log2", "calc0.o", "blob.bin", "blob.S.o",
		"k-x86.o", "k_alt-x86.o", "k_alt-x86.o.rename", "k_alt-x86.o.nm", "k_alt-x86.o.syms",
	}
	kept := []string{
		"calc0.c", "blob.S", "k-x86.c",
		// another library in the same directory
		"libother.so", "other.OBJECTS", "other0.o", "v_alt-x86.o", "v_alt-x86.o.rename",
	}
	for _, name := range append(outputs, kept...) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	objects := "calc0.o\nk-x86.o\nk_alt-x86.o\nblob.bin\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "calc.OBJECTS"), []byte(objects), 0o644))

	removed, err := Clean(dir, "calc")
	require.NoError(t, err)
	assert.Len(t, removed, len(outputs))

	for _, name := range outputs {
		assert.NoFileExists(t, filepath.Join(dir, name))
	}
	for _, name := range kept {
		assert.FileExists(t, filepath.Join(dir, name))
	}
}

func TestCleanWithoutObjectList(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"libcalc.so", "calc.mk", "stray.o"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	removed, err := Clean(dir, "calc")
	require.NoError(t, err)
	assert.Len(t, removed, 2)
	assert.FileExists(t, filepath.Join(dir, "stray.o"))
}

func TestCleanMissingDir(t *testing.T) {
	removed, err := Clean(filepath.Join(t.TempDir(), "nope"), "calc")
	require.NoError(t, err)
	assert.Empty(t, removed)
}
