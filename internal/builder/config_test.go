package builder

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(basedir string) ConfigEnv {
	return ConfigEnv{
		TargetOS:   "linux",
		TargetArch: "amd64",
		Environ:    map[string]string{"QJIT_OPT": "3"},
		basedir:    basedir,
	}
}

func TestParseManifest(t *testing.T) {
	src := `
[library]
name = "calc"
output = "out/{{ target_os }}"

[toolchain]
tool = "gmake"
cflags = ["-O{{ environ.QJIT_OPT }}"]

[toolchain.vars]
CC = "cc"

[toolchain.'target_os == "linux"']
cflags = ["-pthread"]
vars = { OBJCOPY = "llvm-objcopy" }

[toolchain.'target_os == "darwin"']
tool = "bsdmake"

[[unit]]
name = "calc0"
variant = ".c"
code = "int m[2][2] = {{1,2},{3,4}}; int calc0(void) { return 42; }"
symbols = [{ name = "calc0", description = "answer", declaration = "int calc0(void);" }]

[[unit]]
name = "calc1"
code = "int calc1(void) { return 1; }"
tag = "second"
symbols = [{ name = "calc1" }]
`
	m, err := ParseManifest(strings.NewReader(src), testEnv("/proj"))
	require.NoError(t, err)

	assert.Equal(t, "calc", m.Library.Name)
	assert.Equal(t, filepath.Join("/proj", "out", "linux"), m.OutputDir())
	assert.Equal(t, "gmake", m.Toolchain.Tool)
	assert.Equal(t, []string{"-O3", "-pthread"}, m.Toolchain.Cflags)
	assert.Equal(t, map[string]string{"CC": "cc", "OBJCOPY": "llvm-objcopy"}, m.Toolchain.Vars)

	units, err := m.SourceUnits()
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "calc0.c", units[0].Filename())
	assert.Contains(t, units[0].Code, "{{1,2},{3,4}}")
	assert.Equal(t, []Symbol{{Name: "calc0", Description: "answer", Declaration: "int calc0(void);"}}, units[0].Symbols)
	assert.Equal(t, "calc1", units[1].BaseName)
	assert.Empty(t, units[1].Variant)
	assert.Equal(t, "second", units[1].Tag)
}

func TestParseManifestRequires(t *testing.T) {
	_, err := ParseManifest(strings.NewReader(`
[library]
name = "mac_only"
requires = 'target_os == "darwin"'
`), testEnv("/proj"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be built here")

	_, err = ParseManifest(strings.NewReader(`
[library]
requires = 'target_arch == "amd64"'
`), testEnv("/proj"))
	assert.NoError(t, err)
}

func TestParseManifestSyntaxError(t *testing.T) {
	_, err := ParseManifest(strings.NewReader("[library\nname="), testEnv("/proj"))
	assert.Error(t, err)
}

func TestManifestDefaults(t *testing.T) {
	m, err := ParseManifest(strings.NewReader(""), testEnv("/proj"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/proj", "build", "jit"), m.OutputDir())

	r, err := m.Recipe()
	require.NoError(t, err)
	assert.Equal(t, "builtin", r.Name)

	runner := m.Runner()
	assert.Equal(t, DefaultBuildTool, runner.Tool)
	assert.Equal(t, DefaultVerboseFlag, runner.VerboseFlag)
}

func TestManifestRunnerEnv(t *testing.T) {
	m := &Manifest{Toolchain: ToolchainSection{
		Tool:     "gmake",
		Cflags:   []string{"-O3", "-g"},
		Cxxflags: []string{"-std=c++17"},
		Vars:     map[string]string{"CC": "clang", "CXX": "clang++", "AR": "llvm-ar", "OBJCOPY": "llvm-objcopy", "NM": "llvm-nm"},
	}}
	r := m.Runner()
	assert.Equal(t, "gmake", r.Tool)
	assert.Equal(t, []string{"AR=llvm-ar", "CC=clang", "CFLAGS=-O3 -g", "CXX=clang++", "CXXFLAGS=-std=c++17", "NM=llvm-nm", "OBJCOPY=llvm-objcopy"}, r.EnvPrefix)
}

func TestManifestSourceAndGlobUnits(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "gen", "simd"), 0o755))
	files := map[string]string{
		"src/calc0.c":        "int calc0(void) { return 42; }\n",
		"gen/add.c":          "int add(void) { return 1; }\n",
		"gen/simd/mul-x86.c": "int mul(void) { return 2; }\n",
		"gen/notes.txt":      "ignored",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	manifest := `
[library]
name = "mixed"

[[unit]]
source = "src/calc0.c"
comment = "hand written"
symbols = [{ name = "calc0" }]

[[unit]]
glob = "gen/**/*.c"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFilename), []byte(manifest), 0o644))

	m, err := ParseManifestFromFile(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, m.BaseDir())

	units, err := m.SourceUnits()
	require.NoError(t, err)
	require.Len(t, units, 3)

	assert.Equal(t, "calc0.c", units[0].Filename())
	assert.Equal(t, "hand written", units[0].Comment)
	assert.Equal(t, "src/calc0.c", units[0].Tag)
	assert.Equal(t, files["src/calc0.c"], units[0].Code)

	assert.Equal(t, "add", units[1].BaseName)
	assert.Equal(t, ".c", units[1].Variant)
	assert.Equal(t, []string{"add"}, units[1].SymbolNames())

	assert.Equal(t, "mul", units[2].BaseName)
	assert.Equal(t, "-x86.c", units[2].Variant)
}

func TestManifestGlobErrors(t *testing.T) {
	m := &Manifest{basedir: t.TempDir(), Units: []UnitSection{{Glob: "*.c"}}}
	_, err := m.SourceUnits()
	assert.ErrorContains(t, err, "matched no files")

	m.Units = []UnitSection{{Glob: "*.c", Symbols: []SymbolSection{{Name: "x"}}}}
	_, err = m.SourceUnits()
	assert.ErrorContains(t, err, "cannot list symbols")
}

func TestSplitVariant(t *testing.T) {
	tests := []struct{ in, base, variant string }{
		{"calc.c", "calc", ".c"},
		{"calc-x86.cpp", "calc", "-x86.cpp"},
		{"blob.S", "blob", ".S"},
		{"odd.xyz", "odd", ".xyz"},
	}
	for _, tt := range tests {
		base, variant := splitVariant(tt.in)
		assert.Equal(t, tt.base, base, tt.in)
		assert.Equal(t, tt.variant, variant, tt.in)
	}
}

func TestNewConfigEnv(t *testing.T) {
	t.Setenv("QJIT_TEST_VAR", "a=b")
	env := NewConfigEnv("/x")
	assert.Equal(t, runtime.GOOS, env.TargetOS)
	assert.Equal(t, runtime.GOARCH, env.TargetArch)
	assert.Equal(t, "a=b", env.Environ["QJIT_TEST_VAR"])
}

func TestManifestCustomRecipe(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cross.mk"), []byte("# cross rules\n"), 0o644))

	m, err := ParseManifest(strings.NewReader("[toolchain]\nrecipe = \"cross.mk\"\n"), testEnv(dir))
	require.NoError(t, err)
	r, err := m.Recipe()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cross.mk"), r.Name)
	assert.Equal(t, "# cross rules\n", r.Text)

	m.Toolchain.Recipe = "missing.mk"
	_, err = m.Recipe()
	assert.ErrorContains(t, err, "failed to read build recipe")
}
