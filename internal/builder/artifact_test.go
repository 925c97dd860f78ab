package builder

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireToolchain skips tests that need make, a C compiler and a dynamic loader
func requireToolchain(t *testing.T) *Runner {
	t.Helper()
	switch runtime.GOOS {
	case "linux", "darwin", "freebsd":
	default:
		t.Skipf("dynamic loading unsupported on %s", runtime.GOOS)
	}
	if _, err := exec.LookPath("make"); err != nil {
		t.Skip("make not found")
	}
	if findTool("CC") == "" {
		t.Skip("no C compiler found")
	}
	vars := make(map[string]string)
	discoverTools(vars)
	env := make([]string, 0, len(vars))
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	return NewRunner(env...)
}

func buildPlan(t *testing.T, name string, units ...*SourceUnit) *Plan {
	t.Helper()
	r := requireToolchain(t)
	p := newTestPlan(t, units...)
	require.NoError(t, p.Prepare(name, t.TempDir()))
	require.NoError(t, r.Build(p))
	return p
}

func TestOpenCallsFunction(t *testing.T) {
	p := buildPlan(t, "calc",
		&SourceUnit{
			BaseName: "calc0",
			Variant:  ".c",
			Code:     "int calc0(void) { return 42; }\n",
			Symbols:  []Symbol{{Name: "calc0", Declaration: "int calc0(void);"}},
			Tag:      "answer",
		},
	)
	assert.FileExists(t, p.SharedObjectPath())
	assert.FileExists(t, p.ScriptPath()+".log")

	a, err := p.Open()
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, StateOpened, p.State())

	var calc0 func() int32
	require.NoError(t, a.Bind("calc0", &calc0))
	assert.Equal(t, int32(42), calc0())

	assert.Equal(t, []string{"calc0"}, a.Names())
	units := a.Units()
	require.Len(t, units, 1)
	assert.Equal(t, "answer", units[0].Tag)
	assert.Equal(t, p.Units()[0].Path(), units[0].Path)
	assert.Equal(t, []string{"calc0"}, units[0].Names)

	_, err = a.Lookup("calc1")
	assert.ErrorIs(t, err, ErrSymbolNotFound)

	_, err = p.Open()
	assert.ErrorIs(t, err, ErrInvalidState, "a plan opens once")
}

func TestOpenDeduplicatedUnits(t *testing.T) {
	code := "int dup(void) { return 1; }\n"
	p := buildPlan(t, "dup", unit("dup", ".c", code, "dup"), unit("dup", ".c", code, "dup"))
	require.Equal(t, 1, p.Len())

	a, err := p.Open()
	require.NoError(t, err)
	defer a.Close()

	syms := a.Symbols()
	require.Len(t, syms, 1)
	assert.NotZero(t, syms["dup"])

	var dup func() int32
	require.NoError(t, a.Bind("dup", &dup))
	assert.Equal(t, int32(1), dup())
}

func TestOpenSymbolCompleteness(t *testing.T) {
	if findTool("CXX") == "" {
		t.Skip("no C++ compiler found")
	}
	p := buildPlan(t, "multi",
		unit("one", ".c", "int one(void) { return 1; }\nint uno(void) { return 1; }\n", "one", "uno"),
		unit("two", ".c", "int two(void) { return 2; }\n", "two"),
		unit("three", ".cpp", "extern \"C\" int three(void) { return 3; }\n", "three"),
	)
	a, err := p.Open()
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{"one", "three", "two", "uno"}, a.Names())
	for name, addr := range a.Symbols() {
		assert.NotZero(t, addr, name)
	}
	assert.Len(t, a.Units(), 3)
}

func TestOpenCollectsAllSymbolErrors(t *testing.T) {
	p := buildPlan(t, "broken",
		unit("a", ".c", "int f(void) { return 1; }\n", "f", "missing_a"),
		unit("b", ".c", "int g(void) { return 2; }\n", "g", "f", "missing_b"),
	)
	_, err := p.Open()
	require.ErrorIs(t, err, ErrSymbolResolution)
	var se *SymbolErrors
	require.ErrorAs(t, err, &se)
	assert.Len(t, se.Details, 3)
	assert.Contains(t, se.Details[1], `duplicate symbol "f"`)
	assert.Equal(t, StateBuilt, p.State())
}

func TestOpenAltObject(t *testing.T) {
	if runtime.GOARCH != "amd64" || runtime.GOOS != "linux" {
		t.Skip("x86 variant needs linux/amd64")
	}
	for _, tool := range []string{"objcopy", "nm"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not found", tool)
		}
	}
	p := buildPlan(t, "simd",
		unit("kern", "-x86.c", "int scale = 6;\nint helper(int x) { return x + 1; }\nint kern(void) { return helper(scale); }\n", "kern"),
		unit("glue", ".c", "extern int alt_kern(void);\nint glue(void) { return alt_kern(); }\n", "glue"),
	)
	a, err := p.Open()
	require.NoError(t, err)
	defer a.Close()

	var kern, glue func() int32
	require.NoError(t, a.Bind("kern", &kern))
	require.NoError(t, a.Bind("glue", &glue))
	assert.Equal(t, int32(7), kern())
	assert.Equal(t, int32(7), glue())

	syms, err := os.ReadFile(filepath.Join(p.Dir(), "kern_alt-x86.o.syms"))
	require.NoError(t, err)
	assert.Contains(t, string(syms), "helper alt_helper\n")
	assert.Contains(t, string(syms), "scale alt_scale\n")
	assert.NotContains(t, string(syms), "kern alt_kern", "declared symbols come from the rename table")
}

func TestOpenRequiresBuilt(t *testing.T) {
	p := preparedPlan(t)
	_, err := p.Open()
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestOpenUnreadableArtifact(t *testing.T) {
	p := preparedPlan(t)
	p.state = StateBuilt
	_, err := p.Open()
	require.ErrorIs(t, err, ErrArtifactUnreadable)
	var ae *ArtifactError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, p.SharedObjectPath(), ae.Path)
}

func TestOpenRejectsGarbage(t *testing.T) {
	p := preparedPlan(t)
	require.NoError(t, os.WriteFile(p.SharedObjectPath(), []byte("definitely not a shared object"), 0o644))
	p.state = StateBuilt
	_, err := p.Open()
	assert.ErrorIs(t, err, ErrDynamicLoadFailed)
}

func TestArtifactClose(t *testing.T) {
	p := buildPlan(t, "closeme", unit("c", ".c", "int c(void) { return 3; }\n", "c"))
	a, err := p.Open()
	require.NoError(t, err)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	_, err = a.Lookup("c")
	assert.ErrorIs(t, err, ErrClosed)
}
