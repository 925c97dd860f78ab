package builder

import (
	"os"
	"os/exec"
)

// recipeTools lists the tool variables the build recipe reads and the
// executables probed for each, in order of preference
var recipeTools = []struct {
	envVar     string
	candidates []string
}{
	{"CC", []string{"cc", "clang", "gcc", "icx", "icc", "tcc"}},
	{"CXX", []string{"c++", "clang++", "g++", "icpx", "icpc"}},
	{"AR", []string{"ar", "llvm-ar", "gcc-ar"}},
	{"OBJCOPY", []string{"objcopy", "llvm-objcopy", "gobjcopy"}},
	{"NM", []string{"nm", "llvm-nm", "gnm"}},
}

// findTool returns the executable for a recipe tool variable. The environment
// variable of the same name wins over anything on PATH; "" means nothing was found.
func findTool(envVar string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	for _, t := range recipeTools {
		if t.envVar != envVar {
			continue
		}
		for _, candidate := range t.candidates {
			if path, err := exec.LookPath(candidate); err == nil {
				return path
			}
		}
	}
	return ""
}

// discoverTools fills in every recipe tool variable vars does not already set
func discoverTools(vars map[string]string) {
	for _, t := range recipeTools {
		if _, ok := vars[t.envVar]; ok {
			continue
		}
		if path := findTool(t.envVar); path != "" {
			vars[t.envVar] = path
		}
	}
}
