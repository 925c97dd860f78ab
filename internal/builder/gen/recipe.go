package gen

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed recipe.mk
var defaultRecipe string

// Recipe is the build-tool text appended verbatim to every generated build script.
// It supplies the compile, archive and link rules; the generated header only declares
// names and dependencies.
type Recipe struct {
	Name string
	Text string
}

// DefaultRecipe returns the recipe shipped with qjit (GNU make, cc/c++, ar, objcopy)
func DefaultRecipe() Recipe {
	return Recipe{Name: "builtin", Text: defaultRecipe}
}

// LoadRecipe reads a custom recipe from disk
func LoadRecipe(path string) (Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Recipe{}, fmt.Errorf("failed to read build recipe: %w", err)
	}
	return Recipe{Name: path, Text: string(data)}, nil
}
