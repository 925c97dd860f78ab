package builder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/expr-lang/expr"
	"github.com/pelletier/go-toml/v2"
	"github.com/qobs-build/qjit/internal/builder/gen"
)

const ManifestFilename = "qjit.toml"

// Manifest describes a library to build from a qjit.toml file
type Manifest struct {
	Library   LibrarySection   `toml:"library"`
	Toolchain ToolchainSection `toml:"toolchain"`
	Units     []UnitSection    `toml:"unit"`

	basedir string
}

// LibrarySection defines the [library] section
type LibrarySection struct {
	Name     string `toml:"name"`
	Output   string `toml:"output"`
	Requires string `toml:"requires"`
}

// ToolchainSection defines the [toolchain(.*)] section
type ToolchainSection struct {
	Tool     string            `toml:"tool"`
	Recipe   string            `toml:"recipe"`
	Cflags   []string          `toml:"cflags"`
	Cxxflags []string          `toml:"cxxflags"`
	Vars     map[string]string `toml:"vars"`
}

// UnitSection defines one [[unit]] entry.
// Exactly one of Code, Source and Glob provides the text.
type UnitSection struct {
	Name    string          `toml:"name"`
	Variant string          `toml:"variant"`
	Comment string          `toml:"comment"`
	Code    string          `toml:"code"`
	Source  string          `toml:"source"`
	Glob    string          `toml:"glob"`
	Tag     string          `toml:"tag"`
	Symbols []SymbolSection `toml:"symbols"`
}

type SymbolSection struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Declaration string `toml:"declaration"`
}

// mergeStructs merges the fields of the src struct into the dst struct
func mergeStructs(dst, src any) error {
	dstVal := reflect.ValueOf(dst)
	if dstVal.Kind() != reflect.Pointer || dstVal.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dst must be a pointer to a struct")
	}

	dstElem := dstVal.Elem()
	srcVal := reflect.ValueOf(src)

	if srcVal.Kind() == reflect.Pointer {
		srcVal = srcVal.Elem()
	}

	if srcVal.Kind() != reflect.Struct {
		return fmt.Errorf("src must be a struct or a pointer to a struct")
	}

	if dstElem.Type() != srcVal.Type() {
		return fmt.Errorf("dst and src must be of the same struct type")
	}

	for i := range srcVal.NumField() {
		srcField := srcVal.Field(i)
		dstField := dstElem.Field(i)

		if !dstField.CanSet() {
			continue
		}

		switch dstField.Kind() {
		case reflect.Slice:
			if !srcField.IsNil() {
				dstField.Set(reflect.AppendSlice(dstField, srcField))
			}
		case reflect.Map:
			if !srcField.IsNil() {
				if dstField.IsNil() {
					dstField.Set(reflect.MakeMap(dstField.Type()))
				}
				for _, key := range srcField.MapKeys() {
					dstField.SetMapIndex(key, srcField.MapIndex(key))
				}
			}
		default:
			if !srcField.IsZero() {
				dstField.Set(srcField)
			}
		}
	}

	return nil
}

func mustMarshal(v any) string {
	b, err := toml.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// unmarshalSection is a helper to parse sections without conditional logic
func unmarshalSection(rawCfg map[string]any, name string, dst any) error {
	if data, ok := rawCfg[name]; ok {
		if err := toml.Unmarshal([]byte(mustMarshal(data)), dst); err != nil {
			return fmt.Errorf("failed to parse [%s] section: %w", name, err)
		}
	}
	return nil
}

// unmarshalUnits parses the [[unit]] array of tables
func unmarshalUnits(rawCfg map[string]any, dst *[]UnitSection) error {
	data, ok := rawCfg["unit"]
	if !ok {
		return nil
	}
	var doc struct {
		Units []UnitSection `toml:"unit"`
	}
	if err := toml.Unmarshal([]byte(mustMarshal(map[string]any{"unit": data})), &doc); err != nil {
		return fmt.Errorf("failed to parse [[unit]] entries: %w", err)
	}
	*dst = doc.Units
	return nil
}

// unmarshalConditionalSection is a helper to parse, evaluate and merge multiple sections with conditional logic
func unmarshalConditionalSection[T any](rawCfg map[string]any, name string, dst *T, env ConfigEnv) error {
	sectionData, ok := rawCfg[name]
	if !ok {
		return nil
	}

	sectionMap, ok := sectionData.(map[string]any)
	if !ok {
		return fmt.Errorf("invalid [%s] section format: expected a table", name)
	}

	baseFields := make(map[string]any)
	conditionalFields := make(map[string]map[string]any)

	for key, val := range sectionMap {
		if subMap, ok := val.(map[string]any); ok {
			_, err := expr.Compile(key, expr.Env(env), expr.AsBool())
			if err == nil {
				conditionalFields[key] = subMap
			} else {
				baseFields[key] = val
			}
		} else {
			baseFields[key] = val
		}
	}

	if len(baseFields) > 0 {
		if err := toml.Unmarshal([]byte(mustMarshal(baseFields)), dst); err != nil {
			return fmt.Errorf("failed to parse base [%s] section: %w", name, err)
		}
	}

	// sorted so overlapping conditions merge deterministically
	for _, expression := range slices.Sorted(maps.Keys(conditionalFields)) {
		program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
		if err != nil {
			return fmt.Errorf("failed to compile expression for [%s.%q]: %w", name, expression, err)
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return fmt.Errorf("failed to run expression for [%s.%q]: %w", name, expression, err)
		}

		if matched, ok := result.(bool); !ok || !matched {
			continue
		}

		var condSection T
		if err := toml.Unmarshal([]byte(mustMarshal(conditionalFields[expression])), &condSection); err != nil {
			return fmt.Errorf("failed to parse conditional section [%s.%q]: %w", name, expression, err)
		}
		if err := mergeStructs(dst, condSection); err != nil {
			return fmt.Errorf("failed to merge conditional section [%s.%q]: %w", name, expression, err)
		}
	}

	return nil
}

var exprRegex = regexp.MustCompile(`\{\{(.+?)\}\}`)

// evaluateString finds and evaluates all {{...}} expressions in a string
func evaluateString(s string, env ConfigEnv) (string, error) {
	matches := exprRegex.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	var builder strings.Builder
	lastIndex := 0

	for _, matchIndexes := range matches {
		fullMatchStart := matchIndexes[0]
		fullMatchEnd := matchIndexes[1]
		expressionStart := matchIndexes[2]
		expressionEnd := matchIndexes[3]

		builder.WriteString(s[lastIndex:fullMatchStart])

		expression := strings.TrimSpace(s[expressionStart:expressionEnd])
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return "", fmt.Errorf("failed to compile expression %q: %w", expression, err)
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return "", fmt.Errorf("failed to run expression %q: %w", expression, err)
		}

		fmt.Fprintf(&builder, "%v", result)
		lastIndex = fullMatchEnd
	}

	builder.WriteString(s[lastIndex:])

	return builder.String(), nil
}

// processExpressions recursively walks the parsed TOML data and evaluates expressions in strings
func processExpressions(data any, env ConfigEnv) (any, error) {
	switch v := data.(type) {
	case map[string]any:
		for key, val := range v {
			if key == "code" {
				continue // inline code is taken verbatim
			}
			processedVal, err := processExpressions(val, env)
			if err != nil {
				return nil, err
			}
			v[key] = processedVal
		}
		return v, nil
	case []any:
		for i, item := range v {
			processedItem, err := processExpressions(item, env)
			if err != nil {
				return nil, err
			}
			v[i] = processedItem
		}
		return v, nil
	case string:
		return evaluateString(v, env)
	default:
		return data, nil
	}
}

func ParseManifest(rdr io.Reader, env ConfigEnv) (*Manifest, error) {
	var rawConfig map[string]any
	dec := toml.NewDecoder(rdr)
	if err := dec.Decode(&rawConfig); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			return nil, errors.New(derr.String())
		}
		return nil, err
	}

	processedConfig, err := processExpressions(rawConfig, env)
	if err != nil {
		return nil, fmt.Errorf("error processing expressions in manifest: %w", err)
	}
	rawConfig = processedConfig.(map[string]any)

	m := &Manifest{basedir: env.basedir}
	if err := unmarshalSection(rawConfig, "library", &m.Library); err != nil {
		return nil, err
	}
	if err := unmarshalConditionalSection(rawConfig, "toolchain", &m.Toolchain, env); err != nil {
		return nil, err
	}
	if err := unmarshalUnits(rawConfig, &m.Units); err != nil {
		return nil, err
	}

	if err := m.checkRequires(env); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseManifestFromFile parses a manifest; relative paths inside it are resolved
// against the manifest's directory
func ParseManifestFromFile(path string) (*Manifest, error) {
	path, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		path = filepath.Join(path, ManifestFilename)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseManifest(bufio.NewReader(f), NewConfigEnv(filepath.Dir(path)))
}

// checkRequires evaluates library.requires, which must yield true for the manifest to be usable
func (m *Manifest) checkRequires(env ConfigEnv) error {
	if m.Library.Requires == "" {
		return nil
	}

	program, err := expr.Compile(m.Library.Requires, expr.Env(env), expr.AsBool())
	if err != nil {
		return fmt.Errorf("failed to compile library.requires: %w", err)
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return fmt.Errorf("failed to run library.requires: %w", err)
	}

	if result, ok := result.(bool); !ok || !result {
		return fmt.Errorf("library %q cannot be built here: %s is false", m.Library.Name, m.Library.Requires)
	}
	return nil
}

func (m *Manifest) BaseDir() string { return m.basedir }

// OutputDir is the absolute output directory, "build/jit" next to the manifest by default
func (m *Manifest) OutputDir() string {
	out := m.Library.Output
	if out == "" {
		out = filepath.Join("build", "jit")
	}
	if filepath.IsAbs(out) {
		return filepath.Clean(out)
	}
	return filepath.Join(m.basedir, out)
}

// SourceUnits materializes the [[unit]] entries, reading sources and expanding globs
func (m *Manifest) SourceUnits() ([]*SourceUnit, error) {
	var units []*SourceUnit
	for i, us := range m.Units {
		switch {
		case us.Glob != "":
			if len(us.Symbols) > 0 {
				return nil, fmt.Errorf("unit %d: a glob unit cannot list symbols", i)
			}
			matches, err := doublestar.Glob(os.DirFS(m.basedir), us.Glob, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("unit %d: %w", i, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("unit %d: glob %q matched no files", i, us.Glob)
			}
			slices.Sort(matches)
			for _, match := range matches {
				u, err := m.unitFromFile(us, filepath.FromSlash(match))
				if err != nil {
					return nil, fmt.Errorf("unit %d: %w", i, err)
				}
				u.Symbols = []Symbol{{Name: u.BaseName}}
				units = append(units, u)
			}
		case us.Source != "":
			u, err := m.unitFromFile(us, us.Source)
			if err != nil {
				return nil, fmt.Errorf("unit %d: %w", i, err)
			}
			if us.Name != "" {
				u.BaseName = us.Name
			}
			if us.Variant != "" {
				u.Variant = us.Variant
			}
			units = append(units, u)
		default:
			units = append(units, &SourceUnit{
				BaseName: us.Name,
				Variant:  us.Variant,
				Code:     us.Code,
				Comment:  us.Comment,
				Symbols:  us.symbols(),
				Tag:      us.Tag,
			})
		}
	}
	return units, nil
}

func (m *Manifest) unitFromFile(us UnitSection, rel string) (*SourceUnit, error) {
	path := rel
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.basedir, rel)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	base, variant := splitVariant(filepath.Base(path))
	tag := us.Tag
	if tag == "" {
		tag = filepath.ToSlash(rel)
	}
	return &SourceUnit{
		BaseName: base,
		Variant:  variant,
		Code:     string(data),
		Comment:  us.Comment,
		Symbols:  us.symbols(),
		Tag:      tag,
	}, nil
}

func (us UnitSection) symbols() []Symbol {
	syms := make([]Symbol, len(us.Symbols))
	for i, s := range us.Symbols {
		syms[i] = Symbol{Name: s.Name, Description: s.Description, Declaration: s.Declaration}
	}
	return syms
}

// splitVariant splits a filename into base name and the longest known variant suffix.
// Unknown suffixes are kept whole so Prepare reports them.
func splitVariant(filename string) (base, variant string) {
	for _, rule := range variantRules {
		if stem, ok := strings.CutSuffix(filename, rule.suffix); ok && stem != "" {
			return stem, rule.suffix
		}
	}
	ext := filepath.Ext(filename)
	return strings.TrimSuffix(filename, ext), ext
}

// Recipe returns the build recipe named by toolchain.recipe, or the builtin one
func (m *Manifest) Recipe() (gen.Recipe, error) {
	if m.Toolchain.Recipe == "" {
		return gen.DefaultRecipe(), nil
	}
	path := m.Toolchain.Recipe
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.basedir, path)
	}
	return gen.LoadRecipe(path)
}

// Runner builds the runner for this manifest's toolchain.
// Compilers and binutils the manifest does not set are discovered on the system.
func (m *Manifest) Runner() *Runner {
	vars := maps.Clone(m.Toolchain.Vars)
	if vars == nil {
		vars = make(map[string]string)
	}
	discoverTools(vars)
	if len(m.Toolchain.Cflags) > 0 {
		vars["CFLAGS"] = strings.Join(m.Toolchain.Cflags, " ")
	}
	if len(m.Toolchain.Cxxflags) > 0 {
		vars["CXXFLAGS"] = strings.Join(m.Toolchain.Cxxflags, " ")
	}

	env := make([]string, 0, len(vars))
	for _, k := range slices.Sorted(maps.Keys(vars)) {
		env = append(env, k+"="+vars[k])
	}

	r := NewRunner(env...)
	if m.Toolchain.Tool != "" {
		r.Tool = m.Toolchain.Tool
	}
	return r
}

type ConfigEnv struct {
	TargetOS   string            `expr:"target_os"`
	TargetArch string            `expr:"target_arch"`
	Environ    map[string]string `expr:"environ"`
	basedir    string
}

func NewConfigEnv(basedir string) ConfigEnv {
	environ := make(map[string]string)
	for _, e := range os.Environ() {
		if k, v, ok := strings.Cut(e, "="); ok {
			environ[k] = v
		}
	}

	return ConfigEnv{
		TargetOS:   runtime.GOOS,
		TargetArch: runtime.GOARCH,
		Environ:    environ,
		basedir:    basedir,
	}
}
