package builder

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/qobs-build/qjit/internal/builder/gen"
	"github.com/qobs-build/qjit/internal/msg"
)

// State is the lifecycle position of a Plan. It only moves forward.
type State int

const (
	StateEmpty State = iota
	StatePrepared
	StateBuilt
	StateOpened
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePrepared:
		return "prepared"
	case StateBuilt:
		return "built"
	case StateOpened:
		return "opened"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Plan is an ordered set of source units that become one shared library.
// A Plan must not be shared between goroutines, and two plans must not
// prepare or build into the same directory at the same time.
type Plan struct {
	// Progress, if set, receives a progress bar while Prepare writes sources
	Progress io.Writer

	recipe gen.Recipe
	units  []*SourceUnit
	name   string
	dir    string
	state  State
}

// NewPlan creates an empty plan whose build scripts end with recipe
func NewPlan(recipe gen.Recipe) *Plan {
	return &Plan{recipe: recipe}
}

// Add appends units to the plan. Units can only be added before Prepare.
func (p *Plan) Add(units ...*SourceUnit) error {
	if p.state != StateEmpty {
		return &StateError{Op: "add", Want: StateEmpty, Got: p.state}
	}
	p.units = append(p.units, units...)
	return nil
}

func (p *Plan) Units() []*SourceUnit { return slices.Clone(p.units) }
func (p *Plan) Len() int             { return len(p.units) }
func (p *Plan) State() State         { return p.state }
func (p *Plan) Name() string         { return p.name }
func (p *Plan) Dir() string          { return p.dir }

func (p *Plan) SharedObjectName() string { return "lib" + p.name + ".so" }
func (p *Plan) ArchiveName() string      { return "lib" + p.name + ".a" }
func (p *Plan) ScriptName() string       { return p.name + ".mk" }
func (p *Plan) ObjectListName() string   { return p.name + ".OBJECTS" }
func (p *Plan) HeaderName() string       { return p.name + ".h" }

func (p *Plan) SharedObjectPath() string { return filepath.Join(p.dir, p.SharedObjectName()) }
func (p *Plan) ScriptPath() string       { return filepath.Join(p.dir, p.ScriptName()) }

// Prepare deduplicates the units, writes every source file, rename table, object
// list and the build script under dir, and moves the plan to StatePrepared.
// A plan without units is left untouched. Nothing is written unless every unit
// passes deduplication and variant resolution.
func (p *Plan) Prepare(name, dir string) error {
	return p.prepare(name, dir, false)
}

// SkipPrepare behaves like Prepare, but if the build script already exists under dir
// no files are written; the units are only resolved in memory.
func (p *Plan) SkipPrepare(name, dir string) error {
	return p.prepare(name, dir, true)
}

func (p *Plan) prepare(name, dir string, skip bool) error {
	if p.state != StateEmpty {
		return &StateError{Op: "prepare", Want: StateEmpty, Got: p.state}
	}
	if len(p.units) == 0 {
		msg.Warn("nothing to prepare: plan has no source units")
		return nil
	}
	if name == "" {
		name = ContentName("jit_", p.units)
		msg.Warn("no library name given, using %s", name)
	}

	absDir, err := ResolvePath(dir)
	if err != nil {
		return err
	}

	units, err := p.resolveUnits(name)
	if err != nil {
		return err
	}

	p.name, p.dir = name, absDir
	if skip && isReadable(p.ScriptPath()) == nil {
		msg.Info("reusing build script %s", p.ScriptPath())
		for _, u := range units {
			u.path = filepath.Join(absDir, u.Filename())
		}
		p.units = units
		p.state = StatePrepared
		return nil
	}

	if err := EnsureWritableDir(absDir); err != nil {
		return err
	}
	if err := p.writeAll(units); err != nil {
		return err
	}

	p.units = units
	p.state = StatePrepared
	return nil
}

// resolveUnits fills in missing variants, deduplicates, names the surviving
// anonymous units and resolves the object artifacts of every unit.
// It does not touch the filesystem.
func (p *Plan) resolveUnits(name string) ([]*SourceUnit, error) {
	if err := checkName("library name", name); err != nil {
		return nil, err
	}

	index := make(map[*SourceUnit]int, len(p.units))
	for i, u := range p.units {
		if _, ok := index[u]; !ok {
			index[u] = i
		}
		if u.Variant == "" {
			u.Variant = DefaultVariant
			msg.Warn("source unit %d has no variant, using %s", i, DefaultVariant)
		}
	}

	units, err := dedupUnits(p.units)
	if err != nil {
		return nil, err
	}

	// names come from the original index so they stay stable when earlier units are dropped
	for _, u := range units {
		if u.BaseName == "" {
			u.BaseName = fmt.Sprintf("lib%s_file%d", name, index[u])
			msg.Warn("source unit %d has no base name, using %s", index[u], u.BaseName)
		}
	}

	owner := make(map[string]int)
	for _, u := range units {
		if err := checkName("source file name", u.Filename()); err != nil {
			return nil, err
		}
		set, err := resolveObjects(u.Filename())
		if err != nil {
			return nil, err
		}
		for _, out := range set.outputs() {
			if prev, ok := owner[out]; ok {
				return nil, &ObjectCollisionError{First: prev, Second: index[u], Object: out}
			}
			owner[out] = index[u]
		}
		u.objects = set
	}
	return units, nil
}

// checkName rejects names the build script cannot carry as a single word
func checkName(what, name string) error {
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) || strings.ContainsRune(`/\%`, r) {
			return &NameError{What: what, Name: name}
		}
	}
	return nil
}

func (p *Plan) writeAll(units []*SourceUnit) error {
	var bar *msg.ProgressBar
	if p.Progress != nil {
		var total int64
		for _, u := range units {
			total += int64(len(u.Content()))
		}
		bar = msg.NewProgressBar("prepare", total, p.Progress)
	}

	g := gen.NewMakeGen(p.name, p.dir, p.recipe)
	g.AltPrefix = AltSymbolPrefix
	var decls []gen.Decl
	written := 0

	for _, u := range units {
		u.path = filepath.Join(p.dir, u.Filename())
		content := u.Content()
		changed, err := writeIfChanged(u.path, content)
		if err != nil {
			return err
		}
		if changed {
			written++
		}
		if bar != nil {
			bar.Add(int64(len(content)))
		}

		g.AddObject(u.objects.primary, u.Filename())
		if u.objects.alt != "" {
			table := u.objects.alt + ".rename"
			if _, err := writeIfChanged(filepath.Join(p.dir, table), []byte(gen.RenameTable(u.SymbolNames(), AltSymbolPrefix))); err != nil {
				return err
			}
			g.AddAltObject(u.objects.alt, u.Filename(), table)
		}

		for _, s := range u.Symbols {
			decls = append(decls, gen.Decl{Name: s.Name, Doc: s.Description, Text: s.Declaration})
		}
	}
	if bar != nil {
		bar.Finish()
	}

	files := []struct {
		name    string
		content string
	}{
		{p.HeaderName(), gen.Header(p.name, decls)},
		{p.ObjectListName(), g.ObjectList()},
		{p.ScriptName(), g.Generate()},
	}
	for _, f := range files {
		if _, err := writeIfChanged(filepath.Join(p.dir, f.name), []byte(f.content)); err != nil {
			return err
		}
	}

	msg.Info("prepared %s: %d source file(s), %d rewritten", p.ScriptPath(), len(units), written)
	return nil
}

// writeIfChanged writes content to path unless the file already holds exactly
// that content. It reports whether the file was written.
func writeIfChanged(path string, content []byte) (bool, error) {
	if st, err := os.Stat(path); err == nil && st.Mode().IsRegular() && st.Size() == int64(len(content)) {
		if hash, err := fileHash(path); err == nil && hash == sha256.Sum256(content) {
			return false, nil
		}
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return false, &FileWriteError{Path: path, Err: err}
	}
	return true, nil
}

// fileHash computes the SHA256 hash of a file
func fileHash(path string) ([sha256.Size]byte, error) {
	var sum [sha256.Size]byte
	file, err := os.Open(path)
	if err != nil {
		return sum, err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return sum, err
	}
	copy(sum[:], hash.Sum(nil))
	return sum, nil
}
