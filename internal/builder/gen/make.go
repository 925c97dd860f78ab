package gen

import (
	"slices"
	"strings"
)

// object is a single artifact the build script knows how to produce
type object struct {
	name   string
	source string
	rename string // rename table, set only for alternate objects
}

// MakeGen emits a GNU make build script for one shared library
type MakeGen struct {
	// AltPrefix is prepended to every global symbol of an alternate object
	AltPrefix string

	libName string
	dir     string
	recipe  Recipe
	objects []object
	hasCxx  bool
}

func NewMakeGen(libName, dir string, recipe Recipe) *MakeGen {
	return &MakeGen{AltPrefix: "alt_", libName: libName, dir: dir, recipe: recipe}
}

var makePathEscaper = strings.NewReplacer("$", "$$", " ", `\ `, "#", `\#`, ":", `\:`)

// quote escapes a path used as a target or prerequisite
func quote(s string) string { return makePathEscaper.Replace(s) }

var makeValueEscaper = strings.NewReplacer("$", "$$", "#", `\#`)

// quoteValue escapes text assigned to a make variable
func quoteValue(s string) string { return makeValueEscaper.Replace(s) }

// shellQuote wraps s in single quotes for the shell that runs a recipe line
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func (g *MakeGen) BuildFile() string   { return g.libName + ".mk" }
func (g *MakeGen) ObjectsFile() string { return g.libName + ".OBJECTS" }
func (g *MakeGen) SharedObject() string {
	return "lib" + g.libName + ".so"
}
func (g *MakeGen) Archive() string { return "lib" + g.libName + ".a" }

// AddObject declares that obj is compiled from source
func (g *MakeGen) AddObject(obj, source string) {
	g.objects = append(g.objects, object{name: obj, source: source})
	g.noteSource(source)
}

// AddAltObject declares an alternate compile of source whose symbols are renamed
// through the table at renameTable before the object joins the library
func (g *MakeGen) AddAltObject(obj, source, renameTable string) {
	g.objects = append(g.objects, object{name: obj, source: source, rename: renameTable})
	g.noteSource(source)
}

func (g *MakeGen) noteSource(source string) {
	if strings.HasSuffix(source, ".cpp") {
		g.hasCxx = true
	}
}

// Objects returns the declared object names in declaration order
func (g *MakeGen) Objects() []string {
	names := make([]string, len(g.objects))
	for i, o := range g.objects {
		names[i] = o.name
	}
	return names
}

// ObjectList renders the object-list file, one object per line
func (g *MakeGen) ObjectList() string {
	var sb strings.Builder
	for _, o := range g.objects {
		writeln(&sb, o.name)
	}
	return sb.String()
}

func (g *MakeGen) Generate() string {
	var sb strings.Builder

	writeln(&sb, "# generated by qjit; do not edit")
	writeln(&sb, "# recipe: ", g.recipe.Name)
	writeln(&sb)
	writeln(&sb, "LIBNAME := ", g.libName)
	writeln(&sb, "SONAME := ", quoteValue(g.SharedObject()))
	writeln(&sb, "ARCHIVE := ", quoteValue(g.Archive()))
	writeln(&sb, "OBJECTS := $(shell cat ", quoteValue(shellQuote(g.ObjectsFile())), ")")
	writeln(&sb, "LDFLAGS += ", quoteValue(shellQuote("-Wl,-rpath,"+g.dir)))
	if g.hasCxx {
		writeln(&sb, "HAS_CXX := 1")
	}
	writeln(&sb)
	writeln(&sb, "all: $(ARCHIVE) $(SONAME)")
	writeln(&sb)

	for _, o := range g.objects {
		if o.rename != "" {
			continue
		}
		writeln(&sb, quote(o.name), ": ", quote(o.source))
	}

	alts := slices.DeleteFunc(slices.Clone(g.objects), func(o object) bool { return o.rename == "" })
	if len(alts) > 0 {
		writeln(&sb)
		writeln(&sb, "ALT_PREFIX := ", quoteValue(g.AltPrefix))
		for _, o := range alts {
			writeln(&sb, quote(o.name), ": ", quote(o.source), " ", quote(o.rename))
			writeln(&sb, "\t$(Q)$(COMPILE_ALT)")
		}
	}
	writeln(&sb)

	writeBlock(&sb, g.recipe.Text)
	return sb.String()
}

// RenameTable renders an objcopy --redefine-syms table mapping each symbol to prefix+symbol
func RenameTable(symbols []string, prefix string) string {
	var sb strings.Builder
	for _, sym := range symbols {
		writeln(&sb, sym, " ", prefix, sym)
	}
	return sb.String()
}
