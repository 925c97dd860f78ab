package builder

import "strings"

const (
	// DefaultVariant is used for units that do not name one
	DefaultVariant = ".c"
	// AltSymbolPrefix is prepended to every symbol of an alternate object
	AltSymbolPrefix = "alt_"
)

type objectKind int

const (
	kindObject objectKind = iota // linkable object
	kindRaw                      // raw extraction, built but not linked
)

// variantRule maps a filename suffix to the artifacts the build recipe produces for it
type variantRule struct {
	suffix string
	object string // appended to the stripped filename
	alt    string // alternate object suffix, empty if the variant has none
	kind   objectKind
}

// dash variants come first: "-x86.c" must win over ".c"
var variantRules = []variantRule{
	{suffix: "-x86.c", object: "-x86.o", alt: "_alt-x86.o"},
	{suffix: "-x86.cpp", object: "-x86.o", alt: "_alt-x86.o"},
	{suffix: "-intrinsic.c", object: "-intrinsic.o"},
	{suffix: "-intrinsic.cpp", object: "-intrinsic.o"},
	{suffix: "-avx2.c", object: "-avx2.o"},
	{suffix: "-avx2.cpp", object: "-avx2.o"},
	{suffix: "-avx512.c", object: "-avx512.o"},
	{suffix: "-avx512.cpp", object: "-avx512.o"},
	{suffix: "-neon.c", object: "-neon.o"},
	{suffix: "-neon.cpp", object: "-neon.o"},
	{suffix: ".c", object: ".o"},
	{suffix: ".cpp", object: ".o"},
	{suffix: ".s", object: ".bin", kind: kindRaw},
	{suffix: ".S", object: ".bin", kind: kindRaw},
}

// objectSet is the outcome of resolving one unit's filename
type objectSet struct {
	primary string
	alt     string
	kind    objectKind
	scratch string // intermediate object of a raw extraction
}

func (s objectSet) list() []string {
	if s.alt != "" {
		return []string{s.primary, s.alt}
	}
	return []string{s.primary}
}

// outputs is every file the recipe writes for the unit
func (s objectSet) outputs() []string {
	out := s.list()
	if s.scratch != "" {
		out = append(out, s.scratch)
	}
	return out
}

func resolveObjects(filename string) (objectSet, error) {
	for _, rule := range variantRules {
		stem, ok := strings.CutSuffix(filename, rule.suffix)
		if !ok || stem == "" {
			continue
		}
		set := objectSet{primary: stem + rule.object, kind: rule.kind}
		if rule.alt != "" {
			set.alt = stem + rule.alt
		}
		if rule.kind == kindRaw {
			set.scratch = filename + ".o"
		}
		return set, nil
	}
	return objectSet{}, &SuffixError{Filename: filename}
}

// ObjectsFor returns the object artifacts the build produces for a unit filename
// (base name + variant). The first entry is the primary object; units whose variant
// needs an alternate compile get a second entry.
func ObjectsFor(filename string) ([]string, error) {
	set, err := resolveObjects(filename)
	if err != nil {
		return nil, err
	}
	return set.list(), nil
}

// KnownVariants lists every variant suffix ObjectsFor accepts
func KnownVariants() []string {
	out := make([]string, len(variantRules))
	for i, rule := range variantRules {
		out[i] = rule.suffix
	}
	return out
}
