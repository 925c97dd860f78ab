package builder

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Symbol is a public function a source unit promises to export
type Symbol struct {
	Name        string
	Description string
	// Declaration is the C forward declaration, e.g. "int calc0(void);"
	Declaration string
}

// SourceUnit is one generated source file.
// BaseName, Variant, Code, Comment, Symbols and Tag are set by the generator before
// Prepare; the path and object list are computed by Prepare and fixed afterwards.
type SourceUnit struct {
	BaseName string
	Variant  string
	Code     string
	Comment  string
	Symbols  []Symbol
	Tag      any

	path    string
	objects objectSet
}

// Filename is the on-disk name of the unit (base name + variant)
func (u *SourceUnit) Filename() string { return u.BaseName + u.Variant }

// Path is the absolute path the unit was written to, empty before Prepare
func (u *SourceUnit) Path() string { return u.path }

// Objects returns the artifacts the build produces for this unit, empty before Prepare
func (u *SourceUnit) Objects() []string {
	if u.objects.primary == "" {
		return nil
	}
	return u.objects.list()
}

// HasAltObject reports whether the unit is compiled a second time under renamed symbols
func (u *SourceUnit) HasAltObject() bool { return u.objects.alt != "" }

// SymbolNames returns the declared symbol names in declaration order
func (u *SourceUnit) SymbolNames() []string {
	names := make([]string, len(u.Symbols))
	for i, s := range u.Symbols {
		names[i] = s.Name
	}
	return names
}

// Content is the exact text written to disk: the comment header followed by the code
func (u *SourceUnit) Content() []byte {
	var sb strings.Builder
	if u.Comment != "" {
		sb.WriteString("/*\n")
		for line := range strings.SplitSeq(strings.TrimRight(u.Comment, "\n"), "\n") {
			sb.WriteString(" * ")
			sb.WriteString(strings.ReplaceAll(line, "*/", "* /"))
			sb.WriteByte('\n')
		}
		sb.WriteString(" */\n")
	}
	sb.WriteString(u.Code)
	return []byte(sb.String())
}

// codeHash identifies the unit's code for deduplication
func (u *SourceUnit) codeHash() string {
	sum := sha256.Sum256([]byte(u.Code))
	return hex.EncodeToString(sum[:])
}
