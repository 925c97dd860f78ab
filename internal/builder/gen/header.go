package gen

import (
	"strings"
	"unicode"
)

// Decl is a forward declaration exported to the generated header
type Decl struct {
	Name string
	Doc  string
	Text string
}

func includeGuard(libName string) string {
	return "QJIT_" + strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return unicode.ToUpper(r)
		}
		return '_'
	}, libName) + "_H"
}

// Header renders a C header collecting the forward declarations of a library
func Header(libName string, decls []Decl) string {
	var sb strings.Builder
	guard := includeGuard(libName)

	writeln(&sb, "/* generated by qjit for lib", libName, ".so; do not edit */")
	writeln(&sb, "#ifndef ", guard)
	writeln(&sb, "#define ", guard)
	writeLines(&sb, "", "#ifdef __cplusplus", `extern "C" {`, "#endif", "")
	for _, d := range decls {
		if d.Text == "" {
			continue
		}
		if d.Doc != "" {
			writeln(&sb, "/* ", strings.ReplaceAll(d.Doc, "*/", "* /"), " */")
		}
		writeln(&sb, strings.TrimSpace(d.Text))
	}
	writeLines(&sb, "", "#ifdef __cplusplus", `} // extern "C"`, "#endif", "", "#endif")
	return sb.String()
}
