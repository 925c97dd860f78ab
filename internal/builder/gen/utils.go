package gen

import "strings"

// writeln writes the concatenation of s followed by a newline
func writeln(sb *strings.Builder, s ...string) {
	for _, str := range s {
		sb.WriteString(str)
	}
	sb.WriteByte('\n')
}

// writeLines writes each line on its own
func writeLines(sb *strings.Builder, lines ...string) {
	for _, line := range lines {
		writeln(sb, line)
	}
}

// writeBlock writes text verbatim, terminating it with a newline if it lacks one
func writeBlock(sb *strings.Builder, text string) {
	sb.WriteString(text)
	if text != "" && !strings.HasSuffix(text, "\n") {
		sb.WriteByte('\n')
	}
}
