package builder

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/qobs-build/qjit/internal/msg"
	"github.com/sergi/go-diff/diffmatchpatch"
)

const maxDiffHunks = 4

// dedupUnits drops every unit that repeats an earlier unit's filename, code and
// symbol count, and fails if a unit repeats a filename with different content.
// Units without a base name only collapse into exact copies of one another.
// Survivors keep their original relative order.
func dedupUnits(units []*SourceUnit) ([]*SourceUnit, error) {
	kept := make([]*SourceUnit, 0, len(units))
	first := make(map[string]int, len(units))

	for j, u := range units {
		key := u.Filename()
		if u.BaseName == "" {
			key = fmt.Sprintf("\x00%s\x00%s\x00%d", u.Variant, u.codeHash(), len(u.Symbols))
		}
		i, seen := first[key]
		if !seen {
			first[key] = j
			kept = append(kept, u)
			continue
		}

		orig := units[i]
		if orig.codeHash() == u.codeHash() && len(orig.Symbols) == len(u.Symbols) {
			msg.Info("dropping source unit %d (%s): duplicate of unit %d", j, u.Filename(), i)
			continue
		}
		return nil, &ConflictError{
			First:    i,
			Second:   j,
			Filename: u.Filename(),
			Diff:     diffExcerpt(orig.Code, u.Code),
		}
	}
	return kept, nil
}

// diffExcerpt summarizes the first few differing hunks between two code texts
func diffExcerpt(a, b string) string {
	if a == b {
		return ""
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(a, b, false))

	var sb strings.Builder
	hunks := 0
	for _, d := range diffs {
		var sign string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			sign = "-"
		case diffmatchpatch.DiffInsert:
			sign = "+"
		default:
			continue
		}
		if hunks == maxDiffHunks {
			sb.WriteString("  ...\n")
			break
		}
		hunks++
		sb.WriteString("  ")
		sb.WriteString(sign)
		sb.WriteString(" ")
		sb.WriteString(truncate(strings.ReplaceAll(d.Text, "\n", `\n`), 60))
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

// truncate shortens s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
