package builder

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`, "{", `\{`, "}", `\}`)

// cleanPatterns lists the per-library outputs qjit produces in an output directory
func cleanPatterns(name string) []string {
	name = globEscaper.Replace(name)
	return []string{
		"lib" + name + ".{a,so}",
		name + ".{mk,OBJECTS,h}",
		name + ".mk.log*",
	}
}

// objectOutputs lists the files the recipe writes for one entry of the object list
func objectOutputs(obj string) []string {
	out := []string{obj, obj + ".rename", obj + ".nm", obj + ".syms"}
	if stem, ok := strings.CutSuffix(obj, ".bin"); ok {
		out = append(out, stem+".s.o", stem+".S.o")
	}
	return out
}

// Clean removes the build outputs of library name from dir, keeping the source
// files so a later Prepare can skip rewriting them. Objects are taken from the
// library's object list, so other libraries sharing dir are left alone.
// It returns the removed paths.
func Clean(dir, name string) ([]string, error) {
	dir, err := ResolvePath(dir)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var removed []string
	remove := func(path string) error {
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		removed = append(removed, path)
		return nil
	}

	// the object list goes away with the patterns below, so read it first
	list, err := os.ReadFile(filepath.Join(dir, name+".OBJECTS"))
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	sc := bufio.NewScanner(bytes.NewReader(list))
	for sc.Scan() {
		obj := strings.TrimSpace(sc.Text())
		if obj == "" || strings.ContainsAny(obj, `/\`) {
			continue
		}
		for _, out := range objectOutputs(obj) {
			if err := remove(filepath.Join(dir, out)); err != nil {
				return removed, err
			}
		}
	}

	fsys := os.DirFS(dir)
	for _, pattern := range cleanPatterns(name) {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return removed, fmt.Errorf("bad clean pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			if err := remove(filepath.Join(dir, filepath.FromSlash(match))); err != nil {
				return removed, err
			}
		}
	}
	return removed, nil
}
