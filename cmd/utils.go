package cmd

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// EnumValue is a pflag.Value restricted to a fixed set of string-kinded values
type EnumValue[T ~string] struct {
	value   T
	allowed map[T]string // value -> help text
}

func NewEnumValue[T ~string](defaultVal T, allowed map[T]string) EnumValue[T] {
	if _, ok := allowed[defaultVal]; !ok {
		panic(fmt.Sprintf("default value %q not in allowed set", defaultVal))
	}
	return EnumValue[T]{value: defaultVal, allowed: allowed}
}

func (e *EnumValue[T]) String() string { return string(e.value) }
func (e *EnumValue[T]) Type() string   { return "enum" }
func (e *EnumValue[T]) Value() T       { return e.value }

func (e *EnumValue[T]) HelpString() string {
	return "[" + strings.Join(e.AllowedKeys(), ", ") + "]"
}

func (e *EnumValue[T]) Set(v string) error {
	if _, ok := e.allowed[T(v)]; !ok {
		return fmt.Errorf("must be one of: %s", strings.Join(e.AllowedKeys(), ", "))
	}
	e.value = T(v)
	return nil
}

// AllowedKeys returns the accepted values, sorted
func (e *EnumValue[T]) AllowedKeys() []string {
	keys := make([]string, 0, len(e.allowed))
	for _, k := range slices.Sorted(maps.Keys(e.allowed)) {
		keys = append(keys, string(k))
	}
	return keys
}

func (e *EnumValue[T]) CompletionFunc() func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var items []string
		for _, k := range e.AllowedKeys() {
			if !strings.HasPrefix(k, toComplete) {
				continue
			}
			if help := e.allowed[T(k)]; help != "" {
				k += "\t" + help
			}
			items = append(items, k)
		}
		return items, cobra.ShellCompDirectiveNoFileComp
	}
}
