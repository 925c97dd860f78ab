// qjit clean [manifest...]
package cmd

import (
	"fmt"

	"github.com/qobs-build/qjit/internal/builder"
	"github.com/qobs-build/qjit/internal/msg"
	"github.com/spf13/cobra"
)

func doClean(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		args = []string{"."}
	}
	manifests, err := loadManifests(args)
	if err != nil {
		msg.Fatal("%v", err)
	}

	for _, m := range manifests {
		name := m.Library.Name
		if name == "" {
			units, err := m.SourceUnits()
			if err != nil {
				msg.Fatal("%v", err)
			}
			name = builder.ContentName("jit_", units)
		}

		removed, err := builder.Clean(m.OutputDir(), name)
		if err != nil {
			msg.Fatal("clean %s: %v", m.OutputDir(), err)
		}
		if flagCleanVerbose {
			for _, path := range removed {
				fmt.Println(path)
			}
		}
		msg.Info("removed %d file(s) from %s", len(removed), m.OutputDir())
	}
}

var flagCleanVerbose bool

var cleanCmd = &cobra.Command{
	Use:   "clean [manifest...]",
	Short: "Remove build outputs, keeping generated sources",
	Args:  cobra.ArbitraryArgs,
	Run:   doClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().BoolVarP(&flagCleanVerbose, "verbose", "v", false, "List every removed file")
}
