// qjit [manifest...], qjit build [manifest...]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/qobs-build/qjit/internal/builder"
	"github.com/qobs-build/qjit/internal/msg"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	flagReuse     bool
	flagJobs      int
	flagProgress  bool
	flagStopAfter = NewEnumValue(builder.StageOpen, map[builder.Stage]string{
		builder.StagePrepare: "Write sources and the build script only",
		builder.StageBuild:   "Stop once the shared library is built",
		builder.StageOpen:    "Load the library and verify every symbol (default)",
	})
)

// loadManifests parses every manifest and rejects two sharing an output directory
func loadManifests(paths []string) ([]*builder.Manifest, error) {
	manifests := make([]*builder.Manifest, 0, len(paths))
	outputs := make(map[string]string)
	for _, path := range paths {
		m, err := builder.ParseManifestFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if prev, ok := outputs[m.OutputDir()]; ok {
			return nil, fmt.Errorf("%s and %s both build into %s", prev, path, m.OutputDir())
		}
		outputs[m.OutputDir()] = path
		manifests = append(manifests, m)
	}
	return manifests, nil
}

func runManifest(m *builder.Manifest) error {
	opts := builder.RunOptions{
		Reuse:     flagReuse,
		StopAfter: flagStopAfter.Value(),
	}
	if flagProgress {
		opts.Progress = os.Stderr
	}

	res, err := builder.Run(m, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Join(m.BaseDir(), builder.ManifestFilename), err)
	}
	if res.Artifact == nil {
		return nil
	}
	defer res.Artifact.Close()

	for _, u := range res.Artifact.Units() {
		fmt.Printf("%s\n", u.Path)
		names := append([]string(nil), u.Names...)
		sort.Strings(names)
		for _, name := range names {
			addr, _ := res.Artifact.Lookup(name)
			fmt.Printf("  %#014x %s\n", uintptr(addr), name)
		}
	}
	return nil
}

func doBuild(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		args = []string{"."}
	}
	manifests, err := loadManifests(args)
	if err != nil {
		msg.Fatal("%v", err)
	}

	// plans never share an output directory, so they can build side by side
	var eg errgroup.Group
	eg.SetLimit(max(flagJobs, 1))
	for _, m := range manifests {
		eg.Go(func() error {
			return runManifest(m)
		})
	}
	if err := eg.Wait(); err != nil {
		msg.Fatal("%v", err)
	}
}

var rootCmd = &cobra.Command{
	Use:   "qjit [manifest...]",
	Short: "Build generated C sources into a loadable shared library",
	Long: `qjit writes generated source units to disk, builds them into one shared
library with make, then loads it and checks every declared symbol.`,
	Args: cobra.ArbitraryArgs,
	Run:  doBuild,
}

var buildCmd = &cobra.Command{
	Use:   "build [manifest...]",
	Short: "Prepare, build and open one or more libraries",
	Long:  `Prepare, build and open one or more libraries. If no manifest is given, uses "."`,
	Args:  cobra.ArbitraryArgs,
	Run:   doBuild,
}

func init() {
	addBuildFlags(rootCmd)

	// qjit build subcommand
	rootCmd.AddCommand(buildCmd)
	addBuildFlags(buildCmd)
}

func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&flagReuse, "reuse", "r", false, "Reuse an existing build script and library when present")
	cmd.Flags().IntVarP(&flagJobs, "jobs", "j", 1, "Number of manifests to build at once")
	cmd.Flags().BoolVar(&flagProgress, "progress", false, "Show a progress bar while writing sources")
	cmd.Flags().Var(&flagStopAfter, "stop-after", "Last stage to run, one of "+flagStopAfter.HelpString())
	cmd.RegisterFlagCompletionFunc("stop-after", flagStopAfter.CompletionFunc())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
