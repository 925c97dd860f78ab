// qjit init [name], qjit new [path]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/qobs-build/qjit/internal/builder"
	"github.com/qobs-build/qjit/internal/msg"
	"github.com/spf13/cobra"
)

func writefile(content string, elem ...string) {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err = os.WriteFile(path, []byte(content), 0o644); err != nil {
			msg.Fatal("create file %s: %v", path, err)
		}
		fmt.Printf("%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(path))
	}
}

func mkdir(elem ...string) {
	path := filepath.Join(elem...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		msg.Fatal("mkdir %s: %v", path, err)
	}
}

func getProgramName() string {
	if len(os.Args) == 0 {
		return "qjit"
	}
	basename := filepath.Base(os.Args[0])
	return strings.TrimSuffix(basename, filepath.Ext(basename))
}

// initIn writes a starter manifest and one source unit into an existing directory
func initIn(dir, name string) {
	writefile(`[library]
name = "`+name+`"
output = "build/jit"

[toolchain]
cflags = ["-O2"]

[toolchain.'target_os == "darwin"']
vars = { CC = "clang" }

[[unit]]
source = "src/answer.c"
comment = "generated by qjit init"
symbols = [{ name = "answer", description = "returns 42", declaration = "int answer(void);" }]

[[unit]]
name = "scale"
variant = ".c"
code = """
int scale(int x) { return x * 3; }
"""
symbols = [{ name = "scale", declaration = "int scale(int x);" }]
`, dir, builder.ManifestFilename)

	mkdir(dir, "src")

	writefile(`int answer(void) {
    return 42;
}
`, dir, "src", "answer.c")

	// .gitignore
	writefile(`build/
`, dir, ".gitignore")

	programName := getProgramName()
	fmt.Printf("You can now do %s to build and load the library.\n", color.HiCyanString(programName+" "+dir))
}

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Create a qjit manifest in the current directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initIn(".", args[0])
	},
}

var newCmd = &cobra.Command{
	Use:   "new [path]",
	Short: "Create a qjit manifest in a new directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mkdir(args[0])
		initIn(args[0], filepath.Base(args[0]))
	},
}

func init() {
	// qjit init subcommand
	rootCmd.AddCommand(initCmd)

	// qjit new subcommand
	rootCmd.AddCommand(newCmd)
}
