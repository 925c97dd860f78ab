package builder

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/qobs-build/qjit/internal/msg"
)

const (
	DefaultBuildTool   = "make"
	DefaultVerboseFlag = "V=1"
	tailLines          = 20
)

// Runner invokes the external build tool against a prepared plan
type Runner struct {
	// Tool is the build tool executable, "make" if empty
	Tool string
	// EnvPrefix holds KEY=VALUE pairs added to the tool's environment
	EnvPrefix []string
	// VerboseFlag is passed to the tool to request verbose output
	VerboseFlag string
}

func NewRunner(envPrefix ...string) *Runner {
	return &Runner{Tool: DefaultBuildTool, EnvPrefix: envPrefix, VerboseFlag: DefaultVerboseFlag}
}

func (r *Runner) tool() string {
	if r.Tool == "" {
		return DefaultBuildTool
	}
	return r.Tool
}

func (r *Runner) args(p *Plan) []string {
	args := []string{"-C", p.Dir(), "-f", p.ScriptName()}
	if r.VerboseFlag != "" {
		args = append(args, r.VerboseFlag)
	}
	return args
}

// CommandLine renders the invocation as it would be typed in a shell
func (r *Runner) CommandLine(p *Plan) string {
	parts := append([]string{}, r.EnvPrefix...)
	parts = append(parts, r.tool())
	parts = append(parts, r.args(p)...)
	return strings.Join(parts, " ")
}

// Build runs the build tool, retrying once on failure, and moves the plan to StateBuilt
func (r *Runner) Build(p *Plan) error {
	if p.state != StatePrepared {
		return &StateError{Op: "build", Want: StatePrepared, Got: p.state}
	}
	if _, err := exec.LookPath(r.tool()); err != nil {
		return fmt.Errorf("%w: %s not found: %w", ErrBuildFailed, r.tool(), err)
	}

	log := p.ScriptPath() + ".log"
	if err := r.attempt(p, log); err != nil {
		msg.Warn("build failed (%v), retrying; see %s", err, log)

		log2 := p.ScriptPath() + ".log2"
		if err := r.attempt(p, log2); err != nil {
			msg.Error("build failed again; see %s", log2)
			if data, rerr := os.ReadFile(log2); rerr == nil {
				msg.Tail(msg.Writer(), data, tailLines, "  | ")
			}
			return &BuildError{Log: log2, Err: err}
		}
	}

	if err := isReadable(p.SharedObjectPath()); err != nil {
		return &ArtifactError{Path: p.SharedObjectPath(), Err: err}
	}
	msg.Info("built %s", p.SharedObjectPath())
	p.state = StateBuilt
	return nil
}

// SkipBuild moves the plan straight to StateBuilt if the shared object already
// exists and is readable; otherwise it runs Build.
func (r *Runner) SkipBuild(p *Plan) error {
	if p.state != StatePrepared {
		return &StateError{Op: "build", Want: StatePrepared, Got: p.state}
	}
	if isReadable(p.SharedObjectPath()) == nil {
		msg.Info("reusing %s", p.SharedObjectPath())
		p.state = StateBuilt
		return nil
	}
	return r.Build(p)
}

// attempt runs the tool once, writing the command line and its combined output to logPath
func (r *Runner) attempt(p *Plan, logPath string) error {
	f, err := os.Create(logPath)
	if err != nil {
		return &FileWriteError{Path: logPath, Err: err}
	}
	defer f.Close()

	fmt.Fprintf(f, "$ %s\n", r.CommandLine(p))

	cmd := exec.Command(r.tool(), r.args(p)...)
	cmd.Dir = filepath.Dir(p.ScriptPath())
	cmd.Env = append(os.Environ(), r.EnvPrefix...)
	cmd.Stdout = f
	cmd.Stderr = f
	return cmd.Run()
}
