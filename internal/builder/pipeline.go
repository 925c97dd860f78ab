package builder

import (
	"fmt"
	"io"
)

// Stage names the last phase a pipeline run performs
type Stage string

const (
	StagePrepare Stage = "prepare"
	StageBuild   Stage = "build"
	StageOpen    Stage = "open"
)

// RunOptions controls a manifest-driven pipeline run
type RunOptions struct {
	// Reuse takes the skip-prepare and skip-build fast paths
	Reuse     bool
	StopAfter Stage
	Progress  io.Writer
}

// Result is what a pipeline run produced. Artifact is nil unless the run reached StageOpen.
type Result struct {
	Plan     *Plan
	Artifact *Artifact
}

// Run drives a manifest through prepare, build and open
func Run(m *Manifest, opts RunOptions) (Result, error) {
	var res Result

	units, err := m.SourceUnits()
	if err != nil {
		return res, err
	}
	recipe, err := m.Recipe()
	if err != nil {
		return res, err
	}

	p := NewPlan(recipe)
	p.Progress = opts.Progress
	if err := p.Add(units...); err != nil {
		return res, err
	}
	res.Plan = p

	name := m.Library.Name
	if name == "" {
		name = ContentName("jit_", units)
	}

	if opts.Reuse {
		err = p.SkipPrepare(name, m.OutputDir())
	} else {
		err = p.Prepare(name, m.OutputDir())
	}
	if err != nil {
		return res, fmt.Errorf("prepare failed: %w", err)
	}
	if p.State() == StateEmpty {
		return res, fmt.Errorf("manifest in %s declares no units", m.BaseDir())
	}
	if opts.StopAfter == StagePrepare {
		return res, nil
	}

	r := m.Runner()
	if opts.Reuse {
		err = r.SkipBuild(p)
	} else {
		err = r.Build(p)
	}
	if err != nil {
		return res, err
	}
	if opts.StopAfter == StageBuild {
		return res, nil
	}

	res.Artifact, err = p.Open()
	return res, err
}
