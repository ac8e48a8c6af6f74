// Package runstudy runs Moldflow analyses with the runstudy tool.
package runstudy

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/mfauto/mfauto/data"
	"github.com/mfauto/mfauto/file"
	"github.com/mfauto/mfauto/moldflow"
)

// Runner runs study files
type Runner struct {
	inst *moldflow.Install
	log  *log.Logger
}

// NewRunner creates a new study runner
func NewRunner(inst *moldflow.Install) *Runner {
	return &Runner{inst: inst, log: inst.Logger("Runstudy")}
}

// Check verifies that runstudy starts and prints its banner
func (r *Runner) Check(ctx context.Context) error {
	out, err := r.inst.Output(ctx, r.inst.RunStudy)
	if err != nil {
		return err
	}
	return moldflow.CheckOutput(r.inst.RunStudy, out, moldflow.BannerMoldflow)
}

// TempDir returns the scratch directory runstudy uses for a study
func TempDir(sdy string) string {
	name := strings.TrimSuffix(filepath.Base(sdy), filepath.Ext(sdy))
	return filepath.Join(filepath.Dir(sdy), "runsdytmp_"+name)
}

// Args returns the runstudy arguments for a study. Without a unit system
// the study's own units are kept.
func (r *Runner) Args(sdy string) []string {
	args := []string{sdy, "-temp", TempDir(sdy)}
	if r.inst.Units != "" {
		args = append(args, "-units", r.inst.Units)
	}
	return args
}

// Run analyses a study. Solver output is logged and, if line is not nil,
// passed to line. Cancelling ctx stops the solver.
func (r *Runner) Run(ctx context.Context, sdy string, line func(string)) error {
	if !file.Exists(sdy) {
		return fmt.Errorf("study %v: %w", sdy, data.ErrNotFound)
	}

	r.log.Printf("Running %v", filepath.Base(sdy))

	err := r.inst.Stream(ctx, func(l string) {
		if l == "" {
			return
		}
		r.log.Println(l)
		if line != nil {
			line(l)
		}
	}, r.inst.RunStudy, r.Args(sdy)...)

	if err != nil {
		return fmt.Errorf("Error running %v: %w", filepath.Base(sdy), err)
	}

	return nil
}
