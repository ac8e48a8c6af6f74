package moldflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/mfauto/mfauto/data"
	"github.com/mfauto/mfauto/file"
	"golang.org/x/text/encoding/charmap"
)

// Executable names, relative to the bin directory of the installation
const (
	ExeStudyMod = "studymod.exe"
	ExeRunStudy = "runstudy.exe"
	ExeStudyRLT = "studyrlt.exe"
)

// Unit systems passed to the tools
const (
	UnitsMetric  = "Metric"
	UnitsEnglish = "English"
	UnitsSI      = "SI"
)

// Banners printed by the tools, used to verify a tool actually ran
const (
	BannerAutodesk = "Autodesk"
	BannerMoldflow = "Moldflow"
)

// Options for an Install
type Options struct {
	// Units passed to the tools. Empty keeps the units of the study.
	Units string
	// Commander runs the tools, defaults to ExecCommander
	Commander Commander
	// LogOutput receives progress messages, defaults to the output of the
	// standard logger
	LogOutput io.Writer
	// Quiet discards progress messages
	Quiet bool
}

// Install is a Moldflow Insight installation
type Install struct {
	Path     string
	StudyMod string
	RunStudy string
	StudyRLT string
	Units    string

	cmd       Commander
	logOutput io.Writer
}

// NewInstall checks that path contains the Moldflow command line tools
func NewInstall(path string, o Options) (*Install, error) {
	if path == "" {
		return nil, fmt.Errorf("moldflow install path not set: %w", data.ErrExecutable)
	}

	i := &Install{
		Path:     path,
		StudyMod: filepath.Join(path, "bin", ExeStudyMod),
		RunStudy: filepath.Join(path, "bin", ExeRunStudy),
		StudyRLT: filepath.Join(path, "bin", ExeStudyRLT),
		Units:    o.Units,
		cmd:      o.Commander,
	}

	for _, exe := range []string{i.StudyMod, i.RunStudy, i.StudyRLT} {
		if !file.Exists(exe) {
			return nil, fmt.Errorf("%v not found: %w", exe, data.ErrExecutable)
		}
	}

	switch i.Units {
	case "", UnitsMetric, UnitsEnglish, UnitsSI:
	default:
		return nil, fmt.Errorf("unknown unit system: %v", i.Units)
	}

	if i.cmd == nil {
		i.cmd = ExecCommander{}
	}

	i.logOutput = o.LogOutput
	if i.logOutput == nil {
		i.logOutput = log.Writer()
	}
	if o.Quiet {
		i.logOutput = io.Discard
	}

	return i, nil
}

// Metric returns true if the tools are asked for metric units
func (i *Install) Metric() bool {
	return i.Units == UnitsMetric
}

// Logger returns a logger for a component of the installation
func (i *Install) Logger(prefix string) *log.Logger {
	return log.New(i.logOutput, prefix+": ", log.LstdFlags|log.Lmsgprefix)
}

// Output runs a tool and returns its decoded, trimmed, combined output.
// A non zero exit status is not an error: tools are judged on their
// output and the files they produce.
func (i *Install) Output(ctx context.Context, exe string, args ...string) (string, error) {
	out, err := i.cmd.Output(ctx, exe, args...)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", fmt.Errorf("Unable to run %v: %v: %w", CommandLine(exe, args...), err, data.ErrExecutable)
		}
	}
	return Decode(out), nil
}

// Stream runs a tool and calls line for every line of output
func (i *Install) Stream(ctx context.Context, line func(string), exe string, args ...string) error {
	err := i.cmd.Stream(ctx, func(l string) {
		line(strings.TrimSpace(Decode([]byte(l))))
	}, exe, args...)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%v exited with status %v", filepath.Base(exe), exitErr.ExitCode())
		}
		return fmt.Errorf("Unable to run %v: %v: %w", CommandLine(exe, args...), err, data.ErrExecutable)
	}
	return nil
}

// Decode converts tool output from the Windows console code page
func Decode(b []byte) string {
	s, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return strings.TrimSpace(string(b))
	}
	return strings.TrimSpace(string(s))
}

// CheckOutput verifies that tool output contains the expected banner
func CheckOutput(exe, output, banner string) error {
	if !strings.Contains(output, banner) {
		return fmt.Errorf("Verify that the given %v works: %w", filepath.Base(exe), data.ErrExecutable)
	}
	return nil
}

var reVersion = regexp.MustCompile(`\b(?:19|20)\d{2}(?:\.\d+){0,2}\b`)

// ParseVersion finds the Moldflow release (e.g. 2019.0.2) in a tool banner
func ParseVersion(output string) (semver.Version, bool) {
	m := reVersion.FindString(output)
	if m == "" {
		return semver.Version{}, false
	}
	v, err := semver.ParseTolerant(m)
	if err != nil {
		return semver.Version{}, false
	}
	return v, true
}

// CleanupScratch removes the .out and .err files the tools leave next
// to a study
func CleanupScratch(sdy string) {
	for _, ext := range []string{".out", ".err"} {
		p := ReplaceExt(sdy, ext)
		if file.Exists(p) {
			os.Remove(p)
		}
	}
}

// ReplaceExt replaces the extension of path
func ReplaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// CommandLine formats a command for messages
func CommandLine(exe string, args ...string) string {
	return strings.Join(append([]string{exe}, args...), " ")
}
