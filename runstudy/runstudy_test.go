package runstudy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mfauto/mfauto/data"
	"github.com/mfauto/mfauto/moldflow"
)

func newTestRunner(t *testing.T, fn func(string, []string) (string, error)) (*Runner, *moldflow.FakeCommander) {
	return newTestRunnerUnits(t, moldflow.UnitsMetric, fn)
}

func newTestRunnerUnits(t *testing.T, units string, fn func(string, []string) (string, error)) (*Runner, *moldflow.FakeCommander) {
	t.Helper()
	dir := t.TempDir()
	if err := moldflow.FakeInstall(dir); err != nil {
		t.Fatal(err)
	}
	fake := &moldflow.FakeCommander{Fn: fn}
	inst, err := moldflow.NewInstall(dir, moldflow.Options{
		Units:     units,
		Commander: fake,
		Quiet:     true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return NewRunner(inst), fake
}

func TestCheck(t *testing.T) {
	r, _ := newTestRunner(t, func(string, []string) (string, error) {
		return "Autodesk Moldflow Insight runstudy", nil
	})
	if err := r.Check(context.Background()); err != nil {
		t.Fatal("check failed: ", err)
	}

	r, _ = newTestRunner(t, func(string, []string) (string, error) {
		return "'runstudy' is not recognized", nil
	})
	if err := r.Check(context.Background()); !errors.Is(err, data.ErrExecutable) {
		t.Fatal("expected ErrExecutable, got: ", err)
	}
}

func TestRun(t *testing.T) {
	r, fake := newTestRunner(t, func(string, []string) (string, error) {
		return "Filling analysis\n\n  Analysis complete\n", nil
	})

	sdy := filepath.Join(t.TempDir(), "part.sdy")
	if err := r.Run(context.Background(), sdy, nil); !errors.Is(err, data.ErrNotFound) {
		t.Fatal("expected ErrNotFound for missing study, got: ", err)
	}

	if err := os.WriteFile(sdy, nil, 0644); err != nil {
		t.Fatal(err)
	}

	var lines []string
	if err := r.Run(context.Background(), sdy, func(l string) { lines = append(lines, l) }); err != nil {
		t.Fatal("run failed: ", err)
	}

	if diff := cmp.Diff([]string{"Filling analysis", "Analysis complete"}, lines); diff != "" {
		t.Fatal("lines mismatch: ", diff)
	}

	exp := [][]string{{moldflow.ExeRunStudy, sdy, "-temp",
		filepath.Join(filepath.Dir(sdy), "runsdytmp_part"), "-units", "Metric"}}
	if diff := cmp.Diff(exp, fake.Calls()); diff != "" {
		t.Fatal("command mismatch: ", diff)
	}
}

func TestArgsUnits(t *testing.T) {
	sdy := filepath.Join("a", "part.sdy")
	tmp := filepath.Join("a", "runsdytmp_part")

	tests := map[string][]string{
		"":                    {sdy, "-temp", tmp},
		moldflow.UnitsMetric:  {sdy, "-temp", tmp, "-units", "Metric"},
		moldflow.UnitsEnglish: {sdy, "-temp", tmp, "-units", "English"},
		moldflow.UnitsSI:      {sdy, "-temp", tmp, "-units", "SI"},
	}

	for units, exp := range tests {
		r, _ := newTestRunnerUnits(t, units, nil)
		if diff := cmp.Diff(exp, r.Args(sdy)); diff != "" {
			t.Errorf("units %q: args mismatch: %v", units, diff)
		}
	}
}
