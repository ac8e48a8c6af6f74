package moldflow

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mfauto/mfauto/data"
)

func TestNewInstall(t *testing.T) {
	dir := t.TempDir()

	if _, err := NewInstall(dir, Options{}); !errors.Is(err, data.ErrExecutable) {
		t.Fatal("expected ErrExecutable for empty dir, got: ", err)
	}

	if err := FakeInstall(dir); err != nil {
		t.Fatal(err)
	}

	i, err := NewInstall(dir, Options{Units: UnitsMetric, Quiet: true})
	if err != nil {
		t.Fatal("install failed: ", err)
	}

	if filepath.Base(i.StudyRLT) != ExeStudyRLT || !i.Metric() {
		t.Fatalf("wrong install: %+v", i)
	}

	if _, err := NewInstall(dir, Options{Units: "Imperial"}); err == nil {
		t.Fatal("expected error for unknown units")
	}
}

func TestOutput(t *testing.T) {
	dir := t.TempDir()
	if err := FakeInstall(dir); err != nil {
		t.Fatal(err)
	}

	fake := &FakeCommander{Fn: func(exe string, args []string) (string, error) {
		return "  Autodesk Moldflow Synergy 2019.0.2 \xa9 \r\n", nil
	}}

	i, err := NewInstall(dir, Options{Commander: fake, Quiet: true})
	if err != nil {
		t.Fatal(err)
	}

	out, err := i.Output(context.Background(), i.StudyMod, "a.sdy")
	if err != nil {
		t.Fatal(err)
	}

	if out != "Autodesk Moldflow Synergy 2019.0.2 ©" {
		t.Fatalf("wrong decoded output: %q", out)
	}

	if err := CheckOutput(i.StudyMod, out, BannerAutodesk); err != nil {
		t.Fatal("banner check failed: ", err)
	}

	if err := CheckOutput(i.StudyMod, "foo", BannerAutodesk); !errors.Is(err, data.ErrExecutable) {
		t.Fatal("expected ErrExecutable, got: ", err)
	}

	v, ok := ParseVersion(out)
	if !ok || v.Major != 2019 || v.Patch != 2 {
		t.Fatal("wrong version: ", v)
	}

	if _, ok := ParseVersion("no version here"); ok {
		t.Fatal("expected no version")
	}

	exp := [][]string{{ExeStudyMod, "a.sdy"}}
	if diff := cmp.Diff(exp, fake.Calls()); diff != "" {
		t.Fatal("calls mismatch: ", diff)
	}
}

func TestStream(t *testing.T) {
	dir := t.TempDir()
	if err := FakeInstall(dir); err != nil {
		t.Fatal(err)
	}

	fake := &FakeCommander{Fn: func(exe string, args []string) (string, error) {
		return "line 1 \nline 2\n", nil
	}}

	i, err := NewInstall(dir, Options{Commander: fake, Quiet: true})
	if err != nil {
		t.Fatal(err)
	}

	var lines []string
	err = i.Stream(context.Background(), func(l string) {
		lines = append(lines, l)
	}, i.RunStudy)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"line 1", "line 2"}, lines); diff != "" {
		t.Fatal("lines mismatch: ", diff)
	}
}

func TestScanLinesLongLine(t *testing.T) {
	r := strings.NewReader("short\n" + strings.Repeat("x", 100) + "\nafter\n")

	var lines []string
	err := scanLines(r, func(l string) { lines = append(lines, l) }, 32)
	if !errors.Is(err, bufio.ErrTooLong) {
		t.Fatal("expected ErrTooLong, got: ", err)
	}

	if r.Len() != 0 {
		t.Fatal("output not drained, left: ", r.Len())
	}

	if diff := cmp.Diff([]string{"short"}, lines); diff != "" {
		t.Fatal("lines mismatch: ", diff)
	}

	lines = nil
	if err := scanLines(strings.NewReader("a\nb"), func(l string) { lines = append(lines, l) }, 32); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, lines); diff != "" {
		t.Fatal("lines mismatch: ", diff)
	}
}

func TestCleanupScratch(t *testing.T) {
	dir := t.TempDir()
	sdy := filepath.Join(dir, "part.sdy")
	for _, ext := range []string{".sdy", ".out", ".err"} {
		if err := os.WriteFile(ReplaceExt(sdy, ext), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	CleanupScratch(sdy)

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "part.sdy" {
		t.Fatal("scratch files not removed: ", entries)
	}
}
