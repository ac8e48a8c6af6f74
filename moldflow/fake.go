package moldflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FakeCommander is used to fake tool runs in tests. Fn is called with the
// base name of the executable and its arguments and returns the tool
// output. Fn may create the files the tool would produce.
type FakeCommander struct {
	Fn func(exe string, args []string) (string, error)

	lock  sync.Mutex
	calls [][]string
}

// Output implements Commander
func (f *FakeCommander) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	out, err := f.call(name, args)
	return []byte(out), err
}

// Stream implements Commander
func (f *FakeCommander) Stream(_ context.Context, line func(string), name string, args ...string) error {
	out, err := f.call(name, args)
	for _, l := range strings.Split(out, "\n") {
		if l != "" {
			line(l)
		}
	}
	return err
}

// Calls returns the recorded command lines, executable base name first
func (f *FakeCommander) Calls() [][]string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([][]string{}, f.calls...)
}

func (f *FakeCommander) call(name string, args []string) (string, error) {
	exe := filepath.Base(name)
	f.lock.Lock()
	f.calls = append(f.calls, append([]string{exe}, args...))
	f.lock.Unlock()
	if f.Fn == nil {
		return "", nil
	}
	return f.Fn(exe, args)
}

// FakeInstall creates the bin directory of a Moldflow installation with
// empty executables under dir
func FakeInstall(dir string) error {
	bin := filepath.Join(dir, "bin")
	if err := os.MkdirAll(bin, 0755); err != nil {
		return err
	}
	for _, exe := range []string{ExeStudyMod, ExeRunStudy, ExeStudyRLT} {
		if err := os.WriteFile(filepath.Join(bin, exe), nil, 0755); err != nil {
			return err
		}
	}
	return nil
}
