package client

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mfauto/mfauto/pipeline"
)

func waitFile(t *testing.T, path string) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("file not found: ", path)
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()

	// present before the watcher starts
	early := filepath.Join(dir, "early.yaml")
	if err := os.WriteFile(early, []byte("study: a.sdy\nrun: true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	submitted := make(chan *pipeline.Spec, 10)
	w := NewWatcher(dir, 50*time.Millisecond, func(s *pipeline.Spec) (string, error) {
		submitted <- s
		return "id", nil
	})

	done := make(chan error)
	go func() { done <- w.Run() }()
	defer func() {
		w.Stop(nil)
		<-done
	}()

	waitFile(t, early+SuffixQueued)

	late := filepath.Join(dir, "late.yml")
	if err := os.WriteFile(late, []byte("study: b.sdy\nrun: true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	waitFile(t, late+SuffixQueued)

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("study: [\n"), 0644); err != nil {
		t.Fatal(err)
	}
	waitFile(t, bad+SuffixFailed)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if len(submitted) != 2 {
		t.Fatal("expected 2 submitted pipelines, got: ", len(submitted))
	}

	s := <-submitted
	if s.Study != filepath.Join(dir, "a.sdy") {
		t.Fatal("relative path not resolved: ", s.Study)
	}
}

func TestWatcherQueueFull(t *testing.T) {
	dir := t.TempDir()

	var attempts atomic.Int32
	w := NewWatcher(dir, 20*time.Millisecond, func(s *pipeline.Spec) (string, error) {
		if attempts.Add(1) < 2 {
			return "", ErrQueueFull
		}
		return "id", nil
	})
	w.retryMax = 10 * time.Millisecond

	done := make(chan error)
	go func() { done <- w.Run() }()
	defer func() {
		w.Stop(nil)
		<-done
	}()

	path := filepath.Join(dir, "job.yaml")
	if err := os.WriteFile(path, []byte("study: a.sdy\nrun: true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	waitFile(t, path+SuffixQueued)

	if n := attempts.Load(); n != 2 {
		t.Fatal("expected 2 submit attempts, got: ", n)
	}
}

func TestIsPipelineFile(t *testing.T) {
	for name, exp := range map[string]bool{
		"a.yaml":        true,
		"a.YML":         true,
		"a.yaml.queued": false,
		"a.txt":         false,
	} {
		if IsPipelineFile(name) != exp {
			t.Error("wrong result for ", name)
		}
	}
}
