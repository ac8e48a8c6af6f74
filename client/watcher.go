package client

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mfauto/mfauto/nats"
	"github.com/mfauto/mfauto/pipeline"
)

// Suffixes appended to pipeline files once the watcher handled them
const (
	SuffixQueued = ".queued"
	SuffixFailed = ".failed"
)

// Watcher submits the pipeline files (*.yaml, *.yml) written to a folder.
// Handled files are renamed with SuffixQueued or SuffixFailed so they are
// not submitted twice. Files rejected with ErrQueueFull stay in place and
// are retried with exponential backoff.
type Watcher struct {
	dir      string
	submit   func(*pipeline.Spec) (string, error)
	settle   time.Duration
	retryMax time.Duration
	stop     chan struct{}
	stopOnce sync.Once
	log      *log.Logger
}

// NewWatcher creates a watcher of dir. A file is submitted once it was
// not written for settle, 500ms if zero.
func NewWatcher(dir string, settle time.Duration, submit func(*pipeline.Spec) (string, error)) *Watcher {
	if settle <= 0 {
		settle = 500 * time.Millisecond
	}

	return &Watcher{
		dir:      dir,
		submit:   submit,
		settle:   settle,
		retryMax: time.Minute,
		stop:     make(chan struct{}),
		log:      log.New(log.Writer(), "Watcher: ", log.Flags()|log.Lmsgprefix),
	}
}

// IsPipelineFile returns true for file names the watcher submits
func IsPipelineFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// Run watches the folder until stopped. Pipeline files already present
// are submitted first.
func (w *Watcher) Run() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("Error creating file watcher: %v", err)
	}
	defer fw.Close()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("Error watching %v: %v", w.dir, err)
	}

	w.log.Println("Watching ", w.dir)

	pending := make(map[string]time.Time)
	retries := make(map[string]int)

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() && IsPipelineFile(e.Name()) {
			pending[filepath.Join(w.dir, e.Name())] = time.Time{}
		}
	}

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !IsPipelineFile(ev.Name) {
				continue
			}
			switch {
			case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
				pending[ev.Name] = time.Now()
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				delete(pending, ev.Name)
				delete(retries, ev.Name)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Println("error: ", err)

		case <-ticker.C:
			var ready []string
			for path, t := range pending {
				if time.Since(t) >= w.settle {
					ready = append(ready, path)
				}
			}
			sort.Strings(ready)
			for _, path := range ready {
				delete(pending, path)
				if w.handle(path) {
					pending[path] = time.Now().Add(nats.ExpBackoff(retries[path], w.retryMax))
					retries[path]++
					continue
				}
				delete(retries, path)
			}
		}
	}
}

// handle submits a pipeline file and returns true if it must be retried
func (w *Watcher) handle(path string) bool {
	suffix := SuffixQueued

	spec, err := pipeline.Load(path)
	if err == nil {
		var id string
		id, err = w.submit(spec)
		if errors.Is(err, ErrQueueFull) {
			w.log.Printf("%v: %v, retrying", filepath.Base(path), err)
			return true
		}
		if err == nil {
			w.log.Printf("%v submitted as job %v", filepath.Base(path), id)
		}
	}

	if err != nil {
		w.log.Printf("%v: %v", filepath.Base(path), err)
		suffix = SuffixFailed
	}

	if err := os.Rename(path, path+suffix); err != nil {
		w.log.Println("Error renaming pipeline file: ", err)
	}

	return false
}

// Stop the watcher
func (w *Watcher) Stop(_ error) {
	w.stopOnce.Do(func() { close(w.stop) })
}
