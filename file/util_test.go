package file

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMove(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "sub", "b.txt")

	if err := os.WriteFile(src, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Move(src, dst); err != nil {
		t.Fatal("move failed: ", err)
	}

	if Exists(src) {
		t.Fatal("source still exists")
	}

	if Size(dst) != 5 {
		t.Fatal("wrong destination size: ", Size(dst))
	}

	if err := Move(src, dst); err == nil {
		t.Fatal("expected error moving missing file")
	}
}
