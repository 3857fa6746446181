package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jpg", "a.png", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "nested", "c.jpg"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	// A loose file is kept even if keep would reject it.
	loose := filepath.Join(t.TempDir(), "extra.txt")
	if err := os.WriteFile(loose, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	onlyImages := func(p string) bool {
		ext := filepath.Ext(p)
		return ext == ".jpg" || ext == ".png"
	}

	files, err := ExpandInputs([]string{dir, loose}, onlyImages)
	if err != nil {
		t.Fatalf("ExpandInputs failed: %v", err)
	}

	want := []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.jpg"), loose}
	if len(files) != len(want) {
		t.Fatalf("Expected %d files, got %d: %v", len(want), len(files), files)
	}
	for i := range want {
		// Sorted output, so compare as a set of expected paths.
		found := false
		for _, f := range files {
			if f == want[i] {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected %s in %v", want[i], files)
		}
	}

	if _, err := ExpandInputs([]string{filepath.Join(dir, "missing")}, nil); err == nil {
		t.Error("Expected error for missing path")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	NewLogger(&buf, false).Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("Debug output leaked at info level: %q", buf.String())
	}

	NewLogger(&buf, true).Debug("shown", "key", "value")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("Expected debug line, got %q", buf.String())
	}
}
