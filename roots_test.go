package mcphost_test

import (
	"os"
	"path/filepath"
	"testing"

	mcphost "github.com/MegaGrindStone/go-mcphost"
)

func TestNormalizeRoots(t *testing.T) {
	roots := mcphost.NormalizeRoots([]string{"/tmp/project"})
	if len(roots) != 1 {
		t.Fatalf("NormalizeRoots returned %d roots, want 1", len(roots))
	}
	if roots[0].URI != "file:///tmp/project" {
		t.Errorf("URI = %q, want file:///tmp/project", roots[0].URI)
	}
	if roots[0].Name != "project" {
		t.Errorf("Name = %q, want project", roots[0].Name)
	}
}

func TestNormalizeRootsRelative(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	roots := mcphost.NormalizeRoots([]string{"."})
	if len(roots) != 1 {
		t.Fatalf("NormalizeRoots returned %d roots, want 1", len(roots))
	}
	want := "file://" + filepath.ToSlash(wd)
	if roots[0].URI != want {
		t.Errorf("URI = %q, want %q", roots[0].URI, want)
	}
}

func TestNormalizeRootsEmpty(t *testing.T) {
	if roots := mcphost.NormalizeRoots(nil); len(roots) != 0 {
		t.Errorf("NormalizeRoots(nil) = %v, want empty", roots)
	}
}
