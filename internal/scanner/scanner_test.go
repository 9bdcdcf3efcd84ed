package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll() error: %v", err)
	}
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
}

func TestScanFindsPDFsRecursively(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "feb.pdf"))
	writeFile(t, filepath.Join(root, "2025", "mar.pdf"))
	writeFile(t, filepath.Join(root, "2025", "notes.txt"))
	writeFile(t, filepath.Join(root, "README.md"))

	paths, err := New(root).Scan()
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("Scan() found %d files, want 2: %v", len(paths), paths)
	}
	// Sorted output keeps runs deterministic.
	if filepath.Base(paths[0]) != "mar.pdf" || filepath.Base(paths[1]) != "feb.pdf" {
		t.Errorf("Scan() order = %v, want [2025/mar.pdf feb.pdf]", paths)
	}
}

func TestScanCaseInsensitiveExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "APRIL.PDF"))

	paths, err := New(root).Scan()
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if len(paths) != 1 {
		t.Errorf("Scan() found %d files, want 1", len(paths))
	}
}

func TestScanSingleFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "feb.pdf")
	writeFile(t, path)

	paths, err := New(path).Scan()
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if len(paths) != 1 || paths[0] != path {
		t.Errorf("Scan() = %v, want [%s]", paths, path)
	}
}

func TestScanSingleNonPDF(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "notes.txt")
	writeFile(t, path)

	if _, err := New(path).Scan(); err == nil {
		t.Error("Scan() on non-PDF file succeeded, want error")
	}
}

func TestScanMissingDirectory(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "nope")).Scan(); err == nil {
		t.Error("Scan() on missing directory succeeded, want error")
	}
}

func TestScanEmptyDirectory(t *testing.T) {
	paths, err := New(t.TempDir()).Scan()
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("Scan() found %d files in empty directory, want 0", len(paths))
	}
}
