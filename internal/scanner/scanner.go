// Package scanner discovers PDF statements under a directory tree.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Scanner walks a directory tree and collects statement PDFs.
type Scanner struct {
	rootDir string
}

// New creates a scanner rooted at rootDir. A leading ~ is expanded to the
// user's home directory.
func New(rootDir string) *Scanner {
	return &Scanner{rootDir: rootDir}
}

// Scan returns the paths of all PDF files under the root, sorted so runs
// are deterministic. A root that is itself a PDF file yields that single
// path.
func (s *Scanner) Scan() ([]string, error) {
	root := expandHome(s.rootDir)

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", root, err)
	}
	if !info.IsDir() {
		if !isPDF(root) {
			return nil, fmt.Errorf("%s is not a PDF file", root)
		}
		return []string{root}, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isPDF(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
