// Package local implements a FileSource reading from a local directory,
// typically an NFS or rsync mirror of the web server's log drop.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Config captures the parameters for the local directory source.
type Config struct {
	// Dir is the directory containing the rotated log files.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Source lists and opens log files from a local directory.
type Source struct {
	dir string
}

// New creates a local directory source.
func New(cfg Config) (*Source, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("source directory is required")
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source path is not a directory")
	}
	return &Source{dir: cfg.Dir}, nil
}

// List returns the names of all regular files in the directory, sorted.
func (s *Source) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Open returns a reader for the named file. The name must be a bare
// filename; anything resembling a path is rejected.
func (s *Source) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if name == "" || name != filepath.Base(name) {
		return nil, fmt.Errorf("invalid file name %q", name)
	}
	f, err := os.Open(filepath.Join(s.dir, name)) // #nosec G304 -- name restricted to a basename
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	return f, nil
}
