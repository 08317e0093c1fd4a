// Package memory provides an in-memory FileSource for tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// Source serves log files from an in-memory map.
type Source struct {
	mu    sync.RWMutex
	files map[string][]byte

	// ListErr, when set, is returned by List.
	ListErr error
	// OpenErr maps file names to injected Open failures.
	OpenErr map[string]error
}

// NewSource creates an empty in-memory source.
func NewSource() *Source {
	return &Source{
		files:   make(map[string][]byte),
		OpenErr: make(map[string]error),
	}
}

// Add registers a file with the given content.
func (s *Source) Add(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = append([]byte(nil), data...)
}

// List returns the registered file names, sorted.
func (s *Source) List(_ context.Context) ([]string, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Open returns a reader over the registered content.
func (s *Source) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if err := s.OpenErr[name]; err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.files[name]
	if !ok {
		return nil, fmt.Errorf("file %s not found", name)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
