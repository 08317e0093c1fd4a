// Package memory stores blob content in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/llmlogs/botwatch/internal/botlog"
)

// BlobStore keeps artifacts in-memory and returns pseudo URIs. Calls honor
// context cancellation so callers' abort paths can be exercised in tests.
type BlobStore struct {
	mu       sync.RWMutex
	data     map[string][]byte
	putCalls int
	getCalls int

	// PutErr, when set, is returned by every PutObject call.
	PutErr error
	// GetErr, when set, is returned by every GetObject call.
	GetErr error
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		data: make(map[string][]byte),
	}
}

// PutObject persists the content and returns a URI.
func (s *BlobStore) PutObject(ctx context.Context, path string, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.putCalls++
	if s.PutErr != nil {
		return "", s.PutErr
	}
	s.data[path] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s", path), nil
}

// GetObject returns a copy of the stored content.
func (s *BlobStore) GetObject(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.getCalls++
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	data, ok := s.data[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, botlog.ErrObjectNotFound)
	}
	return append([]byte(nil), data...), nil
}

// ListObjects returns all keys under prefix, sorted lexically.
func (s *BlobStore) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len reports how many objects are stored.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// PutCalls reports how many PutObject attempts were made, failed ones
// included.
func (s *BlobStore) PutCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.putCalls
}

// GetCalls reports how many GetObject attempts were made, failed ones
// included.
func (s *BlobStore) GetCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getCalls
}
