package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/llmlogs/botwatch/internal/botlog"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("content")
	uri, err := store.PutObject(context.Background(), "raw/date=2025-10-01/a.log.gz", "application/gzip", payload)
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if uri != "memory://raw/date=2025-10-01/a.log.gz" {
		t.Fatalf("unexpected uri %s", uri)
	}
	payload[0] = 'C'
	stored, err := store.GetObject(context.Background(), "raw/date=2025-10-01/a.log.gz")
	if err != nil {
		t.Fatalf("GetObject() error = %v", err)
	}
	if string(stored) != "content" {
		t.Fatalf("stored data mutated: %q", stored)
	}
}

func TestBlobStoreGetMissing(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	_, err := store.GetObject(context.Background(), "nope")
	if !errors.Is(err, botlog.ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestBlobStoreListObjects(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	ctx := context.Background()
	for _, key := range []string{"raw/b", "raw/a", "parsed/c"} {
		if _, err := store.PutObject(ctx, key, "", []byte("x")); err != nil {
			t.Fatalf("PutObject(%s) error = %v", key, err)
		}
	}

	keys, err := store.ListObjects(ctx, "raw/")
	if err != nil {
		t.Fatalf("ListObjects() error = %v", err)
	}
	if len(keys) != 2 || keys[0] != "raw/a" || keys[1] != "raw/b" {
		t.Fatalf("keys = %v", keys)
	}
	if store.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", store.Len())
	}
}

func TestBlobStorePutErr(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	store.PutErr = errors.New("boom")
	if _, err := store.PutObject(context.Background(), "k", "", nil); err == nil {
		t.Fatal("expected injected error")
	}
}
