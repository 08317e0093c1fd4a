package gcs

import (
	"testing"

	"cloud.google.com/go/storage"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, Config{Bucket: "bucket"}); err == nil {
		t.Fatal("expected error for nil client")
	}
	if _, err := New(&storage.Client{}, Config{}); err == nil {
		t.Fatal("expected error for missing bucket")
	}
	store, err := New(&storage.Client{}, Config{Bucket: "bucket"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if store == nil {
		t.Fatal("expected store to be non-nil")
	}
}
