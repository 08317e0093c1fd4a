// Package local_test tests the local filesystem blob store.
package local_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmlogs/botwatch/internal/botlog"
	"github.com/llmlogs/botwatch/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		tempDir := t.TempDir()
		cfg := local.Config{BaseDir: tempDir}
		store, err := local.New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		cfg := local.Config{}
		_, err := local.New(cfg)
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		tempFile, err := os.CreateTemp("", "testfile")
		require.NoError(t, err)
		t.Cleanup(func() {
			removeErr := os.Remove(tempFile.Name())
			if removeErr != nil && !os.IsNotExist(removeErr) {
				t.Fatalf("failed to remove temp file: %v", removeErr)
			}
		})

		cfg := local.Config{BaseDir: tempFile.Name()}
		_, err = local.New(cfg)
		assert.Error(t, err)
	})
}

func TestPutGetObject(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)

	t.Run("RoundTrip", func(t *testing.T) {
		path := "raw/date=2025-10-01/access.log.gz"
		data := []byte("hello world")
		uri, err := store.PutObject(context.Background(), path, "application/gzip", data)
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.Join(tempDir, filepath.FromSlash(path)), uri)

		got, err := store.GetObject(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), "", "text/plain", []byte("data"))
		assert.Error(t, err)
	})

	t.Run("PathTraversal", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), "../escape.txt", "text/plain", []byte("data"))
		assert.Error(t, err)
	})

	t.Run("MissingObject", func(t *testing.T) {
		_, err := store.GetObject(context.Background(), "raw/missing.gz")
		assert.True(t, errors.Is(err, botlog.ErrObjectNotFound))
	})
}

func TestListObjects(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)

	ctx := context.Background()
	for _, key := range []string{
		"raw/date=2025-10-01/a.log.gz",
		"raw/date=2025-10-02/b.log.gz",
		"reports/bot-report-2025-10-02.json",
	} {
		_, err := store.PutObject(ctx, key, "", []byte("x"))
		require.NoError(t, err)
	}

	keys, err := store.ListObjects(ctx, "raw/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"raw/date=2025-10-01/a.log.gz",
		"raw/date=2025-10-02/b.log.gz",
	}, keys)

	all, err := store.ListObjects(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
