package local_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmlogs/botwatch/internal/source/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		src, err := local.New(local.Config{Dir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, src)
	})

	t.Run("MissingDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("NonexistentDir", func(t *testing.T) {
		_, err := local.New(local.Config{Dir: filepath.Join(t.TempDir(), "nope")})
		assert.Error(t, err)
	})
}

func TestListAndOpen(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "access.log.2025-10-01.gz"), []byte("one"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "access.log.2025-10-02.gz"), []byte("two"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o750))

	src, err := local.New(local.Config{Dir: dir})
	require.NoError(t, err)

	names, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"access.log.2025-10-01.gz", "access.log.2025-10-02.gz"}, names)

	rc, err := src.Open(context.Background(), "access.log.2025-10-02.gz")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "two", string(data))
}

func TestOpenRejectsPaths(t *testing.T) {
	src, err := local.New(local.Config{Dir: t.TempDir()})
	require.NoError(t, err)

	for _, name := range []string{"", "../etc/passwd", "sub/file.gz"} {
		_, err := src.Open(context.Background(), name)
		assert.Error(t, err, "name %q should be rejected", name)
	}
}
