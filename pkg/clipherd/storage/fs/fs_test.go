package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("requires base directory", func(t *testing.T) {
		_, err := New(Config{})
		assert.Error(t, err)
	})

	t.Run("creates base directory", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "blobs")
		_, err := New(Config{BaseDir: base})
		require.NoError(t, err)

		info, err := os.Stat(base)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestFilesystemBackend(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	backend, err := New(Config{BaseDir: base, URLPrefix: "http://localhost:8080"})
	require.NoError(t, err)

	t.Run("upload creates nested directories", func(t *testing.T) {
		require.NoError(t, backend.Upload(ctx, "acct/clip.mp4", strings.NewReader("video bytes")))

		data, err := os.ReadFile(filepath.Join(base, "acct", "clip.mp4"))
		require.NoError(t, err)
		assert.Equal(t, "video bytes", string(data))
	})

	t.Run("download round trip", func(t *testing.T) {
		rc, err := backend.Download(ctx, "acct/clip.mp4")
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "video bytes", string(data))
	})

	t.Run("download unknown key", func(t *testing.T) {
		_, err := backend.Download(ctx, "acct/missing.mp4")
		assert.Error(t, err)
	})

	t.Run("download url", func(t *testing.T) {
		url, err := backend.GetDownloadURL(ctx, "acct/clip.mp4")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/download/acct/clip.mp4", url)
	})

	t.Run("delete removes blob and empty directories", func(t *testing.T) {
		require.NoError(t, backend.Delete(ctx, "acct/clip.mp4"))

		_, err := os.Stat(filepath.Join(base, "acct", "clip.mp4"))
		assert.True(t, os.IsNotExist(err))
		// The now-empty account directory goes with it.
		_, err = os.Stat(filepath.Join(base, "acct"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("delete absent key is a no-op", func(t *testing.T) {
		assert.NoError(t, backend.Delete(ctx, "acct/missing.mp4"))
	})
}

func TestGetDownloadURLWithoutPrefix(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = backend.GetDownloadURL(context.Background(), "acct/clip.mp4")
	assert.Error(t, err)
}
