package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend(t *testing.T) {
	ctx := context.Background()
	backend := New().(*Backend)

	t.Run("upload and download", func(t *testing.T) {
		require.NoError(t, backend.Upload(ctx, "acct/clip.mp4", strings.NewReader("video bytes")))

		rc, err := backend.Download(ctx, "acct/clip.mp4")
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "video bytes", string(data))
		assert.Equal(t, 1, backend.Len())
	})

	t.Run("download unknown key", func(t *testing.T) {
		_, err := backend.Download(ctx, "missing")
		assert.Error(t, err)
	})

	t.Run("download url", func(t *testing.T) {
		url, err := backend.GetDownloadURL(ctx, "acct/clip.mp4")
		require.NoError(t, err)
		assert.Equal(t, "memory://acct/clip.mp4", url)

		_, err = backend.GetDownloadURL(ctx, "missing")
		assert.Error(t, err)
	})

	t.Run("upload overwrites", func(t *testing.T) {
		require.NoError(t, backend.Upload(ctx, "acct/clip.mp4", strings.NewReader("newer")))

		rc, err := backend.Download(ctx, "acct/clip.mp4")
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "newer", string(data))
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, backend.Delete(ctx, "acct/clip.mp4"))
		require.NoError(t, backend.Delete(ctx, "acct/clip.mp4"))
		assert.Equal(t, 0, backend.Len())
	})
}
