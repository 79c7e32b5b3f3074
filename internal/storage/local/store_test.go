// Package local_test tests the filesystem destination writer.
package local_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/remotefiles/internal/storage/local"
)

func TestWrite(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	store := local.New(nil, nil)

	t.Run("NestedPath", func(t *testing.T) {
		path := filepath.Join(tempDir, "a", "b", "c", "object.txt")
		uri, err := store.Write(context.Background(), path, []byte("nested hello"))
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.ToSlash(path), uri)

		// #nosec G304 -- test reads from the controlled temp directory.
		readData, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "nested hello", string(readData))
	})

	t.Run("OverwritesExisting", func(t *testing.T) {
		path := filepath.Join(tempDir, "over.txt")
		require.NoError(t, os.WriteFile(path, []byte("a much longer original body"), 0o600))

		_, err := store.Write(context.Background(), path, []byte("short"))
		require.NoError(t, err)

		// #nosec G304 -- test reads from the controlled temp directory.
		readData, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "short", string(readData))
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.Write(context.Background(), "  ", []byte("data"))
		assert.Error(t, err)
	})

	t.Run("ParentIsAFile", func(t *testing.T) {
		blocker := filepath.Join(tempDir, "blocker")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

		_, err := store.Write(context.Background(), filepath.Join(blocker, "child.txt"), []byte("data"))
		assert.Error(t, err)
	})
}

func TestWriteCurrentDirectory(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	store := local.New(fs, nil)

	uri, err := store.Write(context.Background(), "top.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "file://top.txt", uri)

	data, err := afero.ReadFile(fs, "top.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestWriteExistingDirectoryIsFine(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("out", 0o755))
	store := local.New(fs, nil)

	_, err := store.Write(context.Background(), "out/a.txt", []byte("one"))
	require.NoError(t, err)
	_, err = store.Write(context.Background(), "out/b.txt", []byte("two"))
	require.NoError(t, err)

	exists, err := afero.DirExists(fs, "out")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestWriteCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := local.New(afero.NewMemMapFs(), nil)
	_, err := store.Write(ctx, "a.txt", []byte("x"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestWriteReadOnlyFs(t *testing.T) {
	t.Parallel()

	store := local.New(afero.NewReadOnlyFs(afero.NewMemMapFs()), nil)
	_, err := store.Write(context.Background(), "out/a.txt", []byte("x"))
	require.Error(t, err)
}
