package fsext

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRimRaf(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, MkDir(fs, "out/nested"))
	require.NoError(t, WriteFile(fs, "out/nested/file.txt", []byte("x")))

	require.NoError(t, RimRaf(fs, "out"))
	exists, err := afero.DirExists(fs, "out")
	require.NoError(t, err)
	assert.False(t, exists)

	// deleting a missing directory is not an error
	assert.NoError(t, RimRaf(fs, "out"))
}

func TestReadWriteFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, WriteFile(fs, "hello.txt", []byte("hello")))
	data, err := ReadFile(fs, "hello.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestReadDirSkipsDirectories(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, MkDir(fs, "dist/sub"))
	require.NoError(t, WriteFile(fs, "dist/a.js", nil))
	require.NoError(t, WriteFile(fs, "dist/b.css", nil))

	paths, err := ReadDir(fs, "dist")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join("dist", "a.js"),
		filepath.Join("dist", "b.css"),
	}, paths)
}
