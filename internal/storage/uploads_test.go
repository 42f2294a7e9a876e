package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploads_SaveOverwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "upload_images")
	u := NewUploads(dir)

	path, err := u.Save("apple.jpg", []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "apple.jpg"), path)

	_, err = u.Save("apple.jpg", []byte("second"))
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestUploads_StripsDirectories(t *testing.T) {
	dir := t.TempDir()
	u := NewUploads(dir)

	for _, name := range []string{"../../etc/pear.png", `C:\photos\pear.png`, "/abs/pear.png"} {
		path, err := u.Save(name, []byte("x"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "pear.png"), path)
	}
}

func TestUploads_EmptyName(t *testing.T) {
	u := NewUploads(t.TempDir())
	for _, name := range []string{"", "/", "..", "  "} {
		_, err := u.Save(name, []byte("x"))
		assert.ErrorIs(t, err, ErrEmptyFilename, "name %q", name)
	}
}
