package fingerprint

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesKnownDigest(t *testing.T) {
	// sha256("") and sha256("abc")
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Bytes(nil))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Bytes([]byte("abc")))
}

func TestFileMatchesBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "teams.csv")
	content := []byte("code,id,name,short_name\n3,1,Arsenal,ARS\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	got, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, Bytes(content), got)
	assert.Len(t, got, 64)

	again, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, got, again, "same bytes must give the same hash")

	require.NoError(t, os.WriteFile(path, append(content, '\n'), 0o644))
	changed, err := File(path)
	require.NoError(t, err)
	assert.NotEqual(t, got, changed)
}

func TestFileMissing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
