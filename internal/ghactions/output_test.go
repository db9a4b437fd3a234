package ghactions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(data)
}

func TestWriter_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.WriteFile(path, []byte("existing=1\n"), 0o600))

	w := NewWriter(path)
	require.NoError(t, w.Write(String("version", "1.2.3"), String("tag", "v1.2.3"), Bool("needs_increment", true)))
	require.NoError(t, w.Write(Int("deleted_count", 4)))

	assert.Equal(t, "existing=1\nversion=1.2.3\ntag=v1.2.3\nneeds_increment=true\ndeleted_count=4\n", readFile(t, path))
}

func TestWriter_MultiLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")

	require.NoError(t, NewWriter(path).Write(String("body", "a\nb")))
	assert.Equal(t, "body<<CIDEV_EOF\na\nb\nCIDEV_EOF\n", readFile(t, path))
}

func TestWriter_DelimiterCollision(t *testing.T) {
	assert.Equal(t, "CIDEV_EOF_", delimiter("x\nCIDEV_EOF\n"))
}

func TestWriter_EmptyKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")
	assert.Error(t, NewWriter(path).Write(String("", "x")))
}

func TestWriter_BadPath(t *testing.T) {
	err := NewWriter(filepath.Join(t.TempDir(), "missing", "out")).Write(String("a", "b"))
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvOutput, "")

	_, err := FromEnv()
	require.ErrorIs(t, err, ErrNoOutputFile)

	path := filepath.Join(t.TempDir(), "out")
	t.Setenv(EnvOutput, path)

	w, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, path, w.Path())
}

func TestWriteIfSet(t *testing.T) {
	t.Setenv(EnvOutput, "")
	require.NoError(t, WriteIfSet(String("a", "b")))

	path := filepath.Join(t.TempDir(), "out")
	t.Setenv(EnvOutput, path)
	require.NoError(t, WriteIfSet(Bool("tag_created", false)))
	assert.Equal(t, "tag_created=false\n", readFile(t, path))
}
