package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdoutWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	w := NewStdoutWriter(&buf)

	data := []byte("# Test Execution Report\n")
	require.NoError(t, w.Write(data))
	assert.Equal(t, string(data), buf.String())
}

func TestStdoutWriter_NilDefault(t *testing.T) {
	w := NewStdoutWriter(nil)
	assert.NotNil(t, w)
}

func TestFileWriter_Write(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reports", "test.json")

	w := NewFileWriter(path)
	data := []byte(`{"summary":{}}`)
	require.NoError(t, w.Write(data))

	got, err := os.ReadFile(path) //nolint:gosec // test
	require.NoError(t, err)
	assert.Equal(t, string(data), string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestFileWriter_CustomPermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.txt")

	w := NewFileWriter(path, WithPermissions(0o600))
	require.NoError(t, w.Write([]byte("secret")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileWriter_KeepsExistingMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Cargo.lock")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	w := NewFileWriter(path)
	require.NoError(t, w.Write([]byte("new")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileWriter_OverwriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Cargo.lock")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644)) //nolint:gosec // test

	w := NewFileWriter(path)
	require.NoError(t, w.Write([]byte("new")))

	got, err := os.ReadFile(path) //nolint:gosec // test
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileWriter_Backup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workflow.rb")
	require.NoError(t, os.WriteFile(path, []byte("old formula"), 0o644)) //nolint:gosec // test

	w := NewFileWriter(path, WithBackup(".bak"))
	require.NoError(t, w.Write([]byte("new formula")))

	backup, err := os.ReadFile(w.BackupPath())
	require.NoError(t, err)
	assert.Equal(t, "old formula", string(backup))

	got, err := os.ReadFile(path) //nolint:gosec // test
	require.NoError(t, err)
	assert.Equal(t, "new formula", string(got))
}

func TestFileWriter_BackupSkippedForNewFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workflow.rb")

	w := NewFileWriter(path, WithBackup(".bak"))
	require.NoError(t, w.Write([]byte("formula")))

	_, err := os.Stat(path + ".bak")
	assert.True(t, os.IsNotExist(err))
}

func TestFileWriter_Path(t *testing.T) {
	w := NewFileWriter("/tmp/test.txt")
	assert.Equal(t, "/tmp/test.txt", w.Path())
	assert.Empty(t, w.BackupPath())
}

func TestFileWriter_InvalidPath(t *testing.T) {
	w := NewFileWriter("/dev/null/impossible/path.txt")
	err := w.Write([]byte("data"))
	assert.Error(t, err)
}
