package lockfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLock(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "Cargo.lock")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestStripFile_RewritesFile(t *testing.T) {
	path := writeLock(t, threeBlocks)

	res, err := StripFile(context.Background(), path, NewSet(DefaultRemovalSet...), StripOptions{})
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.True(t, res.Written)
	assert.Equal(t, 1, res.Stats.PackagesRemoved)
	assert.Equal(t, 1, res.Stats.DependencyReferencesRemoved)
	assert.Negative(t, res.SizeDelta())
	assert.Nil(t, res.Diff)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, threeBlocksFiltered, string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStripFile_NoChange(t *testing.T) {
	path := writeLock(t, threeBlocksFiltered)

	res, err := StripFile(context.Background(), path, NewSet(DefaultRemovalSet...), StripOptions{})
	require.NoError(t, err)

	assert.False(t, res.Changed)
	assert.False(t, res.Written)
	assert.False(t, res.Stats.Changed())
	assert.Zero(t, res.SizeDelta())
}

func TestStripFile_DryRunWithDiff(t *testing.T) {
	path := writeLock(t, threeBlocks)

	res, err := StripFile(context.Background(), path, NewSet("xcb"), StripOptions{DryRun: true, Diff: true})
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.False(t, res.Written)
	require.NotNil(t, res.Diff)
	assert.True(t, res.Diff.HasDifferences())
	assert.Contains(t, res.Diff.Unified, `-name = "xcb"`)
	assert.Contains(t, res.Diff.Unified, "--- a/"+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, threeBlocks, string(data))
}

func TestStripFile_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Cargo.lock")

	_, err := StripFile(context.Background(), path, NewSet("xcb"), StripOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "not found")
}

func TestStripFile_EmptyFile(t *testing.T) {
	path := writeLock(t, "  \n\n")

	_, err := StripFile(context.Background(), path, NewSet("xcb"), StripOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestStripFile_ValidationFailureLeavesFile(t *testing.T) {
	doc := preamble + "\n[[package]]\nname = \"xcb\"\nversion = \"0.8.2\"\n"
	path := writeLock(t, doc)

	_, err := StripFile(context.Background(), path, NewSet("xcb"), StripOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidOutput)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, doc, string(data))
}

func TestStripFile_CanceledContext(t *testing.T) {
	path := writeLock(t, threeBlocks)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := StripFile(ctx, path, NewSet("xcb"), StripOptions{})
	require.ErrorIs(t, err, context.Canceled)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, threeBlocks, string(data))
}
