package cidev_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/cidev/pkg/cidev"
)

const lock = `version = 3

[[package]]
name = "alpha"
version = "0.1.0"

[[package]]
name = "beta"
version = "0.2.0"
dependencies = [
 "alpha",
 "xcb 0.8.2",
]

[[package]]
name = "xcb"
version = "0.8.2"
`

func writeLock(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "Cargo.lock")
	require.NoError(t, os.WriteFile(path, []byte(lock), 0o644))

	return path
}

func TestStripLockFile_Defaults(t *testing.T) {
	path := writeLock(t)

	res, err := cidev.StripLockFile(context.Background(), path)
	require.NoError(t, err)

	assert.True(t, res.Written)
	assert.Equal(t, 1, res.PackagesRemoved)
	assert.Equal(t, 1, res.ReferencesRemoved)
	assert.Equal(t, []string{"xcb"}, res.Removed)
	assert.Less(t, res.SizeAfter, res.SizeBefore)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "xcb")
}

func TestStripLockFile_DryRunWithDiff(t *testing.T) {
	path := writeLock(t)

	res, err := cidev.StripLockFile(context.Background(), path, cidev.WithDryRun(), cidev.WithDiff())
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.False(t, res.Written)
	assert.Contains(t, res.Diff, `-name = "xcb"`)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, lock, string(data))
}

func TestStripLockFile_EmptyRemovalSet(t *testing.T) {
	_, err := cidev.StripLockFile(context.Background(), writeLock(t), cidev.WithPackages())
	require.Error(t, err)
}

func TestStripLockFile_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Cargo.lock")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := cidev.StripLockFile(context.Background(), path)
	require.ErrorIs(t, err, cidev.ErrEmptyDocument)
}

func TestFilterLockFile(t *testing.T) {
	out, res, err := cidev.FilterLockFile(lock, cidev.WithPackages("alpha"))
	require.NoError(t, err)

	assert.NotContains(t, out, `name = "alpha"`)
	assert.NotContains(t, out, ` "alpha",`)
	assert.Contains(t, out, `"xcb 0.8.2"`)

	assert.True(t, res.Changed)
	assert.False(t, res.Written)
	assert.Empty(t, res.Path)
	assert.Equal(t, []string{"alpha"}, res.Removed)
	assert.Equal(t, 1, res.PackagesRemoved)
	assert.Equal(t, 1, res.ReferencesRemoved)
	assert.Equal(t, len(lock), res.SizeBefore)
	assert.Equal(t, len(out), res.SizeAfter)
	assert.Empty(t, res.Diff)
}

func TestFilterLockFile_WithDiff(t *testing.T) {
	_, res, err := cidev.FilterLockFile(lock, cidev.WithDiff())
	require.NoError(t, err)

	assert.Contains(t, res.Diff, `-name = "xcb"`)
	assert.Contains(t, res.Diff, `- "xcb 0.8.2",`)
}

func TestFilterLockFile_NothingToRemove(t *testing.T) {
	out, res, err := cidev.FilterLockFile(lock, cidev.WithPackages("openssl"))
	require.NoError(t, err)

	assert.Equal(t, lock, out)
	assert.False(t, res.Changed)
	assert.Zero(t, res.PackagesRemoved)
}

func TestFilterLockFile_InlineReference(t *testing.T) {
	doc := "[[package]]\nname = \"app\"\ndependencies = [\"xcb\"]\n\n[[package]]\nname = \"xcb\"\n"

	out, res, err := cidev.FilterLockFile(doc)
	require.NoError(t, err)

	assert.Equal(t, "[[package]]\nname = \"app\"\ndependencies = []\n", out)
	assert.Equal(t, 1, res.ReferencesRemoved)
}

func TestFilterLockFile_RemovingEverythingFails(t *testing.T) {
	_, _, err := cidev.FilterLockFile(lock, cidev.WithPackages("alpha", "beta", "xcb"))
	require.ErrorIs(t, err, cidev.ErrInvalidOutput)
}

func TestFilterLockFile_Empty(t *testing.T) {
	_, _, err := cidev.FilterLockFile("  \n")
	require.ErrorIs(t, err, cidev.ErrEmptyDocument)
}

func TestDefaultPackages(t *testing.T) {
	pkgs := cidev.DefaultPackages()
	assert.Equal(t, []string{"clipboard", "x11-clipboard", "xcb", "clipboard-win"}, pkgs)

	pkgs[0] = "changed"
	assert.Equal(t, "clipboard", cidev.DefaultPackages()[0])
}
