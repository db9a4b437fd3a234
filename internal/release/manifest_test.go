package release

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifest = `[package]
name = "workflow"
version = "1.6.0" # current
edition = "2021"

[dependencies]
serde = { version = "1.0", features = ["derive"] }
clap = "4"

[dev-dependencies.tempfile]
version = "3.10.0"

[[bin]]
name = "workflow"
version = "9.9.9"
`

func TestSetManifestVersion(t *testing.T) {
	out, err := SetManifestVersion(manifest, "1.7.0")
	require.NoError(t, err)

	assert.Contains(t, out, `version = "1.7.0" # current`)
	assert.Contains(t, out, `serde = { version = "1.0", features = ["derive"] }`)
	assert.Contains(t, out, `version = "3.10.0"`)
	assert.Contains(t, out, `version = "9.9.9"`)
	assert.NotContains(t, out, `"1.6.0"`)
}

func TestSetManifestVersion_Workspace(t *testing.T) {
	doc := "[workspace]\nmembers = [\"a\"]\n\n[workspace.package]\nversion = \"0.1.0\"\n"

	out, err := SetManifestVersion(doc, "0.2.0")
	require.NoError(t, err)
	assert.Equal(t, "[workspace]\nmembers = [\"a\"]\n\n[workspace.package]\nversion = \"0.2.0\"\n", out)
}

func TestSetManifestVersion_NoVersion(t *testing.T) {
	_, err := SetManifestVersion("[package]\nname = \"x\"\nversion.workspace = true\n", "1.0.0")
	assert.Error(t, err)
}

func TestSetManifestVersion_InvalidResult(t *testing.T) {
	_, err := SetManifestVersion("[package]\nversion = \"1.0.0\"\nname = \n", "1.1.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid TOML")
}

func TestUpdateCargoManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Cargo.toml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	require.NoError(t, UpdateCargoManifest(path, "2.0.0", nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `version = "2.0.0" # current`)
}

func TestUpdateCargoManifest_Missing(t *testing.T) {
	err := UpdateCargoManifest(filepath.Join(t.TempDir(), "Cargo.toml"), "2.0.0", nil)
	assert.Error(t, err)
}

func TestUpdateLockFile(t *testing.T) {
	r := newScriptedRunner().on("cargo update --workspace", "")
	require.NoError(t, UpdateLockFile(context.Background(), r))

	err := UpdateLockFile(context.Background(), newScriptedRunner())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "updating Cargo.lock")
}
