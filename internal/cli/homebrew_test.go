package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const formulaFixture = `class Workflow < Formula
  desc "Workflow CLI"
  homepage "https://github.com/owner/workflow"
  version "1.0.0"
  url "https://github.com/owner/workflow/releases/download/v1.0.0/workflow-1.0.0-x86_64-apple-darwin.tar.gz"
  sha256 "0000"

  def install
    bin.install "workflow"
  end
end
`

func TestHomebrewUpdate_RewritesFormula(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflow.rb")
	require.NoError(t, os.WriteFile(path, []byte(formulaFixture), 0o644))

	stdout, _, err := executeCommand("homebrew", "update",
		"--version", "1.1.0",
		"--tag", "v1.1.0",
		"--repo", "owner/workflow",
		"--sha256", "abc123",
		"--formula-path", path,
	)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Updated "+path+" to 1.1.0")

	got := readFile(t, path)
	assert.Contains(t, got, `version "1.1.0"`)
	assert.Contains(t, got, `sha256 "abc123"`)
	assert.Contains(t, got, "releases/download/v1.1.0/workflow-1.1.0-x86_64-apple-darwin.tar.gz")

	assert.Equal(t, formulaFixture, readFile(t, path+".bak"))
}

func TestHomebrewUpdate_FromTemplate(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "workflow.rb.tmpl")
	path := filepath.Join(dir, "Formula", "workflow.rb")
	require.NoError(t, os.WriteFile(tmpl, []byte("version \"{{VERSION}}\" # {{TAG}}\nsha256 \"{{SHA256}}\"\n"), 0o644))

	stdout, _, err := executeCommand("homebrew", "update",
		"--version", "2.0.0",
		"--tag", "v2.0.0",
		"--repo", "owner/workflow",
		"--archive-dir", dir,
		"--template-path", tmpl,
		"--formula-path", path,
		"--print",
	)
	require.NoError(t, err)

	assert.Contains(t, stdout, "--- "+path+" ---")
	assert.Contains(t, readFile(t, path), `sha256 "PLACEHOLDER_SHA256"`)
	assert.Contains(t, readFile(t, path), `# v2.0.0`)
}

func TestHomebrewUpdate_RequiredFlags(t *testing.T) {
	_, _, err := executeCommand("homebrew", "update", "--tag", "v1.0.0")
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "--version")

	_, _, err = executeCommand("homebrew", "update", "--version", "1.0.0")
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "--tag")
}

func TestHomebrewUpdate_PushRequiresCommit(t *testing.T) {
	_, _, err := executeCommand("homebrew", "update", "--version", "1.0.0", "--tag", "v1.0.0", "--push")
	requireExitCode(t, err, 2)
}
