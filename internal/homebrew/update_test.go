package homebrew

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/hupe1980/cidev/internal/command"
	"github.com/hupe1980/cidev/internal/command/mocks"
)

var notInstalled = &command.Error{Args: []string{"ruby"}, ExitCode: -1, Err: exec.ErrNotFound}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setup(t *testing.T) (*Updater, *mocks.MockRunner, string) {
	t.Helper()

	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)

	dir := t.TempDir()
	path := filepath.Join(dir, "workflow.rb")
	require.NoError(t, os.WriteFile(path, []byte(formula), 0o644))

	return NewUpdater(runner, quietLogger()), runner, path
}

func TestUpdate_ExistingFormula(t *testing.T) {
	u, runner, path := setup(t)
	runner.EXPECT().Run(gomock.Any(), "ruby", "-c", path).Return("Syntax OK", nil)

	res, err := u.Update(context.Background(), Options{Release: release, FormulaPath: path})
	require.NoError(t, err)

	assert.True(t, res.Validated)
	assert.False(t, res.FromTemplate)
	assert.Equal(t, path+".bak", res.BackupPath)

	backup, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, formula, string(backup))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `version "1.6.0"`)
	assert.Equal(t, res.Content, string(data))
}

func TestUpdate_TemplateWithArchiveChecksum(t *testing.T) {
	u, runner, path := setup(t)
	runner.EXPECT().Run(gomock.Any(), "ruby", "-c", path).Return("", notInstalled)

	dir := t.TempDir()
	tmpl := filepath.Join(dir, "workflow.rb.tmpl")
	require.NoError(t, os.WriteFile(tmpl, []byte(`sha256 "{{SHA256}}"`), 0o644))

	rel := release
	rel.SHA256 = ""
	require.NoError(t, os.WriteFile(filepath.Join(dir, rel.ArchiveName()), []byte("abc"), 0o644))

	res, err := u.Update(context.Background(), Options{Release: rel, FormulaPath: path, TemplatePath: tmpl, ArchiveDir: dir})
	require.NoError(t, err)

	assert.True(t, res.FromTemplate)
	assert.False(t, res.Validated)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", res.SHA256)
	assert.Equal(t, `sha256 "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"`, res.Content)
}

func TestUpdate_PlaceholderAndMissingTemplate(t *testing.T) {
	u, runner, path := setup(t)
	runner.EXPECT().Run(gomock.Any(), "ruby", "-c", path).Return("", nil)

	rel := release
	rel.SHA256 = ""

	res, err := u.Update(context.Background(), Options{
		Release:      rel,
		FormulaPath:  path,
		TemplatePath: filepath.Join(t.TempDir(), "missing.tmpl"),
		ArchiveDir:   t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, PlaceholderSHA256, res.SHA256)
	assert.False(t, res.FromTemplate)
	assert.Contains(t, res.Content, `sha256 "PLACEHOLDER_SHA256"`)
}

func TestUpdate_SyntaxError(t *testing.T) {
	u, runner, path := setup(t)
	runner.EXPECT().Run(gomock.Any(), "ruby", "-c", path).Return("", &command.Error{ExitCode: 1, Stderr: "syntax error"})

	_, err := u.Update(context.Background(), Options{Release: release, FormulaPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax errors")
}

func TestUpdate_MissingFormula(t *testing.T) {
	u, _, _ := setup(t)

	_, err := u.Update(context.Background(), Options{Release: release, FormulaPath: filepath.Join(t.TempDir(), "none.rb")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading formula")
}

func TestUpdate_CommitAndPush(t *testing.T) {
	u, runner, path := setup(t)

	gomock.InOrder(
		runner.EXPECT().Run(gomock.Any(), "ruby", "-c", path).Return("", nil),
		runner.EXPECT().Run(gomock.Any(), "git", "config", "user.name", BotName).Return("", nil),
		runner.EXPECT().Run(gomock.Any(), "git", "config", "user.email", BotEmail).Return("", nil),
		runner.EXPECT().Run(gomock.Any(), "git", "add", "--", path).Return("", nil),
		runner.EXPECT().Run(gomock.Any(), "git", "diff", "--cached", "--quiet").Return("", &command.Error{ExitCode: 1}),
		runner.EXPECT().Run(gomock.Any(), "brew", "audit", "--strict", path).Return("", notInstalled),
		runner.EXPECT().Run(gomock.Any(), "git", "commit", "-m", "Update workflow to v1.6.0").Return("", nil),
		runner.EXPECT().Run(gomock.Any(), "git", "branch", "--show-current").Return("main", nil),
		runner.EXPECT().Run(gomock.Any(), "git", "push", "-u", "origin", "main").Return("", nil),
	)

	res, err := u.Update(context.Background(), Options{Release: release, FormulaPath: path, Commit: true, Push: true})
	require.NoError(t, err)
	assert.True(t, res.Committed)
	assert.True(t, res.Pushed)
}

func TestUpdate_CommitNothingStaged(t *testing.T) {
	u, runner, path := setup(t)

	gomock.InOrder(
		runner.EXPECT().Run(gomock.Any(), "ruby", "-c", path).Return("", nil),
		runner.EXPECT().Run(gomock.Any(), "git", "config", "user.name", BotName).Return("", nil),
		runner.EXPECT().Run(gomock.Any(), "git", "config", "user.email", BotEmail).Return("", nil),
		runner.EXPECT().Run(gomock.Any(), "git", "add", "--", path).Return("", nil),
		runner.EXPECT().Run(gomock.Any(), "git", "diff", "--cached", "--quiet").Return("", nil),
	)

	res, err := u.Update(context.Background(), Options{Release: release, FormulaPath: path, Commit: true, Push: true})
	require.NoError(t, err)
	assert.False(t, res.Committed)
	assert.False(t, res.Pushed)
}
