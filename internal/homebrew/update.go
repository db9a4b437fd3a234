package homebrew

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hupe1980/cidev/internal/command"
	"github.com/hupe1980/cidev/internal/git"
	"github.com/hupe1980/cidev/internal/output"
)

// Bot identity used for formula commits.
const (
	BotName  = "github-actions[bot]"
	BotEmail = "github-actions[bot]@users.noreply.github.com"
)

// Options configures an update.
type Options struct {
	Release

	FormulaPath  string
	TemplatePath string

	// ArchiveDir is searched for the release archive when SHA256 is empty.
	ArchiveDir string

	Commit bool
	Push   bool
}

// Result describes an update.
type Result struct {
	FormulaPath  string `json:"formulaPath"`
	SHA256       string `json:"sha256"`
	FromTemplate bool   `json:"fromTemplate"`
	BackupPath   string `json:"backupPath,omitempty"`
	Validated    bool   `json:"validated"`
	Committed    bool   `json:"committed"`
	Pushed       bool   `json:"pushed"`
	Content      string `json:"-"`
}

// Updater rewrites a formula and optionally commits it.
type Updater struct {
	runner command.Runner
	git    *git.Client
	logger *slog.Logger
}

// NewUpdater returns an Updater running ruby, brew and git through runner.
func NewUpdater(runner command.Runner, logger *slog.Logger) *Updater {
	if logger == nil {
		logger = slog.Default()
	}

	return &Updater{runner: runner, git: git.New(runner), logger: logger}
}

// Update writes the formula for opts.Release.
func (u *Updater) Update(ctx context.Context, opts Options) (*Result, error) {
	path := opts.FormulaPath
	if path == "" {
		path = DefaultFormulaPath
	}

	rel := opts.Release

	sum, err := u.checksum(rel, opts.ArchiveDir)
	if err != nil {
		return nil, err
	}

	rel.SHA256 = sum

	res := &Result{FormulaPath: path, SHA256: sum}

	content, fromTemplate, err := u.render(path, opts.TemplatePath, rel)
	if err != nil {
		return nil, err
	}

	res.FromTemplate = fromTemplate
	res.Content = content

	w := output.NewFileWriter(path, output.WithBackup(".bak"), output.WithLogger(u.logger))
	if _, err := os.Stat(path); err == nil {
		res.BackupPath = w.BackupPath()
	}

	if err := w.Write([]byte(content)); err != nil {
		return nil, err
	}

	u.logger.Info("wrote formula",
		slog.String("path", path),
		slog.String("version", rel.Version),
		slog.Bool("fromTemplate", fromTemplate),
	)

	if res.Validated, err = u.validate(ctx, path); err != nil {
		return nil, err
	}

	if opts.Commit {
		if err := u.commit(ctx, path, rel.Tag, opts.Push, res); err != nil {
			return nil, err
		}
	}

	return res, nil
}

func (u *Updater) checksum(rel Release, archiveDir string) (string, error) {
	if rel.SHA256 != "" {
		return rel.SHA256, nil
	}

	archive := filepath.Join(archiveDir, rel.ArchiveName())

	sum, err := FileSHA256(archive)
	if errors.Is(err, fs.ErrNotExist) {
		u.logger.Warn("archive not found, sha256 must be set manually", slog.String("archive", archive))

		return PlaceholderSHA256, nil
	}

	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", archive, err)
	}

	u.logger.Info("computed archive checksum", slog.String("archive", archive), slog.String("sha256", sum))

	return sum, nil
}

func (u *Updater) render(path, templatePath string, rel Release) (string, bool, error) {
	if templatePath != "" {
		tmpl, err := os.ReadFile(templatePath) //nolint:gosec // path is user-provided by design
		if err == nil {
			return RenderTemplate(string(tmpl), rel), true, nil
		}

		if !errors.Is(err, fs.ErrNotExist) {
			return "", false, fmt.Errorf("reading template: %w", err)
		}

		u.logger.Warn("template not found, updating existing formula", slog.String("template", templatePath))
	}

	current, err := os.ReadFile(path) //nolint:gosec // path is user-provided by design
	if err != nil {
		return "", false, fmt.Errorf("reading formula: %w", err)
	}

	return UpdateFormula(string(current), rel), false, nil
}

// validate runs ruby -c on the formula. A missing ruby skips the check.
func (u *Updater) validate(ctx context.Context, path string) (bool, error) {
	if _, err := u.runner.Run(ctx, "ruby", "-c", path); err != nil {
		if command.IsNotFound(err) {
			u.logger.Warn("ruby not found, skipping syntax validation")
			return false, nil
		}

		return false, fmt.Errorf("formula has syntax errors: %w", err)
	}

	return true, nil
}

func (u *Updater) commit(ctx context.Context, path, tag string, push bool, res *Result) error {
	if err := u.git.SetConfig(ctx, "user.name", BotName); err != nil {
		return err
	}

	if err := u.git.SetConfig(ctx, "user.email", BotEmail); err != nil {
		return err
	}

	if err := u.git.Add(ctx, path); err != nil {
		return err
	}

	staged, err := u.git.HasStagedChanges(ctx)
	if err != nil {
		return err
	}

	if !staged {
		u.logger.Info("formula already up to date, nothing to commit")
		return nil
	}

	if _, err := u.runner.Run(ctx, "brew", "audit", "--strict", path); err != nil && !command.IsNotFound(err) {
		u.logger.Warn("brew audit failed, continuing", slog.Any("error", err))
	}

	if err := u.git.Commit(ctx, "Update "+formulaName(path)+" to "+tag); err != nil {
		return err
	}

	res.Committed = true

	if !push {
		return nil
	}

	branch, err := u.git.CurrentBranch(ctx)
	if err != nil {
		return err
	}

	if err := u.git.PushBranch(ctx, branch, false); err != nil {
		return err
	}

	res.Pushed = true

	u.logger.Info("pushed formula update", slog.String("branch", branch))

	return nil
}

func formulaName(path string) string {
	base := filepath.Base(path)

	return base[:len(base)-len(filepath.Ext(base))]
}
