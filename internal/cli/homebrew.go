package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/cidev/internal/config"
	"github.com/hupe1980/cidev/internal/homebrew"
	"github.com/hupe1980/cidev/internal/logging"
)

const unknownRepository = "unknown/repo"

func newHomebrewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "homebrew",
		Short: "Maintain the Homebrew formula",
	}

	cmd.AddCommand(newHomebrewUpdateCommand())

	return cmd
}

func newHomebrewUpdateCommand() *cobra.Command {
	var (
		opts         homebrew.Options
		printFormula bool
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Point the formula at a new release",
		Long: `Update rewrites the formula for a release. When --template-path names an
existing file the formula is rendered from it, substituting {{VERSION}},
{{TAG}} and {{SHA256}}. Otherwise the version, download url and sha256
stanzas of the existing formula are replaced.

The checksum comes from --sha256, else from the release archive in
--archive-dir, else a placeholder is written.`,
		Args: positional(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlag("version", opts.Version); err != nil {
				return err
			}

			if err := requireFlag("tag", opts.Tag); err != nil {
				return err
			}

			if opts.Push && !opts.Commit {
				return usageError(fmt.Errorf("--push requires --commit"))
			}

			ctx := cmd.Context()
			logger := logging.FromContext(ctx)
			runner := newRunner(ctx)

			if opts.Repo == "" {
				repo, err := resolveRepository(ctx, newGitClientFor(runner))
				if err != nil {
					logger.Warn("could not determine repository", slog.Any("error", err))
					opts.Repo = unknownRepository
				} else {
					opts.Repo = repo.String()
				}
			}

			opts.FormulaPath = config.FromContext(ctx).Homebrew.Formula

			res, err := homebrew.NewUpdater(runner, logger).Update(ctx, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if printFormula {
				fmt.Fprintf(out, "--- %s ---\n%s", res.FormulaPath, res.Content)
			}

			fmt.Fprintf(out, "Updated %s to %s (sha256 %s)\n", res.FormulaPath, opts.Version, res.SHA256)

			if res.Committed {
				fmt.Fprintln(out, "Committed formula update")
			}

			if res.Pushed {
				fmt.Fprintln(out, "Pushed formula update")
			}

			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Version, "version", "", "release version (required)")
	f.StringVar(&opts.Tag, "tag", "", "release tag (required)")
	f.String("formula-path", homebrew.DefaultFormulaPath, "formula file")
	f.StringVar(&opts.TemplatePath, "template-path", "", "formula template")
	f.StringVar(&opts.Repo, "repo", "", "repository as owner/repo (default: from GITHUB_REPOSITORY or the origin remote)")
	f.StringVar(&opts.SHA256, "sha256", "", "archive checksum (default: computed from the archive)")
	f.StringVar(&opts.ArchiveDir, "archive-dir", ".", "directory holding the release archive")
	f.StringVar(&opts.Name, "name", homebrew.DefaultName, "binary name used in the archive file name")
	f.BoolVar(&opts.Commit, "commit", false, "commit the formula change")
	f.BoolVar(&opts.Push, "push", false, "push the commit to the current branch")
	f.BoolVar(&printFormula, "print", false, "print the resulting formula")

	return cmd
}
