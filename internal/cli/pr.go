package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/cidev/internal/config"
	"github.com/hupe1980/cidev/internal/ghactions"
	"github.com/hupe1980/cidev/internal/github"
	"github.com/hupe1980/cidev/internal/logging"
	"github.com/hupe1980/cidev/internal/release"
)

func newPRCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pr",
		Short: "Open and merge version-bump pull requests",
	}

	cmd.AddCommand(newPRCreateCommand(), newPRMergeCommand())

	return cmd
}

func newPRCreateCommand() *cobra.Command {
	var (
		version string
		branch  string
		ci      bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Commit the manifest bump on a branch and open a pull request",
		Args:  positional(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlag("version", version); err != nil {
				return err
			}

			ctx := cmd.Context()
			client := newGitClient(ctx)

			gh, err := newGitHubClient(ctx, client)
			if err != nil {
				return err
			}

			pr, err := release.OpenBumpPullRequest(ctx, client, gh, release.BumpOptions{
				Version: version,
				Branch:  branch,
				Base:    config.FromContext(ctx).GitHub.BaseBranch,
				Logger:  logging.FromContext(ctx),
			})
			if err != nil {
				return err
			}

			if err := writeOutputs(ci, false,
				ghactions.Int("pr_number", pr.Number),
				ghactions.String("pr_url", pr.HTMLURL),
			); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "#%d %s\n", pr.Number, pr.HTMLURL)

			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&version, "version", "", "version being released (required)")
	f.StringVar(&branch, "branch", "", "branch name (default: bump-version-<version>)")
	f.String("base", config.DefaultBaseBranch, "base branch")
	f.BoolVar(&ci, "ci", false, "append pr_number and pr_url to $GITHUB_OUTPUT")

	return cmd
}

func newPRMergeCommand() *cobra.Command {
	var (
		number int
		ci     bool
	)

	opts := github.DefaultWaitOptions()

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Wait until a pull request is mergeable and squash-merge it",
		Args:  positional(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if number <= 0 {
				return usageError(fmt.Errorf("--pr-number is required"))
			}

			ctx := cmd.Context()
			opts.Logger = logging.FromContext(ctx)

			gh, err := newGitHubClient(ctx, newGitClient(ctx))
			if err != nil {
				return err
			}

			res, mergeErr := gh.WaitAndMerge(ctx, number, opts)
			if res != nil {
				if err := writeOutputs(ci, false,
					ghactions.Bool("pr_merged", res.Merged),
					ghactions.String("pr_merge_reason", res.Reason),
				); err != nil {
					return err
				}
			}

			if mergeErr != nil {
				return mergeErr
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "#%d merged (%s) after %s\n", number, res.Reason, res.Elapsed.Round(time.Second))

			return err
		},
	}

	f := cmd.Flags()
	f.IntVar(&number, "pr-number", 0, "pull request number (required)")
	f.DurationVar(&opts.Settle, "settle", opts.Settle, "wait before the first status check")
	f.DurationVar(&opts.MaxWait, "max-wait", opts.MaxWait, "give up after this long")
	f.DurationVar(&opts.InitialInterval, "initial-interval", opts.InitialInterval, "poll interval during the first minute")
	f.DurationVar(&opts.NormalInterval, "normal-interval", opts.NormalInterval, "poll interval afterwards")
	f.StringVar(&opts.Merge.CommitTitle, "commit-title", "", "squash commit title")
	f.StringVar(&opts.Merge.CommitMessage, "commit-message", "", "squash commit message")
	f.BoolVar(&ci, "ci", false, "append pr_merged and pr_merge_reason to $GITHUB_OUTPUT")

	return cmd
}
