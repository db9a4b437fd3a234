package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/cidev/internal/ghactions"
	"github.com/hupe1980/cidev/internal/logging"
	"github.com/hupe1980/cidev/internal/release"
)

func newTagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Create release tags and clean up pre-release tags",
	}

	cmd.AddCommand(newTagCreateCommand(), newTagCleanupCommand())

	return cmd
}

func newTagCreateCommand() *cobra.Command {
	var (
		tag    string
		commit string
		ci     bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create and push a tag, replacing one that points elsewhere",
		Args:  positional(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlag("tag", tag); err != nil {
				return err
			}

			ctx := cmd.Context()

			res, err := release.CreateTag(ctx, newGitClient(ctx), tag, commit, logging.FromContext(ctx))
			if err != nil {
				return err
			}

			if err := writeOutputs(ci, false,
				ghactions.Bool("tag_created", res.Created),
				ghactions.String("tag_name", res.Tag),
			); err != nil {
				return err
			}

			state := "created"
			if !res.Created {
				state = "already present"
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s at %s\n", res.Tag, state, res.Commit)

			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&tag, "tag", "", "tag name (required)")
	f.StringVar(&commit, "commit", "", "commit to tag (default: HEAD)")
	f.BoolVar(&ci, "ci", false, "append tag_created and tag_name to $GITHUB_OUTPUT")

	return cmd
}

func newTagCleanupCommand() *cobra.Command {
	var (
		mergeCommit string
		version     string
		concurrency int
		ci          bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete pre-release tags superseded by a merge",
		Long: `Cleanup deletes vX.Y.Z.alpha-* tags that belong to the merged branch.

A tag reachable from the merge commit's first parent was already on the
target branch and is kept. A tag reachable from HEAD is deleted. Any other
pre-release tag is deleted only when its base version matches --version.`,
		Args: positional(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlag("merge-commit", mergeCommit); err != nil {
				return err
			}

			if err := requireFlag("version", version); err != nil {
				return err
			}

			ctx := cmd.Context()

			res, err := release.CleanupAlphaTags(ctx, newGitClient(ctx), mergeCommit, version, release.CleanupOptions{
				Concurrency: concurrency,
				Logger:      logging.FromContext(ctx),
			})
			if err != nil {
				return err
			}

			if err := writeOutputs(ci, false, ghactions.Int("deleted_count", len(res.Deleted))); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Deleted %d pre-release tag(s), kept %d\n", len(res.Deleted), len(res.Kept))

			if len(res.Failed) > 0 {
				fmt.Fprintf(out, "Failed to delete on remote: %s\n", strings.Join(res.Failed, ", "))
			}

			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&mergeCommit, "merge-commit", "", "merge commit SHA (required)")
	f.StringVar(&version, "version", "", "current release version (required)")
	f.IntVar(&concurrency, "concurrency", release.DefaultCleanupConcurrency, "parallel remote deletions")
	f.BoolVar(&ci, "ci", false, "append deleted_count to $GITHUB_OUTPUT")

	return cmd
}
