package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/cidev/internal/ghactions"
	"github.com/hupe1980/cidev/internal/logging"
	"github.com/hupe1980/cidev/internal/release"
)

type releaseVersionOptions struct {
	master   bool
	update   bool
	ci       bool
	json     bool
	manifest string
}

func newReleaseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Derive release versions",
	}

	cmd.AddCommand(newReleaseVersionCommand())

	return cmd
}

func newReleaseVersionCommand() *cobra.Command {
	opts := &releaseVersionOptions{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Compute the next version from tags and Conventional Commits",
		Long: `Version reads the latest vX.Y.Z tag and the commit subjects since then
and derives the next version:

  BREAKING CHANGE / type!:   major
  patch would reach 10       minor
  feat: / feature:           minor
  anything else              patch

With --master an existing release tag on HEAD is reused. Without it a
pre-release version of the form X.Y.Z.alpha-<timestamp> is produced.`,
		Args: positional(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReleaseVersion(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.master, "master", false, "generate a release version for the master branch")
	f.BoolVar(&opts.update, "update", false, "write the version to the manifest and refresh Cargo.lock")
	f.BoolVar(&opts.ci, "ci", false, "append version, tag and needs_increment to $GITHUB_OUTPUT")
	f.BoolVar(&opts.json, "json", false, "print the version plan as JSON")
	f.StringVar(&opts.manifest, "manifest", "Cargo.toml", "manifest updated by --update")

	return cmd
}

func runReleaseVersion(cmd *cobra.Command, opts *releaseVersionOptions) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)
	runner := newRunner(ctx)

	mode := release.ModePrerelease
	if opts.master {
		mode = release.ModeMaster
	}

	gen := release.NewGenerator(newGitClientFor(runner), release.WithLogger(logger))

	plan, err := gen.Generate(ctx, mode)
	if err != nil {
		return err
	}

	if opts.update {
		if err := release.UpdateCargoManifest(opts.manifest, plan.Version, logger); err != nil {
			return err
		}

		if err := release.UpdateLockFile(ctx, runner); err != nil {
			return err
		}
	}

	if err := writeOutputs(opts.ci, true,
		ghactions.String("version", plan.Version),
		ghactions.String("tag", plan.Tag),
		ghactions.Bool("needs_increment", plan.NeedsIncrement),
	); err != nil {
		return err
	}

	if opts.json {
		data, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling version plan: %w", err)
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))

		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", plan.Version, plan.Tag)

	return err
}
