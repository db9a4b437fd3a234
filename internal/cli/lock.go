package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/cidev/internal/config"
	"github.com/hupe1980/cidev/internal/diff"
	"github.com/hupe1980/cidev/internal/lockfile"
	"github.com/hupe1980/cidev/internal/logging"
	"github.com/hupe1980/cidev/internal/watch"
)

type lockStripOptions struct {
	dryRun   bool
	diff     bool
	watch    bool
	debounce time.Duration
}

func newLockCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Remove platform-specific packages from Cargo.lock",
	}

	cmd.AddCommand(newLockStripCommand(), newLockCheckCommand())

	return cmd
}

func registerLockFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("file", "Cargo.lock", "lock file to filter")
	f.StringSlice("package", nil, "package names to remove (default: "+strings.Join(lockfile.DefaultRemovalSet, ", ")+")")
}

func newLockStripCommand() *cobra.Command {
	opts := &lockStripOptions{}

	cmd := &cobra.Command{
		Use:   "strip [lock-file]",
		Short: "Remove packages and references to them from a lock file",
		Long: `Strip removes every [[package]] block whose name is in the removal set
and every dependency reference to those packages, then rewrites the lock
file in place.

The rewritten file is validated first. When validation fails the file is
left untouched and the command exits with status 1. A lock file that does
not contain any of the packages is not an error.`,
		Args: positional(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLockStrip(cmd, args, opts)
		},
	}

	registerLockFlags(cmd)

	f := cmd.Flags()
	f.BoolVar(&opts.dryRun, "dry-run", false, "report what would be removed without writing")
	f.BoolVar(&opts.diff, "diff", false, "print a unified diff of the change")
	f.BoolVar(&opts.watch, "watch", false, "keep running and strip again whenever the lock file changes")
	f.DurationVar(&opts.debounce, "debounce", 300*time.Millisecond, "debounce interval for --watch")

	return cmd
}

// lockTarget resolves the lock file and removal set from args and config.
func lockTarget(ctx context.Context, args []string) (string, lockfile.Set, error) {
	cfg := config.FromContext(ctx)

	path := cfg.Lock.File
	if len(args) == 1 {
		path = args[0]
	}

	removal := lockfile.NewSet(cfg.Lock.Remove...)
	if len(removal) == 0 {
		return "", nil, usageError(errors.New("no packages to remove"))
	}

	return path, removal, nil
}

func runLockStrip(cmd *cobra.Command, args []string, opts *lockStripOptions) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)

	path, removal, err := lockTarget(ctx, args)
	if err != nil {
		return err
	}

	stripOpts := lockfile.StripOptions{
		DryRun: opts.dryRun,
		Diff:   opts.diff,
		Logger: logger,
	}

	if !opts.watch {
		res, err := lockfile.StripFile(ctx, path, removal, stripOpts)
		if err != nil {
			return err
		}

		printStripResult(cmd.OutOrStdout(), res, removal, opts.dryRun)

		if res.Diff != nil {
			diff.Write(cmd.OutOrStdout(), res.Diff, useColor(cmd))
		}

		return nil
	}

	watchOpts := watch.DefaultOptions()
	watchOpts.Files = []string{path}
	watchOpts.Debounce = opts.debounce
	watchOpts.Logger = logger
	watchOpts.Out = cmd.ErrOrStderr()

	return watch.Run(ctx, watchOpts, func(runCtx context.Context) (string, error) {
		res, err := lockfile.StripFile(runCtx, path, removal, stripOpts)
		if err != nil {
			return "", err
		}

		return stripSummary(res, opts.dryRun), nil
	})
}

func printStripResult(w io.Writer, res *lockfile.Result, removal lockfile.Set, dryRun bool) {
	if !res.Changed {
		fmt.Fprintf(w, "No changes needed: %s contains none of %s\n", res.Path, strings.Join(removal.Names(), ", "))
		return
	}

	verb := "Removed"
	if dryRun {
		verb = "Would remove"
	}

	fmt.Fprintf(w, "%s %d package(s) from %s: %s\n", verb, res.Stats.PackagesRemoved, res.Path, strings.Join(res.Stats.Removed, ", "))
	fmt.Fprintf(w, "%s %d dependency reference(s)\n", verb, res.Stats.DependencyReferencesRemoved)
	fmt.Fprintf(w, "Size: %d → %d bytes (%+d)\n", res.SizeBefore, res.SizeAfter, res.SizeDelta())
}

func stripSummary(res *lockfile.Result, dryRun bool) string {
	if !res.Changed {
		return "no changes needed"
	}

	s := fmt.Sprintf("%d package(s), %d reference(s), %+d bytes",
		res.Stats.PackagesRemoved, res.Stats.DependencyReferencesRemoved, res.SizeDelta())

	if dryRun {
		return "would remove " + s
	}

	return "removed " + s
}

func newLockCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [lock-file]",
		Short: "Verify that a lock file no longer mentions the removed packages",
		Args:  positional(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, removal, err := lockTarget(cmd.Context(), args)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading lock file: %w", err)
			}

			leftovers, err := lockfile.CheckIntegrity(string(data), removal)
			if err != nil {
				return fmt.Errorf("checking %s: %w", path, err)
			}

			if len(leftovers) > 0 {
				return fmt.Errorf("%s still references %s", path, strings.Join(leftovers, ", "))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "OK: %s contains none of %s\n", path, strings.Join(removal.Names(), ", "))

			return nil
		},
	}

	registerLockFlags(cmd)

	return cmd
}
