// Package cidev provides a public Go API for the Cargo.lock filter.
//
// Basic usage:
//
//	result, err := cidev.StripLockFile(ctx, "Cargo.lock")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.PackagesRemoved)
//
// With options:
//
//	result, err := cidev.StripLockFile(ctx, "Cargo.lock",
//	    cidev.WithPackages("xcb", "x11-clipboard"),
//	    cidev.WithDryRun(),
//	    cidev.WithDiff(),
//	)
package cidev

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/hupe1980/cidev/internal/diff"
	"github.com/hupe1980/cidev/internal/lockfile"
)

// ErrInvalidOutput is returned when the filtered lock file fails validation.
// The file on disk is left untouched in that case.
var ErrInvalidOutput = lockfile.ErrInvalidOutput

// ErrEmptyDocument is returned for an empty lock file.
var ErrEmptyDocument = lockfile.ErrEmptyDocument

// DefaultPackages returns the packages removed when no WithPackages option
// is given.
func DefaultPackages() []string {
	return append([]string(nil), lockfile.DefaultRemovalSet...)
}

// Option configures StripLockFile and FilterLockFile.
type Option func(*options)

type options struct {
	packages []string
	dryRun   bool
	diff     bool
	logger   *slog.Logger
}

// WithPackages replaces the default removal set.
func WithPackages(names ...string) Option { return func(o *options) { o.packages = names } }

// WithDryRun computes the result without writing the file.
func WithDryRun() Option { return func(o *options) { o.dryRun = true } }

// WithDiff attaches a unified diff to the result.
func WithDiff() Option { return func(o *options) { o.diff = true } }

// WithLogger sets a logger. By default nothing is logged.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

func buildOptions(opts []Option) *options {
	o := &options{
		packages: lockfile.DefaultRemovalSet,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Result describes a StripLockFile or FilterLockFile run.
type Result struct {
	Path              string
	Removed           []string
	PackagesRemoved   int
	ReferencesRemoved int
	Changed           bool
	Written           bool
	SizeBefore        int
	SizeAfter         int

	// Diff is the unified diff, set with WithDiff.
	Diff string
}

// StripLockFile removes the configured packages and every dependency
// reference to them from the lock file at path, rewriting it in place.
func StripLockFile(ctx context.Context, path string, opts ...Option) (*Result, error) {
	o := buildOptions(opts)

	removal := lockfile.NewSet(o.packages...)
	if len(removal) == 0 {
		return nil, errors.New("no packages to remove")
	}

	res, err := lockfile.StripFile(ctx, path, removal, lockfile.StripOptions{
		DryRun: o.dryRun,
		Diff:   o.diff,
		Logger: o.logger,
	})
	if err != nil {
		return nil, err
	}

	out := &Result{
		Path:              res.Path,
		Removed:           res.Stats.Removed,
		PackagesRemoved:   res.Stats.PackagesRemoved,
		ReferencesRemoved: res.Stats.DependencyReferencesRemoved,
		Changed:           res.Changed,
		Written:           res.Written,
		SizeBefore:        res.SizeBefore,
		SizeAfter:         res.SizeAfter,
	}

	if res.Diff != nil {
		out.Diff = res.Diff.Unified
	}

	return out, nil
}

// FilterLockFile filters an in-memory lock file and validates the result.
// The returned Result carries the removal counts and, with WithDiff, a diff;
// its file fields stay empty. WithDryRun and WithLogger have no effect.
func FilterLockFile(document string, opts ...Option) (string, *Result, error) {
	o := buildOptions(opts)

	if strings.TrimSpace(document) == "" {
		return "", nil, ErrEmptyDocument
	}

	removal := lockfile.NewSet(o.packages...)
	filtered, stats := lockfile.Filter(document, removal)

	if err := lockfile.Validate(document, filtered, removal); err != nil {
		return "", nil, err
	}

	res := &Result{
		Removed:           stats.Removed,
		PackagesRemoved:   stats.PackagesRemoved,
		ReferencesRemoved: stats.DependencyReferencesRemoved,
		Changed:           filtered != document,
		SizeBefore:        len(document),
		SizeAfter:         len(filtered),
	}

	if o.diff && res.Changed {
		d, err := diff.Compute(document, filtered, diff.DefaultOptions("Cargo.lock"))
		if err != nil {
			return "", nil, err
		}

		res.Diff = d.Unified
	}

	return filtered, res, nil
}
