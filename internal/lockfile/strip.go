package lockfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/hupe1980/cidev/internal/diff"
	"github.com/hupe1980/cidev/internal/output"
)

// ErrEmptyDocument is returned for a lock file with no content.
var ErrEmptyDocument = errors.New("lock file is empty")

// StripOptions configures StripFile.
type StripOptions struct {
	// DryRun computes the result without writing the file.
	DryRun bool

	// Diff attaches a unified diff of the change to the result.
	Diff bool

	// Logger receives progress messages. Defaults to slog.Default().
	Logger *slog.Logger
}

// Result describes one StripFile run.
type Result struct {
	Path       string
	Stats      Stats
	Changed    bool
	Written    bool
	SizeBefore int
	SizeAfter  int
	Diff       *diff.Result
}

// SizeDelta returns the change in bytes, negative when the file shrank.
func (r *Result) SizeDelta() int {
	return r.SizeAfter - r.SizeBefore
}

// StripFile filters the lock file at path and rewrites it in place when
// something was removed. The file is left untouched when the filtered output
// fails Validate; the returned error then matches ErrInvalidOutput.
func StripFile(ctx context.Context, path string, removal Set, opts StripOptions) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is user-provided by design
	if err != nil {
		return nil, describeIOError(path, err)
	}

	original := string(data)
	if strings.TrimSpace(original) == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyDocument)
	}

	filtered, stats := Filter(original, removal)

	if err := Validate(original, filtered, removal); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	res := &Result{
		Path:       path,
		Stats:      stats,
		Changed:    filtered != original,
		SizeBefore: len(original),
		SizeAfter:  len(filtered),
	}

	if len(stats.Removed) > 0 {
		logger.Info("removed packages",
			slog.Int("count", stats.PackagesRemoved),
			slog.String("names", strings.Join(stats.Removed, ", ")),
		)
	}

	if stats.DependencyReferencesRemoved > 0 {
		logger.Info("removed dependency references", slog.Int("count", stats.DependencyReferencesRemoved))
	}

	if opts.Diff && res.Changed {
		d, err := diff.Compute(original, filtered, diff.DefaultOptions(path))
		if err != nil {
			return nil, err
		}

		res.Diff = d
	}

	if !res.Changed || opts.DryRun {
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := output.NewFileWriter(path, output.WithLogger(logger))
	if err := w.Write([]byte(filtered)); err != nil {
		return nil, describeIOError(path, err)
	}

	res.Written = true

	logger.Info("updated lock file",
		slog.String("path", path),
		slog.Int("bytesBefore", res.SizeBefore),
		slog.Int("bytesAfter", res.SizeAfter),
	)

	return res, nil
}

func describeIOError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%s not found: %w", path, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("permission denied accessing %s: %w", path, err)
	default:
		return fmt.Errorf("processing %s: %w", path, err)
	}
}
