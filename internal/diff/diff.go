// Package diff renders unified diffs between two versions of a text file.
package diff

import (
	"fmt"
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Result holds the result of a unified diff computation.
type Result struct {
	Unified  string
	Hunks    []string
	Added    int
	Removed  int
	OldLabel string
	NewLabel string
}

// HasDifferences reports whether the two documents differ.
func (r *Result) HasDifferences() bool {
	return r.Unified != ""
}

// Options configures diff computation.
type Options struct {
	OldLabel string
	NewLabel string
	Context  int
}

// DefaultOptions returns the options used for in-place file rewrites.
func DefaultOptions(path string) Options {
	return Options{
		OldLabel: "a/" + path,
		NewLabel: "b/" + path,
		Context:  3,
	}
}

// Compute computes a unified diff between two documents.
func Compute(oldDoc, newDoc string, opts Options) (*Result, error) {
	ud := difflib.UnifiedDiff{
		A:        splitLines(oldDoc),
		B:        splitLines(newDoc),
		FromFile: opts.OldLabel,
		ToFile:   opts.NewLabel,
		Context:  opts.Context,
	}

	unified, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return nil, fmt.Errorf("computing diff: %w", err)
	}

	r := &Result{
		Unified:  unified,
		OldLabel: opts.OldLabel,
		NewLabel: opts.NewLabel,
	}

	if unified == "" {
		return r, nil
	}

	var current strings.Builder

	for _, line := range strings.Split(unified, "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			if current.Len() > 0 {
				r.Hunks = append(r.Hunks, current.String())
				current.Reset()
			}
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			r.Added++
		case strings.HasPrefix(line, "-"):
			r.Removed++
		}

		if current.Len() > 0 || strings.HasPrefix(line, "@@") {
			current.WriteString(line)
			current.WriteString("\n")
		}
	}

	if current.Len() > 0 {
		r.Hunks = append(r.Hunks, current.String())
	}

	return r, nil
}

// Write prints the diff to w, coloring lines with ANSI escapes when color is
// set.
func Write(w io.Writer, r *Result, color bool) {
	if !r.HasDifferences() {
		_, _ = fmt.Fprintln(w, "No differences found.")
		return
	}

	for _, line := range strings.Split(strings.TrimSuffix(r.Unified, "\n"), "\n") {
		if !color {
			_, _ = fmt.Fprintln(w, line)
			continue
		}

		_, _ = fmt.Fprintln(w, colorize(line))
	}
}

const (
	ansiRed   = "\033[31m"
	ansiGreen = "\033[32m"
	ansiCyan  = "\033[36m"
	ansiBold  = "\033[1m"
	ansiReset = "\033[0m"
)

func colorize(line string) string {
	var code string

	switch {
	case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
		code = ansiBold
	case strings.HasPrefix(line, "@@"):
		code = ansiCyan
	case strings.HasPrefix(line, "-"):
		code = ansiRed
	case strings.HasPrefix(line, "+"):
		code = ansiGreen
	default:
		return line
	}

	return code + line + ansiReset
}

// splitLines splits s into lines that keep their trailing newline, as
// difflib expects.
func splitLines(s string) []string {
	if s == "" {
		return []string{""}
	}

	return strings.SplitAfter(s, "\n")
}
