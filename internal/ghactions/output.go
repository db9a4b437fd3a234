// Package ghactions writes step outputs for GitHub Actions.
package ghactions

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvOutput names the variable holding the step output file.
const EnvOutput = "GITHUB_OUTPUT"

// ErrNoOutputFile is returned when GITHUB_OUTPUT is unset.
var ErrNoOutputFile = errors.New(EnvOutput + " not set")

// Output is one key/value step output.
type Output struct {
	Key   string
	Value string
}

// String returns a string output.
func String(key, value string) Output {
	return Output{Key: key, Value: value}
}

// Bool returns a boolean output rendered as true/false.
func Bool(key string, value bool) Output {
	return Output{Key: key, Value: strconv.FormatBool(value)}
}

// Int returns an integer output.
func Int(key string, value int) Output {
	return Output{Key: key, Value: strconv.Itoa(value)}
}

// Writer appends outputs to a GitHub Actions output file.
type Writer struct {
	path string
}

// NewWriter returns a Writer appending to path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// FromEnv returns a Writer for the file named by GITHUB_OUTPUT.
func FromEnv() (*Writer, error) {
	path := os.Getenv(EnvOutput)
	if path == "" {
		return nil, ErrNoOutputFile
	}

	return NewWriter(path), nil
}

// Path returns the output file path.
func (w *Writer) Path() string {
	return w.path
}

// Write appends outputs in order. Multi-line values use the delimiter form.
func (w *Writer) Write(outputs ...Output) error {
	var b strings.Builder

	for _, o := range outputs {
		if o.Key == "" {
			return errors.New("output key must not be empty")
		}

		if strings.Contains(o.Value, "\n") {
			delim := delimiter(o.Value)
			fmt.Fprintf(&b, "%s<<%s\n%s\n%s\n", o.Key, delim, o.Value, delim)

			continue
		}

		fmt.Fprintf(&b, "%s=%s\n", o.Key, o.Value)
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // path comes from the runner
	if err != nil {
		return fmt.Errorf("opening %s: %w", EnvOutput, err)
	}

	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", EnvOutput, err)
	}

	return f.Close()
}

func delimiter(value string) string {
	delim := "CIDEV_EOF"
	for strings.Contains(value, delim) {
		delim += "_"
	}

	return delim
}

// WriteIfSet appends outputs when GITHUB_OUTPUT is set and does nothing
// otherwise.
func WriteIfSet(outputs ...Output) error {
	w, err := FromEnv()
	if errors.Is(err, ErrNoOutputFile) {
		return nil
	}

	return w.Write(outputs...)
}
