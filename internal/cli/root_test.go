package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand is a test helper that runs the CLI with the given args and
// captures both stdout and stderr.
func executeCommand(args ...string) (stdout, stderr string, err error) {
	cmd := NewRootCommand()
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err = cmd.Execute()

	return outBuf.String(), errBuf.String(), err
}

// requireExitCode asserts that err carries the given exit code.
func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()

	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, code, exitErr.Code)
}

// ---------------------------------------------------------------------------
// Help output
// ---------------------------------------------------------------------------

func TestRootCommand_Help(t *testing.T) {
	stdout, _, err := executeCommand("--help")
	require.NoError(t, err)

	for _, sub := range []string{
		"lock", "release", "tag", "pr", "homebrew", "report", "version", "completion",
	} {
		assert.Contains(t, stdout, sub, "help should mention %q subcommand", sub)
	}

	for _, flag := range []string{"--config", "--log-level", "--log-format", "--no-color", "--quiet"} {
		assert.Contains(t, stdout, flag, "help should mention %q flag", flag)
	}
}

func TestSubcommandHelp(t *testing.T) {
	tests := []struct {
		args []string
		want []string
	}{
		{[]string{"lock", "--help"}, []string{"strip", "check"}},
		{[]string{"lock", "strip", "--help"}, []string{"--file", "--package", "--dry-run", "--diff", "--watch"}},
		{[]string{"release", "version", "--help"}, []string{"--master", "--update", "--ci"}},
		{[]string{"tag", "--help"}, []string{"create", "cleanup"}},
		{[]string{"pr", "merge", "--help"}, []string{"--pr-number", "--max-wait", "--initial-interval"}},
		{[]string{"homebrew", "update", "--help"}, []string{"--template-path", "--sha256", "--commit", "--push"}},
		{[]string{"report", "--help"}, []string{"test", "comment"}},
	}

	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			stdout, _, err := executeCommand(tt.args...)
			require.NoError(t, err)

			for _, w := range tt.want {
				assert.Contains(t, stdout, w)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Unknown flags → exit code 2
// ---------------------------------------------------------------------------

func TestRootCommand_UnknownFlag(t *testing.T) {
	_, _, err := executeCommand("--nonexistent")
	requireExitCode(t, err, 2)
}

func TestRootCommand_SilenceErrors(t *testing.T) {
	_, stderr, err := executeCommand("--nonexistent")
	require.Error(t, err)
	assert.Empty(t, stderr, "cobra should not print errors to stderr (SilenceErrors)")
}

// ---------------------------------------------------------------------------
// Config and logging validation → exit code 2
// ---------------------------------------------------------------------------

func TestRootCommand_InvalidConfig(t *testing.T) {
	_, _, err := executeCommand("--config", "/nonexistent/path.yaml", "lock", "check")
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestRootCommand_InvalidLogLevel(t *testing.T) {
	_, _, err := executeCommand("--log-level", "trace", "lock", "check")
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestRootCommand_InvalidLogFormat(t *testing.T) {
	_, _, err := executeCommand("--log-format", "xml", "lock", "check")
	requireExitCode(t, err, 2)
	assert.Contains(t, err.Error(), "invalid log format")
}

// ---------------------------------------------------------------------------
// execute
// ---------------------------------------------------------------------------

func runExecute(args ...string) (int, string) {
	cmd := NewRootCommand()
	errBuf := new(bytes.Buffer)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)

	return execute(cmd), errBuf.String()
}

func TestExecute_Success(t *testing.T) {
	code, stderr := runExecute("version")
	assert.Equal(t, 0, code)
	assert.Empty(t, stderr)
}

func TestExecute_UsageErrorIsTwo(t *testing.T) {
	code, stderr := runExecute("lock", "strip", "a", "b")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Error:")
}

func TestExecute_RuntimeErrorIsOne(t *testing.T) {
	code, stderr := runExecute("lock", "strip", "/nonexistent/dir/Cargo.lock")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "not found")
}

// ---------------------------------------------------------------------------
// ExitError
// ---------------------------------------------------------------------------

func TestExitError_ErrorWithMessage(t *testing.T) {
	err := &ExitError{Code: 1, Err: assert.AnError}
	assert.Contains(t, err.Error(), assert.AnError.Error())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestExitError_ErrorWithoutMessage(t *testing.T) {
	err := &ExitError{Code: 42}
	assert.Equal(t, "exit code 42", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestUsageError(t *testing.T) {
	err := usageError(errors.New("bad"))
	requireExitCode(t, err, 2)
	assert.Equal(t, "bad", err.Error())
}
