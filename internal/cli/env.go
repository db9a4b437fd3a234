package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/cidev/internal/command"
	"github.com/hupe1980/cidev/internal/config"
	"github.com/hupe1980/cidev/internal/ghactions"
	"github.com/hupe1980/cidev/internal/git"
	"github.com/hupe1980/cidev/internal/github"
	"github.com/hupe1980/cidev/internal/logging"
)

// positional wraps an argument validator so that violations exit with code 2.
func positional(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError(err)
		}

		return nil
	}
}

// requireFlag returns a usage error when value is empty.
func requireFlag(name, value string) error {
	if value == "" {
		return usageError(fmt.Errorf("--%s is required", name))
	}

	return nil
}

// newRunner returns a runner for external programs in the working directory.
func newRunner(ctx context.Context) command.Runner {
	return command.NewExecRunner("", logging.FromContext(ctx))
}

func newGitClient(ctx context.Context) *git.Client {
	return newGitClientFor(newRunner(ctx))
}

func newGitClientFor(runner command.Runner) *git.Client {
	return git.New(runner)
}

// resolveRepository prefers GITHUB_REPOSITORY and falls back to the remote URL.
func resolveRepository(ctx context.Context, client *git.Client) (github.Repository, error) {
	if s := os.Getenv("GITHUB_REPOSITORY"); s != "" {
		return github.ParseRepository(s)
	}

	url, err := client.RemoteURL(ctx)
	if err != nil {
		return github.Repository{}, fmt.Errorf("determining repository: %w", err)
	}

	return github.ParseRepository(url)
}

func newGitHubClient(ctx context.Context, client *git.Client) (*github.Client, error) {
	token, err := github.TokenFromEnv()
	if err != nil {
		return nil, err
	}

	repo, err := resolveRepository(ctx, client)
	if err != nil {
		return nil, err
	}

	cfg := config.FromContext(ctx)

	return github.NewClient(token, repo, github.WithBaseURL(cfg.GitHub.APIURL)), nil
}

// writeOutputs appends outputs to $GITHUB_OUTPUT when ci is set. A missing
// variable is an error only when required is set.
func writeOutputs(ci, required bool, outputs ...ghactions.Output) error {
	if !ci {
		return nil
	}

	if !required {
		return ghactions.WriteIfSet(outputs...)
	}

	w, err := ghactions.FromEnv()
	if err != nil {
		return err
	}

	return w.Write(outputs...)
}

// useColor reports whether cmd's standard output should be coloured.
func useColor(cmd *cobra.Command) bool {
	return logging.UseColor(config.FromContext(cmd.Context()), cmd.OutOrStdout())
}
