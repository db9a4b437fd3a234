package release

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hupe1980/cidev/internal/git"
	"github.com/hupe1980/cidev/internal/github"
)

// BumpFiles are staged for a version bump pull request.
var BumpFiles = []string{"Cargo.toml", "Cargo.lock"}

// BumpBranch returns the default branch name for a version bump.
func BumpBranch(version string) string {
	return "bump-version-" + version
}

// PullRequestCreator opens pull requests.
type PullRequestCreator interface {
	CreatePullRequest(ctx context.Context, pr github.NewPullRequest) (*github.PullRequest, error)
}

// BumpOptions configures OpenBumpPullRequest.
type BumpOptions struct {
	Version string
	Branch  string
	Base    string
	Logger  *slog.Logger
}

// OpenBumpPullRequest commits the manifest changes for a version bump on a
// new branch, pushes it and opens a pull request against the base branch.
func OpenBumpPullRequest(ctx context.Context, client *git.Client, prs PullRequestCreator, opts BumpOptions) (*github.PullRequest, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	branch := opts.Branch
	if branch == "" {
		branch = BumpBranch(opts.Version)
	}

	base := opts.Base
	if base == "" {
		base = "master"
	}

	logger.Info("preparing version bump", slog.String("version", opts.Version), slog.String("branch", branch))

	if err := client.Checkout(ctx, branch); err != nil {
		return nil, fmt.Errorf("checking out %s: %w", branch, err)
	}

	if err := client.Add(ctx, BumpFiles...); err != nil {
		return nil, err
	}

	title := "chore: bump version to " + opts.Version

	if err := client.Commit(ctx, title); err != nil {
		return nil, err
	}

	if err := client.PushBranch(ctx, branch, false); err != nil {
		return nil, err
	}

	pr, err := prs.CreatePullRequest(ctx, github.NewPullRequest{
		Title: title,
		Body:  bumpBody(opts.Version),
		Head:  branch,
		Base:  base,
	})
	if err != nil {
		return nil, fmt.Errorf("creating pull request: %w", err)
	}

	logger.Info("pull request ready", slog.Int("number", pr.Number), slog.String("url", pr.HTMLURL))

	return pr, nil
}

func bumpBody(version string) string {
	return fmt.Sprintf("Automated version bump to %s\n\n"+
		"This PR was created automatically by the release workflow.\n\n"+
		"**Changes:**\n"+
		"- Updated version in Cargo.toml to %s\n"+
		"- Updated version in Cargo.lock to %s", version, version, version)
}
