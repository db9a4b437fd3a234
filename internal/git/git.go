// Package git wraps the git command line used by the release commands.
package git

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/cidev/internal/command"
)

// DefaultRemote is the remote tags and branches are pushed to.
const DefaultRemote = "origin"

// Client runs git through a command.Runner.
type Client struct {
	runner command.Runner
	remote string
}

// Option configures a Client.
type Option func(*Client)

// WithRemote overrides the remote name.
func WithRemote(name string) Option {
	return func(c *Client) {
		c.remote = name
	}
}

// New returns a Client backed by runner.
func New(runner command.Runner, opts ...Option) *Client {
	c := &Client{runner: runner, remote: DefaultRemote}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Remote returns the configured remote name.
func (c *Client) Remote() string {
	return c.remote
}

func (c *Client) git(ctx context.Context, args ...string) (string, error) {
	return c.runner.Run(ctx, "git", args...)
}

// exitStatus reports whether err is a finished git run with the given code.
func exitStatus(err error, code int) bool {
	var cerr *command.Error

	return errors.As(err, &cerr) && cerr.ExitCode == code
}

func lines(out string) []string {
	var result []string

	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			result = append(result, l)
		}
	}

	return result
}

// CurrentBranch returns the checked out branch, or "" on a detached HEAD.
func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	return c.git(ctx, "branch", "--show-current")
}

// HeadSHA returns the commit HEAD points at.
func (c *Client) HeadSHA(ctx context.Context) (string, error) {
	return c.RevParse(ctx, "HEAD")
}

// RevParse resolves ref to an object name.
func (c *Client) RevParse(ctx context.Context, ref string) (string, error) {
	out, err := c.git(ctx, "rev-parse", ref)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", ref, err)
	}

	return out, nil
}

// TagCommit returns the commit a tag points at, peeling annotated tags.
func (c *Client) TagCommit(ctx context.Context, tag string) (string, error) {
	out, err := c.git(ctx, "rev-list", "-n", "1", tag)
	if err != nil {
		return "", fmt.Errorf("resolving tag %s: %w", tag, err)
	}

	return out, nil
}

// ListTags returns every local tag.
func (c *Client) ListTags(ctx context.Context) ([]string, error) {
	out, err := c.git(ctx, "tag", "--list")
	if err != nil {
		return nil, err
	}

	return lines(out), nil
}

// TagsAt returns the tags pointing at commit.
func (c *Client) TagsAt(ctx context.Context, commit string) ([]string, error) {
	out, err := c.git(ctx, "tag", "--points-at", commit)
	if err != nil {
		return nil, err
	}

	return lines(out), nil
}

// CommitsBetween returns the commit subjects reachable from to but not from.
func (c *Client) CommitsBetween(ctx context.Context, from, to string) ([]string, error) {
	out, err := c.git(ctx, "log", "--format=%s", from+".."+to)
	if err != nil {
		return nil, err
	}

	return lines(out), nil
}

// RecentCommits returns the subjects of the last n commits on HEAD.
func (c *Client) RecentCommits(ctx context.Context, n int) ([]string, error) {
	out, err := c.git(ctx, "log", "--format=%s", "-n", strconv.Itoa(n))
	if err != nil {
		return nil, err
	}

	return lines(out), nil
}

// TagExists reports whether tag exists locally and on the remote.
func (c *Client) TagExists(ctx context.Context, tag string) (local, remote bool, err error) {
	if _, err := c.git(ctx, "rev-parse", "--verify", "--quiet", "refs/tags/"+tag); err == nil {
		local = true
	} else if !exitStatus(err, 1) {
		return false, false, err
	}

	sha, err := c.RemoteTagSHA(ctx, tag)
	if err != nil {
		return local, false, err
	}

	return local, sha != "", nil
}

// RemoteTagSHA returns the commit tag points at on the remote, or "" when the
// remote has no such tag.
func (c *Client) RemoteTagSHA(ctx context.Context, tag string) (string, error) {
	ref := "refs/tags/" + tag

	out, err := c.git(ctx, "ls-remote", "--tags", c.remote, ref, ref+"^{}")
	if err != nil {
		return "", err
	}

	var direct, peeled string

	for _, l := range lines(out) {
		fields := strings.Fields(l)
		if len(fields) != 2 {
			continue
		}

		switch fields[1] {
		case ref:
			direct = fields[0]
		case ref + "^{}":
			peeled = fields[0]
		}
	}

	if peeled != "" {
		return peeled, nil
	}

	return direct, nil
}

// CreateTag creates a lightweight tag at commit, or at HEAD when commit is
// empty.
func (c *Client) CreateTag(ctx context.Context, tag, commit string) error {
	args := []string{"tag", tag}
	if commit != "" {
		args = append(args, commit)
	}

	_, err := c.git(ctx, args...)

	return err
}

// DeleteLocalTag removes a local tag.
func (c *Client) DeleteLocalTag(ctx context.Context, tag string) error {
	_, err := c.git(ctx, "tag", "-d", tag)

	return err
}

// DeleteRemoteTag removes a tag from the remote.
func (c *Client) DeleteRemoteTag(ctx context.Context, tag string) error {
	_, err := c.git(ctx, "push", c.remote, "--delete", "refs/tags/"+tag)

	return err
}

// PushTag pushes a tag to the remote.
func (c *Client) PushTag(ctx context.Context, tag string) error {
	_, err := c.git(ctx, "push", c.remote, "refs/tags/"+tag)

	return err
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (c *Client) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	_, err := c.git(ctx, "merge-base", "--is-ancestor", ancestor, descendant)

	switch {
	case err == nil:
		return true, nil
	case exitStatus(err, 1):
		return false, nil
	default:
		return false, err
	}
}

// Checkout switches to branch, creating it first when it does not exist.
func (c *Client) Checkout(ctx context.Context, branch string) error {
	if _, err := c.git(ctx, "checkout", "-b", branch); err == nil {
		return nil
	}

	_, err := c.git(ctx, "checkout", branch)

	return err
}

// Add stages files.
func (c *Client) Add(ctx context.Context, files ...string) error {
	_, err := c.git(ctx, append([]string{"add", "--"}, files...)...)

	return err
}

// Commit records the staged changes.
func (c *Client) Commit(ctx context.Context, message string) error {
	_, err := c.git(ctx, "commit", "-m", message)

	return err
}

// PushBranch pushes branch to the remote and sets its upstream.
func (c *Client) PushBranch(ctx context.Context, branch string, force bool) error {
	args := []string{"push", "-u", c.remote, branch}
	if force {
		args = append(args, "--force")
	}

	_, err := c.git(ctx, args...)

	return err
}

// RemoteURL returns the fetch URL of the configured remote.
func (c *Client) RemoteURL(ctx context.Context) (string, error) {
	return c.git(ctx, "remote", "get-url", c.remote)
}

// SetConfig sets a repository-local config value.
func (c *Client) SetConfig(ctx context.Context, key, value string) error {
	_, err := c.git(ctx, "config", key, value)

	return err
}

// HasStagedChanges reports whether the index differs from HEAD.
func (c *Client) HasStagedChanges(ctx context.Context) (bool, error) {
	_, err := c.git(ctx, "diff", "--cached", "--quiet")

	switch {
	case err == nil:
		return false, nil
	case exitStatus(err, 1):
		return true, nil
	default:
		return false, err
	}
}
