package release

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/cidev/internal/git"
)

// DefaultCleanupConcurrency bounds parallel remote tag deletions.
const DefaultCleanupConcurrency = 4

// TagResult describes a CreateTag run.
type TagResult struct {
	Tag     string `json:"tag"`
	Commit  string `json:"commit"`
	Created bool   `json:"created"`
}

// CreateTag tags commit (HEAD when empty) and pushes the tag. An existing tag
// already pointing at the commit is left alone. One pointing elsewhere is
// deleted locally and remotely, then recreated.
func CreateTag(ctx context.Context, client *git.Client, tag, commit string, logger *slog.Logger) (*TagResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	target, err := resolveTarget(ctx, client, commit)
	if err != nil {
		return nil, err
	}

	res := &TagResult{Tag: tag, Commit: target}

	local, remote, err := client.TagExists(ctx, tag)
	if err != nil {
		return nil, err
	}

	if local || remote {
		existing, err := existingTagCommit(ctx, client, tag, local)
		if err != nil {
			return nil, err
		}

		logger.Warn("tag already exists",
			slog.String("tag", tag),
			slog.Bool("local", local),
			slog.Bool("remote", remote),
			slog.String("existing", existing),
			slog.String("target", target),
		)

		if existing == target {
			logger.Info("tag already points at target commit", slog.String("tag", tag))
			return res, nil
		}

		if local {
			if err := client.DeleteLocalTag(ctx, tag); err != nil {
				return nil, err
			}
		}

		if remote {
			if err := client.DeleteRemoteTag(ctx, tag); err != nil {
				return nil, err
			}
		}
	}

	if err := client.CreateTag(ctx, tag, commit); err != nil {
		return nil, err
	}

	if err := client.PushTag(ctx, tag); err != nil {
		logger.Warn("pushing tag failed, checking remote", slog.String("tag", tag), slog.Any("error", err))

		sha, lsErr := client.RemoteTagSHA(ctx, tag)
		if lsErr != nil || sha == "" {
			return nil, fmt.Errorf("pushing tag %s: %w", tag, err)
		}

		if sha != target {
			return nil, fmt.Errorf("remote tag %s points at %s, want %s", tag, sha, target)
		}
	}

	res.Created = true

	logger.Info("created tag", slog.String("tag", tag), slog.String("commit", target))

	return res, nil
}

func resolveTarget(ctx context.Context, client *git.Client, commit string) (string, error) {
	if commit == "" {
		return client.HeadSHA(ctx)
	}

	return client.RevParse(ctx, commit+"^{commit}")
}

func existingTagCommit(ctx context.Context, client *git.Client, tag string, local bool) (string, error) {
	if local {
		return client.TagCommit(ctx, tag)
	}

	return client.RemoteTagSHA(ctx, tag)
}

// CleanupOptions configures CleanupAlphaTags.
type CleanupOptions struct {
	// Concurrency bounds parallel remote deletions.
	Concurrency int

	Logger *slog.Logger
}

// CleanupResult lists the outcome for every pre-release tag.
type CleanupResult struct {
	BaseVersion string   `json:"baseVersion"`
	Kept        []string `json:"kept"`
	Deleted     []string `json:"deleted"`
	Failed      []string `json:"failed,omitempty"`
}

// CleanupAlphaTags deletes the pre-release tags made obsolete by the merge
// commit. Tags on the first-parent history before the merge are kept. Tags
// reachable from HEAD came from the merged branch and are deleted. Unrelated
// tags are deleted only when they share the released base version.
func CleanupAlphaTags(ctx context.Context, client *git.Client, mergeCommit, version string, opts CleanupOptions) (*CleanupResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	res := &CleanupResult{BaseVersion: BaseVersion(version)}

	firstParent, err := client.RevParse(ctx, mergeCommit+"^1")
	if err != nil {
		return nil, fmt.Errorf("first parent of merge commit: %w", err)
	}

	head, err := client.HeadSHA(ctx)
	if err != nil {
		return nil, err
	}

	tags, err := client.ListTags(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []string

	for _, tag := range tags {
		if !IsAlphaTag(tag) {
			continue
		}

		del, err := shouldDelete(ctx, client, tag, firstParent, head, res.BaseVersion)
		if err != nil {
			logger.Warn("cannot classify tag", slog.String("tag", tag), slog.Any("error", err))
			continue
		}

		if del {
			candidates = append(candidates, tag)
		} else {
			res.Kept = append(res.Kept, tag)
		}
	}

	if len(candidates) == 0 {
		logger.Info("no alpha tags to delete")
		return res, nil
	}

	for _, tag := range candidates {
		if err := client.DeleteLocalTag(ctx, tag); err != nil {
			logger.Warn("deleting local tag failed", slog.String("tag", tag), slog.Any("error", err))
		}
	}

	res.Deleted, res.Failed = deleteRemote(ctx, client, candidates, opts.Concurrency, logger)

	logger.Info("alpha tag cleanup finished", slog.Int("deleted", len(res.Deleted)), slog.Int("failed", len(res.Failed)))

	return res, nil
}

func shouldDelete(ctx context.Context, client *git.Client, tag, firstParent, head, base string) (bool, error) {
	commit, err := client.TagCommit(ctx, tag)
	if err != nil {
		return false, err
	}

	onMainline, err := client.IsAncestor(ctx, commit, firstParent)
	if err != nil {
		return false, err
	}

	if onMainline {
		return false, nil
	}

	merged, err := client.IsAncestor(ctx, commit, head)
	if err != nil {
		return false, err
	}

	return merged || BaseVersion(tag) == base, nil
}

func deleteRemote(ctx context.Context, client *git.Client, tags []string, limit int, logger *slog.Logger) (deleted, failed []string) {
	if limit <= 0 {
		limit = DefaultCleanupConcurrency
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)

	g.SetLimit(limit)

	for _, tag := range tags {
		g.Go(func() error {
			err := client.DeleteRemoteTag(ctx, tag)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				logger.Warn("deleting remote tag failed", slog.String("tag", tag), slog.Any("error", err))
				failed = append(failed, tag)

				return nil
			}

			deleted = append(deleted, tag)

			return nil
		})
	}

	_ = g.Wait()

	sort.Strings(deleted)
	sort.Strings(failed)

	return deleted, failed
}
