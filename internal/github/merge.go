package github

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Merge outcome reasons.
const (
	ReasonAlreadyMerged = "already_merged"
	ReasonMerged        = "merged"
	ReasonMergeFailed   = "merge_failed"
	ReasonTimeout       = "timeout"
)

// WaitOptions configures WaitAndMerge.
type WaitOptions struct {
	// Settle is waited before the first status check.
	Settle time.Duration

	// InitialInterval is the poll interval during the first FastPhase.
	InitialInterval time.Duration

	// NormalInterval is the poll interval afterwards.
	NormalInterval time.Duration

	// FastPhase is how long InitialInterval applies, counted from the start.
	FastPhase time.Duration

	// MaxWait bounds the whole wait, settle included.
	MaxWait time.Duration

	Merge MergeOptions

	Logger *slog.Logger

	// sleep is replaced in tests.
	sleep func(context.Context, time.Duration) error
}

// DefaultWaitOptions returns the release workflow's polling schedule.
func DefaultWaitOptions() WaitOptions {
	return WaitOptions{
		Settle:          30 * time.Second,
		InitialInterval: 3 * time.Second,
		NormalInterval:  5 * time.Second,
		FastPhase:       60 * time.Second,
		MaxWait:         300 * time.Second,
		Merge:           MergeOptions{MergeMethod: "squash"},
	}
}

// MergeResult reports how WaitAndMerge finished.
type MergeResult struct {
	Merged  bool          `json:"merged"`
	Reason  string        `json:"reason"`
	Elapsed time.Duration `json:"elapsed"`
}

// MergeTimeoutError is returned when the pull request never became mergeable.
type MergeTimeoutError struct {
	Number  int
	MaxWait time.Duration
}

func (e *MergeTimeoutError) Error() string {
	return fmt.Sprintf("pull request #%d did not become mergeable within %s", e.Number, e.MaxWait)
}

// WaitAndMerge polls a pull request until it is merged or mergeable, merging
// it in the latter case. Elapsed time is tracked from the configured sleeps.
func (c *Client) WaitAndMerge(ctx context.Context, number int, opts WaitOptions) (*MergeResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.InitialInterval <= 0 {
		opts.InitialInterval = time.Second
	}

	if opts.NormalInterval <= 0 {
		opts.NormalInterval = opts.InitialInterval
	}

	sleep := opts.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	if err := sleep(ctx, opts.Settle); err != nil {
		return nil, err
	}

	elapsed := opts.Settle

	for elapsed < opts.MaxWait {
		pr, err := c.GetPullRequest(ctx, number)
		if err != nil {
			return nil, fmt.Errorf("getting pull request status: %w", err)
		}

		switch {
		case pr.Merged:
			logger.Info("pull request already merged", slog.Int("number", number))

			return &MergeResult{Merged: true, Reason: ReasonAlreadyMerged, Elapsed: elapsed}, nil
		case pr.Mergeable != nil && *pr.Mergeable:
			logger.Info("pull request is mergeable, merging",
				slog.Int("number", number),
				slog.String("method", opts.Merge.MergeMethod),
			)

			merged, err := c.MergePullRequest(ctx, number, opts.Merge)
			if err != nil {
				return &MergeResult{Reason: err.Error(), Elapsed: elapsed}, err
			}

			if !merged {
				return &MergeResult{Reason: ReasonMergeFailed, Elapsed: elapsed},
					fmt.Errorf("pull request #%d could not be merged", number)
			}

			return &MergeResult{Merged: true, Reason: ReasonMerged, Elapsed: elapsed}, nil
		case pr.Mergeable != nil:
			logger.Warn("pull request not mergeable yet", slog.Int("number", number), slog.Duration("elapsed", elapsed))
		default:
			logger.Info("mergeability still being computed", slog.Int("number", number), slog.Duration("elapsed", elapsed))
		}

		interval := opts.NormalInterval
		if elapsed < opts.FastPhase {
			interval = opts.InitialInterval
		}

		if err := sleep(ctx, interval); err != nil {
			return nil, err
		}

		elapsed += interval
	}

	return &MergeResult{Reason: ReasonTimeout, Elapsed: elapsed}, &MergeTimeoutError{Number: number, MaxWait: opts.MaxWait}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
