package release

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hupe1980/cidev/internal/git"
)

// fallbackCommitCount is how many recent commits are inspected when the
// latest tag cannot be resolved.
const fallbackCommitCount = 10

// Mode selects how a version is generated.
type Mode int

const (
	// ModeMaster generates a standard release version.
	ModeMaster Mode = iota
	// ModePrerelease generates an alpha version for a feature branch.
	ModePrerelease
)

func (m Mode) String() string {
	if m == ModeMaster {
		return "master"
	}

	return "prerelease"
}

// Plan is a generated version.
type Plan struct {
	Version        string    `json:"version"`
	Tag            string    `json:"tag"`
	NeedsIncrement bool      `json:"needsIncrement"`
	Increment      Increment `json:"increment,omitempty"`
	LatestTag      string    `json:"latestTag"`
	Reused         bool      `json:"reused"`
}

// Generator derives the next version from the repository history.
type Generator struct {
	git    *git.Client
	now    func() time.Time
	logger *slog.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithClock overrides the clock used for pre-release timestamps.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = now
	}
}

// WithLogger sets the generator's logger.
func WithLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger
	}
}

// NewGenerator returns a Generator reading history through client.
func NewGenerator(client *git.Client, opts ...GeneratorOption) *Generator {
	g := &Generator{
		git:    client,
		now:    time.Now,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate computes the version for mode.
func (g *Generator) Generate(ctx context.Context, mode Mode) (*Plan, error) {
	tags, err := g.git.ListTags(ctx)
	if err != nil {
		return nil, err
	}

	latest, latestTag := LatestVersion(tags)

	g.logger.Info("version generation inputs",
		slog.String("latestTag", latestTag),
		slog.String("mode", mode.String()),
	)

	if mode == ModeMaster {
		if plan, err := g.reuseHeadTag(ctx, latestTag); plan != nil || err != nil {
			return plan, err
		}
	}

	commits, err := g.commitsSince(ctx, latestTag)
	if err != nil {
		return nil, err
	}

	inc := DetermineIncrement(commits, latest.Patch())
	next := Apply(latest, inc)

	g.logger.Info("determined version increment",
		slog.String("increment", string(inc)),
		slog.Int("commits", len(commits)),
	)

	plan := &Plan{
		Increment: inc,
		LatestTag: latestTag,
	}

	if mode == ModeMaster {
		plan.Version = next.String()
		plan.NeedsIncrement = true
	} else {
		plan.Version = PrereleaseVersion(next, g.now())
	}

	plan.Tag = "v" + plan.Version

	g.logger.Info("generated version", slog.String("version", plan.Version), slog.String("tag", plan.Tag))

	return plan, nil
}

// reuseHeadTag returns a plan for a standard tag already on HEAD, or nil.
func (g *Generator) reuseHeadTag(ctx context.Context, latestTag string) (*Plan, error) {
	head, err := g.git.HeadSHA(ctx)
	if err != nil {
		return nil, err
	}

	tags, err := g.git.TagsAt(ctx, head)
	if err != nil {
		return nil, err
	}

	for _, tag := range tags {
		if !IsStandardTag(tag) {
			continue
		}

		g.logger.Info("reusing tag on current commit", slog.String("tag", tag))

		return &Plan{
			Version:   strings.TrimPrefix(tag, "v"),
			Tag:       tag,
			LatestTag: latestTag,
			Reused:    true,
		}, nil
	}

	return nil, nil
}

func (g *Generator) commitsSince(ctx context.Context, tag string) ([]string, error) {
	if _, err := g.git.RevParse(ctx, tag); err != nil {
		g.logger.Debug("latest tag does not resolve, using recent commits", slog.String("tag", tag))

		return g.git.RecentCommits(ctx, fallbackCommitCount)
	}

	return g.git.CommitsBetween(ctx, tag, "HEAD")
}
