package release

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.2.3", "1.2.3"},
		{"v1.2.3", "1.2.3"},
		{"1.2", "1.2.0"},
		{"1.x.3", "1.0.3"},
		{"", "0.0.0"},
		{"1.2.3.alpha-1", "1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseVersion(tt.in).String())
		})
	}
}

func TestLatestVersion(t *testing.T) {
	v, tag := LatestVersion([]string{"v1.2.3", "v1.10.0", "v1.9.9", "v2.0.0.alpha-1", "release-3", "v1.10"})
	assert.Equal(t, "1.10.0", v.String())
	assert.Equal(t, "v1.10.0", tag)
}

func TestLatestVersion_Default(t *testing.T) {
	v, tag := LatestVersion([]string{"v1.0.0.alpha-20250101000000000"})
	assert.Equal(t, "0.0.0", v.String())
	assert.Equal(t, DefaultTag, tag)
}

func TestDetermineIncrement(t *testing.T) {
	tests := []struct {
		name    string
		commits []string
		patch   uint64
		want    Increment
	}{
		{"breaking change footer", []string{"fix: x BREAKING CHANGE"}, 0, IncrementMajor},
		{"breaking prefix", []string{"BREAKING: drop api"}, 0, IncrementMajor},
		{"bang", []string{"feat!: new api"}, 0, IncrementMajor},
		{"scoped bang", []string{"refactor(core)!: rename"}, 0, IncrementMajor},
		{"breaking beats rollover", []string{"feat!: x"}, 9, IncrementMajor},
		{"patch rollover", []string{"fix: x"}, 9, IncrementMinor},
		{"feat", []string{"fix: a", "feat: b"}, 3, IncrementMinor},
		{"feature", []string{"feature: b"}, 0, IncrementMinor},
		{"scoped feat", []string{"feat(cli): b"}, 0, IncrementMinor},
		{"fix", []string{"fix: a", "docs: b"}, 3, IncrementPatch},
		{"no commits", nil, 0, IncrementPatch},
		{"feat not at start", []string{"chore: feat: x"}, 0, IncrementPatch},
		{"bang after colon", []string{"fix: wow!"}, 0, IncrementPatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineIncrement(tt.commits, tt.patch))
		})
	}
}

func TestApply(t *testing.T) {
	v := ParseVersion("1.6.9")
	assert.Equal(t, "2.0.0", Apply(v, IncrementMajor).String())
	assert.Equal(t, "1.7.0", Apply(v, IncrementMinor).String())
	assert.Equal(t, "1.6.10", Apply(v, IncrementPatch).String())
	assert.Equal(t, "1.6.9", v.String())
}

func TestPrereleaseVersion(t *testing.T) {
	now := time.Date(2025, 12, 16, 10, 17, 12, 7*int(time.Millisecond), time.FixedZone("X", 3600))
	assert.Equal(t, "1.6.1.alpha-20251216091712007", PrereleaseVersion(ParseVersion("1.6.1"), now))
}

func TestTagClassification(t *testing.T) {
	assert.True(t, IsStandardTag("v1.2.3"))
	assert.False(t, IsStandardTag("v1.2.3.alpha-1"))
	assert.False(t, IsStandardTag("1.2.3"))
	assert.True(t, IsAlphaTag("v1.2.3.alpha-20250101"))
	assert.False(t, IsAlphaTag("v1.2.3"))
}

func TestBaseVersion(t *testing.T) {
	assert.Equal(t, "1.6.0", BaseVersion("v1.6.0.alpha-123"))
	assert.Equal(t, "1.6.0", BaseVersion("1.6.0"))
	assert.Equal(t, "1.6", BaseVersion("v1.6"))
}
