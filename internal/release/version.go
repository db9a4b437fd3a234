package release

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// DefaultTag is assumed when no standard version tag exists.
const DefaultTag = "v0.0.0"

var (
	standardTagRe = regexp.MustCompile(`^v(\d+)\.(\d+)\.(\d+)$`)
	alphaTagRe    = regexp.MustCompile(`^v\d+\.\d+\.\d+\.alpha-`)
	tagVersionRe  = regexp.MustCompile(`^v(\d+\.\d+\.\d+)`)
	featRe        = regexp.MustCompile(`^(feat|feature)(\([^)]*\))?:`)
)

// Increment is the part of a version bumped for a release.
type Increment string

// Increment kinds, from the most to the least significant.
const (
	IncrementMajor Increment = "major"
	IncrementMinor Increment = "minor"
	IncrementPatch Increment = "patch"
)

// IsStandardTag reports whether tag has the form vMAJOR.MINOR.PATCH.
func IsStandardTag(tag string) bool {
	return standardTagRe.MatchString(tag)
}

// IsAlphaTag reports whether tag is a pre-release tag.
func IsAlphaTag(tag string) bool {
	return alphaTagRe.MatchString(tag)
}

// BaseVersion returns the MAJOR.MINOR.PATCH prefix of a tag or version, with
// any leading v removed.
func BaseVersion(s string) string {
	if m := tagVersionRe.FindStringSubmatch("v" + strings.TrimPrefix(s, "v")); m != nil {
		return m[1]
	}

	parts := strings.Split(strings.TrimPrefix(s, "v"), ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}

	return strings.Join(parts, ".")
}

// ParseVersion parses MAJOR.MINOR.PATCH leniently: missing or non-numeric
// parts become zero.
func ParseVersion(s string) *semver.Version {
	var nums [3]uint64

	for i, part := range strings.SplitN(strings.TrimPrefix(s, "v"), ".", 4) {
		if i >= len(nums) {
			break
		}

		if n, err := strconv.ParseUint(part, 10, 64); err == nil {
			nums[i] = n
		}
	}

	return semver.New(nums[0], nums[1], nums[2], "", "")
}

// LatestVersion returns the highest standard version tag, or DefaultTag when
// there is none.
func LatestVersion(tags []string) (*semver.Version, string) {
	byVersion := make(map[string]string)

	var versions semver.Collection

	for _, tag := range tags {
		if !IsStandardTag(tag) {
			continue
		}

		v, err := semver.NewVersion(tag)
		if err != nil {
			continue
		}

		byVersion[v.String()] = tag
		versions = append(versions, v)
	}

	if len(versions) == 0 {
		return ParseVersion(DefaultTag), DefaultTag
	}

	sort.Sort(versions)
	latest := versions[len(versions)-1]

	return latest, byVersion[latest.String()]
}

// IsBreaking reports whether a commit subject announces a breaking change.
func IsBreaking(subject string) bool {
	if strings.Contains(subject, "BREAKING CHANGE") || strings.Contains(subject, "BREAKING:") {
		return true
	}

	prefix, _, found := strings.Cut(subject, ":")

	return found && strings.HasSuffix(prefix, "!")
}

// IsFeature reports whether a commit subject is a feat: commit.
func IsFeature(subject string) bool {
	return featRe.MatchString(subject)
}

// DetermineIncrement picks the increment for commits. A breaking change wins,
// then a patch level of nine or more rolls over to minor, then any feature
// commit, and patch otherwise.
func DetermineIncrement(commits []string, currentPatch uint64) Increment {
	var breaking, feature bool

	for _, c := range commits {
		breaking = breaking || IsBreaking(c)
		feature = feature || IsFeature(c)
	}

	switch {
	case breaking:
		return IncrementMajor
	case currentPatch >= 9:
		return IncrementMinor
	case feature:
		return IncrementMinor
	default:
		return IncrementPatch
	}
}

// Apply returns v bumped by inc.
func Apply(v *semver.Version, inc Increment) *semver.Version {
	var next semver.Version

	switch inc {
	case IncrementMajor:
		next = v.IncMajor()
	case IncrementMinor:
		next = v.IncMinor()
	default:
		next = v.IncPatch()
	}

	return &next
}

// PrereleaseVersion appends the alpha timestamp suffix to base.
func PrereleaseVersion(base *semver.Version, now time.Time) string {
	now = now.UTC()

	return fmt.Sprintf("%s.alpha-%s%03d", base.String(), now.Format("20060102150405"), now.Nanosecond()/int(time.Millisecond))
}
