// Package homebrew updates the Homebrew formula published with a release.
package homebrew

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

const (
	// DefaultFormulaPath is the formula updated when no path is given.
	DefaultFormulaPath = "Formula/workflow.rb"

	// DefaultName is the released binary name.
	DefaultName = "workflow"

	// PlaceholderSHA256 is written when no checksum is available.
	PlaceholderSHA256 = "PLACEHOLDER_SHA256"

	darwinTarget = "x86_64-apple-darwin"
)

var (
	versionStanzaRe = regexp.MustCompile(`version\s+"[^"]+"`)
	sha256StanzaRe  = regexp.MustCompile(`sha256\s+"[^"]+"`)
)

// Release describes the values substituted into a formula.
type Release struct {
	Name    string
	Version string
	Tag     string
	Repo    string
	SHA256  string
}

// ArchiveName returns the macOS release archive name.
func (r Release) ArchiveName() string {
	return fmt.Sprintf("%s-%s-%s.tar.gz", r.name(), r.Version, darwinTarget)
}

// DownloadURL returns the GitHub release download URL of the archive.
func (r Release) DownloadURL() string {
	return fmt.Sprintf("https://github.com/%s/releases/download/%s/%s", r.Repo, r.Tag, r.ArchiveName())
}

func (r Release) name() string {
	if r.Name == "" {
		return DefaultName
	}

	return r.Name
}

// RenderTemplate substitutes {{VERSION}}, {{TAG}} and {{SHA256}}.
func RenderTemplate(tmpl string, r Release) string {
	return strings.NewReplacer(
		"{{VERSION}}", r.Version,
		"{{TAG}}", r.Tag,
		"{{SHA256}}", r.SHA256,
	).Replace(tmpl)
}

// UpdateFormula rewrites the version, release URL and sha256 stanzas of an
// existing formula. URLs outside the repository's releases are kept.
func UpdateFormula(formula string, r Release) string {
	urlRe := regexp.MustCompile(`url\s+"https://github\.com/` + regexp.QuoteMeta(r.Repo) + `/releases/download/[^"]+"`)

	formula = versionStanzaRe.ReplaceAllLiteralString(formula, fmt.Sprintf("version %q", r.Version))
	formula = urlRe.ReplaceAllLiteralString(formula, fmt.Sprintf("url %q", r.DownloadURL()))

	return sha256StanzaRe.ReplaceAllLiteralString(formula, fmt.Sprintf("sha256 %q", r.SHA256))
}

// FileSHA256 returns the hex SHA-256 digest of a file.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // path is user-provided by design
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck // read-only

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
