package lockfile

import (
	"regexp"
	"sort"
	"strings"
)

// PackageHeader opens a package block in a lock file.
const PackageHeader = "[[package]]"

// DefaultRemovalSet lists the clipboard crates that pull in libxcb. They are
// stripped before cross-compiling for targets without XCB development
// packages.
var DefaultRemovalSet = []string{"clipboard", "x11-clipboard", "xcb", "clipboard-win"}

var (
	nameLineRe         = regexp.MustCompile(`^name\s*=\s*"([^"]+)"`)
	dependenciesLineRe = regexp.MustCompile(`^dependencies\s*=\s*\[`)
)

// Set is a case-sensitive set of package names.
type Set map[string]struct{}

// NewSet returns a Set holding names. Empty names are ignored.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			s[n] = struct{}{}
		}
	}

	return s
}

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	_, ok := s[name]

	return ok
}

// Names returns the set members in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

// Stats summarizes what a Filter pass removed.
type Stats struct {
	// PackagesRemoved counts removed [[package]] blocks. A crate locked at
	// two versions counts twice.
	PackagesRemoved int `json:"packagesRemoved"`

	// DependencyReferencesRemoved counts dropped dependency-array entries in
	// the blocks that were kept.
	DependencyReferencesRemoved int `json:"dependencyReferencesRemoved"`

	// Removed lists the distinct removed package names, sorted.
	Removed []string `json:"removed,omitempty"`
}

// Changed reports whether the pass removed anything.
func (s Stats) Changed() bool {
	return s.PackagesRemoved > 0 || s.DependencyReferencesRemoved > 0
}

// State is a position of the filter state machine.
type State int

// Filter states.
const (
	StateOutsideBlock State = iota
	StateInBlock
	StateInDependencies
	StateSkippingBlock
)

func (s State) String() string {
	switch s {
	case StateOutsideBlock:
		return "outside-block"
	case StateInBlock:
		return "in-block"
	case StateInDependencies:
		return "in-dependencies"
	case StateSkippingBlock:
		return "skipping-block"
	default:
		return "unknown"
	}
}

// Filter removes every package block whose name is in removal, and every
// dependency-array entry in the remaining blocks that references one of
// them. Lines are otherwise preserved verbatim and in order. Names absent from
// the document are ignored.
func Filter(document string, removal Set) (string, Stats) {
	f := newFilter(removal)

	for _, line := range splitDocument(document) {
		f.Step(line)
	}

	out, stats := f.Finish()

	// The last line of a removed final block carries the file's trailing
	// newline.
	if out != "" && strings.HasSuffix(document, "\n") && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}

	return out, stats
}

// filter is the per-document scan state. Lines of the current block are
// buffered until the next header so a late name line can still drop them.
type filter struct {
	removal Set
	state   State

	out   []string
	block []string

	name      string
	scanner   bracketScanner
	depth     int
	blockRefs int

	stats   Stats
	removed map[string]struct{}
}

func newFilter(removal Set) *filter {
	return &filter{
		removal: removal,
		removed: make(map[string]struct{}),
	}
}

// State returns the current state.
func (f *filter) State() State {
	return f.state
}

// Step feeds the next line through the state machine.
func (f *filter) Step(line string) {
	trimmed := strings.TrimSpace(line)

	if trimmed == PackageHeader && !f.scanner.InString() {
		f.flush()
		f.block = append(f.block, line)
		f.name = ""
		f.depth = 0
		f.blockRefs = 0
		f.scanner = bracketScanner{}
		f.state = StateInBlock

		return
	}

	switch f.state {
	case StateOutsideBlock:
		f.out = append(f.out, line)
	case StateInBlock:
		f.stepBlock(line, trimmed)
	case StateInDependencies:
		f.stepDependencies(line)
	case StateSkippingBlock:
	}
}

func (f *filter) stepBlock(line, trimmed string) {
	if f.name == "" {
		if m := nameLineRe.FindStringSubmatch(trimmed); m != nil {
			f.name = m[1]

			if f.removal.Has(f.name) {
				f.skip()

				return
			}
		}
	}

	if dependenciesLineRe.MatchString(trimmed) {
		f.depth = f.scanner.Delta(line)
		line = f.stripHeader(line)

		if f.depth > 0 {
			f.state = StateInDependencies
		}
	}

	f.block = append(f.block, line)
}

// stripHeader removes references that share the `dependencies = [` line,
// as in an inline array or a first entry written after the bracket.
func (f *filter) stripHeader(line string) string {
	open := strings.Index(line, "[")
	body, cr := cutCR(line[open+1:])

	kept, n := stripRefs(body, f.removal)
	if n == 0 {
		return line
	}

	f.blockRefs += n

	if strings.TrimSpace(kept) == "" {
		kept = ""
	}

	return line[:open+1] + kept + cr
}

func (f *filter) stepDependencies(line string) {
	inString := f.scanner.InString()
	f.depth += f.scanner.Delta(line)

	keep := line

	if !inString {
		body, cr := cutCR(line)

		if kept, n := stripRefs(body, f.removal); n > 0 {
			f.blockRefs += n
			keep = ""

			if rest := strings.TrimSpace(kept); rest != "" && !strings.HasPrefix(rest, "#") {
				keep = kept + cr
			}
		}
	}

	if keep != "" {
		f.block = append(f.block, keep)
	}

	if f.depth <= 0 {
		f.depth = 0
		f.state = StateInBlock
	}
}

// skip discards the buffered block and everything up to the next header.
func (f *filter) skip() {
	f.block = f.block[:0]
	f.blockRefs = 0
	f.stats.PackagesRemoved++
	f.removed[f.name] = struct{}{}
	f.state = StateSkippingBlock
}

func (f *filter) flush() {
	if f.state != StateSkippingBlock {
		f.out = append(f.out, f.block...)
		f.stats.DependencyReferencesRemoved += f.blockRefs
	}

	f.block = f.block[:0]
	f.blockRefs = 0
}

// Finish flushes the final block and returns the filtered document.
func (f *filter) Finish() (string, Stats) {
	f.flush()
	f.state = StateOutsideBlock

	stats := f.stats
	for n := range f.removed {
		stats.Removed = append(stats.Removed, n)
	}

	sort.Strings(stats.Removed)

	return strings.Join(f.out, "\n"), stats
}

// dependencyEntry parses the quoted entry at the start of s, such as
// `"xcb"` or `"xcb 0.8.2 (registry+...)"`. end is the index just past the
// closing quote.
func dependencyEntry(s string) (name string, end int, ok bool) {
	if !strings.HasPrefix(s, `"`) {
		return "", 0, false
	}

	closing := skipString(s, 0)
	if closing == 0 || s[closing] != '"' {
		return "", 0, false
	}

	name, _, _ = strings.Cut(s[1:closing], " ")
	if name == "" {
		return "", 0, false
	}

	return name, closing + 1, true
}

// stripRefs drops the entries of a dependency-array fragment that reference
// a name in removal, each together with the separator after it. Scanning
// stops at the first token that is not a quoted entry; the remainder is kept
// verbatim. It returns the kept text and the number of dropped entries.
func stripRefs(fragment string, removal Set) (string, int) {
	var (
		b       strings.Builder
		removed int
	)

	s := fragment

	for {
		body := strings.TrimLeft(s, " \t")
		b.WriteString(s[:len(s)-len(body)])

		name, end, ok := dependencyEntry(body)
		if !ok {
			b.WriteString(body)

			break
		}

		end = len(body) - len(strings.TrimLeft(body[end:], ", \t"))

		if removal.Has(name) {
			removed++
		} else {
			b.WriteString(body[:end])
		}

		s = body[end:]
	}

	if removed == 0 {
		return fragment, 0
	}

	return b.String(), removed
}

// cutCR splits a trailing carriage return off a CRLF line.
func cutCR(line string) (string, string) {
	if body, ok := strings.CutSuffix(line, "\r"); ok {
		return body, "\r"
	}

	return line, ""
}

func splitDocument(doc string) []string {
	return strings.Split(doc, "\n")
}
