package lockfile

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidOutput is matched by every *ValidationError.
var ErrInvalidOutput = errors.New("filtered lock file failed validation")

// ValidationError lists the checks a filtered document failed.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidOutput, strings.Join(e.Problems, "; "))
}

// Is makes errors.Is(err, ErrInvalidOutput) succeed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidOutput
}

// lockDocument is the subset of the Cargo.lock schema the checks need.
type lockDocument struct {
	Version int           `toml:"version"`
	Package []lockPackage `toml:"package"`
}

type lockPackage struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Dependencies []string `toml:"dependencies"`
}

// Validate checks that filtered is still a plausible lock file given the
// original it was derived from. The checks are advisory and cheap; they are
// not a full TOML schema validation:
//
//  1. a document that had package blocks still has at least one;
//  2. closing brackets never outnumber opening ones;
//  3. no package block lost its name line;
//  4. if the original parsed as TOML, the filtered document parses too, has
//     no more unnamed packages than the original, and names nothing in
//     removal, neither as a package nor as a dependency.
func Validate(original, filtered string, removal Set) error {
	var problems []string

	headers := strings.Count(filtered, PackageHeader)

	if strings.Contains(original, PackageHeader) && headers == 0 {
		problems = append(problems, "no [[package]] blocks left")
	}

	if open, closed := countBrackets(filtered); open < closed {
		problems = append(problems, fmt.Sprintf("unbalanced brackets: %d '[' < %d ']'", open, closed))
	}

	// Blocks that had no name line in the original are passed through, so
	// only a growing deficit means a block lost its name.
	if missing := headers - strings.Count(filtered, `name = "`); missing > 0 && missing > missingNames(original) {
		problems = append(problems, fmt.Sprintf("%d package block(s) but only %d name field(s)", headers, headers-missing))
	}

	if origDoc, err := parse(original); err == nil {
		doc, err := parse(filtered)
		if err != nil {
			problems = append(problems, fmt.Sprintf("not valid TOML: %v", err))
		} else {
			if unnamed(doc) > unnamed(origDoc) {
				problems = append(problems, fmt.Sprintf("%d package(s) without a name", unnamed(doc)))
			}

			if names := leftovers(doc, removal); len(names) > 0 {
				problems = append(problems, "still references "+strings.Join(names, ", "))
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	return nil
}

func missingNames(doc string) int {
	return max(0, strings.Count(doc, PackageHeader)-strings.Count(doc, `name = "`))
}

func unnamed(doc *lockDocument) int {
	n := 0

	for _, p := range doc.Package {
		if p.Name == "" {
			n++
		}
	}

	return n
}

// CheckIntegrity parses document and reports every name in removal that is
// still present, either as a package or as a dependency reference. The
// result is sorted and de-duplicated.
func CheckIntegrity(document string, removal Set) ([]string, error) {
	doc, err := parse(document)
	if err != nil {
		return nil, err
	}

	return leftovers(doc, removal), nil
}

func leftovers(doc *lockDocument, removal Set) []string {
	found := make(map[string]struct{})

	for _, p := range doc.Package {
		if removal.Has(p.Name) {
			found[p.Name] = struct{}{}
		}

		for _, dep := range p.Dependencies {
			name, _, _ := strings.Cut(dep, " ")
			if removal.Has(name) {
				found[name] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(found))
	for n := range found {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

// PackageNames returns the package names of document in file order.
func PackageNames(document string) ([]string, error) {
	doc, err := parse(document)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(doc.Package))
	for _, p := range doc.Package {
		names = append(names, p.Name)
	}

	return names, nil
}

func parse(document string) (*lockDocument, error) {
	var doc lockDocument
	if err := toml.Unmarshal([]byte(document), &doc); err != nil {
		return nil, fmt.Errorf("parsing lock file: %w", err)
	}

	return &doc, nil
}
