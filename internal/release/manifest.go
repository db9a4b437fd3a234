package release

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/hupe1980/cidev/internal/command"
	"github.com/hupe1980/cidev/internal/output"
)

var (
	tableHeaderRe  = regexp.MustCompile(`^\s*\[([^\[\]]+)\]\s*(#.*)?$`)
	arrayHeaderRe  = regexp.MustCompile(`^\s*\[\[`)
	versionValueRe = regexp.MustCompile(`^(\s*version\s*=\s*)"[^"]*"(.*)$`)
)

// versionTables are the manifest tables whose version key is rewritten.
var versionTables = map[string]bool{
	"package":           true,
	"workspace.package": true,
}

type cargoManifest struct {
	Package *struct {
		Version any `toml:"version"`
	} `toml:"package"`
	Workspace *struct {
		Package *struct {
			Version any `toml:"version"`
		} `toml:"package"`
	} `toml:"workspace"`
}

// SetManifestVersion rewrites the version of the [package] and
// [workspace.package] tables in a Cargo.toml document. Dependency versions
// and every other line are left as they are.
func SetManifestVersion(manifest, version string) (string, error) {
	lines := strings.Split(manifest, "\n")
	table := ""
	updated := 0

	for i, line := range lines {
		if arrayHeaderRe.MatchString(line) {
			table = ""
			continue
		}

		if m := tableHeaderRe.FindStringSubmatch(line); m != nil {
			table = strings.TrimSpace(m[1])
			continue
		}

		if !versionTables[table] {
			continue
		}

		if m := versionValueRe.FindStringSubmatch(line); m != nil {
			lines[i] = fmt.Sprintf("%s%q%s", m[1], version, m[2])
			updated++
		}
	}

	if updated == 0 {
		return "", fmt.Errorf("no package version found in manifest")
	}

	out := strings.Join(lines, "\n")

	if err := checkManifest(out, version); err != nil {
		return "", err
	}

	return out, nil
}

func checkManifest(doc, version string) error {
	var m cargoManifest
	if err := toml.Unmarshal([]byte(doc), &m); err != nil {
		return fmt.Errorf("updated manifest is not valid TOML: %w", err)
	}

	if m.Package != nil {
		if v, ok := m.Package.Version.(string); ok && v != version {
			return fmt.Errorf("package version is %q after update, want %q", v, version)
		}
	}

	if m.Workspace != nil && m.Workspace.Package != nil {
		if v, ok := m.Workspace.Package.Version.(string); ok && v != version {
			return fmt.Errorf("workspace package version is %q after update, want %q", v, version)
		}
	}

	return nil
}

// UpdateCargoManifest sets the version in the Cargo.toml at path.
func UpdateCargoManifest(path, version string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is user-provided by design
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	updated, err := SetManifestVersion(string(data), version)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if err := output.NewFileWriter(path, output.WithLogger(logger)).Write([]byte(updated)); err != nil {
		return err
	}

	logger.Info("updated manifest version", slog.String("path", path), slog.String("version", version))

	return nil
}

// UpdateLockFile refreshes Cargo.lock for the workspace members.
func UpdateLockFile(ctx context.Context, runner command.Runner) error {
	if _, err := runner.Run(ctx, "cargo", "update", "--workspace"); err != nil {
		return fmt.Errorf("updating Cargo.lock: %w", err)
	}

	return nil
}
