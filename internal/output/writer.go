package output

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Writer is the interface for report and file output destinations.
type Writer interface {
	// Write sends data to the output destination.
	Write(data []byte) error
}

// StdoutWriter writes output to a stream, os.Stdout by default.
type StdoutWriter struct {
	out io.Writer
}

// NewStdoutWriter creates a writer that sends output to the given writer.
// If w is nil, os.Stdout is used.
func NewStdoutWriter(w io.Writer) *StdoutWriter {
	if w == nil {
		w = os.Stdout
	}

	return &StdoutWriter{out: w}
}

// Write sends data to the stream.
func (sw *StdoutWriter) Write(data []byte) error {
	if _, err := sw.out.Write(data); err != nil {
		return fmt.Errorf("writing to stdout: %w", err)
	}

	return nil
}

// FileWriter replaces a file's contents in one step: data goes to a temporary
// file in the same directory which is then renamed over the target, so a
// reader never sees a half-written file.
type FileWriter struct {
	path   string
	perm   os.FileMode
	backup string
	logger *slog.Logger
}

// FileWriterOption configures a FileWriter.
type FileWriterOption func(*FileWriter)

// WithPermissions overrides the permissions of a newly created file (0644).
// An existing file keeps its mode.
func WithPermissions(perm os.FileMode) FileWriterOption {
	return func(fw *FileWriter) {
		fw.perm = perm
	}
}

// WithBackup copies the existing file to path+suffix before replacing it.
func WithBackup(suffix string) FileWriterOption {
	return func(fw *FileWriter) {
		fw.backup = suffix
	}
}

// WithLogger sets a logger for the FileWriter.
func WithLogger(logger *slog.Logger) FileWriterOption {
	return func(fw *FileWriter) {
		fw.logger = logger
	}
}

// NewFileWriter creates a writer that writes to the specified file path.
func NewFileWriter(path string, opts ...FileWriterOption) *FileWriter {
	fw := &FileWriter{
		path:   path,
		perm:   0o644,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(fw)
	}

	return fw
}

// Write creates parent directories, backs up the current file when
// configured, and atomically replaces the file with data.
func (fw *FileWriter) Write(data []byte) error {
	dir := filepath.Dir(fw.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	perm := fw.perm

	info, err := os.Stat(fw.path)
	switch {
	case err == nil:
		perm = info.Mode().Perm()

		if fw.backup != "" {
			if err := fw.writeBackup(perm); err != nil {
				return err
			}
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("stat %s: %w", fw.path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fw.path)+".*")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", fw.path, err)
	}

	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing file %s: %w", fw.path, err)
	}

	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting mode of %s: %w", fw.path, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing file %s: %w", fw.path, err)
	}

	if err := os.Rename(tmpName, fw.path); err != nil {
		return fmt.Errorf("replacing file %s: %w", fw.path, err)
	}

	fw.logger.Debug("wrote file", slog.String("path", fw.path), slog.Int("bytes", len(data)))

	return nil
}

func (fw *FileWriter) writeBackup(perm fs.FileMode) error {
	current, err := os.ReadFile(fw.path)
	if err != nil {
		return fmt.Errorf("reading %s for backup: %w", fw.path, err)
	}

	backupPath := fw.path + fw.backup
	if err := os.WriteFile(backupPath, current, perm); err != nil {
		return fmt.Errorf("writing backup %s: %w", backupPath, err)
	}

	fw.logger.Info("backed up file", slog.String("path", fw.path), slog.String("backup", backupPath))

	return nil
}

// Path returns the output file path.
func (fw *FileWriter) Path() string {
	return fw.path
}

// BackupPath returns the backup file path, or "" when backups are off.
func (fw *FileWriter) BackupPath() string {
	if fw.backup == "" {
		return ""
	}

	return fw.path + fw.backup
}
