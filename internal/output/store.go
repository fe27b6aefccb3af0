package output

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	cmerrors "contentmark/internal/errors"
	"contentmark/internal/paths"
	"contentmark/internal/schema"
)

// FileStore keeps the current snapshot in <dir>/schema.json or
// <dir>/schema.yaml.
type FileStore struct {
	dir     string
	format  Format
	pretty  bool
	history *History
	logger  *slog.Logger
}

// StoreOption configures a FileStore.
type StoreOption func(*FileStore)

// WithHistory records every saved snapshot in h.
func WithHistory(h *History) StoreOption {
	return func(s *FileStore) { s.history = h }
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *FileStore) { s.logger = l }
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string, format Format, pretty bool, opts ...StoreOption) *FileStore {
	s := &FileStore{
		dir:    dir,
		format: format,
		pretty: pretty,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the schema file location.
func (s *FileStore) Path() string {
	return paths.SchemaFile(s.dir, string(s.format))
}

// History returns the attached history, if any.
func (s *FileStore) History() *History {
	return s.history
}

// Load reads the persisted snapshot. A missing file yields nil, nil.
func (s *FileStore) Load(ctx context.Context) (*schema.ProjectSchema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, cmerrors.New(cmerrors.OutputFailed, "failed to read schema", err)
	}
	snap, err := Decode(data, s.format)
	if err != nil {
		return nil, cmerrors.New(cmerrors.OutputFailed, "failed to decode "+s.Path(), err)
	}
	return snap, nil
}

// Save writes the snapshot atomically and records it in the history.
func (s *FileStore) Save(ctx context.Context, snap *schema.ProjectSchema) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(snap, s.format, s.pretty)
	if err != nil {
		return cmerrors.New(cmerrors.OutputFailed, "failed to encode schema", err)
	}
	if err := WriteFileAtomic(s.Path(), data, 0o644); err != nil {
		return cmerrors.New(cmerrors.OutputFailed, "failed to write schema", err)
	}
	s.logger.Debug("Wrote schema", "path", s.Path(), "bytes", len(data))

	if s.history != nil {
		entry, err := s.history.Record(snap)
		if err != nil {
			return cmerrors.New(cmerrors.OutputFailed, "failed to record schema history", err)
		}
		if entry.Name != "" {
			s.logger.Debug("Recorded schema history", "entry", entry.Name)
		}
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file in the target directory
// and renames it over path.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := paths.EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		cleanup()
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
