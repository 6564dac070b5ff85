package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/phuslu/log"
)

// FS is a process-scoped scratch directory holding transient upload files.
// Every file gets a fresh UUID name, so concurrent writers never collide.
type FS struct {
	Root   string
	logger *log.Logger
}

// New creates a private directory under parent (os.TempDir() when empty).
func New(parent string, logger *log.Logger) (*FS, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, err
	}
	root, err := os.MkdirTemp(parent, "extractd-")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = &log.DefaultLogger
	}
	return &FS{Root: root, logger: logger}, nil
}

// Write stores payload in a new transient file ending in ext and returns its path.
// A partially written file is removed before the error is returned.
func (s *FS) Write(ext string, payload []byte) (string, error) {
	if ext == "" {
		ext = ".bin"
	}
	p := filepath.Join(s.Root, uuid.NewString()+ext)
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create transient file: %w", err)
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		s.Remove(p)
		return "", fmt.Errorf("write transient file: %w", err)
	}
	if err := f.Close(); err != nil {
		s.Remove(p)
		return "", fmt.Errorf("close transient file: %w", err)
	}
	return p, nil
}

// Remove deletes a transient file. Failures are logged, never returned.
func (s *FS) Remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn().Err(err).Str("path", path).Msg("transient file cleanup failed")
	}
}

// Close tears down the scratch directory and anything left in it.
func (s *FS) Close() error { return os.RemoveAll(s.Root) }
