// Package local implements a filesystem destination writer.
package local

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Store writes files relative to the working directory of its filesystem.
type Store struct {
	fs     afero.Fs
	logger *zap.Logger
}

// New creates a Store. A nil fs means the OS filesystem.
func New(fs afero.Fs, logger *zap.Logger) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{fs: fs, logger: logger}
}

// Write creates any missing parent directories of path and then replaces
// the file's contents with data. It returns a file:// URI.
func (s *Store) Write(ctx context.Context, path string, data []byte) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context canceled: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		s.logger.Info("creating dir", zap.String("dir", dir))
		if err := s.fs.MkdirAll(dir, dirPerm); err != nil {
			return "", fmt.Errorf("create parent directories: %w", err)
		}
	}

	s.logger.Info("writing file", zap.String("path", path))
	if err := afero.WriteFile(s.fs, path, data, filePerm); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return "file://" + filepath.ToSlash(path), nil
}
