// Package media downloads article images and stores them on disk.
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store writes image binaries into a single local directory.
type Store struct {
	baseDir string
}

// NewStore constructs a filesystem-backed store. The directory is created
// lazily by Ensure.
func NewStore(baseDir string) (*Store, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("base directory must be provided")
	}
	return &Store{baseDir: baseDir}, nil
}

// Dir returns the directory images are written to.
func (s *Store) Dir() string { return s.baseDir }

// Ensure creates the directory if it does not exist.
func (s *Store) Ensure() error {
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return fmt.Errorf("create media directory: %w", err)
	}
	return nil
}

// Save writes data under name, replacing any previous file of that name,
// and returns the written path.
func (s *Store) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid media file name %q", name)
	}
	fullPath := filepath.Join(s.baseDir, name)

	tmp, err := os.CreateTemp(s.baseDir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create temp media file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write media file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close media file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("chmod media file: %w", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("replace media file: %w", err)
	}
	return fullPath, nil
}
