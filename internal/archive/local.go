package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore keeps artifacts on the local filesystem under a base directory.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a local store rooted at baseDir.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("local archive directory not configured")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(key))
}

// Put writes the artifact to disk and returns its absolute path.
func (s *LocalStore) Put(ctx context.Context, key string, reader io.Reader, size int64) (string, error) {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create artifact directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create artifact file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

// Get opens a stored artifact.
func (s *LocalStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return os.Open(s.path(key))
}

// Exists checks whether the artifact file is present.
func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
