package blob

import (
	"context"
	"os"
	"path/filepath"

	"github.com/poiesic/corpus/storage"
)

// LocalStore implements storage.BlobStore on the local filesystem.
// All paths are resolved relative to a base directory.
type LocalStore struct {
	baseDir string
}

var _ storage.BlobStore = (*LocalStore)(nil)

// NewLocalStore creates a blob store rooted at baseDir.
// The directory is created if it doesn't exist.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// Save writes data under path and returns the absolute location.
func (s *LocalStore) Save(ctx context.Context, path string, data []byte) (string, error) {
	full := filepath.Join(s.baseDir, path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", err
	}
	return full, nil
}

// Delete removes the blob at path. Missing blobs are a no-op.
func (s *LocalStore) Delete(ctx context.Context, path string) error {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(s.baseDir, path)
	}
	err := os.Remove(full)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// PublicURL returns a file URL for the blob at path.
func (s *LocalStore) PublicURL(path string) string {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(s.baseDir, path)
	}
	return "file://" + full
}
