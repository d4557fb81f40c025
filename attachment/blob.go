package attachment

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BlobStore persists processed attachment bytes under a generated key and
// returns a URL clients can fetch the blob from.
type BlobStore interface {
	Put(originalName string, data []byte) (url string, err error)
	Remove(url string) error
}

// DiskStore writes blobs under a local directory served as static files,
// keyed by a fresh UUID plus the original extension. Keys are collision-free
// by construction.
type DiskStore struct {
	dir     string
	baseURL string
}

// NewDiskStore creates the directory if needed.
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *DiskStore) Put(originalName string, data []byte) (string, error) {
	key := uuid.NewString() + strings.ToLower(filepath.Ext(originalName))
	if err := os.WriteFile(filepath.Join(s.dir, key), data, 0o644); err != nil {
		return "", fmt.Errorf("write attachment blob: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

// Remove deletes the blob behind a URL previously returned by Put. Used for
// best-effort rollback when the comment row fails to persist.
func (s *DiskStore) Remove(url string) error {
	key := filepath.Base(url)
	if key == "." || key == "/" || key == "" {
		return nil
	}
	return os.Remove(filepath.Join(s.dir, key))
}
