package receipt

import (
	"fmt"
	"os"
	"path/filepath"
)

// ImageStore keeps the original receipt captures so a record's photo can be
// reviewed after extraction.
type ImageStore interface {
	// Save stores a capture and returns the path/filename
	Save(filename string, data []byte) (string, error)

	// Get retrieves a capture by path
	Get(path string) ([]byte, error)

	// Delete removes a capture
	Delete(path string) error
}

// DirStore implements ImageStore on the local filesystem.
type DirStore struct {
	basePath string
}

// NewDirStore creates a DirStore rooted at basePath, creating it if needed.
func NewDirStore(basePath string) (*DirStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}
	return &DirStore{basePath: basePath}, nil
}

// Save writes a capture under the store's base path.
func (d *DirStore) Save(filename string, data []byte) (string, error) {
	path := filepath.Join(d.basePath, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing image file: %w", err)
	}
	return filename, nil
}

// Get reads a capture back.
func (d *DirStore) Get(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(d.basePath, path))
	if err != nil {
		return nil, fmt.Errorf("reading image file: %w", err)
	}
	return data, nil
}

// Delete removes a capture.
func (d *DirStore) Delete(path string) error {
	if err := os.Remove(filepath.Join(d.basePath, path)); err != nil {
		return fmt.Errorf("deleting image file: %w", err)
	}
	return nil
}
