package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store writes uploaded bytes under a media root. Name collisions are
// avoided by a random prefix, not by locking.
type Store struct {
	root string
}

// NewStore ensures the media root exists and returns a store over it.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("media: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("media: create root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the media root directory.
func (s *Store) Root() string {
	return s.root
}

// Save streams the reader to "<root>/<uuid>_<filename>" and returns the
// stored path together with the byte count.
func (s *Store) Save(filename string, reader io.Reader) (string, int64, error) {
	storedName := uuid.NewString() + "_" + filepath.Base(filename)
	storedPath := filepath.Join(s.root, storedName)

	out, err := os.Create(storedPath)
	if err != nil {
		return "", 0, fmt.Errorf("media: create %s: %w", storedName, err)
	}
	defer out.Close()

	written, err := io.Copy(out, reader)
	if err != nil {
		return "", 0, fmt.Errorf("media: write %s: %w", storedName, err)
	}
	return storedPath, written, nil
}
