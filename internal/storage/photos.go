package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrPhotoNotFound = errors.New("photo not found")

// Store resolves photo references against a single root directory.
// References are relative paths like "all/booth_0042.jpg".
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve photo directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create photo directory: %w", err)
	}
	return &Store{root: abs}, nil
}

func (s *Store) Root() string {
	return s.root
}

// resolve maps a reference onto the root and rejects anything that
// would escape it.
func (s *Store) resolve(ref string) (string, error) {
	if ref == "" {
		return "", ErrPhotoNotFound
	}
	clean := filepath.Clean("/" + ref)
	path := filepath.Join(s.root, clean)
	if !strings.HasPrefix(path, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPhotoNotFound, ref)
	}
	return path, nil
}

func (s *Store) Stat(ref string) error {
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", ErrPhotoNotFound, ref)
		}
		return fmt.Errorf("failed to stat photo %q: %w", ref, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %q is a directory", ErrPhotoNotFound, ref)
	}
	return nil
}

func (s *Store) ReadPhoto(ref string) ([]byte, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrPhotoNotFound, ref)
		}
		return nil, fmt.Errorf("failed to read photo %q: %w", ref, err)
	}
	return data, nil
}
