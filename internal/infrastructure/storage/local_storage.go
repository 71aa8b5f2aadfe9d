package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/scancheckout/backend/internal/domain/scan"
)

var _ scan.ImageStorage = (*LocalImageStorage)(nil)

// LocalImageStorage writes images as files under one directory.
type LocalImageStorage struct {
	dir string
}

// NewLocalImageStorage creates the directory if needed.
func NewLocalImageStorage(dir string) (*LocalImageStorage, error) {
	if dir == "" {
		return nil, errors.New("image directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve image directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &LocalImageStorage{dir: abs}, nil
}

// Dir returns the absolute storage directory.
func (s *LocalImageStorage) Dir() string {
	return s.dir
}

// Put implements scan.ImageStorage. The returned URI is the absolute file path.
func (s *LocalImageStorage) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return p, nil
}

// Get implements scan.ImageStorage
func (s *LocalImageStorage) Get(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

func (s *LocalImageStorage) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}
