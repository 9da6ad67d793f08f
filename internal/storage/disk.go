package storage

import (
	"context"
	"os"
	"path/filepath"
)

// DiskStorage writes files into a single local directory.
type DiskStorage struct {
	// BasePath is created on construction and must be writable by the current process.
	BasePath string
}

func NewDisk(basePath string) (*DiskStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, err
	}
	return &DiskStorage{BasePath: basePath}, nil
}

func (s *DiskStorage) Root() string { return s.BasePath }

// Save writes data to BasePath/name, replacing any existing file.
func (s *DiskStorage) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fileName := filepath.Join(s.BasePath, name)
	if err := os.WriteFile(fileName, data, 0644); err != nil {
		return "", err
	}
	return fileName, nil
}
