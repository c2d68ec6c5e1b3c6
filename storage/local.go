package storage

import (
	"context"
	"fmt"
	"io"
	"os"
)

// LocalSource reads the rules file from the local filesystem.
type LocalSource struct{}

// NewLocalSource creates a new local rules source
func NewLocalSource() *LocalSource {
	return &LocalSource{}
}

// Fetch opens a rules file by path
func (s *LocalSource) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	file, err := os.Open(key)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("rules file not found: %s", key)
		}
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}

	return file, nil
}
