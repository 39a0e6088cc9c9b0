package io

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/OFFIS-RIT/ownernet/pkg/loader"
)

// IONetworkLoader reads network dumps from a directory on the local
// filesystem. Locations are relative to the root and may not leave it.
type IONetworkLoader struct {
	root string
}

// NewIONetworkLoader creates a new filesystem-based loader rooted at root.
func NewIONetworkLoader(root string) *IONetworkLoader {
	return &IONetworkLoader{root: root}
}

// Open opens the file at file.Location below the root.
func (l *IONetworkLoader) Open(ctx context.Context, file loader.NetworkFile) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !filepath.IsLocal(file.Location) {
		return nil, fmt.Errorf("invalid network file location %q", file.Location)
	}

	f, err := os.Open(filepath.Join(l.root, file.Location))
	if err != nil {
		return nil, fmt.Errorf("failed to open network file: %w", err)
	}
	return f, nil
}
