package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DirStore writes artifacts under a local directory.
type DirStore struct {
	root string
}

// NewDirStore creates root if needed.
func NewDirStore(root string) (*DirStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("artifacts: resolve %q: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("artifacts: create %q: %w", abs, err)
	}
	return &DirStore{root: abs}, nil
}

// Root returns the absolute directory artifacts are written to.
func (s *DirStore) Root() string {
	return s.root
}

// Put writes content to root/key and returns the file path.
func (s *DirStore) Put(ctx context.Context, key string, content []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return "", wrapPut(key, fmt.Errorf("key escapes the artifacts directory"))
	}

	// os.Root keeps the write inside the directory even through symlinks.
	root, err := os.OpenRoot(s.root)
	if err != nil {
		return "", wrapPut(key, err)
	}
	defer root.Close()

	if dir := filepath.Dir(rel); dir != "." {
		if err := root.MkdirAll(dir, 0o755); err != nil {
			return "", wrapPut(key, err)
		}
	}
	if err := root.WriteFile(rel, content, 0o644); err != nil {
		return "", wrapPut(key, err)
	}
	return filepath.Join(s.root, rel), nil
}
