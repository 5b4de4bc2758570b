// Package local provides a blobstore.Store backed by a directory on disk.
package local

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/blobstore"
)

// Store implements blobstore.Store over a local directory. Subdirectories
// are not traversed.
type Store struct {
	root   string
	logger *zap.Logger
}

// NewStore creates a local store rooted at dir. The directory must exist.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", blobstore.ErrConnection, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", blobstore.ErrConnection, dir)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", blobstore.ErrConnection, err)
	}

	return &Store{
		root:   abs,
		logger: logger,
	}, nil
}

// List returns every regular file directly under the root directory.
func (s *Store) List(ctx context.Context) ([]blobstore.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", blobstore.ErrConnection, s.root, err)
	}

	objects := make([]blobstore.Object, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		objects = append(objects, blobstore.Object{
			Name:    entry.Name(),
			URL:     s.objectURL(entry.Name()),
			Size:    info.Size(),
			Updated: info.ModTime(),
		})
	}

	s.logger.Debug("listed local objects",
		zap.String("root", s.root),
		zap.Int("count", len(objects)),
	)

	return objects, nil
}

// Fetch resolves the named object to its on-disk path. No copy is made, so
// the cleanup func is a no-op.
func (s *Store) Fetch(ctx context.Context, name string) (string, func(), error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	// Reject anything that would escape the root.
	if filepath.Base(name) != name {
		return "", nil, fmt.Errorf("%w: %s", blobstore.ErrNotFound, name)
	}

	path := filepath.Join(s.root, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", nil, fmt.Errorf("%w: %s", blobstore.ErrNotFound, name)
	}

	return path, func() {}, nil
}

// Close releases resources held by the store.
func (s *Store) Close() error {
	return nil
}

func (s *Store) objectURL(name string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(filepath.Join(s.root, name)),
	}
	return u.String()
}

// Ensure Store implements blobstore.Store
var _ blobstore.Store = (*Store)(nil)
