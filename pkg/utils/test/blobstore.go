package testutils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/papercomputeco/stacks/pkg/blobstore"
)

// MockStore is a test blob store holding named document contents in memory.
// Fetch materializes the contents into Dir so extractors can read them.
type MockStore struct {
	Contents map[string]string

	// Dir is where fetched objects are written. Tests usually set this to
	// a temp dir.
	Dir string

	// ListErr, when set, fails every List call
	ListErr error

	// TempNames, when set, fetches into generated temp-style file names
	// that keep only the document's extension, the way a bucket-backed
	// store downloads objects.
	TempNames bool
}

func NewMockStore(dir string) *MockStore {
	return &MockStore{
		Contents: make(map[string]string),
		Dir:      dir,
	}
}

func (m *MockStore) List(_ context.Context) ([]blobstore.Object, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	objects := make([]blobstore.Object, 0, len(m.Contents))
	for name, contents := range m.Contents {
		objects = append(objects, blobstore.Object{
			Name:    name,
			URL:     "mock://" + name,
			Size:    int64(len(contents)),
			Updated: time.Now(),
		})
	}
	return objects, nil
}

func (m *MockStore) Fetch(_ context.Context, name string) (string, func(), error) {
	contents, ok := m.Contents[name]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", blobstore.ErrNotFound, name)
	}

	path := filepath.Join(m.Dir, name)
	if m.TempNames {
		tmp, err := os.CreateTemp(m.Dir, "blob-*"+filepath.Ext(name))
		if err != nil {
			return "", nil, err
		}
		path = tmp.Name()
		if err := tmp.Close(); err != nil {
			return "", nil, err
		}
	}

	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return "", nil, err
	}

	return path, func() { os.Remove(path) }, nil
}

func (m *MockStore) Close() error {
	return nil
}
