// Package gcs provides a blobstore.Store backed by a Google Cloud Storage
// bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/papercomputeco/stacks/pkg/blobstore"
)

// Store implements blobstore.Store over a GCS bucket.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// Config holds configuration for the GCS store.
type Config struct {
	// Bucket is the bucket name to read documents from.
	Bucket string

	// Prefix restricts listing to objects under the given prefix.
	// Empty lists the whole bucket.
	Prefix string
}

// NewStore creates a GCS-backed store using application default credentials.
func NewStore(ctx context.Context, c Config, logger *zap.Logger) (*Store, error) {
	if c.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket name is required", blobstore.ErrConnection)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: creating GCS client: %v", blobstore.ErrConnection, err)
	}

	logger.Info("connected to GCS",
		zap.String("bucket", c.Bucket),
	)

	return &Store{
		client: client,
		bucket: c.Bucket,
		logger: logger,
		prefix: c.Prefix,
	}, nil
}

// List returns every object in the bucket under the configured prefix.
func (s *Store) List(ctx context.Context) ([]blobstore.Object, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{
		Prefix: s.prefix,
	})

	var objects []blobstore.Object
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: listing bucket %s: %v", blobstore.ErrConnection, s.bucket, err)
		}

		objects = append(objects, blobstore.Object{
			Name:    attrs.Name,
			URL:     fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, attrs.Name),
			Size:    attrs.Size,
			Updated: attrs.Updated,
		})
	}

	s.logger.Debug("listed GCS objects",
		zap.String("bucket", s.bucket),
		zap.Int("count", len(objects)),
	)

	return objects, nil
}

// Fetch downloads the named object to a temporary file and returns its path
// with a cleanup func that removes it.
func (s *Store) Fetch(ctx context.Context, name string) (string, func(), error) {
	reader, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return "", nil, fmt.Errorf("%w: %s", blobstore.ErrNotFound, name)
		}
		return "", nil, fmt.Errorf("%w: opening %s: %v", blobstore.ErrConnection, name, err)
	}
	defer reader.Close()

	// Keep the object's extension so format detection on the local path
	// still sees it.
	tmp, err := os.CreateTemp("", "stacks-blob-*"+filepath.Ext(name))
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file for %s: %w", name, err)
	}

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("%w: downloading %s: %v", blobstore.ErrConnection, name, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("closing temp file for %s: %w", name, err)
	}

	path := tmp.Name()
	cleanup := func() { os.Remove(path) }

	return path, cleanup, nil
}

// Close releases the GCS client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ensure Store implements blobstore.Store
var _ blobstore.Store = (*Store)(nil)
