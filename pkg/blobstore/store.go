// Package blobstore defines the interface for listing and fetching source
// documents from a storage backend.
package blobstore

import (
	"context"
	"time"
)

// Object describes a single stored document.
type Object struct {
	// Name is the object's name within the store, including any extension.
	Name string

	// URL is a stable address for the object, recorded alongside indexed
	// chunks so search results can link back to the source.
	URL string

	// Size is the object size in bytes.
	Size int64

	// Updated is the object's last modification time.
	Updated time.Time
}

// Store is the interface all blob storage backends implement.
type Store interface {
	// List returns every object in the store.
	List(ctx context.Context) ([]Object, error)

	// Fetch downloads the named object to a local file and returns its
	// path together with a cleanup func the caller must invoke when done.
	Fetch(ctx context.Context, name string) (path string, cleanup func(), err error)

	// Close releases resources held by the store.
	Close() error
}
