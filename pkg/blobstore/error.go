package blobstore

import "errors"

var (
	// ErrNotFound indicates the named object does not exist in the store.
	ErrNotFound = errors.New("object not found")

	// ErrConnection indicates the storage backend could not be reached.
	ErrConnection = errors.New("storage connection failed")
)
