// Package api provides an HTTP API server for ingesting, searching and
// managing indexed documents.
package api

import (
	"github.com/papercomputeco/stacks/pkg/blobstore"
	"github.com/papercomputeco/stacks/pkg/embeddings"
	"github.com/papercomputeco/stacks/pkg/index"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// IndexDriver for storage, search and deletion of chunk records
	IndexDriver index.Driver

	// Embedder for converting query text to vectors
	Embedder embeddings.Embedder

	// Store for listing source documents
	Store blobstore.Store
}

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}
