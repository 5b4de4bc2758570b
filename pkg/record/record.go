// Package record assembles index records from chunk text and embeddings.
package record

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/stacks/pkg/index"
)

var (
	// ErrEmptyEmbedding indicates a record was built without a vector.
	ErrEmptyEmbedding = errors.New("record embedding is empty")

	// ErrEmptyContents indicates a record was built without chunk text.
	ErrEmptyContents = errors.New("record contents are empty")
)

// DocumentMeta carries the source document fields recorded on every chunk.
type DocumentMeta struct {
	// FileName is the source document name within the store.
	FileName string

	// URL is a stable address for the source document.
	URL string
}

// Build creates an index record for one document chunk. Each record gets a
// fresh UUID so re-ingesting a document never overwrites prior records.
func Build(contents string, embedding []float32, meta DocumentMeta, partitionKey string) (index.Record, error) {
	if strings.TrimSpace(contents) == "" {
		return index.Record{}, ErrEmptyContents
	}
	if len(embedding) == 0 {
		return index.Record{}, ErrEmptyEmbedding
	}

	return index.Record{
		ID:           uuid.NewString(),
		PartitionKey: partitionKey,
		Contents:     contents,
		FileName:     meta.FileName,
		URL:          meta.URL,
		Embedding:    embedding,
		CreatedAt:    time.Now().UTC(),
	}, nil
}
