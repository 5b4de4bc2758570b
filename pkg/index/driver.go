// Package index provides interfaces and implementations for persisting and
// querying embedded document chunks.
package index

import (
	"context"
	"time"
)

// Record is the persisted unit: one embedded chunk plus its source metadata.
// Records are immutable once written; re-ingesting the same document creates
// new records under fresh identifiers rather than upserting.
type Record struct {
	// ID is a generated, globally unique identifier.
	ID string `json:"id"`

	// PartitionKey is the grouping key for the backing store.
	PartitionKey string `json:"partitionKey"`

	// Contents is the chunk text.
	Contents string `json:"contents"`

	// FileName is the source document's display name.
	FileName string `json:"fileName"`

	// URL is the source document's location.
	URL string `json:"url"`

	// Embedding is the vector representation of Contents. Its length is
	// constant across a collection.
	Embedding []float32 `json:"vectors"`

	// CreatedAt is when the record was built.
	CreatedAt time.Time `json:"createdAt"`
}

// ScoredRecord is a query hit with its similarity score.
type ScoredRecord struct {
	Record

	// Score is the similarity to the query vector. Drivers normalize their
	// backend's metric so that higher is always more similar.
	Score float32 `json:"similarityScore"`
}

// Driver handles storage and retrieval of embedded chunk records.
type Driver interface {
	// Add stores records with their embeddings.
	Add(ctx context.Context, records []Record) error

	// Query finds up to topK records most similar to the given embedding,
	// restricted to scores strictly greater than minScore, ordered by
	// descending score. No qualifying records is an empty result, not an
	// error.
	Query(ctx context.Context, embedding []float32, topK int, minScore float32) ([]ScoredRecord, error)

	// DeleteBySource removes all records ingested from the named source
	// document, returning how many were removed.
	DeleteBySource(ctx context.Context, fileName string) (int, error)

	// DeleteAll removes every record in the collection, returning how many
	// were removed.
	DeleteAll(ctx context.Context) (int, error)

	// Close releases any resources held by the driver.
	Close() error
}
