// Package embeddings provides text embedding capabilities and the error
// taxonomy shared by all embedding providers.
package embeddings

import "context"

// Embedder converts text into fixed-length embedding vectors.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts several texts in one round trip where the backing
	// service supports it, preserving input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
