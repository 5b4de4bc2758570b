// Package search provides shared search types and logic for semantic search
// over indexed document chunks. It is used by both the REST API endpoint and
// the MCP server tool.
package search

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/embeddings"
	"github.com/papercomputeco/stacks/pkg/index"
	"github.com/papercomputeco/stacks/pkg/utils"
)

// DefaultTopK is the number of results returned when the caller does not
// ask for a specific count.
const DefaultTopK = 5

// ErrEmptyQuery indicates a search was requested without query text.
var ErrEmptyQuery = errors.New("search query is empty")

// SearchInput represents the input arguments for a search request.
type SearchInput struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`

	// Threshold excludes results whose similarity score is not strictly
	// greater than the given value.
	Threshold float32 `json:"threshold,omitempty"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	ID       string  `json:"id"`
	Score    float32 `json:"similarityScore"`
	FileName string  `json:"fileName"`
	URL      string  `json:"url"`
	Contents string  `json:"contents"`
	Preview  string  `json:"preview"`
}

// SearchOutput represents the output of a search operation.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// Search performs a semantic search over indexed document chunks. It embeds
// the query text and asks the index for the most similar records above the
// threshold, best first.
func Search(
	ctx context.Context,
	input SearchInput,
	embedder embeddings.Embedder,
	driver index.Driver,
	logger *zap.Logger,
) (*SearchOutput, error) {
	if input.Query == "" {
		return nil, ErrEmptyQuery
	}

	topK := input.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	logger.Debug("search request",
		zap.String("query", input.Query),
		zap.Int("topK", topK),
		zap.Float32("threshold", input.Threshold),
	)

	queryEmbedding, err := embedder.Embed(ctx, input.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := driver.Query(ctx, queryEmbedding, topK, input.Threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	searchResults := make([]SearchResult, 0, len(results))
	for _, result := range results {
		searchResults = append(searchResults, BuildSearchResult(result))
	}

	return &SearchOutput{
		Query:   input.Query,
		Results: searchResults,
		Count:   len(searchResults),
	}, nil
}

// BuildSearchResult converts a scored index record into a SearchResult.
func BuildSearchResult(result index.ScoredRecord) SearchResult {
	return SearchResult{
		ID:       result.ID,
		Score:    result.Score,
		FileName: result.FileName,
		URL:      result.URL,
		Contents: result.Contents,
		Preview:  utils.Truncate(result.Contents, 200),
	}
}
