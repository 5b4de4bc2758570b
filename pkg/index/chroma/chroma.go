// Package chroma provides a Chroma-backed index driver implementation using
// Chroma's REST API.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/index"
)

const (
	// DefaultCollectionName is the default collection name for storing
	// document chunk records.
	DefaultCollectionName = "stacks"

	apiRoot = "/api/v2/tenants/default_tenant/databases/default_database/collections"
)

// Driver implements index.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	logger         *zap.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string
}

// NewDriver creates a new Chroma index driver.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("%w: chroma URL is required", index.ErrConnection)
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	d := &Driver{
		baseURL:        c.URL,
		collectionName: collectionName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	// Get or create the collection
	collectionID, err := d.getOrCreateCollection(context.Background())
	if err != nil {
		return nil, fmt.Errorf("%w: getting or creating collection %q: %v", index.ErrConnection, collectionName, err)
	}
	d.collectionID = collectionID

	logger.Info("connected to Chroma",
		zap.String("url", c.URL),
		zap.String("collection", collectionName),
		zap.String("collection_id", collectionID),
	)

	return d, nil
}

// getOrCreateCollection gets an existing collection or creates a new one.
func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	// Try to get existing collection first
	url := fmt.Sprintf("%s%s/%s", d.baseURL, apiRoot, d.collectionName)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("creating get request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending get request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var collection chromaCollection
		if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
			return "", fmt.Errorf("decoding collection response: %w", err)
		}
		return collection.ID, nil
	}

	// Collection doesn't exist, create it
	createURL := d.baseURL + apiRoot
	jsonBody, err := json.Marshal(map[string]string{"name": d.collectionName})
	if err != nil {
		return "", fmt.Errorf("marshaling create request: %w", err)
	}

	req, err = http.NewRequestWithContext(ctx, "POST", createURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err = d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending create request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to create collection: status %d: %s", resp.StatusCode, string(body))
	}

	var collection chromaCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return "", fmt.Errorf("decoding create response: %w", err)
	}

	return collection.ID, nil
}

// Add stores records with their embeddings. Chunk text travels as the Chroma
// document; source metadata rides in the metadata map.
func (d *Driver) Add(ctx context.Context, records []index.Record) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	embeddings := make([][]float32, len(records))
	metadatas := make([]map[string]any, len(records))
	documents := make([]string, len(records))

	for i, record := range records {
		ids[i] = record.ID
		embeddings[i] = record.Embedding
		documents[i] = record.Contents
		metadatas[i] = map[string]any{
			"partition_key": record.PartitionKey,
			"file_name":     record.FileName,
			"url":           record.URL,
			"created_at":    record.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
	}

	reqBody := chromaAddRequest{
		IDs:        ids,
		Embeddings: embeddings,
		Metadatas:  metadatas,
		Documents:  documents,
	}

	if err := d.post(ctx, "add", reqBody, nil); err != nil {
		return fmt.Errorf("%w: %v", index.ErrWrite, err)
	}

	d.logger.Debug("added records to chroma",
		zap.Int("count", len(records)),
	)

	return nil
}

// Query finds the topK records most similar to the given embedding with
// score strictly above minScore.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int, minScore float32) ([]index.ScoredRecord, error) {
	if topK <= 0 {
		topK = 10
	}

	reqBody := chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"metadatas", "distances", "documents"},
	}

	var queryResp chromaQueryResponse
	if err := d.post(ctx, "query", reqBody, &queryResp); err != nil {
		return nil, fmt.Errorf("%w: %v", index.ErrQuery, err)
	}

	results := []index.ScoredRecord{}

	// Process first group (we only query with one embedding)
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return results, nil
	}

	ids := queryResp.IDs[0]
	distances := queryResp.Distances[0]

	var metadatas []map[string]any
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}

	var documents []string
	if len(queryResp.Documents) > 0 {
		documents = queryResp.Documents[0]
	}

	for i, id := range ids {
		result := index.ScoredRecord{Record: index.Record{ID: id}}

		if i < len(documents) {
			result.Contents = documents[i]
		}

		if i < len(metadatas) && metadatas[i] != nil {
			meta := metadatas[i]
			if v, ok := meta["partition_key"].(string); ok {
				result.PartitionKey = v
			}
			if v, ok := meta["file_name"].(string); ok {
				result.FileName = v
			}
			if v, ok := meta["url"].(string); ok {
				result.URL = v
			}
			if v, ok := meta["created_at"].(string); ok {
				if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
					result.CreatedAt = ts
				}
			}
		}

		// Chroma reports distances; lower distance is more similar.
		// Normalize to a higher-is-better score.
		if i < len(distances) {
			result.Score = 1.0 / (1.0 + distances[i])
		}

		if result.Score > minScore {
			results = append(results, result)
		}
	}

	d.logger.Debug("queried chroma",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// DeleteBySource removes all records whose file_name metadata matches.
func (d *Driver) DeleteBySource(ctx context.Context, fileName string) (int, error) {
	where := map[string]any{"file_name": fileName}

	count, err := d.countWhere(ctx, where)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", index.ErrWrite, err)
	}

	if count == 0 {
		return 0, nil
	}

	if err := d.post(ctx, "delete", chromaDeleteRequest{Where: where}, nil); err != nil {
		return 0, fmt.Errorf("%w: %v", index.ErrWrite, err)
	}

	d.logger.Debug("deleted records from chroma",
		zap.String("file_name", fileName),
		zap.Int("count", count),
	)

	return count, nil
}

// DeleteAll removes every record in the collection.
func (d *Driver) DeleteAll(ctx context.Context) (int, error) {
	getResp := chromaGetResponse{}
	if err := d.post(ctx, "get", chromaGetRequest{Include: []string{}}, &getResp); err != nil {
		return 0, fmt.Errorf("%w: %v", index.ErrWrite, err)
	}

	if len(getResp.IDs) == 0 {
		return 0, nil
	}

	if err := d.post(ctx, "delete", chromaDeleteRequest{IDs: getResp.IDs}, nil); err != nil {
		return 0, fmt.Errorf("%w: %v", index.ErrWrite, err)
	}

	return len(getResp.IDs), nil
}

// countWhere counts records matching the where filter.
func (d *Driver) countWhere(ctx context.Context, where map[string]any) (int, error) {
	getResp := chromaGetResponse{}
	if err := d.post(ctx, "get", chromaGetRequest{Where: where, Include: []string{}}, &getResp); err != nil {
		return 0, err
	}
	return len(getResp.IDs), nil
}

// post sends a JSON request to a collection sub-endpoint and optionally
// decodes the response into out.
func (d *Driver) post(ctx context.Context, endpoint string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", endpoint, err)
	}

	url := fmt.Sprintf("%s%s/%s/%s", d.baseURL, apiRoot, d.collectionID, endpoint)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending %s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s failed: status %d: %s", endpoint, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s response: %w", endpoint, err)
		}
	}

	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

// Ensure Driver implements index.Driver
var _ index.Driver = (*Driver)(nil)
