// Package openai implements pkg/embeddings' Embedder client for
// OpenAI-compatible embedding APIs, including hosted deployments that speak
// the same wire format.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/stacks/pkg/embeddings"
)

const (
	// DefaultEmbeddingModel is the default model used for embeddings.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// DefaultBaseURL is the default OpenAI API URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// maxBatch is the most inputs sent in one request.
	maxBatch = 100
)

// Embedder wraps an OpenAI-compatible embedding API.
type Embedder struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// EmbedderConfig holds configuration for the OpenAI embedder.
type EmbedderConfig struct {
	// BaseURL is the API URL (e.g., "https://api.openai.com/v1").
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the bearer token for the service. Required.
	APIKey string

	// Model is the embedding model or deployment name.
	// Defaults to DefaultEmbeddingModel if empty.
	Model string
}

// embedRequest is the request body for the embeddings endpoint.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse is the response from the embeddings endpoint.
type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewEmbedder creates a new embedder for an OpenAI-compatible embedding API.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	return &Embedder{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch converts texts into vector embeddings, preserving input order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, embeddings.Fatal(embeddings.ErrEmptyInput)
	}

	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, embeddings.Fatal(embeddings.ErrEmptyInput)
		}
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))

		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	jsonBody, err := json.Marshal(embedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, embeddings.Fatal(fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, embeddings.Fatal(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, embeddings.Transient(fmt.Errorf("sending request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, embeddings.Transient(fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, body)
	}

	var embResp embedResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, embeddings.Fatal(fmt.Errorf("decoding response: %w", err))
	}

	if embResp.Error != nil {
		return nil, embeddings.Fatal(fmt.Errorf("api error: %s", embResp.Error.Message))
	}

	if len(embResp.Data) != len(texts) {
		return nil, embeddings.Fatal(fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embResp.Data)))
	}

	// Responses carry an index per item; order by it rather than trusting
	// wire order.
	vectors := make([][]float32, len(texts))
	for _, item := range embResp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, embeddings.Fatal(fmt.Errorf("embedding index %d out of range", item.Index))
		}
		vectors[item.Index] = item.Embedding
	}

	return vectors, nil
}

// classifyStatus maps an HTTP failure onto the embedding error taxonomy.
// Rate limits, timeouts, and server-side failures are retriable; auth and
// validation failures are not.
func classifyStatus(status int, body []byte) error {
	message := string(body)

	switch {
	case status == http.StatusRequestEntityTooLarge:
		return embeddings.Fatal(embeddings.ErrInputTooLarge)

	case status == http.StatusBadRequest && strings.Contains(message, "maximum context length"):
		return embeddings.Fatal(embeddings.ErrInputTooLarge)

	case status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500:
		return embeddings.Transient(fmt.Errorf("api returned status %d: %s", status, message))

	default:
		return embeddings.Fatal(fmt.Errorf("api returned status %d: %s", status, message))
	}
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

// Ensure Embedder implements embeddings.Embedder
var _ embeddings.Embedder = (*Embedder)(nil)
