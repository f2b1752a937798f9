package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	// DefaultModel produces 384-dimensional vectors; small enough to
	// run locally next to the store.
	DefaultModel = "all-minilm:l6-v2"

	DefaultBaseURL = "http://localhost:11434"
)

// OllamaClient implements Embedder against an Ollama server's
// /api/embed endpoint.
type OllamaClient struct {
	baseURL string
	model   string
	http    *http.Client
}

// Compile-time check that OllamaClient implements Embedder.
var _ Embedder = (*OllamaClient)(nil)

// NewOllamaClient creates a client for the given server URL and model,
// falling back to defaults when either is empty.
func NewOllamaClient(baseURL, model string) *OllamaClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &OllamaClient{
		baseURL: baseURL,
		model:   model,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Model returns the configured embedding model name.
func (c *OllamaClient) Model() string {
	return c.model
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed generates an embedding vector for the given text.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("encode embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed: server returned %s", resp.Status)
	}

	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(decoded.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return decoded.Embeddings[0], nil
}
