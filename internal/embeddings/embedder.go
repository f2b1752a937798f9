// Package embeddings defines the embedding collaborator used by the
// vector-index job. The model runtime itself is a black box behind the
// Embedder interface; this package only ships a thin client for an
// Ollama-compatible HTTP endpoint.
package embeddings

import "context"

// Embedder generates an embedding vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
