// Package embedding turns text into fixed-length vectors.
package embedding

import (
	"context"
	"errors"
	"strings"
)

// Embedder produces vector embeddings for text.
// Implementations return ErrEmptyText for blank input instead of an empty vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

var (
	// ErrEmptyText is returned when there is nothing to embed.
	ErrEmptyText = errors.New("embedding: empty text")
	// ErrMissingAPIKey is returned when a remote provider has no credentials.
	ErrMissingAPIKey = errors.New("embedding: missing API key")
	// ErrNoEmbedding is returned when the provider answered without a vector.
	ErrNoEmbedding = errors.New("embedding: provider returned no embedding")
	// ErrProvider wraps upstream provider failures.
	ErrProvider = errors.New("embedding: provider error")
)

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// embedEach calls embed for every text, stopping at the first failure.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}
