package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hyperjump/chotto/internal/metrics"
)

const providerOpenAI = "openai"

// OpenAIConfig holds the OpenAI-compatible embedding settings.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // empty uses the OpenAI default
	Model      string
	Dimensions int
	Logger     *zap.Logger
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	hasKey     bool
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	logger     *zap.Logger
}

// NewOpenAIEmbedder creates an OpenAI embedder. Without an API key it still builds,
// but every Embed call fails with ErrMissingAPIKey.
func NewOpenAIEmbedder(cfg *OpenAIConfig) (*OpenAIEmbedder, error) {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.AdaEmbeddingV2)
	}
	if cfg.APIKey == "" {
		logger.Warn("no OpenAI API key configured, fuzzy search will return no results")
	}
	return &OpenAIEmbedder{
		hasKey:     cfg.APIKey != "",
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(model),
		dimensions: cfg.Dimensions,
		logger:     logger,
	}, nil
}

// Embed returns the embedding of text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if isBlank(text) {
		return nil, ErrEmptyText
	}
	if !e.hasKey {
		return nil, ErrMissingAPIKey
	}
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	// ada-002 rejects the dimensions parameter; only the text-embedding-3 family accepts it.
	if e.dimensions > 0 && e.model != openai.AdaEmbeddingV2 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerOpenAI, string(e.model), "error").Inc()
		return nil, parseAPIError(err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerOpenAI, string(e.model), "empty").Inc()
		return nil, ErrNoEmbedding
	}
	metrics.EmbeddingRequestsTotal.WithLabelValues(providerOpenAI, string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerOpenAI, string(e.model)).Observe(time.Since(start).Seconds())

	e.logger.Debug("embedding created",
		zap.String("model", string(e.model)),
		zap.Int("dimensions", len(resp.Data[0].Embedding)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return resp.Data[0].Embedding, nil
}

// EmbedBatch embeds texts in a single request. Results keep the input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	for _, t := range texts {
		if isBlank(t) {
			return nil, ErrEmptyText
		}
	}
	if !e.hasKey {
		return nil, ErrMissingAPIKey
	}
	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 && e.model != openai.AdaEmbeddingV2 {
		req.Dimensions = e.dimensions
	}
	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerOpenAI, string(e.model), "error").Inc()
		return nil, parseAPIError(err)
	}
	if len(resp.Data) != len(texts) {
		metrics.EmbeddingRequestsTotal.WithLabelValues(providerOpenAI, string(e.model), "empty").Inc()
		return nil, fmt.Errorf("got %d embeddings for %d inputs: %w", len(resp.Data), len(texts), ErrNoEmbedding)
	}
	metrics.EmbeddingRequestsTotal.WithLabelValues(providerOpenAI, string(e.model), "success").Inc()
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range: %w", d.Index, ErrProvider)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client has no resources to release.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

// parseAPIError wraps provider failures with ErrProvider, keeping the status and message.
func parseAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, ErrProvider)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), ErrProvider)
	}
	return fmt.Errorf("embedding request failed: %v: %w", err, ErrProvider)
}
