package embedding

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/chotto/internal/config"
)

// NewFromConfig builds the configured embedder and wraps it in an LRU cache when
// cfg.CacheSize is positive. An ONNX model that cannot be loaded falls back to the
// mock embedder so the server still starts; the fallback is logged at Warn.
func NewFromConfig(cfg *config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var emb Embedder
	switch cfg.Provider {
	case config.ProviderMock, "":
		emb = NewMockEmbedder(cfg.Dimensions)
	case config.ProviderOpenAI:
		e, err := NewOpenAIEmbedder(&OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		emb = e
	case config.ProviderONNX:
		e, err := NewONNXEmbedder(ONNXConfig{
			ModelPath:  cfg.ModelPath,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
		})
		if err != nil {
			logger.Warn("onnx embedder unavailable, using mock embedder",
				zap.String("model_path", cfg.ModelPath), zap.Error(err))
			emb = NewMockEmbedder(cfg.Dimensions)
		} else {
			emb = e
		}
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	logger.Info("embedder initialized",
		zap.String("provider", cfg.Provider),
		zap.Int("dimensions", emb.Dimensions()),
		zap.Int("cache_size", cfg.CacheSize))
	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(emb, cfg.CacheSize), nil
	}
	return emb, nil
}
