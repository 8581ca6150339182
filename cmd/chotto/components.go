package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/chotto/internal/config"
	"github.com/hyperjump/chotto/internal/embedding"
	"github.com/hyperjump/chotto/internal/indexer"
	"github.com/hyperjump/chotto/internal/keyword"
	"github.com/hyperjump/chotto/internal/search"
	"github.com/hyperjump/chotto/internal/storage"
	"github.com/hyperjump/chotto/internal/vector"
)

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	Embedder     embedding.Embedder
	VectorIndex  vector.VectorIndex
	KeywordIndex keyword.KeywordIndex
	Engine       *search.Engine
	Indexer      *indexer.Indexer
}

// Close releases every component that was opened.
func (c *Components) Close() {
	if c.Indexer != nil {
		c.Indexer.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func redisConfig(cfg *config.RedisConfig) *vector.RedisConfig {
	return &vector.RedisConfig{
		Addrs:     cfg.Addrs,
		Username:  cfg.Username,
		Password:  cfg.Password,
		DB:        cfg.DB,
		IndexName: cfg.IndexName,
		KeyPrefix: cfg.KeyPrefix,
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *Components, err error) {
	c := &Components{}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store

	embedder, err := embedding.NewFromConfig(&cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Embedder = embedder

	dims := embedder.Dimensions()
	vectorIndex, err := vector.NewVectorIndex(ctx, cfg.Vector.Backend, dims, redisConfig(&cfg.Vector.Redis))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	c.VectorIndex = vectorIndex
	if c.VectorIndex.Type() == string(vector.IndexTypeMemory) && cfg.Storage.VectorIndexPath != "" {
		if loadErr := c.VectorIndex.Load(cfg.Storage.VectorIndexPath); loadErr != nil {
			logger.Warn("vector index load skipped (run chotto index)",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
		}
	}
	logger.Info("vector index initialized",
		zap.String("type", c.VectorIndex.Type()), zap.Int("dimensions", dims))

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.KeywordIndex = keywordIndex

	c.Engine, err = search.NewEngine(c.Storage, c.Embedder, c.VectorIndex,
		search.WithLogger(logger),
		search.WithKeywordIndex(c.KeywordIndex),
		search.WithLimits(cfg.Search.DefaultLimit, cfg.Search.MaxLimit),
		search.WithMaxResults(cfg.Search.MaxResults),
		search.WithTimeout(time.Duration(cfg.Search.TimeoutMs)*time.Millisecond),
		search.WithPlaceholderUserName(cfg.Search.PlaceholderUserName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize search engine: %w", err)
	}

	idxOpts := []indexer.Option{
		indexer.WithLogger(logger),
		indexer.WithKeywordIndex(c.KeywordIndex),
		indexer.WithWorkers(cfg.Ingest.Workers),
		indexer.WithIndexPath(cfg.Storage.VectorIndexPath),
	}
	if cfg.Ingest.PerHolder {
		idxOpts = append(idxOpts, indexer.WithPerHolder(cfg.Ingest.IDScheme))
	}
	idx, err := indexer.NewIndexer(c.Storage, c.Embedder, c.VectorIndex, idxOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize indexer: %w", err)
	}
	c.Indexer = idx
	return c, nil
}
