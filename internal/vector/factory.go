package vector

import (
	"context"
	"fmt"
)

// IndexType represents the vector index backend.
type IndexType string

const (
	// IndexTypeMemory uses in-process brute-force search persisted to a local file.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeRedis uses a RediSearch-compatible Redis or Valkey server.
	IndexTypeRedis IndexType = "redis"
)

// NewVectorIndex creates a vector index of the specified type.
// Supported types: "memory" (default) and "redis". redisCfg is only read for "redis".
func NewVectorIndex(ctx context.Context, indexType string, dimensions int, redisCfg *RedisConfig) (VectorIndex, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(dimensions)
	case IndexTypeRedis:
		if redisCfg == nil {
			return nil, fmt.Errorf("redis index requires redis configuration")
		}
		return NewRedisIndex(ctx, *redisCfg, dimensions)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, redis)", indexType)
	}
}
