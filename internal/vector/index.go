// Package vector provides the nearest-neighbour indexes that hold skill embeddings.
package vector

import "context"

// Metadata keys attached to indexed vectors.
const (
	MetaSkillID   = "skill_id"
	MetaSkillName = "skill_name"
	MetaUserID    = "user_id"
	MetaUserName  = "user_name"
)

// VectorIndex stores vectors under opaque string ids and answers cosine nearest-neighbour queries.
// Query clamps topK to the number of stored items and returns an empty slice for an empty index.
type VectorIndex interface {
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error
	Query(ctx context.Context, vector []float32, topK int) ([]*Hit, error)
	Remove(ctx context.Context, ids []string) error
	Count(ctx context.Context) (int, error)
	SampleIDs(ctx context.Context, n int) ([]string, error)
	Save(path string) error
	Load(path string) error
	Type() string
	Close() error
}

// Hit is a single nearest-neighbour result, most similar first.
type Hit struct {
	ID       string
	Score    float64 // cosine similarity
	Metadata map[string]string
}
