package vector

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"
)

// Redis command names used for error context.
const (
	opCreateIndex = "FT.CREATE"
	opIndexInfo   = "FT.INFO"
	opSearch      = "FT.SEARCH"
	opHSet        = "HSET"
	opDel         = "DEL"
)

const vectorField = "vector"

// RedisConfig holds connection and index parameters for the Redis/Valkey backend.
type RedisConfig struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	IndexName string
	KeyPrefix string
}

// RedisIndex implements VectorIndex on RediSearch-compatible servers using a FLAT cosine index.
// Each entry is a hash at KeyPrefix+id holding the float32 blob and the metadata fields.
type RedisIndex struct {
	client     rueidis.Client
	cfg        RedisConfig
	dimensions int
}

// NewRedisIndex connects to Redis and creates the search index if it does not exist.
func NewRedisIndex(ctx context.Context, cfg RedisConfig, dimensions int) (*RedisIndex, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH replies are parsed as RESP2 arrays
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	idx := newRedisIndex(client, cfg, dimensions)
	if err := idx.EnsureIndex(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return idx, nil
}

func newRedisIndex(client rueidis.Client, cfg RedisConfig, dimensions int) *RedisIndex {
	if cfg.IndexName == "" {
		cfg.IndexName = "chotto-skills"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "chotto:skill:"
	}
	return &RedisIndex{client: client, cfg: cfg, dimensions: dimensions}
}

// Type returns the index type identifier.
func (r *RedisIndex) Type() string {
	return string(IndexTypeRedis)
}

// EnsureIndex creates the FT index unless FT.INFO already knows it.
func (r *RedisIndex) EnsureIndex(ctx context.Context) error {
	info := r.client.B().Arbitrary("FT.INFO").Args(r.cfg.IndexName).Build()
	err := r.client.Do(ctx, info).Error()
	if err == nil {
		return nil
	}
	if !isRedisErr(err, "unknown index name") && !isRedisErr(err, "no such index") {
		return &Error{Op: opIndexInfo, Err: err}
	}

	create := r.client.B().Arbitrary("FT.CREATE").Args(r.createArgs()...).Build()
	if err := r.client.Do(ctx, create).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return &Error{Op: opCreateIndex, Err: err}
	}
	return nil
}

func (r *RedisIndex) createArgs() []string {
	return []string{
		r.cfg.IndexName,
		"ON", "HASH",
		"PREFIX", "1", r.cfg.KeyPrefix,
		"SCHEMA",
		vectorField, "VECTOR", "FLAT", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(r.dimensions),
		"DISTANCE_METRIC", "COSINE",
		MetaSkillID, "NUMERIC",
		MetaUserID, "NUMERIC",
		MetaSkillName, "TEXT",
	}
}

func (r *RedisIndex) key(id string) string {
	return r.cfg.KeyPrefix + id
}

// Upsert writes the hash for id. Metadata fields overwrite earlier values.
func (r *RedisIndex) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}
	if len(vector) != r.dimensions {
		return dimensionError(len(vector), r.dimensions)
	}
	cmd := r.client.B().Hset().Key(r.key(id)).FieldValue().FieldValue(vectorField, vectorToBytes(vector))
	for k, v := range metadata {
		cmd = cmd.FieldValue(k, v)
	}
	if err := r.client.Do(ctx, cmd.Build()).Error(); err != nil {
		return &Error{Op: opHSet, Err: err}
	}
	return nil
}

// Query runs a KNN search sorted by distance. Scores are cosine similarity (1 - distance).
func (r *RedisIndex) Query(ctx context.Context, query []float32, topK int) ([]*Hit, error) {
	if len(query) != r.dimensions {
		return nil, dimensionError(len(query), r.dimensions)
	}
	if topK <= 0 {
		return []*Hit{}, nil
	}
	count, err := r.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return []*Hit{}, nil
	}
	if topK > count {
		topK = count
	}

	k := strconv.Itoa(topK)
	args := []string{
		r.cfg.IndexName,
		"*=>[KNN " + k + " @" + vectorField + " $BLOB]",
		"PARAMS", "2", "BLOB", vectorToBytes(query),
		"SORTBY", "__vector_score",
		"RETURN", "5", "__vector_score", MetaSkillID, MetaSkillName, MetaUserID, MetaUserName,
		"LIMIT", "0", k,
		"DIALECT", "2",
	}
	cmd := r.client.B().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := r.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &Error{Op: opSearch, Err: err}
	}
	return r.parseKNNResult(raw)
}

// parseKNNResult decodes [total, key1, fields1, key2, fields2, ...].
func (r *RedisIndex) parseKNNResult(raw []rueidis.RedisMessage) ([]*Hit, error) {
	hits := []*Hit{}
	if len(raw) == 0 {
		return hits, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return hits, nil
	}
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		meta := parseFieldPairs(fields)
		hit := &Hit{ID: strings.TrimPrefix(key, r.cfg.KeyPrefix)}
		if scoreStr, ok := meta["__vector_score"]; ok {
			if d, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				hit.Score = 1.0 - d
			}
			delete(meta, "__vector_score")
		}
		if len(meta) > 0 {
			hit.Metadata = meta
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// Remove deletes the hashes of ids in one round trip.
func (r *RedisIndex) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	cmds := make([]rueidis.Completed, len(ids))
	for i, id := range ids {
		cmds[i] = r.client.B().Del().Key(r.key(id)).Build()
	}
	for i, res := range r.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &Error{Op: opDel, Err: fmt.Errorf("key %s: %w", r.key(ids[i]), err)}
		}
	}
	return nil
}

// Count returns the number of indexed documents via FT.SEARCH with LIMIT 0 0.
func (r *RedisIndex) Count(ctx context.Context) (int, error) {
	cmd := r.client.B().Arbitrary("FT.SEARCH").Args(r.cfg.IndexName, "*", "LIMIT", "0", "0").Build()
	raw, err := r.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return 0, &Error{Op: opSearch, Err: err}
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

// SampleIDs returns up to n ids in server order.
func (r *RedisIndex) SampleIDs(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}
	cmd := r.client.B().Arbitrary("FT.SEARCH").
		Args(r.cfg.IndexName, "*", "NOCONTENT", "LIMIT", "0", strconv.Itoa(n)).Build()
	raw, err := r.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &Error{Op: opSearch, Err: err}
	}
	ids := []string{}
	for i := 1; i < len(raw); i++ {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		ids = append(ids, strings.TrimPrefix(key, r.cfg.KeyPrefix))
	}
	return ids, nil
}

// Save is a no-op: Redis persists server side.
func (r *RedisIndex) Save(path string) error { return nil }

// Load is a no-op: Redis persists server side.
func (r *RedisIndex) Load(path string) error { return nil }

// Close shuts down the client.
func (r *RedisIndex) Close() error {
	r.client.Close()
	return nil
}

func vectorToBytes(v []float32) string {
	return string(float32SliceToBytes(v))
}

// isRedisErr checks if err is a Redis server error containing substr, ignoring case.
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
