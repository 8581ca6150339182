// Package search reconciles vector and keyword hits into directory search results.
package search

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/chotto/internal/embedding"
	"github.com/hyperjump/chotto/internal/keyword"
	"github.com/hyperjump/chotto/internal/metrics"
	"github.com/hyperjump/chotto/internal/models"
	"github.com/hyperjump/chotto/internal/vector"
	"github.com/hyperjump/chotto/pkg/utils"
)

var (
	// ErrDirectoryRequired is returned when NewEngine gets a nil directory.
	ErrDirectoryRequired = errors.New("search: directory is required")
	// ErrEmbedderRequired is returned when NewEngine gets a nil embedder.
	ErrEmbedderRequired = errors.New("search: embedder is required")
	// ErrIndexRequired is returned when NewEngine gets a nil vector index.
	ErrIndexRequired = errors.New("search: vector index is required")
)

// Search modes used as metric labels.
const (
	ModeFuzzy      = "fuzzy"
	ModeKeyword    = "keyword"
	ModeSkill      = "skill"
	ModeDepartment = "department"
)

// Search outcomes used as metric labels.
const (
	outcomeOK         = "ok"
	outcomeEmptyQuery = "empty_query"
	outcomeEmbedError = "embed_error"
	outcomeIndexError = "index_error"
	outcomeNoHits     = "no_hits"
)

const (
	defaultMaxResults = 200
	defaultTimeout    = 10 * time.Second
)

// Engine is the search entry point. It holds no per-request state and is safe
// for concurrent use when its collaborators are.
type Engine struct {
	dir          Directory
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.KeywordIndex
	resolver     *Resolver
	assembler    *Assembler

	defaultLimit int
	maxLimit     int
	maxResults   int
	timeout      time.Duration
	placeholder  string
	logger       *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the fallback logger. A logger stored in the request context wins.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithKeywordIndex enables SearchKeyword.
func WithKeywordIndex(idx keyword.KeywordIndex) Option {
	return func(e *Engine) { e.keywordIndex = idx }
}

// WithLimits sets the default and maximum number of neighbours requested per query.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(e *Engine) {
		e.defaultLimit = defaultLimit
		e.maxLimit = maxLimit
	}
}

// WithMaxResults caps the number of results one search may emit across fan-out.
func WithMaxResults(n int) Option {
	return func(e *Engine) { e.maxResults = n }
}

// WithTimeout bounds the embedding and vector query step.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithPlaceholderUserName sets the name shown for users without one.
func WithPlaceholderUserName(name string) Option {
	return func(e *Engine) { e.placeholder = name }
}

// NewEngine creates a search engine over dir, embedder and vectorIndex.
func NewEngine(dir Directory, embedder embedding.Embedder, vectorIndex vector.VectorIndex, opts ...Option) (*Engine, error) {
	if dir == nil {
		return nil, ErrDirectoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if vectorIndex == nil {
		return nil, ErrIndexRequired
	}
	e := &Engine{
		dir:          dir,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		defaultLimit: models.DefaultLimit,
		maxLimit:     models.MaxLimit,
		maxResults:   defaultMaxResults,
		timeout:      defaultTimeout,
		placeholder:  DefaultPlaceholderUserName,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.resolver = NewResolver(dir, e.logger)
	e.assembler = NewAssembler(dir, e.placeholder, e.logger)
	return e, nil
}

// Search embeds the query text, asks the vector index for the nearest skills and
// turns every hit into directory results, preserving the index order.
//
// It never fails: an empty query, an embedding failure or a vector index failure
// yields an empty response, and a hit that cannot be reconciled is skipped.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) *models.SearchResponse {
	start := time.Now()
	defer func() {
		metrics.SearchDuration.WithLabelValues(ModeFuzzy).Observe(time.Since(start).Seconds())
	}()
	logger := utils.LoggerFromContext(ctx, e.logger)

	q := *query
	q.Normalize(e.defaultLimit, e.maxLimit)
	if q.IsEmpty() {
		metrics.SearchRequestsTotal.WithLabelValues(ModeFuzzy, outcomeEmptyQuery).Inc()
		return models.EmptySearchResponse()
	}

	hits, outcome := e.nearest(ctx, q.Query, q.Limit, logger)
	if outcome != outcomeOK {
		metrics.SearchRequestsTotal.WithLabelValues(ModeFuzzy, outcome).Inc()
		return models.EmptySearchResponse()
	}
	metrics.SearchRequestsTotal.WithLabelValues(ModeFuzzy, outcomeOK).Inc()

	resp := models.NewSearchResponse(e.reconcile(ctx, hits, logger))
	logger.Debug("fuzzy search",
		zap.String("query", q.Query),
		zap.Int("limit", q.Limit),
		zap.Int("hits", len(hits)),
		zap.Int("results", resp.Total),
		zap.Duration("elapsed", time.Since(start)))
	return resp
}

// nearest runs the embedding and vector query under the engine timeout.
func (e *Engine) nearest(ctx context.Context, text string, limit int, logger *zap.Logger) ([]*vector.Hit, string) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	vec, err := e.embedder.Embed(ctx, text)
	if err == nil && len(vec) == 0 {
		err = embedding.ErrNoEmbedding
	}
	if err != nil {
		logger.Warn("query embedding failed", zap.Error(err))
		return nil, outcomeEmbedError
	}

	hits, err := e.vectorIndex.Query(ctx, vec, limit)
	if err != nil {
		logger.Warn("vector query failed", zap.String("index", e.vectorIndex.Type()), zap.Error(err))
		return nil, outcomeIndexError
	}
	if len(hits) == 0 {
		return nil, outcomeNoHits
	}
	return hits, outcomeOK
}

// reconcile resolves and assembles every hit in order. A hit whose lookups fail
// contributes nothing; the rest still do. Output stops at maxResults or when ctx ends.
func (e *Engine) reconcile(ctx context.Context, hits []*vector.Hit, logger *zap.Logger) []*models.SearchResult {
	results := make([]*models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		if err := ctx.Err(); err != nil {
			logger.Warn("search deadline reached, returning partial results",
				zap.Int("results", len(results)), zap.Error(err))
			break
		}
		hitResults, err := e.reconcileHit(ctx, hit)
		if err != nil {
			logger.Warn("skipping hit", zap.String("id", hit.ID), zap.Error(err))
			metrics.SearchHitsDroppedTotal.WithLabelValues(dropLookupError).Inc()
			continue
		}
		results = append(results, hitResults...)
		if e.maxResults > 0 && len(results) >= e.maxResults {
			if len(results) > e.maxResults {
				results = results[:e.maxResults]
			}
			metrics.SearchResultsTruncatedTotal.Inc()
			logger.Debug("result cap reached", zap.Int("max_results", e.maxResults))
			break
		}
	}
	return results
}

func (e *Engine) reconcileHit(ctx context.Context, hit *vector.Hit) ([]*models.SearchResult, error) {
	refs, err := e.resolver.Resolve(ctx, hit)
	if err != nil {
		return nil, err
	}
	var out []*models.SearchResult
	for _, ref := range refs {
		rs, err := e.assembler.Assemble(ctx, ref, hit.Score)
		if err != nil {
			return nil, err
		}
		out = append(out, rs...)
	}
	return out, nil
}

// SearchKeyword matches the query against skill names and reconciles the
// matching skills like vector hits, scored by the keyword relevance.
// Without a keyword index it returns an empty response.
func (e *Engine) SearchKeyword(ctx context.Context, query *models.SearchQuery) *models.SearchResponse {
	start := time.Now()
	defer func() {
		metrics.SearchDuration.WithLabelValues(ModeKeyword).Observe(time.Since(start).Seconds())
	}()
	logger := utils.LoggerFromContext(ctx, e.logger)

	q := *query
	q.Normalize(e.defaultLimit, e.maxLimit)
	if q.IsEmpty() || e.keywordIndex == nil {
		metrics.SearchRequestsTotal.WithLabelValues(ModeKeyword, outcomeEmptyQuery).Inc()
		return models.EmptySearchResponse()
	}

	kwResults, err := e.keywordIndex.Search(ctx, q.Query, q.Limit, &keyword.SearchOptions{FuzzyEnabled: q.Fuzzy})
	if err != nil {
		logger.Warn("keyword search failed", zap.Error(err))
		metrics.SearchRequestsTotal.WithLabelValues(ModeKeyword, outcomeIndexError).Inc()
		return models.EmptySearchResponse()
	}
	if len(kwResults) == 0 {
		metrics.SearchRequestsTotal.WithLabelValues(ModeKeyword, outcomeNoHits).Inc()
		return models.EmptySearchResponse()
	}
	metrics.SearchRequestsTotal.WithLabelValues(ModeKeyword, outcomeOK).Inc()

	hits := make([]*vector.Hit, len(kwResults))
	for i, r := range kwResults {
		hits[i] = &vector.Hit{ID: r.ID, Score: r.Score}
	}
	return models.NewSearchResponse(e.reconcile(ctx, hits, logger))
}

// VectorIndexType returns the configured vector backend name.
func (e *Engine) VectorIndexType() string {
	return e.vectorIndex.Type()
}
