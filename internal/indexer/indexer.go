// Package indexer embeds the skill directory into the vector and keyword indices.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/chotto/internal/config"
	"github.com/hyperjump/chotto/internal/embedding"
	"github.com/hyperjump/chotto/internal/keyword"
	"github.com/hyperjump/chotto/internal/metrics"
	"github.com/hyperjump/chotto/internal/models"
	"github.com/hyperjump/chotto/internal/vector"
	"github.com/hyperjump/chotto/internal/vectorid"
)

var (
	// ErrDirectoryRequired is returned when NewIndexer gets a nil directory.
	ErrDirectoryRequired = errors.New("indexer: directory is required")
	// ErrEmbedderRequired is returned when NewIndexer gets a nil embedder.
	ErrEmbedderRequired = errors.New("indexer: embedder is required")
	// ErrIndexRequired is returned when NewIndexer gets a nil vector index.
	ErrIndexRequired = errors.New("indexer: vector index is required")
)

// Directory is the part of the relational store the indexer reads.
type Directory interface {
	ListSkills(ctx context.Context) ([]*models.Skill, error)
	ListSkillAssignments(ctx context.Context) ([]*models.SkillAssignment, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Report summarises one rebuild. Failed counts items that could not be embedded or written.
type Report struct {
	Skills      int           `json:"skills"`
	Assignments int           `json:"assignments"`
	Failed      int           `json:"failed"`
	Pruned      int           `json:"pruned"`
	Duration    time.Duration `json:"duration_ns"`
}

// Indexer writes one vector per skill and, optionally, one per skill holder.
type Indexer struct {
	dir          Directory
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.KeywordIndex
	pool         *ants.Pool
	workers      int
	perHolder    bool
	idScheme     string
	indexPath    string
	logger       *zap.Logger

	mu sync.Mutex // one rebuild at a time
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets the indexer logger.
func WithLogger(l *zap.Logger) Option {
	return func(idx *Indexer) { idx.logger = l }
}

// WithKeywordIndex also indexes skill names into a keyword index.
func WithKeywordIndex(k keyword.KeywordIndex) Option {
	return func(idx *Indexer) { idx.keywordIndex = k }
}

// WithWorkers sets the number of concurrent embedding workers.
func WithWorkers(n int) Option {
	return func(idx *Indexer) { idx.workers = n }
}

// WithPerHolder writes one extra vector per skill assignment, keyed by scheme
// (config.IDSchemeAssignment or config.IDSchemeComposite).
func WithPerHolder(scheme string) Option {
	return func(idx *Indexer) {
		idx.perHolder = true
		idx.idScheme = scheme
	}
}

// WithIndexPath saves an in-memory vector index to path after each rebuild.
func WithIndexPath(path string) Option {
	return func(idx *Indexer) { idx.indexPath = path }
}

// NewIndexer creates an indexer. Release the worker pool with Close.
func NewIndexer(dir Directory, embedder embedding.Embedder, vectorIndex vector.VectorIndex, opts ...Option) (*Indexer, error) {
	if dir == nil {
		return nil, ErrDirectoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if vectorIndex == nil {
		return nil, ErrIndexRequired
	}
	idx := &Indexer{
		dir:         dir,
		embedder:    embedder,
		vectorIndex: vectorIndex,
		workers:     4,
		idScheme:    config.IDSchemeAssignment,
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.logger == nil {
		idx.logger = zap.NewNop()
	}
	if idx.workers < 1 {
		idx.workers = 1
	}
	switch idx.idScheme {
	case config.IDSchemeAssignment, config.IDSchemeComposite:
	default:
		return nil, fmt.Errorf("unknown id scheme %q", idx.idScheme)
	}
	pool, err := ants.NewPool(idx.workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	idx.pool = pool
	return idx, nil
}

// Close releases the worker pool.
func (idx *Indexer) Close() {
	idx.pool.Release()
}

// Rebuild embeds every skill name and upserts skill_<id> with its skill metadata.
// With per-holder vectors enabled, every assignment is written as well, reusing
// the vector of its skill. Vectors whose ids are no longer produced are removed.
// Per-item failures are counted in the report; only directory reads are fatal.
func (idx *Indexer) Rebuild(ctx context.Context) (*Report, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	start := time.Now()

	skills, err := idx.dir.ListSkills(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list skills: %w", err)
	}
	var assignments []*models.SkillAssignment
	if idx.perHolder {
		if assignments, err = idx.dir.ListSkillAssignments(ctx); err != nil {
			return nil, fmt.Errorf("failed to list skill assignments: %w", err)
		}
	}

	report := &Report{}
	vectors := idx.embedSkills(ctx, skills, report)
	wanted := make(map[string]struct{}, len(skills)+len(assignments))
	for _, s := range skills {
		wanted[vectorid.Skill(s.ID)] = struct{}{}
	}
	if idx.perHolder {
		idx.writeHolders(ctx, assignments, vectors, wanted, report)
	}
	if idx.keywordIndex != nil {
		for _, s := range skills {
			if err := idx.keywordIndex.IndexSkill(ctx, s); err != nil {
				idx.logger.Warn("keyword indexing failed", zap.Int64("skill_id", s.ID), zap.Error(err))
			}
		}
	}

	if n, err := idx.prune(ctx, wanted); err != nil {
		idx.logger.Warn("pruning stale vectors failed", zap.Error(err))
	} else {
		report.Pruned = n
	}

	if idx.indexPath != "" && idx.vectorIndex.Type() == string(vector.IndexTypeMemory) {
		if err := idx.vectorIndex.Save(idx.indexPath); err != nil {
			idx.logger.Warn("vector index save failed", zap.String("path", idx.indexPath), zap.Error(err))
		}
	}

	report.Duration = time.Since(start)
	idx.logger.Info("index rebuilt",
		zap.Int("skills", report.Skills),
		zap.Int("assignments", report.Assignments),
		zap.Int("failed", report.Failed),
		zap.Int("pruned", report.Pruned),
		zap.Duration("elapsed", report.Duration))
	return report, nil
}

// embedSkills embeds and upserts skills on the worker pool. It returns the
// vectors that were written, keyed by skill id.
func (idx *Indexer) embedSkills(ctx context.Context, skills []*models.Skill, report *Report) map[int64][]float32 {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      atomic.Int64
		failed  atomic.Int64
		vectors = make(map[int64][]float32, len(skills))
	)
	for _, s := range skills {
		skill := s
		wg.Add(1)
		task := func() {
			defer wg.Done()
			vec, err := idx.writeSkill(ctx, skill)
			if err != nil {
				failed.Add(1)
				metrics.IndexedItemsTotal.WithLabelValues("skill", "error").Inc()
				idx.logger.Warn("skill not indexed", zap.Int64("skill_id", skill.ID), zap.Error(err))
				return
			}
			ok.Add(1)
			metrics.IndexedItemsTotal.WithLabelValues("skill", "ok").Inc()
			mu.Lock()
			vectors[skill.ID] = vec
			mu.Unlock()
		}
		if err := idx.pool.Submit(task); err != nil {
			wg.Done()
			failed.Add(1)
			idx.logger.Warn("worker pool rejected task", zap.Int64("skill_id", skill.ID), zap.Error(err))
		}
	}
	wg.Wait()
	report.Skills = int(ok.Load())
	report.Failed += int(failed.Load())
	return vectors
}

func (idx *Indexer) writeSkill(ctx context.Context, s *models.Skill) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec, err := idx.embedder.Embed(ctx, s.Name)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	meta := map[string]string{
		vector.MetaSkillID:   strconv.FormatInt(s.ID, 10),
		vector.MetaSkillName: s.Name,
	}
	if err := idx.vectorIndex.Upsert(ctx, vectorid.Skill(s.ID), vec, meta); err != nil {
		return nil, fmt.Errorf("upsert: %w", err)
	}
	return vec, nil
}

// writeHolders upserts one vector per assignment whose skill was indexed.
func (idx *Indexer) writeHolders(ctx context.Context, assignments []*models.SkillAssignment, vectors map[int64][]float32, wanted map[string]struct{}, report *Report) {
	names := make(map[int64]string)
	for _, a := range assignments {
		vec, ok := vectors[a.SkillID]
		if !ok {
			report.Failed++
			metrics.IndexedItemsTotal.WithLabelValues("assignment", "error").Inc()
			continue
		}
		name, seen := names[a.UserID]
		if !seen {
			if u, err := idx.dir.GetUserByID(ctx, a.UserID); err == nil {
				name = u.Name
			}
			names[a.UserID] = name
		}
		id := idx.holderID(a)
		meta := map[string]string{
			vector.MetaSkillID: strconv.FormatInt(a.SkillID, 10),
			vector.MetaUserID:  strconv.FormatInt(a.UserID, 10),
		}
		if name != "" {
			meta[vector.MetaUserName] = name
		}
		if err := idx.vectorIndex.Upsert(ctx, id, vec, meta); err != nil {
			report.Failed++
			metrics.IndexedItemsTotal.WithLabelValues("assignment", "error").Inc()
			idx.logger.Warn("assignment not indexed", zap.String("id", id), zap.Error(err))
			continue
		}
		wanted[id] = struct{}{}
		report.Assignments++
		metrics.IndexedItemsTotal.WithLabelValues("assignment", "ok").Inc()
	}
}

func (idx *Indexer) holderID(a *models.SkillAssignment) string {
	if idx.idScheme == config.IDSchemeComposite {
		return vectorid.SkillUser(a.SkillID, a.UserID)
	}
	return vectorid.Assignment(a.ID)
}

// prune removes vectors whose ids are not in wanted.
func (idx *Indexer) prune(ctx context.Context, wanted map[string]struct{}) (int, error) {
	n, err := idx.vectorIndex.Count(ctx)
	if err != nil || n == 0 {
		return 0, err
	}
	ids, err := idx.vectorIndex.SampleIDs(ctx, n)
	if err != nil {
		return 0, err
	}
	var stale []string
	for _, id := range ids {
		if _, ok := wanted[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := idx.vectorIndex.Remove(ctx, stale); err != nil {
		return 0, err
	}
	if idx.keywordIndex != nil {
		for _, id := range stale {
			_ = idx.keywordIndex.Delete(ctx, id)
		}
	}
	return len(stale), nil
}
