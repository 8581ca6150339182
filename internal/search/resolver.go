package search

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/hyperjump/chotto/internal/metrics"
	"github.com/hyperjump/chotto/internal/storage"
	"github.com/hyperjump/chotto/internal/vector"
	"github.com/hyperjump/chotto/internal/vectorid"
)

// RefKind distinguishes skill-only references from (skill, user) pairs.
type RefKind int

const (
	// RefSkill refers to a skill and fans out to all of its holders.
	RefSkill RefKind = iota + 1
	// RefSkillUser refers to one user's claim of one skill.
	RefSkillUser
)

func (k RefKind) String() string {
	switch k {
	case RefSkill:
		return "skill"
	case RefSkillUser:
		return "skill_user"
	default:
		return "unknown"
	}
}

// Reference is a resolved vector hit. UserID is only meaningful for RefSkillUser.
type Reference struct {
	Kind    RefKind
	SkillID int64
	UserID  int64
}

// SkillRef returns a skill-only reference.
func SkillRef(skillID int64) Reference {
	return Reference{Kind: RefSkill, SkillID: skillID}
}

// SkillUserRef returns a reference to one user's skill.
func SkillUserRef(skillID, userID int64) Reference {
	return Reference{Kind: RefSkillUser, SkillID: skillID, UserID: userID}
}

// Drop reasons recorded in chotto_search_hits_dropped_total.
const (
	dropUnparseableID      = "unparseable_id"
	dropDanglingAssignment = "dangling_assignment"
	dropMissingSkill       = "missing_skill"
	dropMissingUser        = "missing_user"
	dropLookupError        = "lookup_error"
)

// Resolver decodes opaque vector ids into references against the directory.
type Resolver struct {
	dir    Directory
	logger *zap.Logger
}

// NewResolver creates a resolver reading from dir.
func NewResolver(dir Directory, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{dir: dir, logger: logger}
}

// Resolve returns zero or one reference for hit. Unparseable ids and dangling
// assignment ids yield no reference and no error; only a failing lookup is an error.
//
// The id grammar is tried first. Ids outside it (the composite
// skill_<s>_user_<u> form) resolve from the hit's skill_id/user_id metadata.
func (r *Resolver) Resolve(ctx context.Context, hit *vector.Hit) ([]Reference, error) {
	id, ok := vectorid.Parse(hit.ID)
	if !ok {
		if ref, ok := refFromMetadata(hit.Metadata); ok {
			return []Reference{ref}, nil
		}
		r.logger.Debug("discarding unparseable vector id", zap.String("id", hit.ID))
		metrics.SearchHitsDroppedTotal.WithLabelValues(dropUnparseableID).Inc()
		return nil, nil
	}

	switch id.Kind {
	case vectorid.KindSkill:
		return []Reference{SkillRef(id.Value)}, nil
	case vectorid.KindAssignment:
		a, err := r.dir.GetSkillAssignmentByID(ctx, id.Value)
		if storage.IsNotFound(err) {
			r.logger.Debug("skill assignment not found", zap.String("id", hit.ID))
			metrics.SearchHitsDroppedTotal.WithLabelValues(dropDanglingAssignment).Inc()
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get skill assignment %d: %w", id.Value, err)
		}
		return []Reference{SkillUserRef(a.SkillID, a.UserID)}, nil
	}
	return nil, nil
}

func refFromMetadata(meta map[string]string) (Reference, bool) {
	skillID, ok := metaInt(meta, vector.MetaSkillID)
	if !ok {
		return Reference{}, false
	}
	if userID, ok := metaInt(meta, vector.MetaUserID); ok {
		return SkillUserRef(skillID, userID), true
	}
	return SkillRef(skillID), true
}

func metaInt(meta map[string]string, key string) (int64, bool) {
	v, ok := meta[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
