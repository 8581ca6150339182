package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/chotto/internal/metrics"
	"github.com/hyperjump/chotto/internal/models"
	"github.com/hyperjump/chotto/internal/storage"
)

// DefaultPlaceholderUserName is shown for users without a display name.
const DefaultPlaceholderUserName = "名前なし"

// Directory is the read-only view of the relational store used by search.
// Lookups wrap storage.ErrNotFound on a miss.
type Directory interface {
	GetSkillByID(ctx context.Context, id int64) (*models.Skill, error)
	GetSkillAssignmentByID(ctx context.Context, id int64) (*models.SkillAssignment, error)
	GetSkillAssignmentsByUserID(ctx context.Context, userID int64) ([]*models.SkillAssignment, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUsersWithSkill(ctx context.Context, skillID int64) ([]*models.User, error)
	GetUsersByDepartment(ctx context.Context, departmentID int64) ([]*models.User, error)
	GetProfileByUserID(ctx context.Context, userID int64) (*models.Profile, error)
	GetDepartmentByID(ctx context.Context, id int64) (*models.Department, error)
}

// Assembler turns references into denormalised search results.
type Assembler struct {
	dir         Directory
	placeholder string
	logger      *zap.Logger
}

// NewAssembler creates an assembler. An empty placeholder uses DefaultPlaceholderUserName.
func NewAssembler(dir Directory, placeholder string, logger *zap.Logger) *Assembler {
	if placeholder == "" {
		placeholder = DefaultPlaceholderUserName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{dir: dir, placeholder: placeholder, logger: logger}
}

// Assemble builds the results for ref, all carrying score. A missing skill or
// user yields no results and no error. A skill-only reference yields one result
// per holder, ordered by user id.
func (a *Assembler) Assemble(ctx context.Context, ref Reference, score float64) ([]*models.SearchResult, error) {
	skill, err := a.dir.GetSkillByID(ctx, ref.SkillID)
	if storage.IsNotFound(err) {
		a.logger.Debug("skill not found", zap.Int64("skill_id", ref.SkillID))
		metrics.SearchHitsDroppedTotal.WithLabelValues(dropMissingSkill).Inc()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get skill %d: %w", ref.SkillID, err)
	}

	var users []*models.User
	switch ref.Kind {
	case RefSkillUser:
		u, err := a.dir.GetUserByID(ctx, ref.UserID)
		if storage.IsNotFound(err) {
			a.logger.Debug("user not found", zap.Int64("user_id", ref.UserID))
			metrics.SearchHitsDroppedTotal.WithLabelValues(dropMissingUser).Inc()
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get user %d: %w", ref.UserID, err)
		}
		users = []*models.User{u}
	case RefSkill:
		// Every holder gets the skill's score; there is no per-user relevance.
		users, err = a.dir.GetUsersWithSkill(ctx, ref.SkillID)
		if err != nil {
			return nil, fmt.Errorf("failed to get holders of skill %d: %w", ref.SkillID, err)
		}
	default:
		return nil, fmt.Errorf("unknown reference kind %d", ref.Kind)
	}

	results := make([]*models.SearchResult, 0, len(users))
	for _, u := range users {
		dept, err := a.userDepartment(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		r := a.newResult(u, score)
		r.SkillID = skill.ID
		r.SkillName = skill.Name
		r.SetDepartment(dept)
		results = append(results, r)
	}
	return results, nil
}

func (a *Assembler) newResult(u *models.User, score float64) *models.SearchResult {
	name := u.Name
	if name == "" {
		name = a.placeholder
	}
	return &models.SearchResult{UserID: u.ID, UserName: name, SimilarityScore: score}
}

// userDepartment follows user -> profile -> department. A missing profile, a null
// department id and a dangling department id all return nil without error.
func (a *Assembler) userDepartment(ctx context.Context, userID int64) (*models.Department, error) {
	p, err := a.dir.GetProfileByUserID(ctx, userID)
	if storage.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile of user %d: %w", userID, err)
	}
	if p.DepartmentID == nil {
		return nil, nil
	}
	d, err := a.dir.GetDepartmentByID(ctx, *p.DepartmentID)
	if storage.IsNotFound(err) {
		a.logger.Debug("dangling department id",
			zap.Int64("user_id", userID), zap.Int64("department_id", *p.DepartmentID))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get department %d: %w", *p.DepartmentID, err)
	}
	return d, nil
}
