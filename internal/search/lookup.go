package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/chotto/internal/metrics"
	"github.com/hyperjump/chotto/internal/models"
	"github.com/hyperjump/chotto/internal/storage"
	"github.com/hyperjump/chotto/pkg/utils"
)

var (
	// ErrSkillNotFound is returned by SearchBySkill for an unknown skill id.
	ErrSkillNotFound = errors.New("search: skill not found")
	// ErrDepartmentNotFound is returned by SearchByDepartment for an unknown department id.
	ErrDepartmentNotFound = errors.New("search: department not found")
)

// exactScore is the score of results that were looked up rather than ranked.
const exactScore = 1.0

// SearchBySkill lists every holder of skillID, ordered by user id.
func (e *Engine) SearchBySkill(ctx context.Context, skillID int64) (*models.SearchResponse, error) {
	start := time.Now()
	defer func() {
		metrics.SearchDuration.WithLabelValues(ModeSkill).Observe(time.Since(start).Seconds())
	}()

	if _, err := e.dir.GetSkillByID(ctx, skillID); err != nil {
		if storage.IsNotFound(err) {
			metrics.SearchRequestsTotal.WithLabelValues(ModeSkill, outcomeNoHits).Inc()
			return nil, fmt.Errorf("%w: %d", ErrSkillNotFound, skillID)
		}
		return nil, err
	}
	results, err := e.assembler.Assemble(ctx, SkillRef(skillID), exactScore)
	if err != nil {
		return nil, err
	}
	metrics.SearchRequestsTotal.WithLabelValues(ModeSkill, outcomeOK).Inc()
	return models.NewSearchResponse(results), nil
}

// SearchByDepartment lists the users whose profile points at departmentID,
// ordered by user id. Each result carries the user's earliest skill assignment,
// or no skill when the user has none.
func (e *Engine) SearchByDepartment(ctx context.Context, departmentID int64) (*models.SearchResponse, error) {
	start := time.Now()
	defer func() {
		metrics.SearchDuration.WithLabelValues(ModeDepartment).Observe(time.Since(start).Seconds())
	}()
	logger := utils.LoggerFromContext(ctx, e.logger)

	dept, err := e.dir.GetDepartmentByID(ctx, departmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			metrics.SearchRequestsTotal.WithLabelValues(ModeDepartment, outcomeNoHits).Inc()
			return nil, fmt.Errorf("%w: %d", ErrDepartmentNotFound, departmentID)
		}
		return nil, err
	}
	users, err := e.dir.GetUsersByDepartment(ctx, departmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users of department %d: %w", departmentID, err)
	}

	results := make([]*models.SearchResult, 0, len(users))
	for _, u := range users {
		r := e.assembler.newResult(u, exactScore)
		r.SetDepartment(dept)
		skill, err := e.firstSkill(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		if skill != nil {
			r.SkillID = skill.ID
			r.SkillName = skill.Name
		}
		results = append(results, r)
	}
	metrics.SearchRequestsTotal.WithLabelValues(ModeDepartment, outcomeOK).Inc()
	logger.Debug("department listing",
		zap.Int64("department_id", departmentID), zap.Int("results", len(results)))
	return models.NewSearchResponse(results), nil
}

// firstSkill returns the skill of the user's lowest-id assignment whose skill
// still exists, or nil.
func (e *Engine) firstSkill(ctx context.Context, userID int64) (*models.Skill, error) {
	assignments, err := e.dir.GetSkillAssignmentsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list skills of user %d: %w", userID, err)
	}
	sorted := append([]*models.SkillAssignment(nil), assignments...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for _, a := range sorted {
		skill, err := e.dir.GetSkillByID(ctx, a.SkillID)
		if storage.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get skill %d: %w", a.SkillID, err)
		}
		return skill, nil
	}
	return nil, nil
}
