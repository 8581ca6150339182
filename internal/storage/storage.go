// Package storage defines the relational directory store.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/chotto/internal/models"
)

// ErrNotFound is wrapped by every lookup that matches no row.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err is a lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Storage defines directory persistence operations.
// Lookups have no side effects and wrap ErrNotFound on a miss.
type Storage interface {
	// Department operations
	UpsertDepartment(ctx context.Context, d *models.Department) error
	GetDepartmentByID(ctx context.Context, id int64) (*models.Department, error)
	ListDepartments(ctx context.Context) ([]*models.Department, error)

	// User operations
	UpsertUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUsersWithSkill(ctx context.Context, skillID int64) ([]*models.User, error)
	GetUsersByDepartment(ctx context.Context, departmentID int64) ([]*models.User, error)

	// Profile operations
	UpsertProfile(ctx context.Context, p *models.Profile) error
	GetProfileByUserID(ctx context.Context, userID int64) (*models.Profile, error)

	// Skill operations
	UpsertSkill(ctx context.Context, s *models.Skill) error
	GetSkillByID(ctx context.Context, id int64) (*models.Skill, error)
	GetSkillByName(ctx context.Context, name string) (*models.Skill, error)
	ListSkills(ctx context.Context) ([]*models.Skill, error)

	// Skill assignment operations
	UpsertSkillAssignment(ctx context.Context, a *models.SkillAssignment) error
	GetSkillAssignmentByID(ctx context.Context, id int64) (*models.SkillAssignment, error)
	GetSkillAssignmentsBySkillID(ctx context.Context, skillID int64) ([]*models.SkillAssignment, error)
	GetSkillAssignmentsByUserID(ctx context.Context, userID int64) ([]*models.SkillAssignment, error)
	ListSkillAssignments(ctx context.Context) ([]*models.SkillAssignment, error)

	// Batch operations
	ImportSnapshot(ctx context.Context, snap *models.DirectorySnapshot) error

	// Stats
	Stats(ctx context.Context) (*models.DirectoryStats, error)

	Close() error
}
