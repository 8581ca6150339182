// Package models defines the directory entities and the search request/response types.
package models

import "time"

// User is an employee account. Name may be empty when the directory has no display name.
type User struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}

// Department is an organisational unit referenced from profiles.
type Department struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Profile holds the per-user details. DepartmentID is nil when the user has no department.
type Profile struct {
	UserID       int64  `json:"user_id" db:"user_id"`
	DepartmentID *int64 `json:"department_id" db:"department_id"`
	Career       string `json:"career,omitempty" db:"career"`
	PR           string `json:"pr,omitempty" db:"pr"`
	History      string `json:"history,omitempty" db:"history"`
	TotalPoint   int    `json:"total_point" db:"total_point"`
}

// Skill is a named competency from the skill master table.
type Skill struct {
	ID   int64  `json:"skill_id" db:"skill_id"`
	Name string `json:"name" db:"name"`
}

// SkillAssignment links one user to one skill they claim to have.
type SkillAssignment struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	SkillID   int64     `json:"skill_id" db:"skill_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DirectoryStats is a row count summary of the relational store.
type DirectoryStats struct {
	Users       int `json:"users"`
	Departments int `json:"departments"`
	Skills      int `json:"skills"`
	Assignments int `json:"assignments"`
	Profiles    int `json:"profiles"`
}

// DirectorySnapshot is a full set of directory rows, as produced by an import source.
type DirectorySnapshot struct {
	Departments []*Department      `json:"departments" yaml:"departments"`
	Users       []*User            `json:"users" yaml:"users"`
	Profiles    []*Profile         `json:"profiles" yaml:"profiles"`
	Skills      []*Skill           `json:"skills" yaml:"skills"`
	Assignments []*SkillAssignment `json:"assignments" yaml:"assignments"`
}
