package seed

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/chotto/internal/models"
)

// document is the YAML seed layout. Profile fields live on the user entry.
type document struct {
	Departments []struct {
		ID   int64  `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"departments"`
	Users []struct {
		ID           int64  `yaml:"id"`
		Name         string `yaml:"name"`
		Email        string `yaml:"email"`
		DepartmentID *int64 `yaml:"department_id"`
		Career       string `yaml:"career"`
		PR           string `yaml:"pr"`
		History      string `yaml:"history"`
		TotalPoint   int    `yaml:"total_point"`
	} `yaml:"users"`
	Skills []struct {
		ID   int64  `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"skills"`
	Assignments []struct {
		ID      int64 `yaml:"id"`
		UserID  int64 `yaml:"user_id"`
		SkillID int64 `yaml:"skill_id"`
	} `yaml:"assignments"`
}

// ParseYAML decodes a YAML seed document.
func ParseYAML(data []byte) (*models.DirectorySnapshot, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse seed YAML: %w", err)
	}

	snap := &models.DirectorySnapshot{}
	for _, d := range doc.Departments {
		snap.Departments = append(snap.Departments, &models.Department{ID: d.ID, Name: d.Name})
	}
	for _, u := range doc.Users {
		snap.Users = append(snap.Users, &models.User{ID: u.ID, Name: u.Name, Email: u.Email})
		snap.Profiles = append(snap.Profiles, &models.Profile{
			UserID:       u.ID,
			DepartmentID: u.DepartmentID,
			Career:       u.Career,
			PR:           u.PR,
			History:      u.History,
			TotalPoint:   u.TotalPoint,
		})
	}
	for _, s := range doc.Skills {
		snap.Skills = append(snap.Skills, &models.Skill{ID: s.ID, Name: s.Name})
	}
	for _, a := range doc.Assignments {
		snap.Assignments = append(snap.Assignments, &models.SkillAssignment{ID: a.ID, UserID: a.UserID, SkillID: a.SkillID})
	}
	return snap, nil
}
