package e2e

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/chotto/internal/models"
	"github.com/hyperjump/chotto/internal/seed"
)

// SeedFormats are the file extensions the seed importer accepts.
var SeedFormats = []string{".yaml", ".xlsx"}

// WriteSeedFile writes snap to path in the format named by ext.
func WriteSeedFile(path, ext string, snap *models.DirectorySnapshot) error {
	switch ext {
	case ".yaml", ".yml":
		data, err := MarshalYAML(snap)
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0o644)
	case ".xlsx":
		return WriteWorkbook(path, snap)
	default:
		return fmt.Errorf("unsupported seed format %s", ext)
	}
}

type yamlUser struct {
	ID           int64  `yaml:"id"`
	Name         string `yaml:"name"`
	Email        string `yaml:"email,omitempty"`
	DepartmentID *int64 `yaml:"department_id,omitempty"`
	Career       string `yaml:"career,omitempty"`
}

// MarshalYAML renders snap in the seed YAML layout, with profile fields on the user.
func MarshalYAML(snap *models.DirectorySnapshot) ([]byte, error) {
	profiles := make(map[int64]*models.Profile, len(snap.Profiles))
	for _, p := range snap.Profiles {
		profiles[p.UserID] = p
	}
	users := make([]yamlUser, 0, len(snap.Users))
	for _, u := range snap.Users {
		yu := yamlUser{ID: u.ID, Name: u.Name, Email: u.Email}
		if p := profiles[u.ID]; p != nil {
			yu.DepartmentID = p.DepartmentID
			yu.Career = p.Career
		}
		users = append(users, yu)
	}
	return yaml.Marshal(map[string]any{
		"departments": snap.Departments,
		"users":       users,
		"skills":      skillsForYAML(snap.Skills),
		"assignments": assignmentsForYAML(snap.Assignments),
	})
}

func skillsForYAML(skills []*models.Skill) []map[string]any {
	out := make([]map[string]any, 0, len(skills))
	for _, s := range skills {
		out = append(out, map[string]any{"id": s.ID, "name": s.Name})
	}
	return out
}

func assignmentsForYAML(as []*models.SkillAssignment) []map[string]any {
	out := make([]map[string]any, 0, len(as))
	for _, a := range as {
		out = append(out, map[string]any{"id": a.ID, "user_id": a.UserID, "skill_id": a.SkillID})
	}
	return out
}

// WriteWorkbook writes snap as a seed workbook with one sheet per entity.
func WriteWorkbook(path string, snap *models.DirectorySnapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	profiles := make(map[int64]*models.Profile, len(snap.Profiles))
	for _, p := range snap.Profiles {
		profiles[p.UserID] = p
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{seed.SheetDepartments, [][]any{{"id", "name"}}},
		{seed.SheetUsers, [][]any{{"id", "name", "email", "department_id", "career"}}},
		{seed.SheetSkills, [][]any{{"id", "name"}}},
		{seed.SheetAssignments, [][]any{{"id", "user_id", "skill_id"}}},
	}
	for _, d := range snap.Departments {
		sheets[0].rows = append(sheets[0].rows, []any{d.ID, d.Name})
	}
	for _, u := range snap.Users {
		var dept any = ""
		career := ""
		if p := profiles[u.ID]; p != nil {
			if p.DepartmentID != nil {
				dept = *p.DepartmentID
			}
			career = p.Career
		}
		sheets[1].rows = append(sheets[1].rows, []any{u.ID, u.Name, u.Email, dept, career})
	}
	for _, s := range snap.Skills {
		sheets[2].rows = append(sheets[2].rows, []any{s.ID, s.Name})
	}
	for _, a := range snap.Assignments {
		sheets[3].rows = append(sheets[3].rows, []any{a.ID, a.UserID, a.SkillID})
	}

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return err
		}
		for r, row := range sh.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			row := row
			if err := f.SetSheetRow(sh.name, cell, &row); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}
