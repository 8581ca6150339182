package seed

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/chotto/internal/models"
)

// Workbook sheet names. Each sheet starts with a header row; columns are
// matched by header name, case-insensitively, in any order.
const (
	SheetDepartments = "departments"
	SheetUsers       = "users"
	SheetSkills      = "skills"
	SheetAssignments = "assignments"
)

// sheet is one worksheet with its header index.
type sheet struct {
	name string
	cols map[string]int
	rows [][]string
}

func (s *sheet) str(row []string, col string) string {
	i, ok := s.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// int64 parses an optional integer cell. Excel may store ids as "7.0".
func (s *sheet) int64(row []string, rowNum int, col string) (int64, bool, error) {
	v := s.str(row, col)
	if v == "" {
		return 0, false, nil
	}
	v = strings.TrimSuffix(v, ".0")
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("sheet %s row %d column %s: %q is not an integer", s.name, rowNum, col, v)
	}
	return n, true, nil
}

// ParseXLSX reads a seed workbook. Missing sheets are treated as empty.
func ParseXLSX(r io.Reader) (*models.DirectorySnapshot, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := make(map[string]*sheet)
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", name, err)
		}
		key := strings.ToLower(strings.TrimSpace(name))
		sheets[key] = newSheet(key, rows)
	}

	snap := &models.DirectorySnapshot{}
	if s := sheets[SheetDepartments]; s != nil {
		if err := s.each(func(row []string, n int) error {
			id, _, err := s.int64(row, n, "id")
			if err != nil {
				return err
			}
			snap.Departments = append(snap.Departments, &models.Department{ID: id, Name: s.str(row, "name")})
			return nil
		}); err != nil {
			return nil, err
		}
	}
	if s := sheets[SheetUsers]; s != nil {
		if err := s.each(func(row []string, n int) error {
			return appendUser(snap, s, row, n)
		}); err != nil {
			return nil, err
		}
	}
	if s := sheets[SheetSkills]; s != nil {
		if err := s.each(func(row []string, n int) error {
			id, _, err := s.int64(row, n, "id")
			if err != nil {
				return err
			}
			snap.Skills = append(snap.Skills, &models.Skill{ID: id, Name: s.str(row, "name")})
			return nil
		}); err != nil {
			return nil, err
		}
	}
	if s := sheets[SheetAssignments]; s != nil {
		if err := s.each(func(row []string, n int) error {
			a := &models.SkillAssignment{}
			var err error
			if a.ID, _, err = s.int64(row, n, "id"); err != nil {
				return err
			}
			if a.UserID, _, err = s.int64(row, n, "user_id"); err != nil {
				return err
			}
			if a.SkillID, _, err = s.int64(row, n, "skill_id"); err != nil {
				return err
			}
			snap.Assignments = append(snap.Assignments, a)
			return nil
		}); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func appendUser(snap *models.DirectorySnapshot, s *sheet, row []string, n int) error {
	id, _, err := s.int64(row, n, "id")
	if err != nil {
		return err
	}
	p := &models.Profile{
		UserID:  id,
		Career:  s.str(row, "career"),
		PR:      s.str(row, "pr"),
		History: s.str(row, "history"),
	}
	deptID, ok, err := s.int64(row, n, "department_id")
	if err != nil {
		return err
	}
	if ok {
		p.DepartmentID = &deptID
	}
	points, _, err := s.int64(row, n, "total_point")
	if err != nil {
		return err
	}
	p.TotalPoint = int(points)

	snap.Users = append(snap.Users, &models.User{ID: id, Name: s.str(row, "name"), Email: s.str(row, "email")})
	snap.Profiles = append(snap.Profiles, p)
	return nil
}

func newSheet(name string, rows [][]string) *sheet {
	s := &sheet{name: name, cols: map[string]int{}}
	if len(rows) == 0 {
		return s
	}
	for i, h := range rows[0] {
		s.cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	s.rows = rows[1:]
	return s
}

// each calls fn for every non-blank data row. n is the 1-based sheet row number.
func (s *sheet) each(fn func(row []string, n int) error) error {
	for i, row := range s.rows {
		if blankRow(row) {
			continue
		}
		if err := fn(row, i+2); err != nil {
			return err
		}
	}
	return nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
