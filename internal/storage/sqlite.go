// Package storage provides the SQLite implementation of Storage.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/chotto/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Foreign keys are declared but not enforced: a profile may point at a
// department that no longer exists and readers must tolerate it.
func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS departments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT,
		email TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS profiles (
		user_id INTEGER PRIMARY KEY REFERENCES users(id),
		department_id INTEGER REFERENCES departments(id),
		career TEXT NOT NULL DEFAULT '',
		pr TEXT NOT NULL DEFAULT '',
		history TEXT NOT NULL DEFAULT '',
		total_point INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_profiles_department_id ON profiles(department_id);

	CREATE TABLE IF NOT EXISTS skill_masters (
		skill_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS post_skills (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		skill_id INTEGER NOT NULL REFERENCES skill_masters(skill_id),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, skill_id)
	);

	CREATE INDEX IF NOT EXISTS idx_post_skills_skill_id ON post_skills(skill_id);

	CREATE TABLE IF NOT EXISTS bookmarks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		bookmark_user_id INTEGER NOT NULL REFERENCES users(id),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, bookmark_user_id)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// nullableID maps a zero id to NULL so SQLite assigns the next rowid.
func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func assignID(res sql.Result, id *int64) error {
	if *id != 0 {
		return nil
	}
	last, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted id: %w", err)
	}
	*id = last
	return nil
}

// UpsertDepartment inserts or updates a department. A zero ID is assigned on insert.
func (s *SQLiteStorage) UpsertDepartment(ctx context.Context, d *models.Department) error {
	return upsertDepartment(ctx, s.db, d)
}

func upsertDepartment(ctx context.Context, q queryer, d *models.Department) error {
	res, err := q.ExecContext(ctx,
		`INSERT INTO departments (id, name) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		nullableID(d.ID), d.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert department: %w", err)
	}
	return assignID(res, &d.ID)
}

// GetDepartmentByID returns a department by ID.
func (s *SQLiteStorage) GetDepartmentByID(ctx context.Context, id int64) (*models.Department, error) {
	var d models.Department
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM departments WHERE id = ?`, id,
	).Scan(&d.ID, &d.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("department %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDepartments returns all departments ordered by ID.
func (s *SQLiteStorage) ListDepartments(ctx context.Context) ([]*models.Department, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM departments ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Department
	for rows.Next() {
		var d models.Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// UpsertUser inserts or updates a user. An empty name is stored as NULL.
func (s *SQLiteStorage) UpsertUser(ctx context.Context, u *models.User) error {
	return upsertUser(ctx, s.db, u)
}

func upsertUser(ctx context.Context, q queryer, u *models.User) error {
	res, err := q.ExecContext(ctx,
		`INSERT INTO users (id, name, email) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email`,
		nullableID(u.ID), nullableString(u.Name), u.Email,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return assignID(res, &u.ID)
}

// GetUserByID returns a user by ID.
func (s *SQLiteStorage) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	var name sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &name, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	u.Name = name.String
	return &u, nil
}

// GetUsersWithSkill returns every user holding skillID, ordered by user ID.
func (s *SQLiteStorage) GetUsersWithSkill(ctx context.Context, skillID int64) ([]*models.User, error) {
	return s.queryUsers(ctx,
		`SELECT u.id, u.name, u.email FROM users u
		 JOIN post_skills ps ON ps.user_id = u.id
		 WHERE ps.skill_id = ?
		 ORDER BY u.id`, skillID)
}

// GetUsersByDepartment returns every user whose profile points at departmentID, ordered by user ID.
func (s *SQLiteStorage) GetUsersByDepartment(ctx context.Context, departmentID int64) ([]*models.User, error) {
	return s.queryUsers(ctx,
		`SELECT u.id, u.name, u.email FROM users u
		 JOIN profiles p ON p.user_id = u.id
		 WHERE p.department_id = ?
		 ORDER BY u.id`, departmentID)
}

func (s *SQLiteStorage) queryUsers(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		var u models.User
		var name sql.NullString
		if err := rows.Scan(&u.ID, &name, &u.Email); err != nil {
			return nil, err
		}
		u.Name = name.String
		out = append(out, &u)
	}
	return out, rows.Err()
}

// UpsertProfile inserts or replaces the profile of p.UserID.
func (s *SQLiteStorage) UpsertProfile(ctx context.Context, p *models.Profile) error {
	return upsertProfile(ctx, s.db, p)
}

func upsertProfile(ctx context.Context, q queryer, p *models.Profile) error {
	var dept any
	if p.DepartmentID != nil {
		dept = *p.DepartmentID
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO profiles (user_id, department_id, career, pr, history, total_point)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			department_id = excluded.department_id,
			career = excluded.career,
			pr = excluded.pr,
			history = excluded.history,
			total_point = excluded.total_point`,
		p.UserID, dept, p.Career, p.PR, p.History, p.TotalPoint,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// GetProfileByUserID returns the profile of a user.
func (s *SQLiteStorage) GetProfileByUserID(ctx context.Context, userID int64) (*models.Profile, error) {
	var p models.Profile
	var dept sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, department_id, career, pr, history, total_point
		 FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &dept, &p.Career, &p.PR, &p.History, &p.TotalPoint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile of user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if dept.Valid {
		id := dept.Int64
		p.DepartmentID = &id
	}
	return &p, nil
}

// UpsertSkill inserts or renames a skill.
func (s *SQLiteStorage) UpsertSkill(ctx context.Context, sk *models.Skill) error {
	return upsertSkill(ctx, s.db, sk)
}

func upsertSkill(ctx context.Context, q queryer, sk *models.Skill) error {
	res, err := q.ExecContext(ctx,
		`INSERT INTO skill_masters (skill_id, name) VALUES (?, ?)
		 ON CONFLICT(skill_id) DO UPDATE SET name = excluded.name`,
		nullableID(sk.ID), sk.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert skill: %w", err)
	}
	return assignID(res, &sk.ID)
}

// GetSkillByID returns a skill by ID.
func (s *SQLiteStorage) GetSkillByID(ctx context.Context, id int64) (*models.Skill, error) {
	var sk models.Skill
	err := s.db.QueryRowContext(ctx,
		`SELECT skill_id, name FROM skill_masters WHERE skill_id = ?`, id,
	).Scan(&sk.ID, &sk.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("skill %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sk, nil
}

// GetSkillByName returns a skill by its exact name.
func (s *SQLiteStorage) GetSkillByName(ctx context.Context, name string) (*models.Skill, error) {
	var sk models.Skill
	err := s.db.QueryRowContext(ctx,
		`SELECT skill_id, name FROM skill_masters WHERE name = ?`, name,
	).Scan(&sk.ID, &sk.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("skill %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sk, nil
}

// ListSkills returns all skills ordered by ID.
func (s *SQLiteStorage) ListSkills(ctx context.Context) ([]*models.Skill, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT skill_id, name FROM skill_masters ORDER BY skill_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Skill
	for rows.Next() {
		var sk models.Skill
		if err := rows.Scan(&sk.ID, &sk.Name); err != nil {
			return nil, err
		}
		out = append(out, &sk)
	}
	return out, rows.Err()
}

// UpsertSkillAssignment inserts an assignment or moves an existing ID to a new (user, skill) pair.
func (s *SQLiteStorage) UpsertSkillAssignment(ctx context.Context, a *models.SkillAssignment) error {
	return upsertSkillAssignment(ctx, s.db, a)
}

func upsertSkillAssignment(ctx context.Context, q queryer, a *models.SkillAssignment) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	res, err := q.ExecContext(ctx,
		`INSERT INTO post_skills (id, user_id, skill_id, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, skill_id = excluded.skill_id`,
		nullableID(a.ID), a.UserID, a.SkillID, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert skill assignment: %w", err)
	}
	return assignID(res, &a.ID)
}

// GetSkillAssignmentByID returns a skill assignment by ID.
func (s *SQLiteStorage) GetSkillAssignmentByID(ctx context.Context, id int64) (*models.SkillAssignment, error) {
	var a models.SkillAssignment
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, skill_id, created_at FROM post_skills WHERE id = ?`, id,
	).Scan(&a.ID, &a.UserID, &a.SkillID, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("skill assignment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetSkillAssignmentsBySkillID returns the assignments of a skill ordered by user ID.
func (s *SQLiteStorage) GetSkillAssignmentsBySkillID(ctx context.Context, skillID int64) ([]*models.SkillAssignment, error) {
	return s.queryAssignments(ctx,
		`SELECT id, user_id, skill_id, created_at FROM post_skills
		 WHERE skill_id = ? ORDER BY user_id, id`, skillID)
}

// GetSkillAssignmentsByUserID returns the assignments of a user ordered by assignment ID.
func (s *SQLiteStorage) GetSkillAssignmentsByUserID(ctx context.Context, userID int64) ([]*models.SkillAssignment, error) {
	return s.queryAssignments(ctx,
		`SELECT id, user_id, skill_id, created_at FROM post_skills
		 WHERE user_id = ? ORDER BY id`, userID)
}

// ListSkillAssignments returns every assignment ordered by ID.
func (s *SQLiteStorage) ListSkillAssignments(ctx context.Context) ([]*models.SkillAssignment, error) {
	return s.queryAssignments(ctx,
		`SELECT id, user_id, skill_id, created_at FROM post_skills ORDER BY id`)
}

func (s *SQLiteStorage) queryAssignments(ctx context.Context, query string, args ...any) ([]*models.SkillAssignment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.SkillAssignment
	for rows.Next() {
		var a models.SkillAssignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.SkillID, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// snapshotTables are cleared by ImportSnapshot, dependents first. Bookmarks are
// not part of a snapshot and are kept.
var snapshotTables = []string{"post_skills", "profiles", "skill_masters", "users", "departments"}

// ImportSnapshot replaces the directory with snap in a single transaction. Rows
// missing from snap are removed, so importing the same snapshot twice is a no-op
// and an assignment may be renumbered between imports.
func (s *SQLiteStorage) ImportSnapshot(ctx context.Context, snap *models.DirectorySnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range snapshotTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, d := range snap.Departments {
		if err := upsertDepartment(ctx, tx, d); err != nil {
			return err
		}
	}
	for _, u := range snap.Users {
		if err := upsertUser(ctx, tx, u); err != nil {
			return err
		}
	}
	for _, p := range snap.Profiles {
		if err := upsertProfile(ctx, tx, p); err != nil {
			return err
		}
	}
	for _, sk := range snap.Skills {
		if err := upsertSkill(ctx, tx, sk); err != nil {
			return err
		}
	}
	for _, a := range snap.Assignments {
		if err := upsertSkillAssignment(ctx, tx, a); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Stats returns row counts of the directory tables.
func (s *SQLiteStorage) Stats(ctx context.Context) (*models.DirectoryStats, error) {
	var st models.DirectoryStats
	counts := []struct {
		table string
		dst   *int
	}{
		{"users", &st.Users},
		{"departments", &st.Departments},
		{"skill_masters", &st.Skills},
		{"post_skills", &st.Assignments},
		{"profiles", &st.Profiles},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}
	return &st, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
