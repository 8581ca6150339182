package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/chotto/internal/models"
	"github.com/hyperjump/chotto/internal/storage"
	"github.com/hyperjump/chotto/internal/vector"
)

var errBoom = errors.New("boom")

// fakeDirectory is an in-memory Directory. Entries in fail make the matching
// lookup return that error instead of a row.
type fakeDirectory struct {
	users       map[int64]*models.User
	departments map[int64]*models.Department
	profiles    map[int64]*models.Profile
	skills      map[int64]*models.Skill
	assignments map[int64]*models.SkillAssignment
	fail        map[string]error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:       map[int64]*models.User{},
		departments: map[int64]*models.Department{},
		profiles:    map[int64]*models.Profile{},
		skills:      map[int64]*models.Skill{},
		assignments: map[int64]*models.SkillAssignment{},
		fail:        map[string]error{},
	}
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, storage.ErrNotFound)
}

func (d *fakeDirectory) failure(kind string, id int64) error {
	return d.fail[fmt.Sprintf("%s:%d", kind, id)]
}

func (d *fakeDirectory) addUser(id int64, name string, deptID *int64) {
	d.users[id] = &models.User{ID: id, Name: name}
	d.profiles[id] = &models.Profile{UserID: id, DepartmentID: deptID}
}

func (d *fakeDirectory) assign(id, userID, skillID int64) {
	d.assignments[id] = &models.SkillAssignment{ID: id, UserID: userID, SkillID: skillID}
}

func (d *fakeDirectory) GetSkillByID(_ context.Context, id int64) (*models.Skill, error) {
	if err := d.failure("skill", id); err != nil {
		return nil, err
	}
	s, ok := d.skills[id]
	if !ok {
		return nil, notFound("skill", id)
	}
	return s, nil
}

func (d *fakeDirectory) GetSkillAssignmentByID(_ context.Context, id int64) (*models.SkillAssignment, error) {
	if err := d.failure("assignment", id); err != nil {
		return nil, err
	}
	a, ok := d.assignments[id]
	if !ok {
		return nil, notFound("assignment", id)
	}
	return a, nil
}

func (d *fakeDirectory) GetSkillAssignmentsByUserID(_ context.Context, userID int64) ([]*models.SkillAssignment, error) {
	var out []*models.SkillAssignment
	for _, a := range d.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *fakeDirectory) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	if err := d.failure("user", id); err != nil {
		return nil, err
	}
	u, ok := d.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return u, nil
}

func (d *fakeDirectory) GetUsersWithSkill(_ context.Context, skillID int64) ([]*models.User, error) {
	if err := d.failure("holders", skillID); err != nil {
		return nil, err
	}
	seen := map[int64]bool{}
	var out []*models.User
	for _, a := range d.assignments {
		u, ok := d.users[a.UserID]
		if a.SkillID != skillID || !ok || seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *fakeDirectory) GetUsersByDepartment(_ context.Context, departmentID int64) ([]*models.User, error) {
	var out []*models.User
	for _, p := range d.profiles {
		if p.DepartmentID != nil && *p.DepartmentID == departmentID {
			if u, ok := d.users[p.UserID]; ok {
				out = append(out, u)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *fakeDirectory) GetProfileByUserID(_ context.Context, userID int64) (*models.Profile, error) {
	if err := d.failure("profile", userID); err != nil {
		return nil, err
	}
	p, ok := d.profiles[userID]
	if !ok {
		return nil, notFound("profile", userID)
	}
	return p, nil
}

func (d *fakeDirectory) GetDepartmentByID(_ context.Context, id int64) (*models.Department, error) {
	if err := d.failure("department", id); err != nil {
		return nil, err
	}
	dep, ok := d.departments[id]
	if !ok {
		return nil, notFound("department", id)
	}
	return dep, nil
}

// stubIndex returns fixed hits and counts queries.
type stubIndex struct {
	mu      sync.Mutex
	hits    []*vector.Hit
	err     error
	queries int
	lastK   int
}

func (s *stubIndex) Upsert(context.Context, string, []float32, map[string]string) error { return nil }

func (s *stubIndex) Query(_ context.Context, _ []float32, topK int) ([]*vector.Hit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	s.lastK = topK
	if s.err != nil {
		return nil, s.err
	}
	if topK < len(s.hits) {
		return s.hits[:topK], nil
	}
	return s.hits, nil
}

func (s *stubIndex) Remove(context.Context, []string) error           { return nil }
func (s *stubIndex) Count(context.Context) (int, error)               { return len(s.hits), nil }
func (s *stubIndex) SampleIDs(context.Context, int) ([]string, error) { return nil, nil }
func (s *stubIndex) Save(string) error                                { return nil }
func (s *stubIndex) Load(string) error                                { return nil }
func (s *stubIndex) Type() string                                     { return "stub" }
func (s *stubIndex) Close() error                                     { return nil }

// failingEmbedder always fails and counts calls.
type failingEmbedder struct {
	calls int
}

func (f *failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.calls++
	return nil, errBoom
}

func (f *failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errBoom
}

func (f *failingEmbedder) Dimensions() int { return 8 }
func (f *failingEmbedder) Close() error    { return nil }

func int64Ptr(v int64) *int64 { return &v }

// sampleDirectory holds the directory used across engine tests:
// skill 8 held by users 3, 5 and 7; assignment 42 maps user 7 to skill 3.
func sampleDirectory() *fakeDirectory {
	d := newFakeDirectory()
	d.departments[1] = &models.Department{ID: 1, Name: "Engineering"}
	d.skills[3] = &models.Skill{ID: 3, Name: "Go"}
	d.skills[8] = &models.Skill{ID: 8, Name: "Data analysis and measurement"}
	d.addUser(7, "Aiko", int64Ptr(1))
	d.addUser(5, "Ren", int64Ptr(1))
	d.addUser(3, "", nil)
	d.assign(42, 7, 3)
	d.assign(10, 7, 8)
	d.assign(11, 5, 8)
	d.assign(12, 3, 8)
	return d
}
