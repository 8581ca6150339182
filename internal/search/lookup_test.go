package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/chotto/internal/models"
)

func TestSearchBySkill(t *testing.T) {
	e := newTestEngine(t, sampleDirectory(), &stubIndex{})

	resp, err := e.SearchBySkill(context.Background(), 8)
	require.NoError(t, err)
	require.Equal(t, 3, resp.Total)
	for i, want := range []int64{3, 5, 7} {
		assert.Equal(t, want, resp.Results[i].UserID)
		assert.Equal(t, 1.0, resp.Results[i].SimilarityScore)
	}
}

func TestSearchBySkill_NotFound(t *testing.T) {
	e := newTestEngine(t, sampleDirectory(), &stubIndex{})

	resp, err := e.SearchBySkill(context.Background(), 999)
	assert.ErrorIs(t, err, ErrSkillNotFound)
	assert.Nil(t, resp)
}

func TestSearchBySkill_NoHolders(t *testing.T) {
	dir := sampleDirectory()
	dir.skills[20] = &models.Skill{ID: 20, Name: "COBOL"}
	e := newTestEngine(t, dir, &stubIndex{})

	resp, err := e.SearchBySkill(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, models.EmptySearchResponse(), resp)
}

func TestSearchByDepartment(t *testing.T) {
	dir := sampleDirectory()
	dir.addUser(9, "Kenji", int64Ptr(1))
	e := newTestEngine(t, dir, &stubIndex{})

	resp, err := e.SearchByDepartment(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 3, resp.Total)

	ren, aiko, kenji := resp.Results[0], resp.Results[1], resp.Results[2]
	assert.Equal(t, int64(5), ren.UserID)
	assert.Equal(t, int64(8), ren.SkillID)

	// Aiko's lowest assignment id is 10 (skill 8), not 42.
	assert.Equal(t, int64(7), aiko.UserID)
	assert.Equal(t, int64(8), aiko.SkillID)
	require.NotNil(t, aiko.DepartmentName)
	assert.Equal(t, "Engineering", *aiko.DepartmentName)

	assert.Equal(t, int64(9), kenji.UserID)
	assert.Zero(t, kenji.SkillID)
	assert.Empty(t, kenji.SkillName)
	assert.Equal(t, 1.0, kenji.SimilarityScore)
}

func TestSearchByDepartment_SkipsAssignmentOfDeletedSkill(t *testing.T) {
	dir := sampleDirectory()
	dir.addUser(9, "Kenji", int64Ptr(1))
	dir.assign(1, 9, 999) // skill 999 does not exist
	dir.assign(2, 9, 3)
	e := newTestEngine(t, dir, &stubIndex{})

	resp, err := e.SearchByDepartment(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 3, resp.Total)

	kenji := resp.Results[2]
	assert.Equal(t, int64(9), kenji.UserID)
	assert.Equal(t, int64(3), kenji.SkillID)
	assert.Equal(t, "Go", kenji.SkillName)
}

func TestSearchByDepartment_NotFound(t *testing.T) {
	e := newTestEngine(t, sampleDirectory(), &stubIndex{})

	resp, err := e.SearchByDepartment(context.Background(), 404)
	assert.ErrorIs(t, err, ErrDepartmentNotFound)
	assert.Nil(t, resp)
}

func TestSearchByDepartment_LookupError(t *testing.T) {
	dir := sampleDirectory()
	dir.fail["department:1"] = errBoom
	e := newTestEngine(t, dir, &stubIndex{})

	_, err := e.SearchByDepartment(context.Background(), 1)
	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrDepartmentNotFound)
}
