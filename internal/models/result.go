package models

// SearchResult is one denormalised employee/skill match.
// DepartmentID and DepartmentName are either both set or both nil.
// Skill fields are empty only for department listings of users without skills.
type SearchResult struct {
	UserID          int64   `json:"user_id"`
	UserName        string  `json:"user_name"`
	SkillID         int64   `json:"skill_id,omitempty"`
	SkillName       string  `json:"skill_name,omitempty"`
	DepartmentID    *int64  `json:"department_id"`
	DepartmentName  *string `json:"department_name"`
	SimilarityScore float64 `json:"similarity_score"`
}

// SetDepartment fills both department fields from d, or clears both when d is nil.
func (r *SearchResult) SetDepartment(d *Department) {
	if d == nil {
		r.DepartmentID = nil
		r.DepartmentName = nil
		return
	}
	id, name := d.ID, d.Name
	r.DepartmentID = &id
	r.DepartmentName = &name
}

// SearchResponse is an ordered result list. Total always equals len(Results).
type SearchResponse struct {
	Results []*SearchResult `json:"results"`
	Total   int             `json:"total"`
}

// NewSearchResponse wraps results, never returning a nil Results slice.
func NewSearchResponse(results []*SearchResult) *SearchResponse {
	if results == nil {
		results = []*SearchResult{}
	}
	return &SearchResponse{Results: results, Total: len(results)}
}

// EmptySearchResponse returns {results: [], total: 0}.
func EmptySearchResponse() *SearchResponse {
	return NewSearchResponse(nil)
}
