package models

import (
	"strings"

	"github.com/hyperjump/chotto/pkg/utils"
)

// DefaultLimit is the number of neighbours requested when the caller gives no usable limit.
const DefaultLimit = 5

// MaxLimit caps caller supplied limits.
const MaxLimit = 100

// SearchQuery represents a free-text search request.
type SearchQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
	// Fuzzy enables typo-tolerant matching for keyword search.
	Fuzzy bool `json:"fuzzy,omitempty"`
}

// Normalize collapses whitespace in the query text and replaces a non-positive limit with defaultLimit.
// Limits above maxLimit are capped. Non-positive defaults fall back to DefaultLimit and MaxLimit.
func (q *SearchQuery) Normalize(defaultLimit, maxLimit int) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	q.Query = utils.CollapseSpaces(q.Query)
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
}

// IsEmpty reports whether there is no text to search for.
func (q *SearchQuery) IsEmpty() bool {
	return strings.TrimSpace(q.Query) == ""
}
