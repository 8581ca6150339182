// Package cli provides output helpers for the chotto command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperjump/chotto/internal/models"
	"github.com/hyperjump/chotto/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is the API response body, indented.
	OutputJSON SearchOutputFormat = "json"
	// OutputCompact is one tab-separated line per result, for piping into other tools.
	OutputCompact SearchOutputFormat = "compact"
)

// ParseOutputFormat maps a --format flag value to a format. Unknown values are an error.
func ParseOutputFormat(s string) (SearchOutputFormat, error) {
	switch f := SearchOutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON, OutputCompact:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or compact)", s)
	}
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	if response == nil {
		response = models.EmptySearchResponse()
	}
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	case OutputCompact:
		writeSearchResultsCompact(w, response)
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results\n\n", response.Total)
	for i, result := range response.Results {
		writeOneResult(w, i+1, result)
	}
}

func writeOneResult(w io.Writer, rank int, r *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "#%d | Score: %.4f\n", rank, r.SimilarityScore)
	fmt.Fprintf(w, "User: %s (id %d)\n", r.UserName, r.UserID)
	if r.SkillName != "" || r.SkillID != 0 {
		fmt.Fprintf(w, "Skill: %s (id %d)\n", utils.Truncate(r.SkillName, 80), r.SkillID)
	}
	fmt.Fprintf(w, "Department: %s\n", departmentLabel(r))
	fmt.Fprintln(w)
}

func writeSearchResultsCompact(w io.Writer, response *models.SearchResponse) {
	for _, r := range response.Results {
		dept := ""
		if r.DepartmentName != nil {
			dept = *r.DepartmentName
		}
		fmt.Fprintf(w, "%.4f\t%d\t%s\t%d\t%s\t%s\n",
			r.SimilarityScore, r.UserID, r.UserName, r.SkillID, r.SkillName, dept)
	}
}

func departmentLabel(r *models.SearchResult) string {
	if r.DepartmentID == nil || r.DepartmentName == nil {
		return "-"
	}
	return fmt.Sprintf("%s (id %d)", *r.DepartmentName, *r.DepartmentID)
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}
