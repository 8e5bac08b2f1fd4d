package shared

import (
	"strings"

	"golang.org/x/text/cases"
)

// MatchesSearch reports whether any field contains term, ignoring case.
// An empty term matches every row.
func MatchesSearch(term string, fields ...string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	folder := cases.Fold()
	needle := folder.String(term)
	for _, field := range fields {
		if field == "" {
			continue
		}
		if strings.Contains(folder.String(field), needle) {
			return true
		}
	}
	return false
}

// FilterRows keeps the rows whose searchable fields match term.
func FilterRows[T any](rows []T, term string, fields func(T) []string) []T {
	if strings.TrimSpace(term) == "" {
		return rows
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if MatchesSearch(term, fields(row)...) {
			out = append(out, row)
		}
	}
	return out
}
