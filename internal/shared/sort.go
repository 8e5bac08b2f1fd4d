package shared

import "sort"

// Comparators maps a sortable column name to a less function.
type Comparators[T any] map[string]func(a, b T) bool

// SortRows orders rows in place by the column named in filters, falling back to fallback
// when the column is unknown. Ties keep their loaded order.
func SortRows[T any](rows []T, filters ListFilters, by Comparators[T], fallback string) {
	less, ok := by[filters.SortBy]
	if !ok {
		less, ok = by[fallback]
		if !ok {
			return
		}
	}
	desc := filters.Descending()
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}
