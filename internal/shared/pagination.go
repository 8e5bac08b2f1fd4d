package shared

import "math"

// Default listing limits.
const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPerPage     = 200
)

// ListFilters represents the common list query parameters.
type ListFilters struct {
	Page    int
	PerPage int
	Search  string
	Status  string
	SortBy  string
	SortDir string
}

// Descending reports whether rows should be sorted descending.
func (f ListFilters) Descending() bool {
	return f.SortDir == "desc"
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page <= 0 {
		page = DefaultPage
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Page is one page of rows plus its metadata.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// Paginate slices rows according to the filters.
func Paginate[T any](rows []T, filters ListFilters) Page[T] {
	meta := NewPagination(filters.Page, filters.PerPage, len(rows))
	// Pages past the last one are empty; checking before multiplying keeps huge page numbers from overflowing.
	start := len(rows)
	if meta.Page-1 < meta.TotalPages {
		start = (meta.Page - 1) * meta.PerPage
	}
	end := start + meta.PerPage
	if end > len(rows) {
		end = len(rows)
	}
	items := rows[start:end]
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Pagination: meta}
}
