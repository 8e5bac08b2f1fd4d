package shared

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDocumentNumberSequential(t *testing.T) {
	require.Equal(t, "GRR-2024-001", DocumentNumber(PrefixGRR, 2024, 0))
	require.Equal(t, "GRR-2024-002", DocumentNumber(PrefixGRR, 2024, 1))
	require.Equal(t, "QC-2025-010", DocumentNumber(PrefixInspection, 2025, 9))
	require.Equal(t, "MIR-2024-1000", DocumentNumber(PrefixMIR, 2024, 999))
	require.Equal(t, "PO-2024-", NumberPrefix(PrefixPO, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestMatchesSearch(t *testing.T) {
	require.True(t, MatchesSearch("", "anything"))
	require.True(t, MatchesSearch("   ", "anything"))
	require.True(t, MatchesSearch("bolt", "HEX BOLT M8"))
	require.True(t, MatchesSearch("grr-2024", "", "GRR-2024-001"))
	require.True(t, MatchesSearch("ÉCROU", "écrou hexagonal"))
	require.False(t, MatchesSearch("nut", "HEX BOLT M8", "P-100"))
}

func TestFilterRows(t *testing.T) {
	type row struct{ code, name string }
	rows := []row{{"V-001", "Acme Steel"}, {"V-002", "Bharat Forge"}, {"V-003", "acme castings"}}
	fields := func(r row) []string { return []string{r.code, r.name} }

	require.Len(t, FilterRows(rows, "", fields), 3)
	got := FilterRows(rows, "ACME", fields)
	require.Len(t, got, 2)
	require.Equal(t, "V-001", got[0].code)
	require.Equal(t, "V-003", got[1].code)
	require.Empty(t, FilterRows(rows, "tata", fields))
}

func TestPaginate(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5}
	page := Paginate(rows, ListFilters{Page: 2, PerPage: 2})
	require.Equal(t, []int{3, 4}, page.Items)
	require.Equal(t, 3, page.Pagination.TotalPages)

	beyond := Paginate(rows, ListFilters{Page: 9, PerPage: 2})
	require.Empty(t, beyond.Items)
	require.NotNil(t, beyond.Items)

	huge := Paginate(rows, ListFilters{Page: math.MaxInt64 / 10, PerPage: 20})
	require.Empty(t, huge.Items)
	require.Equal(t, math.MaxInt64/10, huge.Pagination.Page)

	empty := Paginate([]int(nil), ListFilters{})
	require.Equal(t, DefaultPerPage, empty.Pagination.PerPage)
	require.Equal(t, 0, empty.Pagination.TotalPages)
}

func TestFieldErrors(t *testing.T) {
	fe := FieldErrors{}
	require.NoError(t, fe.Err())
	fe.Required("name", " ")
	fe.Required("code", "V-1")
	fe.Add("address", "is required")
	err := fe.Err()
	require.True(t, errors.Is(err, ErrValidation))
	require.Equal(t, "validation failed: address is required; name is required", err.Error())
}

func TestSortRows(t *testing.T) {
	rows := []string{"b", "c", "a"}
	by := Comparators[string]{"name": func(a, b string) bool { return a < b }}

	SortRows(rows, ListFilters{SortBy: "name"}, by, "name")
	require.Equal(t, []string{"a", "b", "c"}, rows)

	SortRows(rows, ListFilters{SortBy: "unknown", SortDir: "desc"}, by, "name")
	require.Equal(t, []string{"c", "b", "a"}, rows)
}

func TestTransitions(t *testing.T) {
	type status string
	machine := Transitions[status]{"Pending": {"Issued", "Cancelled"}}

	require.NoError(t, machine.Check("Pending", "Issued"))
	err := machine.Check("Issued", "Pending")
	require.True(t, errors.Is(err, ErrInvalidState))
	require.Contains(t, err.Error(), "Issued -> Pending")
	require.True(t, machine.Terminal("Cancelled"))
	require.False(t, machine.Terminal("Pending"))
}
