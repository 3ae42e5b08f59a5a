package report

import (
	"sort"
	"strings"

	"github.com/fixturelab/plumbline/internal/storage"
)

// DefaultUnitColumn is the unit column name assumed for an empty dataset.
const DefaultUnitColumn = "Unit"

// unitColumnKeywords is the detection preference order.
var unitColumnKeywords = []string{"unit", "apt", "apartment", "room", "bldg/unit"}

// DetectUnitColumn picks the column holding unit identifiers: the first
// column matching each keyword (case-insensitive substring) in preference
// order, else the first column, else DefaultUnitColumn for an empty set.
func DetectUnitColumn(columns []string) string {
	for _, kw := range unitColumnKeywords {
		for _, c := range columns {
			if strings.Contains(strings.ToLower(c), kw) {
				return c
			}
		}
	}
	if len(columns) > 0 {
		return columns[0]
	}
	return DefaultUnitColumn
}

// Columns returns a row's column names sorted alphabetically. Rows are JSON
// objects, so the source column order is not recoverable; sorting keeps
// detection deterministic.
func Columns(row storage.Row) []string {
	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
