package problems

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Column is a sortable column of the problem table.
type Column string

const (
	ColumnNone       Column = ""
	ColumnDifficulty Column = "difficulty"
	ColumnTitle      Column = "title"
	ColumnFrequency  Column = "frequency"
	ColumnAcceptance Column = "acceptance"
)

// ParseColumn validates a column name. Empty input means no sort.
func ParseColumn(raw string) (Column, error) {
	c := Column(strings.ToLower(strings.TrimSpace(raw)))
	switch c {
	case ColumnNone, ColumnDifficulty, ColumnTitle, ColumnFrequency, ColumnAcceptance:
		return c, nil
	}
	return ColumnNone, fmt.Errorf("unknown sort column %q", raw)
}

// Sort returns a new slice ordered by column. Ties keep their input order.
// ColumnNone and unknown columns return an unchanged copy.
func Sort(records []Record, column Column, ascending bool) []Record {
	out := slices.Clone(records)
	compare := comparator(column)
	if compare == nil {
		return out
	}
	slices.SortStableFunc(out, func(a, b Record) int {
		if ascending {
			return compare(a, b)
		}
		return compare(b, a)
	})
	return out
}

func comparator(column Column) func(a, b Record) int {
	switch column {
	case ColumnDifficulty:
		return func(a, b Record) int { return cmp.Compare(a.Difficulty.Rank(), b.Difficulty.Rank()) }
	case ColumnTitle:
		return func(a, b Record) int { return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)) }
	case ColumnFrequency:
		return func(a, b Record) int { return cmp.Compare(a.Frequency, b.Frequency) }
	case ColumnAcceptance:
		return func(a, b Record) int { return cmp.Compare(a.AcceptanceRate, b.AcceptanceRate) }
	default:
		return nil
	}
}

// SortState is the column/direction pair driven by header clicks.
type SortState struct {
	Column    Column `json:"column,omitempty"`
	Ascending bool   `json:"ascending"`
}

// Toggle applies a click on column: the active column flips direction,
// any other column becomes active ascending.
func (s SortState) Toggle(column Column) SortState {
	if s.Column == column && column != ColumnNone {
		return SortState{Column: column, Ascending: !s.Ascending}
	}
	return SortState{Column: column, Ascending: true}
}
