package export

import (
	"sort"
	"strconv"

	"formexport/internal/model"
)

const (
	ColumnEntryID        = "Entry ID"
	ColumnSubmissionDate = "Submission Date"

	// DateLayout renders submission timestamps the way the form plugin stores them.
	DateLayout = "2006-01-02 15:04:05"
)

// Table is a pivoted form: one row per submission, one column per field name.
type Table struct {
	Header []string
	Rows   [][]string
	// Duplicates counts field values overwritten by a later value with the same
	// (entry, field name) pair.
	Duplicates int
}

// Pivot reshapes field rows into one row per entry, in first-appearance
// order, with the field columns sorted after the two fixed columns. Missing
// values stay empty; on a repeated field name the last value wins.
func Pivot(fields []model.SubmissionField) Table {
	names := make(map[string]struct{})
	for _, field := range fields {
		names[field.FieldName] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	header := append([]string{ColumnEntryID, ColumnSubmissionDate}, sorted...)
	column := make(map[string]int, len(sorted))
	for i, name := range sorted {
		column[name] = i + 2
	}

	var (
		rows       [][]string
		rowIndex   = make(map[int64]int)
		seen       = make(map[int64]map[string]struct{})
		duplicates int
	)
	for _, field := range fields {
		idx, ok := rowIndex[field.EntryID]
		if !ok {
			row := make([]string, len(header))
			row[0] = strconv.FormatInt(field.EntryID, 10)
			row[1] = field.CreatedAt.Format(DateLayout)
			idx = len(rows)
			rows = append(rows, row)
			rowIndex[field.EntryID] = idx
			seen[field.EntryID] = make(map[string]struct{})
		}

		if _, dup := seen[field.EntryID][field.FieldName]; dup {
			duplicates++
		}
		seen[field.EntryID][field.FieldName] = struct{}{}
		rows[idx][column[field.FieldName]] = field.FieldValue
	}

	return Table{Header: header, Rows: rows, Duplicates: duplicates}
}
