// Package table aggregates per-ticker records into a single result table
// and encodes it for download.
package table

import (
	"snapshotfetcher/internal/snapshot"
)

// Table is the result set of one batch. Columns is the union of every key seen
// across the records, in first-seen order with Ticker first; Rows follow
// record arrival order and have exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Summary counts successful and failed rows.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
}

// Aggregate builds the Table for records. Missing fields become empty cells.
func Aggregate(records []snapshot.Record) *Table {
	columns := []string{snapshot.KeyTicker}
	seen := map[string]struct{}{snapshot.KeyTicker: {}}

	for _, rec := range records {
		for _, key := range rec.Keys() {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			columns = append(columns, key)
		}
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = rec.Value(col)
		}
		rows = append(rows, row)
	}

	return &Table{Columns: columns, Rows: rows}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Summarize counts rows with and without an Error cell.
func (t *Table) Summarize() Summary {
	errCol := -1
	for i, col := range t.Columns {
		if col == snapshot.KeyError {
			errCol = i
			break
		}
	}

	s := Summary{Total: len(t.Rows)}
	for _, row := range t.Rows {
		if errCol >= 0 && row[errCol] != "" {
			s.Failed++
		}
	}
	s.Succeeded = s.Total - s.Failed
	return s
}
