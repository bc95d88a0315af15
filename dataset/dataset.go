/*
Package dataset provides the ordered-column tabular type the engine consumes
and produces.

PURPOSE:
  Uploaded rosters, override files, and service-rate tables all arrive as
  delimited text or spreadsheet workbooks. This package gives them one
  in-memory shape - named columns in a fixed order, string cells - so the
  rest of the system never touches a file format directly.

KEY CONCEPTS:
  - Dataset: Ordered column names plus rows of string cells
  - Row: One record, aligned positionally with the column list
  - Codecs: CSV (csv.go) and XLSX via excelize (xlsx.go)

DESIGN PRINCIPLES:
  1. Strings at the boundary: Cells stay text until the single typed
     parsing step at ingestion coerces them
  2. Order preserved: Column order is significant for export
  3. No mutation sharing: Rename and projection operations build copies

SEE ALSO:
  - csv.go: Delimited text codec
  - xlsx.go: Spreadsheet workbook codec (excelize)
  - schema package: Column normalization and validation on top of Dataset
*/
package dataset

import "strings"

// Row is one record, aligned positionally with the dataset's columns.
type Row []string

// Dataset is an ordered-column table of string cells.
type Dataset struct {
	Columns []string
	Rows    []Row
}

// New creates an empty dataset with the given column order.
func New(columns ...string) *Dataset {
	return &Dataset{Columns: append([]string(nil), columns...)}
}

// Append adds a row, padding or truncating it to the column count so every
// row stays aligned.
func (d *Dataset) Append(row Row) {
	aligned := make(Row, len(d.Columns))
	copy(aligned, row)
	d.Rows = append(d.Rows, aligned)
}

// ColumnIndex returns the position of a column, or -1 when absent.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the column exists.
func (d *Dataset) HasColumn(name string) bool {
	return d.ColumnIndex(name) >= 0
}

// Cell returns the trimmed cell at (row, column). The bool result is false
// when the column does not exist or the row is out of range.
func (d *Dataset) Cell(row int, column string) (string, bool) {
	idx := d.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(d.Rows) {
		return "", false
	}
	if idx >= len(d.Rows[row]) {
		return "", true
	}
	return strings.TrimSpace(d.Rows[row][idx]), true
}

// Renamed returns a copy of the dataset with columns renamed per the
// mapping. Unmapped columns keep their names; the input is not mutated.
func (d *Dataset) Renamed(mapping map[string]string) *Dataset {
	out := &Dataset{
		Columns: make([]string, len(d.Columns)),
		Rows:    make([]Row, len(d.Rows)),
	}
	for i, c := range d.Columns {
		if renamed, ok := mapping[c]; ok {
			out.Columns[i] = renamed
		} else {
			out.Columns[i] = c
		}
	}
	for i, r := range d.Rows {
		out.Rows[i] = append(Row(nil), r...)
	}
	return out
}

// TrimColumns strips surrounding whitespace from every column name in place.
func (d *Dataset) TrimColumns() {
	for i, c := range d.Columns {
		d.Columns[i] = strings.TrimSpace(c)
	}
}
