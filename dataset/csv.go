/*
csv.go - Delimited text codec

PURPOSE:
  Reads and writes Dataset values as CSV. The column set of a billing run is
  dynamic (up to twelve pairs of month columns appear depending on the
  input), so the codec works on the ordered column list rather than struct
  tags.

READ BEHAVIOR:
  - First record is the header
  - Short rows are padded to the header width (ragged exports are common)
  - Long rows are allowed; extra cells beyond the header are dropped

SEE ALSO:
  - xlsx.go: Spreadsheet equivalent; both carry identical values
*/
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ReadCSV parses delimited text into a dataset.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // tolerate ragged rows

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read delimited input: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("input has no header row")
	}

	ds := New(records[0]...)
	for _, rec := range records[1:] {
		ds.Append(Row(rec))
	}
	return ds, nil
}

// WriteCSV writes the dataset as CSV, header first.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range d.Rows {
		if err := cw.Write([]string(row)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
