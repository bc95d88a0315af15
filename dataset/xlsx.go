/*
xlsx.go - Spreadsheet workbook codec

PURPOSE:
  Reads and writes Dataset values as XLSX workbooks using excelize. Uploads
  are read from the first sheet; exports are written to a single sheet so
  the spreadsheet and the delimited export carry identical values.

SEE ALSO:
  - csv.go: Delimited equivalent
*/
package dataset

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExportSheetName is the sheet exports are written to.
const ExportSheetName = "Billing Analysis"

// ReadXLSX parses the first sheet of a workbook into a dataset.
func ReadXLSX(r io.Reader) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q has no header row", sheet)
	}

	ds := New(rows[0]...)
	for _, rec := range rows[1:] {
		ds.Append(Row(rec))
	}
	return ds, nil
}

// WriteXLSX writes the dataset to a single-sheet workbook.
func (d *Dataset) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", ExportSheetName)

	for i, col := range d.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to address header cell: %w", err)
		}
		if err := f.SetCellValue(ExportSheetName, cell, col); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for r, row := range d.Rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return fmt.Errorf("failed to address cell: %w", err)
			}
			if err := f.SetCellValue(ExportSheetName, cell, value); err != nil {
				return fmt.Errorf("failed to write row %d: %w", r+1, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
