/*
Package export projects computed billing records into the tabular output
schema.

PURPOSE:
  Column ordering is a formatting concern, not a computation concern. This
  package owns the fixed output column list - roster identity, the optional
  TSR code/name pair, twelve month blocks, the totals block, and the
  optional margin block - and renders OutputRecords into a Dataset that the
  CSV and XLSX codecs serialize with identical values.

COLUMN ORDER:
  Hexaware ID's, PPM ID, Resource, Project, Start Date, End date,
  Empl Status, Average/Flat-lined Rate, Deputation,
  [TSR Code, TSR Name,]                       (enriched runs)
  {Mon} Planned, {Mon} Actual, {Mon} Billing[, {Mon} TSR]  x12,
  Total Planned Hrs, Total Actual Hrs, Total Planned Vs Actual Diff,
  Utilization %, Billing Amount, Updated From CSV2
  [, Total TSR, DGM, %DGM]                    (enriched runs)

FORMATTING:
  Hour and percentage cells drop a trailing ".0" (21 days x 8h renders as
  "168", not "168.0"); money cells always carry two decimals. Both export
  formats receive the same rendered strings, which is what makes them
  byte-equivalent in value.

SEE ALSO:
  - dataset package: The codecs consuming the projected table
  - billing/types.go: OutputRecord, the input here
*/
package export

import (
	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/dataset"
	"github.com/warp/billing-engine/schema"
)

// Options tunes the projection.
type Options struct {
	// Enriched adds the TSR code/name pair, the per-month TSR column, and
	// the margin block. Set when the service-rate pass ran.
	Enriched bool

	// IncludeRawCode keeps the roster's TSR column in un-enriched output,
	// mirroring inputs that carried one.
	IncludeRawCode bool
}

// Project renders records into the fixed output schema, one row per record,
// in record order.
func Project(records []billing.OutputRecord, opts Options) *dataset.Dataset {
	ds := dataset.New(columns(opts)...)
	for i := range records {
		ds.Append(projectRow(&records[i], opts))
	}
	return ds
}

func columns(opts Options) []string {
	cols := []string{
		schema.ColEmployeeID, schema.ColPPMID, schema.ColResource, schema.ColProject,
		schema.ColStartDate, schema.ColEndDate, schema.ColStatus,
		schema.ColRate, schema.ColDeputation,
	}

	switch {
	case opts.Enriched:
		cols = append(cols, "TSR Code", "TSR Name")
	case opts.IncludeRawCode:
		cols = append(cols, schema.ColTSR)
	}

	for _, m := range billing.Months() {
		cols = append(cols,
			schema.MonthColumn(m, "Planned"),
			schema.MonthColumn(m, "Actual"),
			schema.MonthColumn(m, "Billing"),
		)
		if opts.Enriched {
			cols = append(cols, schema.MonthColumn(m, "TSR"))
		}
	}

	cols = append(cols,
		"Total Planned Hrs", "Total Actual Hrs", "Total Planned Vs Actual Diff",
		"Utilization %", "Billing Amount", "Updated From CSV2",
	)
	if opts.Enriched {
		cols = append(cols, "Total TSR", "DGM", "%DGM")
	}
	return cols
}

func projectRow(rec *billing.OutputRecord, opts Options) dataset.Row {
	emp := rec.Employee

	row := dataset.Row{
		emp.ID, emp.PPMID, emp.Name, emp.Project,
		emp.StartDate, emp.EndDate, emp.Status,
		formatHours(emp.Rate), string(emp.Deputation),
	}

	switch {
	case opts.Enriched:
		row = append(row, emp.TSRCode, rec.TSRName)
	case opts.IncludeRawCode:
		row = append(row, emp.TSRCode)
	}

	for _, m := range billing.Months() {
		fig := rec.Monthly[m]
		row = append(row,
			formatHours(fig.Planned),
			formatHours(fig.Actual),
			formatMoney(fig.Billing),
		)
		if opts.Enriched {
			row = append(row, formatMoney(fig.TSR))
		}
	}

	row = append(row,
		formatHours(rec.TotalPlanned),
		formatHours(rec.TotalActual),
		formatHours(rec.Diff),
		formatHours(rec.Utilization),
		formatMoney(rec.BillingAmount),
		yesNo(rec.UpdatedFromOverride),
	)
	if opts.Enriched {
		row = append(row,
			formatMoney(rec.TotalTSR),
			formatMoney(rec.DGM),
			formatHours(rec.DGMPercent),
		)
	}
	return row
}

// formatHours renders integral values without a decimal part and everything
// else with its significant decimals.
func formatHours(d decimal.Decimal) string {
	if d.IsInteger() {
		return d.Truncate(0).String()
	}
	return d.String()
}

// formatMoney always renders two decimals.
func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
