/*
roster.go - Typed parsing of normalized datasets

PURPOSE:
  The explicit, total parsing step between tabular uploads and the typed
  engine input. Each roster row becomes an EmployeeRecord exactly once;
  numeric coercion happens here and nowhere else, and it never fails
  (malformed cells become zero per the ingestion contract).

SEE ALSO:
  - schema.go: Column normalization that must run first
  - billing/types.go: The record types built here
*/
package schema

import (
	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/dataset"
)

// ParseRoster converts a normalized, validated roster dataset into typed
// employee records. Cells absent from the dataset yield zero values; month
// actuals are captured only for months whose column holds a parseable
// non-empty value.
func ParseRoster(ds *dataset.Dataset) []billing.EmployeeRecord {
	records := make([]billing.EmployeeRecord, 0, len(ds.Rows))

	for i := range ds.Rows {
		rec := billing.EmployeeRecord{
			ID:         cell(ds, i, ColEmployeeID),
			PPMID:      cell(ds, i, ColPPMID),
			Name:       cell(ds, i, ColResource),
			Project:    cell(ds, i, ColProject),
			StartDate:  cell(ds, i, ColStartDate),
			EndDate:    cell(ds, i, ColEndDate),
			Status:     cell(ds, i, ColStatus),
			Rate:       billing.CoerceDecimal(cell(ds, i, ColRate)),
			Deputation: billing.NormalizeDeputation(cell(ds, i, ColDeputation)),
			TSRCode:    cell(ds, i, ColTSR),
			Actuals:    monthActuals(ds, i),
		}
		records = append(records, rec)
	}

	return records
}

// ParseOverrides extracts the secondary dataset's per-employee month actuals
// keyed by resource name. Rows without a resource name and cells without a
// parseable value are skipped; the secondary source only ever adds
// overrides, it cannot blank out a month.
func ParseOverrides(ds *dataset.Dataset) map[string]map[billing.Month]decimal.Decimal {
	overrides := make(map[string]map[billing.Month]decimal.Decimal)
	if !ds.HasColumn(ColResource) {
		return overrides
	}

	for i := range ds.Rows {
		name := cell(ds, i, ColResource)
		if name == "" {
			continue
		}
		actuals := monthActuals(ds, i)
		if len(actuals) > 0 {
			overrides[name] = actuals
		}
	}

	return overrides
}

// monthActuals collects the parseable "{Mon} Actual" values of one row.
func monthActuals(ds *dataset.Dataset, row int) map[billing.Month]decimal.Decimal {
	actuals := make(map[billing.Month]decimal.Decimal)
	for _, m := range billing.Months() {
		raw, ok := ds.Cell(row, MonthColumn(m, "Actual"))
		if !ok || raw == "" {
			continue
		}
		if d, err := decimal.NewFromString(raw); err == nil {
			actuals[m] = d
		}
	}
	return actuals
}

func cell(ds *dataset.Dataset, row int, col string) string {
	v, _ := ds.Cell(row, col)
	return v
}
