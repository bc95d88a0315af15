/*
enrich.go - Applying the service-rate table to computed records

PURPOSE:
  The optional post-pass over the billing engine's output. For each record
  it resolves a TSR code, looks up the local-currency amount for the
  record's billing country, converts to USD, applies the same charge to all
  twelve months, and derives the gross-margin figures:

    monthly TSR = round(localAmount x multiplier(currency), 2)
    Total TSR   = 12 x monthly TSR
    DGM         = BillingAmount - Total TSR
    %DGM        = round(100 x DGM / BillingAmount, 2), 0 when billing is 0

CODE RESOLUTION:
  The first populated candidate wins: the roster's TSR column, then the
  PPM ID column. Codes that do not start with an integer token simply score
  zero; nothing here aborts the run.

SEE ALSO:
  - rates.go: RateTable, exchange rates, country/currency mapping
  - billing/engine.go: Produces the records enriched here
*/
package tsr

import (
	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
)

// Config carries the user's enrichment choices for one run.
type Config struct {
	// OffshoreCountry is the billing country for OFFSHORE employees.
	OffshoreCountry string

	// Rates are the currency -> USD multipliers, already converted to the
	// multiply convention.
	Rates ExchangeRates
}

// Enrich fills the service-rate fields of every record in place. It always
// succeeds: records whose code cannot be resolved keep zero amounts and an
// empty name, which is exactly what the margin arithmetic expects.
func Enrich(records []billing.OutputRecord, table *RateTable, cfg Config) {
	for i := range records {
		enrichRecord(&records[i], table, cfg)
	}
}

func enrichRecord(rec *billing.OutputRecord, table *RateTable, cfg Config) {
	rec.Enriched = true

	monthly, name := monthlyCharge(rec.Employee, table, cfg)
	rec.TSRName = name

	total := decimal.Zero
	for _, m := range billing.Months() {
		rec.Monthly[m].TSR = monthly
		total = total.Add(monthly)
	}
	rec.TotalTSR = total

	rec.DGM = rec.BillingAmount.Sub(total)
	if rec.BillingAmount.IsZero() {
		rec.DGMPercent = decimal.Zero
	} else {
		rec.DGMPercent = rec.DGM.Div(rec.BillingAmount).Mul(decimal.NewFromInt(100)).Round(2)
	}
}

// monthlyCharge resolves the flat per-month USD charge for one employee.
// The service rate is not time-varying within a run.
func monthlyCharge(emp billing.EmployeeRecord, table *RateTable, cfg Config) (decimal.Decimal, string) {
	code := resolveCode(emp)
	if code == "" {
		return decimal.Zero, ""
	}

	row := table.Lookup(code)
	if row == nil {
		return decimal.Zero, ""
	}

	currency := CurrencyFor(CountryFor(emp.Deputation, cfg.OffshoreCountry))
	local, ok := row.Amounts[currency]
	if !ok {
		return decimal.Zero, row.Name
	}

	usd := local.Mul(cfg.Rates.Multiplier(currency)).Round(2)
	return usd, row.Name
}

// resolveCode returns the first populated code candidate for an employee.
func resolveCode(emp billing.EmployeeRecord) string {
	if emp.TSRCode != "" {
		return emp.TSRCode
	}
	return emp.PPMID
}
