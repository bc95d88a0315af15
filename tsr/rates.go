/*
Package tsr provides the service-rate (TSR) enrichment pass.

PURPOSE:
  Adds a converted-to-USD monthly service-rate charge and gross-margin
  figures to computed billing records. The local-currency rate comes from an
  uploaded rate table keyed by TSR code; the currency is chosen by the
  employee's deputation (ONSITE->USA, NEARSHORE->India, OFFSHORE->the
  user-selected country) and converted through configurable exchange rates.

DEGRADATION:
  This pass never fails a run. Unmatched codes, unmapped countries, and
  unparseable amounts all degrade to zero amounts / empty names / USD, so a
  best-effort ledger is always produced. Only loading a structurally invalid
  rate table is an error, and the caller recovers from that by returning the
  un-enriched result with a warning.

KEY CONCEPTS IN THIS FILE (rates.go):
  - RateTable: The uploaded TSR code -> name + local-currency amounts table
  - ExchangeRates: Currency -> USD multipliers, built from either input
    convention ("divide": user supplies USD->local; "multiply": local->USD)
  - Country/currency mapping for the three deputation classes

SEE ALSO:
  - enrich.go: Applies the table to OutputRecords
  - schema package: Shares the SchemaError type for table validation
*/
package tsr

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/dataset"
	"github.com/warp/billing-engine/schema"
)

// =============================================================================
// COUNTRY AND CURRENCY MAPPING
// =============================================================================

// OffshoreCountries is the selectable set for the OFFSHORE deputation.
// ONSITE and NEARSHORE are fixed to USA and India respectively.
var OffshoreCountries = []string{"Mexico", "Philippines", "Poland", "Brazil", "Argentina", "Canada"}

var countryCurrency = map[string]string{
	"India":       "INR",
	"Mexico":      "MXN",
	"USA":         "USD",
	"Philippines": "PHP",
	"Poland":      "PLN",
	"Canada":      "CAD",
	"Brazil":      "BRL",
	"Argentina":   "ARS",
}

// CountryFor resolves the billing country for a deputation class.
func CountryFor(d billing.Deputation, offshoreCountry string) string {
	switch d {
	case billing.Onsite:
		return "USA"
	case billing.Nearshore:
		return "India"
	case billing.Offshore:
		return offshoreCountry
	default:
		return "USA"
	}
}

// CurrencyFor maps a country to its currency, defaulting to USD for any
// unmapped country.
func CurrencyFor(country string) string {
	if c, ok := countryCurrency[country]; ok {
		return c
	}
	return "USD"
}

// =============================================================================
// EXCHANGE RATES
// =============================================================================

// ConversionMethod selects how user-supplied rates are interpreted.
type ConversionMethod string

const (
	// ConvertDivide means the user supplied USD->local rates
	// (1 USD = X local); the multiplier is 1/X.
	ConvertDivide ConversionMethod = "divide"

	// ConvertMultiply means the user supplied local->USD multipliers
	// directly (1 local = X USD).
	ConvertMultiply ConversionMethod = "multiply"
)

// ExchangeRates maps currency codes to USD multipliers
// (1 unit of local currency = multiplier USD).
type ExchangeRates map[string]decimal.Decimal

// DefaultExchangeRates returns a fresh copy of the built-in multipliers.
func DefaultExchangeRates() ExchangeRates {
	return ExchangeRates{
		"INR": decimal.RequireFromString("0.012"),
		"MXN": decimal.RequireFromString("0.058"),
		"USD": decimal.NewFromInt(1),
	}
}

// Multiplier returns the USD multiplier for a currency, defaulting to 1
// for currencies with no configured rate.
func (r ExchangeRates) Multiplier(currency string) decimal.Decimal {
	if m, ok := r[currency]; ok {
		return m
	}
	return decimal.NewFromInt(1)
}

// ConvertRate derives the USD multiplier from a user-supplied rate under
// the given input convention. A zero divide-rate yields zero rather than
// dividing.
func ConvertRate(rate decimal.Decimal, method ConversionMethod) decimal.Decimal {
	if method == ConvertDivide {
		if rate.IsZero() {
			return decimal.Zero
		}
		return decimal.NewFromInt(1).Div(rate)
	}
	return rate
}

// =============================================================================
// RATE TABLE
// =============================================================================

// RateRow is one service-rate entry: a code, a display name, and the
// local-currency amounts keyed by currency code.
type RateRow struct {
	Code    string
	Name    string
	Amounts map[string]decimal.Decimal
}

// RateTable is the uploaded TSR table, loaded once per run and read-only
// thereafter.
type RateTable struct {
	rows       []RateRow
	currencies []string
}

// tableSynonyms covers the case/spacing variants of the two fixed columns.
var tableSynonyms = map[string]string{
	"TSR code": "TSR Code",
	"Tsr Code": "TSR Code",
	"tsr code": "TSR Code",
	"TSR name": "TSR Name",
	"Tsr Name": "TSR Name",
	"tsr name": "TSR Name",
}

// LoadRateTable builds a rate table from an uploaded dataset. Every column
// other than the two fixed ones is treated as a currency column. A missing
// fixed column is a *schema.SchemaError.
func LoadRateTable(ds *dataset.Dataset) (*RateTable, error) {
	ds.TrimColumns()
	ds = ds.Renamed(tableSynonyms)

	var missing []string
	for _, col := range []string{"TSR Code", "TSR Name"} {
		if !ds.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &schema.SchemaError{Dataset: "service-rate table", Missing: missing}
	}

	table := &RateTable{}
	for _, col := range ds.Columns {
		if col != "TSR Code" && col != "TSR Name" {
			table.currencies = append(table.currencies, col)
		}
	}

	for i := range ds.Rows {
		row := RateRow{Amounts: make(map[string]decimal.Decimal)}
		row.Code, _ = ds.Cell(i, "TSR Code")
		row.Name, _ = ds.Cell(i, "TSR Name")
		for _, cur := range table.currencies {
			raw, _ := ds.Cell(i, cur)
			if raw == "" {
				continue
			}
			if d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "")); err == nil {
				row.Amounts[cur] = d
			}
		}
		table.rows = append(table.rows, row)
	}

	return table, nil
}

// Currencies returns the currency columns present in the table.
func (t *RateTable) Currencies() []string {
	return append([]string(nil), t.currencies...)
}

// Lookup finds the row for a possibly-suffixed code like "102 B". The
// leading whitespace-delimited token must parse as an integer; matching is
// numeric first, then string equality. A miss returns nil, never an error.
func (t *RateTable) Lookup(code string) *RateRow {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}

	fields := strings.Fields(code)
	if len(fields) == 0 {
		return nil
	}
	numeric, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil
	}

	for i := range t.rows {
		if rowCode, err := strconv.Atoi(strings.TrimSpace(t.rows[i].Code)); err == nil && rowCode == numeric {
			return &t.rows[i]
		}
	}
	for i := range t.rows {
		if strings.TrimSpace(t.rows[i].Code) == strconv.Itoa(numeric) {
			return &t.rows[i]
		}
	}
	return nil
}
