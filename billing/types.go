/*
Package billing provides the core monthly resource-billing engine.

PURPOSE:
  This package contains the domain types and algorithms for deriving a
  per-employee, per-month ledger of planned hours, actual hours, and billing
  amounts from a roster of consulting staff. Adjustments for leave days,
  mid-month exits, and replacement hires are resolved here.

KEY CONCEPTS IN THIS FILE (types.go):
  - Month: One of the twelve fixed month slots of a run
  - Deputation: Work-location classification driving billing factor and
    standard daily hours
  - EmployeeRecord: One parsed roster row (rate, deputation, known actuals)
  - AdjustmentSpec: Per-employee correction (none / exit / leave days),
    optionally carrying a replacement hire
  - WorkingDays: Per-month working-day calendar for the run
  - OutputRecord: The computed ledger row (12 monthly figures + totals)

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Totality: Parsing never fails - malformed numerics coerce to zero
  3. Immutability: OutputRecords are computed once per run, never mutated
  4. Neutral defaults: Unknown deputations degrade to factor 1.0 / 8h

USAGE:
  rec := billing.EmployeeRecord{Name: "A. Chen", Rate: decimal.NewFromInt(50)}
  out := billing.NewEngine(billing.UniformWorkingDays(21)).Run(billing.RunInput{
      Roster: []billing.EmployeeRecord{rec},
  })

SEE ALSO:
  - resolver.go: Per-month planned/actual resolution policy
  - engine.go: Per-employee orchestration and billing arithmetic
*/
package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONTHS - Fixed twelve-slot calendar of a run
// =============================================================================

// Month is a zero-based index into the twelve month slots of a run.
type Month int

const (
	Jan Month = iota
	Feb
	Mar
	Apr
	May
	Jun
	Jul
	Aug
	Sep
	Oct
	Nov
	Dec
)

var monthAbbrevs = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Months returns all twelve months in calendar order.
func Months() [12]Month {
	return [12]Month{Jan, Feb, Mar, Apr, May, Jun, Jul, Aug, Sep, Oct, Nov, Dec}
}

// String returns the canonical three-letter abbreviation (e.g. "Apr").
func (m Month) String() string {
	if m < Jan || m > Dec {
		return ""
	}
	return monthAbbrevs[m]
}

// FullName returns the full month name (e.g. "April").
func (m Month) FullName() string {
	if m < Jan || m > Dec {
		return ""
	}
	return monthNames[m]
}

// Valid reports whether m is one of the twelve month slots.
func (m Month) Valid() bool { return m >= Jan && m <= Dec }

// ParseMonth matches a token against full and abbreviated month names,
// case-insensitively. The bool result is false for unrecognized tokens.
func ParseMonth(token string) (Month, bool) {
	token = strings.TrimSpace(strings.ToLower(token))
	for i := range monthAbbrevs {
		if token == strings.ToLower(monthAbbrevs[i]) || token == strings.ToLower(monthNames[i]) {
			return Month(i), true
		}
	}
	return 0, false
}

// =============================================================================
// DEPUTATION - Work-location classification
// =============================================================================

// Deputation classifies where an employee works. It drives the billing
// factor and the standard hours per working day.
type Deputation string

const (
	Onsite    Deputation = "ONSITE"
	Offshore  Deputation = "OFFSHORE"
	Nearshore Deputation = "NEARSHORE"
)

// NormalizeDeputation upper-cases and trims a raw deputation cell. The result
// is not guaranteed to be one of the known classifications; Factor and
// HoursPerDay degrade to neutral defaults for anything else.
func NormalizeDeputation(raw string) Deputation {
	return Deputation(strings.ToUpper(strings.TrimSpace(raw)))
}

// Factor returns the billing multiplier for the classification.
// Unrecognized values use the neutral multiplier 1.0.
func (d Deputation) Factor() decimal.Decimal {
	switch d {
	case Offshore:
		return decimal.RequireFromString("0.88")
	case Onsite:
		return decimal.RequireFromString("0.95")
	case Nearshore:
		return decimal.RequireFromString("0.90")
	default:
		return decimal.NewFromInt(1)
	}
}

// HoursPerDay returns the standard working hours per day.
// Unrecognized values use the neutral default of 8 hours.
func (d Deputation) HoursPerDay() decimal.Decimal {
	switch d {
	case Onsite:
		return decimal.NewFromInt(8)
	case Offshore:
		return decimal.RequireFromString("8.75")
	case Nearshore:
		return decimal.NewFromInt(9)
	default:
		return decimal.NewFromInt(8)
	}
}

// =============================================================================
// EMPLOYEE RECORD - One parsed roster row
// =============================================================================

// EmployeeRecord is one row of the roster after the total parsing step.
// All numeric fields have already been coerced (malformed cells become zero),
// so downstream computation never deals with raw text.
type EmployeeRecord struct {
	ID         string // employee identifier column
	PPMID      string
	Name       string // the "Resource" column
	Project    string
	StartDate  string
	EndDate    string
	Status     string
	Rate       decimal.Decimal // "Average/Flat-lined Rate", >= 0 after coercion
	Deputation Deputation
	TSRCode    string // optional service-rate code, possibly suffixed ("102 B")

	// Actuals holds the month actuals present in the primary dataset.
	// Absence of a key means the month had no provided value.
	Actuals map[Month]decimal.Decimal
}

// =============================================================================
// ADJUSTMENTS - Per-employee corrections
// =============================================================================

// AdjustmentKind selects which adjustment variant is active.
type AdjustmentKind string

const (
	AdjustNone  AdjustmentKind = "none"
	AdjustExit  AdjustmentKind = "exit"
	AdjustLeave AdjustmentKind = "leave"
)

// AdjustmentSpec is the per-employee correction configured for a run.
// Exactly one variant is active; the Exit* fields are meaningful only for
// AdjustExit and the Leave* fields only for AdjustLeave. A replacement hire
// may be attached to an exit.
type AdjustmentSpec struct {
	Kind AdjustmentKind

	ExitMonth Month
	ExitDay   int
	ExitYear  int

	LeaveMonth Month
	LeaveDays  int

	Replacement *ReplacementSpec
}

// NoAdjustment returns a fresh spec with no correction active. Callers get
// an independent value each time; there is no shared default to mutate.
func NoAdjustment() AdjustmentSpec {
	return AdjustmentSpec{Kind: AdjustNone}
}

// ReplacementSpec describes a hire replacing an exited employee.
type ReplacementSpec struct {
	Name      string
	ID        string
	JoinMonth Month
	JoinDay   int
	JoinYear  int
}

// =============================================================================
// WORKING DAYS - Per-month calendar
// =============================================================================

// DefaultWorkingDays is the uniform fallback when no calendar is supplied.
const DefaultWorkingDays = 21

// WorkingDays maps each month slot to its working-day count for the run.
type WorkingDays [12]int

// UniformWorkingDays returns a calendar with the same count for every month.
func UniformWorkingDays(days int) WorkingDays {
	var wd WorkingDays
	for i := range wd {
		wd[i] = days
	}
	return wd
}

// Days returns the working-day count for a month.
func (w WorkingDays) Days(m Month) int {
	if !m.Valid() {
		return 0
	}
	return w[m]
}

// =============================================================================
// OUTPUT - Computed ledger rows
// =============================================================================

// MonthlyFigures holds the computed values for one employee/month pair.
// TSR is zero until the service-rate enrichment pass fills it in.
type MonthlyFigures struct {
	Planned decimal.Decimal
	Actual  decimal.Decimal
	Billing decimal.Decimal
	TSR     decimal.Decimal
}

// OutputRecord is one computed ledger row: the roster identity, twelve
// monthly figures, and the aggregate totals. A replacement hire produces a
// second OutputRecord sharing project lineage with the original.
type OutputRecord struct {
	Employee EmployeeRecord

	Monthly [12]MonthlyFigures

	TotalPlanned  decimal.Decimal
	TotalActual   decimal.Decimal
	Diff          decimal.Decimal // TotalPlanned - TotalActual, rounded
	Utilization   decimal.Decimal // percent, 0 when TotalPlanned is 0
	BillingAmount decimal.Decimal

	// UpdatedFromOverride is set when any month's actual came from the
	// secondary override source.
	UpdatedFromOverride bool

	// Service-rate enrichment results. Enriched is false until the TSR
	// pass has run for this record.
	Enriched   bool
	TSRName    string
	TotalTSR   decimal.Decimal
	DGM        decimal.Decimal
	DGMPercent decimal.Decimal
}

// =============================================================================
// COERCION - Never-throwing numeric parsing
// =============================================================================

// CoerceDecimal parses a cell into a decimal, defaulting to zero on any
// malformed input. This is the single coercion point for the whole engine;
// per the contract, numeric parsing never raises.
func CoerceDecimal(cell string) decimal.Decimal {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return decimal.Zero
	}
	// Tolerate thousands separators, which spreadsheets love to emit.
	cell = strings.ReplaceAll(cell, ",", "")
	d, err := decimal.NewFromString(cell)
	if err != nil {
		return decimal.Zero
	}
	return d
}
