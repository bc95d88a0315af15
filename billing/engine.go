/*
engine.go - Per-employee billing orchestration

PURPOSE:
  Runs the twelve-month loop for every roster row: resolves each month via
  the resolver, derives billing amounts, accumulates totals, and emits one
  OutputRecord per employee (plus one per replacement hire).

BILLING ARITHMETIC:
  standard  = workingDays(month) x hoursPerDay(deputation)
  billing   = round(actual x factor(deputation) x rate, 2)
  diff      = round(totalPlanned - totalActual, 2)
  util%     = round(100 x totalActual / totalPlanned, 2), 0 when planned = 0
  amount    = round(totalActual x factor x rate, 2)

DETERMINISM:
  The run is a pure function of its inputs. Identical inputs produce
  identical outputs; there is no shared state between runs.

EXIT SIDE EFFECTS:
  An exited employee's record is marked "Inactive" and its end date is set
  from the exit year/month/day triple. Invalid calendar triples leave the
  date blank instead of failing the run; the same applies to a replacement
  hire's start date.

SEE ALSO:
  - resolver.go: Month-level precedence policy
  - types.go: Input and output record definitions
*/
package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RUN INPUT
// =============================================================================

// RunInput gathers everything one engine invocation consumes.
type RunInput struct {
	Roster []EmployeeRecord

	// Adjustments is keyed by resource name. Employees without an entry
	// get NoAdjustment.
	Adjustments map[string]AdjustmentSpec

	// Overrides holds actuals from the secondary dataset, keyed by
	// resource name then month. Values here win over everything else.
	Overrides map[string]map[Month]decimal.Decimal
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine computes the billing ledger for a working-day calendar.
type Engine struct {
	workingDays WorkingDays
}

// NewEngine creates an engine for the given calendar.
func NewEngine(wd WorkingDays) *Engine {
	return &Engine{workingDays: wd}
}

// Run computes one OutputRecord per roster row, in roster order, appending a
// second record immediately after any employee whose adjustment carries a
// replacement hire.
func (e *Engine) Run(in RunInput) []OutputRecord {
	out := make([]OutputRecord, 0, len(in.Roster))

	for _, emp := range in.Roster {
		adj, ok := in.Adjustments[emp.Name]
		if !ok {
			adj = NoAdjustment()
		}

		rec := e.computeEmployee(emp, adj, in.Overrides[emp.Name])
		out = append(out, rec)

		if adj.Kind == AdjustExit && adj.Replacement != nil {
			out = append(out, e.computeReplacement(emp, *adj.Replacement))
		}
	}

	return out
}

// computeEmployee runs the twelve-month loop for one roster row.
func (e *Engine) computeEmployee(emp EmployeeRecord, adj AdjustmentSpec, overrides map[Month]decimal.Decimal) OutputRecord {
	rec := OutputRecord{Employee: emp}

	if adj.Kind == AdjustExit {
		rec.Employee.Status = "Inactive"
		if date, ok := calendarDate(adj.ExitYear, adj.ExitMonth, adj.ExitDay); ok {
			rec.Employee.EndDate = date
		}
	}

	factor := emp.Deputation.Factor()
	hoursPerDay := emp.Deputation.HoursPerDay()

	totalPlanned := decimal.Zero
	totalActual := decimal.Zero

	for _, m := range Months() {
		days := e.workingDays.Days(m)
		standard := decimal.NewFromInt(int64(days)).Mul(hoursPerDay)

		var primary *decimal.Decimal
		if v, ok := emp.Actuals[m]; ok {
			primary = &v
		}
		var override *decimal.Decimal
		if v, ok := overrides[m]; ok {
			override = &v
		}

		res := ResolveMonth(m, standard, days, adj, primary, override)
		if res.FromOverride {
			rec.UpdatedFromOverride = true
		}

		rec.Monthly[m] = MonthlyFigures{
			Planned: res.Planned,
			Actual:  res.Actual,
			Billing: res.Actual.Mul(factor).Mul(emp.Rate).Round(2),
		}

		totalPlanned = totalPlanned.Add(res.Planned)
		totalActual = totalActual.Add(res.Actual)
	}

	fillTotals(&rec, totalPlanned, totalActual, factor, emp.Rate)
	return rec
}

// computeReplacement runs the independent twelve-month loop for a
// replacement hire. The record shares project lineage and the original end
// date, but carries its own identity, start date, and monthly figures.
func (e *Engine) computeReplacement(departed EmployeeRecord, rep ReplacementSpec) OutputRecord {
	emp := departed
	emp.Name = rep.Name
	emp.ID = rep.ID
	emp.Status = "Active"
	emp.Actuals = nil
	if date, ok := calendarDate(rep.JoinYear, rep.JoinMonth, rep.JoinDay); ok {
		emp.StartDate = date
	} else {
		emp.StartDate = ""
	}

	rec := OutputRecord{Employee: emp}

	factor := emp.Deputation.Factor()
	hoursPerDay := emp.Deputation.HoursPerDay()

	totalPlanned := decimal.Zero
	totalActual := decimal.Zero

	for _, m := range Months() {
		days := e.workingDays.Days(m)
		standard := decimal.NewFromInt(int64(days)).Mul(hoursPerDay)

		res := ResolveReplacementMonth(m, standard, days, rep)

		rec.Monthly[m] = MonthlyFigures{
			Planned: res.Planned,
			Actual:  res.Actual,
			Billing: res.Actual.Mul(factor).Mul(emp.Rate).Round(2),
		}

		totalPlanned = totalPlanned.Add(res.Planned)
		totalActual = totalActual.Add(res.Actual)
	}

	fillTotals(&rec, totalPlanned, totalActual, factor, emp.Rate)
	return rec
}

// fillTotals derives the aggregate block shared by both record kinds.
func fillTotals(rec *OutputRecord, totalPlanned, totalActual, factor, rate decimal.Decimal) {
	rec.TotalPlanned = totalPlanned
	rec.TotalActual = totalActual
	rec.Diff = totalPlanned.Sub(totalActual).Round(2)

	if totalPlanned.IsZero() {
		rec.Utilization = decimal.Zero
	} else {
		rec.Utilization = totalActual.Div(totalPlanned).Mul(decimal.NewFromInt(100)).Round(2)
	}

	rec.BillingAmount = totalActual.Mul(factor).Mul(rate).Round(2)
}

// calendarDate formats a year/month/day triple as YYYY-MM-DD, reporting
// false for triples that do not name a real calendar date (e.g. Feb 30).
func calendarDate(year int, month Month, day int) (string, bool) {
	if year == 0 || !month.Valid() || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, time.Month(month+1), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month+1) || t.Day() != day {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, int(month)+1, day), true
}
