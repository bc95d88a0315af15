/*
resolver.go - Per-month planned/actual resolution policy

PURPOSE:
  Resolves the effective planned and actual hours for one employee/month
  pair. This is where the precedence rules live, and getting their order
  right is what makes the ledger correct.

PRECEDENCE (highest first):
  1. Override actual from the secondary dataset - used verbatim, flagged,
     and never modified by adjustments
  2. Actual present in the primary dataset - used verbatim, unflagged
  3. Policy-computed actual:
       no adjustment     -> full standard hours
       exit month        -> prorated by exit day
       after exit month  -> zero (planned also zero)
       leave month       -> prorated by remaining working days

  Planned is always the full standard value except after an exit, where both
  planned and actual are zeroed.

EDGE CASES:
  - A month with zero working days never divides by zero; prorated values
    degrade to zero
  - Replacement hires are resolved by a separate function over their own
    twelve-month timeline (zero before join, prorated join month, full after)

SEE ALSO:
  - engine.go: Calls ResolveMonth for each of the twelve months
  - types.go: AdjustmentSpec and ReplacementSpec definitions
*/
package billing

import "github.com/shopspring/decimal"

// Resolution is the outcome for one employee/month pair.
type Resolution struct {
	Planned      decimal.Decimal
	Actual       decimal.Decimal
	FromOverride bool
}

// ResolveMonth resolves effective planned and actual hours for one month.
//
// standard is the full month value (workingDays x hoursPerDay). primary is
// the actual supplied by the main dataset for this month, if any; override
// is the actual supplied by the secondary dataset, if any. Both are nil when
// absent. The function is pure: identical inputs give identical outputs.
func ResolveMonth(m Month, standard decimal.Decimal, workingDays int, adj AdjustmentSpec, primary, override *decimal.Decimal) Resolution {
	res := Resolution{Planned: standard}

	// Planned follows the exit timeline regardless of where actual comes
	// from: full through the exit month, zero afterwards.
	if adj.Kind == AdjustExit && m > adj.ExitMonth {
		res.Planned = decimal.Zero
	}

	// Rule 1: override source wins outright.
	if override != nil {
		res.Actual = *override
		res.FromOverride = true
		return res
	}

	// Rule 2: primary-dataset actual is used verbatim, no flag.
	if primary != nil {
		res.Actual = *primary
		return res
	}

	// Rule 3: no provided actual, compute from policy.
	res.Actual = policyActual(m, standard, workingDays, adj)
	return res
}

// policyActual computes the actual hours when no dataset supplied a value.
func policyActual(m Month, standard decimal.Decimal, workingDays int, adj AdjustmentSpec) decimal.Decimal {
	switch adj.Kind {
	case AdjustExit:
		switch {
		case m == adj.ExitMonth:
			return prorate(standard, adj.ExitDay, workingDays)
		case m > adj.ExitMonth:
			return decimal.Zero
		}
	case AdjustLeave:
		if m == adj.LeaveMonth {
			return prorate(standard, workingDays-adj.LeaveDays, workingDays)
		}
	}
	return standard
}

// ResolveReplacementMonth resolves one month of a replacement hire's
// independent timeline: zero before the join month, prorated from the join
// day within it, full standard hours afterwards.
func ResolveReplacementMonth(m Month, standard decimal.Decimal, workingDays int, rep ReplacementSpec) Resolution {
	switch {
	case m < rep.JoinMonth:
		return Resolution{Planned: decimal.Zero, Actual: decimal.Zero}
	case m == rep.JoinMonth:
		return Resolution{
			Planned: standard,
			Actual:  prorate(standard, workingDays-(rep.JoinDay-1), workingDays),
		}
	default:
		return Resolution{Planned: standard, Actual: standard}
	}
}

// prorate scales standard hours by daysWorked/workingDays, rounded to two
// decimals. A zero-working-day month yields zero rather than dividing.
func prorate(standard decimal.Decimal, daysWorked, workingDays int) decimal.Decimal {
	if workingDays == 0 {
		return decimal.Zero
	}
	ratio := decimal.NewFromInt(int64(daysWorked)).Div(decimal.NewFromInt(int64(workingDays)))
	return standard.Mul(ratio).Round(2)
}
