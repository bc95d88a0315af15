/*
Package schema normalizes uploaded datasets onto the canonical roster schema
and validates them before the engine runs.

PURPOSE:
  Real uploads name their columns inconsistently ("NAME", "Rate", "Proj
  Desc", "April Actual", "apr actual"...). This package maps the known
  synonyms onto one canonical schema, recognizes month columns, and fails
  fast - naming every missing mandatory column at once - when a dataset
  cannot be processed.

PIPELINE:
  1. Trim surrounding whitespace from column names
  2. Rename known synonyms to canonical names
  3. Rewrite month-bearing headers to "{Mon} Planned" / "{Mon} Actual"
  4. Validate mandatory columns (Resource, Deputation, rate)

ERROR HANDLING:
  Validation produces a *SchemaError listing every missing column, so the
  uploader fixes the file once instead of replaying the error one column at
  a time. Normalization itself never fails and never mutates its input.

SEE ALSO:
  - roster.go: Typed parsing of a normalized dataset into EmployeeRecords
  - dataset package: The tabular type this operates on
*/
package schema

import (
	"fmt"
	"strings"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/dataset"
)

// =============================================================================
// CANONICAL COLUMN NAMES
// =============================================================================

const (
	ColResource   = "Resource"
	ColEmployeeID = "Hexaware ID's"
	ColPPMID      = "PPM ID"
	ColProject    = "Project"
	ColStartDate  = "Start Date"
	ColEndDate    = "End date"
	ColStatus     = "Empl Status"
	ColRate       = "Average/Flat-lined Rate"
	ColDeputation = "Deputation"
	ColTSR        = "TSR"
)

// columnSynonyms maps the header variants seen in the wild onto canonical
// names. Exact matches only; month columns are handled separately.
var columnSynonyms = map[string]string{
	"NAME":            ColResource,
	"Name":            ColResource,
	"name":            ColResource,
	"RESOURCE":        ColResource,
	"NEW_EMP_ID":      ColEmployeeID,
	"Employee ID":     ColEmployeeID,
	"Rate":            ColRate,
	"RATE":            ColRate,
	"Average Rate":    ColRate,
	"DEPUTATION":      ColDeputation,
	"deputation":      ColDeputation,
	"Proj Desc":       ColProject,
	"PROJECT":         ColProject,
	"project":         ColProject,
	"STATUS":          ColStatus,
	"Status":          ColStatus,
	"Employee Status": ColStatus,
	"TSR code":        ColTSR,
	"TSR Code":        ColTSR,
	"tsr":             ColTSR,
}

// =============================================================================
// SCHEMA ERROR
// =============================================================================

// SchemaError reports every mandatory column missing from a dataset after
// normalization. It is fatal to a run.
type SchemaError struct {
	Dataset string // which upload, e.g. "roster" or "service rates"
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s is missing required column(s): %s",
		e.Dataset, strings.Join(e.Missing, ", "))
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// NormalizeOptions tunes the normalization pass.
type NormalizeOptions struct {
	// RecognizeMonths rewrites headers containing a month token plus
	// "planned"/"actual" to the canonical "{Mon} Planned"/"{Mon} Actual".
	RecognizeMonths bool
}

// Normalize returns a renamed copy of the dataset with canonical column
// names. The input is never mutated.
func Normalize(ds *dataset.Dataset, opts NormalizeOptions) *dataset.Dataset {
	mapping := make(map[string]string)
	for _, col := range ds.Columns {
		trimmed := strings.TrimSpace(col)
		target := trimmed
		if canonical, ok := columnSynonyms[trimmed]; ok {
			target = canonical
		} else if opts.RecognizeMonths {
			if rewritten, ok := recognizeMonthColumn(trimmed); ok {
				target = rewritten
			}
		}
		if target != col {
			mapping[col] = target
		}
	}
	return ds.Renamed(mapping)
}

// recognizeMonthColumn matches a header carrying a month token combined with
// a planned/actual marker, e.g. "April Actual" or "apr planned hrs".
func recognizeMonthColumn(header string) (string, bool) {
	lower := strings.ToLower(header)

	var kind string
	switch {
	case strings.Contains(lower, "planned"):
		kind = "Planned"
	case strings.Contains(lower, "actual"):
		kind = "Actual"
	default:
		return "", false
	}

	for _, token := range strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '/' || r == '.'
	}) {
		if m, ok := billing.ParseMonth(token); ok {
			return fmt.Sprintf("%s %s", m, kind), true
		}
	}
	return "", false
}

// MonthColumn returns the canonical header for a month/kind pair,
// e.g. MonthColumn(billing.Apr, "Actual") == "Apr Actual".
func MonthColumn(m billing.Month, kind string) string {
	return fmt.Sprintf("%s %s", m, kind)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidateOptions tunes validation strictness.
type ValidateOptions struct {
	// DatasetName labels the upload in error messages.
	DatasetName string

	// RequireMonths additionally demands at least one recognizable month
	// column (stricter validation used for the primary roster).
	RequireMonths bool
}

// Validate checks a normalized dataset for the mandatory roster columns,
// returning a *SchemaError naming every missing one.
func Validate(ds *dataset.Dataset, opts ValidateOptions) error {
	name := opts.DatasetName
	if name == "" {
		name = "dataset"
	}

	var missing []string
	for _, col := range []string{ColResource, ColDeputation, ColRate} {
		if !ds.HasColumn(col) {
			missing = append(missing, col)
		}
	}

	if opts.RequireMonths && !hasMonthColumn(ds) {
		missing = append(missing, "at least one month Planned/Actual column")
	}

	if len(missing) > 0 {
		return &SchemaError{Dataset: name, Missing: missing}
	}
	return nil
}

func hasMonthColumn(ds *dataset.Dataset) bool {
	for _, m := range billing.Months() {
		if ds.HasColumn(MonthColumn(m, "Planned")) || ds.HasColumn(MonthColumn(m, "Actual")) {
			return true
		}
	}
	return false
}
