/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Runs:
    RunResponse, RunSummaryDTO

  Reference data:
    CalendarDTO, SaveCalendarRequest, RatePresetDTO, SaveRatePresetRequest

  Metadata:
    MetaDTO (offshore countries, default rates - the form's dropdowns)

VALIDATION:
  Validation is done in handlers and the factory, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/config.go: RunConfigJSON, the run configuration shape
*/
package api

import (
	"time"

	"github.com/warp/billing-engine/store/sqlite"
)

// =============================================================================
// RUN TYPES
// =============================================================================

// RunResponse is returned after a run is processed. The ledger itself is
// carried as an ordered column list plus rows of rendered cells, exactly as
// the CSV/XLSX exports serialize it.
type RunResponse struct {
	RunID    string        `json:"run_id"`
	Columns  []string      `json:"columns"`
	Rows     [][]string    `json:"rows"`
	Summary  RunSummaryDTO `json:"summary"`
	Enriched bool          `json:"enriched"`
	Warnings []string      `json:"warnings,omitempty"`
}

// RunSummaryDTO carries the dashboard metrics for a run.
type RunSummaryDTO struct {
	TotalEmployees int    `json:"total_employees"`
	WithTSRData    int    `json:"with_tsr_data"`
	TotalTSR       string `json:"total_tsr"`
	TotalBilling   string `json:"total_billing"`
}

// =============================================================================
// REFERENCE DATA TYPES
// =============================================================================

// CalendarDTO represents a stored working-day calendar.
type CalendarDTO struct {
	Name      string         `json:"name"`
	Days      map[string]int `json:"days"`
	UpdatedAt string         `json:"updated_at,omitempty"`
}

// SaveCalendarRequest is the request to store a calendar.
type SaveCalendarRequest struct {
	Name    string         `json:"name"`
	Default int            `json:"default,omitempty"`
	Months  map[string]int `json:"months,omitempty"`
}

// RatePresetDTO represents a stored exchange-rate preset.
type RatePresetDTO struct {
	Name      string `json:"name"`
	Config    any    `json:"config"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// SaveRatePresetRequest is the request to store a preset. Config uses the
// same shape as the run configuration's "tsr" object.
type SaveRatePresetRequest struct {
	Name   string `json:"name"`
	Config any    `json:"config"`
}

// MetaDTO lists the fixed choices the adjustment/rate form needs.
type MetaDTO struct {
	OffshoreCountries []string          `json:"offshore_countries"`
	ConversionMethods []string          `json:"conversion_methods"`
	DefaultRates      map[string]string `json:"default_rates"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toCalendarDTO(cal sqlite.Calendar) CalendarDTO {
	days := make(map[string]int, 12)
	for i, d := range cal.Days {
		days[monthLabel(i)] = d
	}
	return CalendarDTO{
		Name:      cal.Name,
		Days:      days,
		UpdatedAt: cal.UpdatedAt.Format(time.RFC3339),
	}
}
