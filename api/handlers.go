/*
handlers.go - HTTP API handlers for the billing analyzer

PURPOSE:
  Exposes the billing engine via REST API. Handles multipart upload
  decoding, JSON serialization, and delegates to the run pipeline and the
  reference-data store.

ENDPOINTS:
  Runs:
    POST   /api/runs                      Process an uploaded dataset
    GET    /api/runs/{id}/export          Download a result (csv or xlsx)

  Reference data:
    GET    /api/calendars                 List working-day calendars
    POST   /api/calendars                 Save a calendar
    DELETE /api/calendars/{name}          Delete a calendar
    GET    /api/rate-presets              List exchange-rate presets
    POST   /api/rate-presets              Save a preset
    DELETE /api/rate-presets/{name}       Delete a preset

  Metadata:
    GET    /api/meta                      Form choices (countries, methods)

UPLOAD CONTRACT (POST /api/runs, multipart/form-data):
  roster       required file (csv or xlsx)
  actuals      optional file with override actuals
  rates        optional service-rate table file
  config       optional JSON field (factory.RunConfigJSON)
  calendar     optional stored calendar name (fills working_days)
  rate_preset  optional stored preset name (fills the "tsr" object)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Schema/validation errors, malformed config
  - 404: Unknown run token or reference-data name
  - 500: Internal errors
  A service-rate failure is NOT an error: the run succeeds un-enriched and
  the response carries a warning.

SEE ALSO:
  - runner.go: The processing pipeline behind POST /api/runs
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/dataset"
	"github.com/warp/billing-engine/factory"
	"github.com/warp/billing-engine/schema"
	"github.com/warp/billing-engine/store/sqlite"
	"github.com/warp/billing-engine/tsr"
)

const maxUploadBytes = 32 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store

	runs *runCache
	log  *logrus.Logger
}

// NewHandler creates a new handler with the given store and logger.
func NewHandler(store *sqlite.Store, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Store: store,
		runs:  newRunCache(defaultCacheSize),
		log:   log,
	}
}

// =============================================================================
// RUN HANDLERS
// =============================================================================

// CreateRun processes one uploaded dataset and returns the computed ledger.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart request", err)
		return
	}

	roster, err := h.readUpload(r, "roster")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read roster upload", err)
		return
	}
	if roster == nil {
		writeError(w, http.StatusBadRequest, "Missing required roster file", nil)
		return
	}

	actuals, err := h.readUpload(r, "actuals")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read actuals upload", err)
		return
	}

	rates, err := h.readUpload(r, "rates")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read rates upload", err)
		return
	}

	cfg, err := h.buildRunConfig(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid run configuration", err)
		return
	}

	outcome, err := processRun(roster, actuals, rates, cfg)
	if err != nil {
		var schemaErr *schema.SchemaError
		if errors.As(err, &schemaErr) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error: schemaErr.Error(),
				Code:  "schema_error",
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to process run", err)
		return
	}

	for _, warning := range outcome.Warnings {
		h.log.WithField("run_id", outcome.ID).Warn(warning)
	}

	h.runs.Put(outcome)

	rows := make([][]string, len(outcome.Table.Rows))
	for i, row := range outcome.Table.Rows {
		rows[i] = row
	}

	writeJSON(w, http.StatusOK, RunResponse{
		RunID:    outcome.ID,
		Columns:  outcome.Table.Columns,
		Rows:     rows,
		Summary:  summarize(outcome.Records),
		Enriched: outcome.Enriched,
		Warnings: outcome.Warnings,
	})
}

// ExportRun streams a cached run in the requested format.
func (h *Handler) ExportRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	outcome := h.runs.Get(id)
	if outcome == nil {
		writeError(w, http.StatusNotFound, "Run not found or expired", nil)
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="processed_output.csv"`)
		if err := outcome.Table.WriteCSV(w); err != nil {
			h.log.WithError(err).Error("csv export failed")
		}
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="processed_output.xlsx"`)
		if err := outcome.Table.WriteXLSX(w); err != nil {
			h.log.WithError(err).Error("xlsx export failed")
		}
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown export format %q", format), nil)
	}
}

// readUpload parses one named file part, choosing the codec by extension.
// A missing part returns (nil, nil).
func (h *Handler) readUpload(r *http.Request, field string) (*dataset.Dataset, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	return decodeUpload(file, header.Filename)
}

func decodeUpload(file multipart.File, filename string) (*dataset.Dataset, error) {
	if strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		return dataset.ReadXLSX(file)
	}
	return dataset.ReadCSV(file)
}

// buildRunConfig decodes the config field and merges any referenced stored
// calendar or rate preset before handing off to the factory.
func (h *Handler) buildRunConfig(r *http.Request) (*factory.RunConfig, error) {
	var cj factory.RunConfigJSON
	if raw := r.FormValue("config"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cj); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	if name := r.FormValue("calendar"); name != "" && cj.WorkingDays == nil {
		cal, err := h.Store.GetCalendar(r.Context(), name)
		if err != nil {
			return nil, err
		}
		if cal == nil {
			return nil, fmt.Errorf("unknown calendar %q", name)
		}
		months := make(map[string]int, 12)
		for i, d := range cal.Days {
			months[monthLabel(i)] = d
		}
		cj.WorkingDays = &factory.WorkingDaysJSON{Months: months}
	}

	if name := r.FormValue("rate_preset"); name != "" && cj.TSR == nil {
		preset, err := h.Store.GetRatePreset(r.Context(), name)
		if err != nil {
			return nil, err
		}
		if preset == nil {
			return nil, fmt.Errorf("unknown rate preset %q", name)
		}
		var tc factory.TSRConfigJSON
		if err := json.Unmarshal(preset.Config, &tc); err != nil {
			return nil, fmt.Errorf("stored preset %q is malformed: %w", name, err)
		}
		cj.TSR = &tc
	}

	return factory.FromJSON(cj)
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// ListCalendars returns all stored working-day calendars.
func (h *Handler) ListCalendars(w http.ResponseWriter, r *http.Request) {
	calendars, err := h.Store.ListCalendars(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list calendars", err)
		return
	}

	dtos := make([]CalendarDTO, len(calendars))
	for i, cal := range calendars {
		dtos[i] = toCalendarDTO(cal)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveCalendar stores a calendar by name.
func (h *Handler) SaveCalendar(w http.ResponseWriter, r *http.Request) {
	var req SaveCalendarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Calendar name is required", nil)
		return
	}

	cfg, err := factory.FromJSON(factory.RunConfigJSON{
		WorkingDays: &factory.WorkingDaysJSON{Default: req.Default, Months: req.Months},
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid calendar", err)
		return
	}

	if err := h.Store.SaveCalendar(r.Context(), req.Name, cfg.WorkingDays); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save calendar", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCalendarDTO(sqlite.Calendar{Name: req.Name, Days: cfg.WorkingDays}))
}

// DeleteCalendar removes a calendar by name.
func (h *Handler) DeleteCalendar(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.Store.DeleteCalendar(r.Context(), name); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete calendar", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RATE PRESET HANDLERS
// =============================================================================

// ListRatePresets returns all stored exchange-rate presets.
func (h *Handler) ListRatePresets(w http.ResponseWriter, r *http.Request) {
	presets, err := h.Store.ListRatePresets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rate presets", err)
		return
	}

	dtos := make([]RatePresetDTO, len(presets))
	for i, p := range presets {
		var config any
		_ = json.Unmarshal(p.Config, &config)
		dtos[i] = RatePresetDTO{
			Name:      p.Name,
			Config:    config,
			UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveRatePreset stores a preset by name.
func (h *Handler) SaveRatePreset(w http.ResponseWriter, r *http.Request) {
	var req SaveRatePresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Preset name is required", nil)
		return
	}

	raw, err := json.Marshal(req.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid preset config", err)
		return
	}

	// Reject configs the factory would refuse at run time.
	var tc factory.TSRConfigJSON
	if err := json.Unmarshal(raw, &tc); err != nil {
		writeError(w, http.StatusBadRequest, "Preset config does not match the tsr schema", err)
		return
	}
	if _, err := factory.FromJSON(factory.RunConfigJSON{TSR: &tc}); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid preset config", err)
		return
	}

	if err := h.Store.SaveRatePreset(r.Context(), req.Name, raw); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rate preset", err)
		return
	}

	writeJSON(w, http.StatusCreated, RatePresetDTO{Name: req.Name, Config: req.Config})
}

// DeleteRatePreset removes a preset by name.
func (h *Handler) DeleteRatePreset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.Store.DeleteRatePreset(r.Context(), name); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete rate preset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// METADATA
// =============================================================================

// GetMeta returns the fixed form choices.
func (h *Handler) GetMeta(w http.ResponseWriter, r *http.Request) {
	defaults := make(map[string]string)
	for currency, rate := range tsr.DefaultExchangeRates() {
		defaults[currency] = rate.String()
	}

	writeJSON(w, http.StatusOK, MetaDTO{
		OffshoreCountries: tsr.OffshoreCountries,
		ConversionMethods: []string{string(tsr.ConvertDivide), string(tsr.ConvertMultiply)},
		DefaultRates:      defaults,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func monthLabel(i int) string {
	return billing.Month(i).String()
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
