package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/billing-engine/api"
	"github.com/warp/billing-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	server := httptest.NewServer(api.NewRouter(api.NewHandler(store, log)))
	t.Cleanup(server.Close)
	return server
}

const rosterCSV = `Resource,Hexaware ID's,Rate,Deputation,TSR
Ana Chen,E-1001,50,OFFSHORE,101
Raj Patel,E-1002,40,ONSITE,102
`

const ratesCSV = `TSR Code,TSR Name,INR,MXN,USD
101,Core Platform,82000,1500,900
102,Data Services,64000,1000,750
`

// multipartBody builds a multipart request body from file parts and fields.
func multipartBody(t *testing.T, files map[string]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for field, content := range files {
		part, err := w.CreateFormFile(field, field+".csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for field, value := range fields {
		require.NoError(t, w.WriteField(field, value))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func postRun(t *testing.T, server *httptest.Server, files, fields map[string]string) *http.Response {
	t.Helper()
	body, contentType := multipartBody(t, files, fields)
	resp, err := http.Post(server.URL+"/api/runs", contentType, body)
	require.NoError(t, err)
	return resp
}

func decodeRun(t *testing.T, resp *http.Response) api.RunResponse {
	t.Helper()
	defer resp.Body.Close()
	var run api.RunResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	return run
}

// =============================================================================
// RUN ENDPOINT TESTS
// =============================================================================

func TestCreateRun_RosterOnly(t *testing.T) {
	// GIVEN: A minimal roster upload with no config
	// WHEN: POSTing a run
	// THEN: 200 with one row per employee and default-calendar figures

	server := newTestServer(t)

	resp := postRun(t, server, map[string]string{"roster": rosterCSV}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	run := decodeRun(t, resp)
	assert.NotEmpty(t, run.RunID)
	assert.False(t, run.Enriched)
	assert.Empty(t, run.Warnings)
	assert.Equal(t, 2, run.Summary.TotalEmployees)
	require.Len(t, run.Rows, 2)

	assert.Contains(t, run.Columns, "Resource")
	assert.Contains(t, run.Columns, "Jan Actual")
	assert.Contains(t, run.Columns, "TSR", "input carried a code column")
	assert.NotContains(t, run.Columns, "TSR Name", "un-enriched runs have no name column")
}

func TestCreateRun_MissingRoster_BadRequest(t *testing.T) {
	// GIVEN: A multipart request with no roster part
	// WHEN: POSTing a run
	// THEN: 400

	server := newTestServer(t)

	resp := postRun(t, server, nil, map[string]string{"config": "{}"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateRun_SchemaFailure_ListsColumns(t *testing.T) {
	// GIVEN: A roster missing the Deputation and rate columns
	// WHEN: POSTing a run
	// THEN: 400 with code schema_error naming both columns

	server := newTestServer(t)

	resp := postRun(t, server, map[string]string{"roster": "Resource\nAna Chen\n"}, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp api.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "schema_error", errResp.Code)
	assert.Contains(t, errResp.Error, "Deputation")
	assert.Contains(t, errResp.Error, "Average/Flat-lined Rate")
}

func TestCreateRun_WithRatesAndConfig_Enriched(t *testing.T) {
	// GIVEN: A roster, a rate table, and a tsr config
	// WHEN: POSTing a run
	// THEN: The response is enriched and carries the margin columns

	server := newTestServer(t)

	resp := postRun(t, server,
		map[string]string{"roster": rosterCSV, "rates": ratesCSV},
		map[string]string{"config": `{"tsr": {"offshore_country": "Mexico"}}`},
	)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	run := decodeRun(t, resp)
	assert.True(t, run.Enriched)
	assert.Contains(t, run.Columns, "TSR Name")
	assert.Contains(t, run.Columns, "%DGM")
	assert.Equal(t, 2, run.Summary.WithTSRData)
}

func TestCreateRun_BrokenRates_WarnsAndContinues(t *testing.T) {
	// GIVEN: A rate table missing its fixed columns
	// WHEN: POSTing a run with a tsr config
	// THEN: The run still succeeds un-enriched, with a warning

	server := newTestServer(t)

	resp := postRun(t, server,
		map[string]string{"roster": rosterCSV, "rates": "Wrong,Columns\n1,2\n"},
		map[string]string{"config": `{"tsr": {}}`},
	)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	run := decodeRun(t, resp)
	assert.False(t, run.Enriched)
	require.NotEmpty(t, run.Warnings)
	assert.Contains(t, run.Warnings[0], "service-rate")
}

func TestCreateRun_InvalidConfig_BadRequest(t *testing.T) {
	// GIVEN: A config with an out-of-range working-day default
	// WHEN: POSTing a run
	// THEN: 400

	server := newTestServer(t)

	resp := postRun(t, server,
		map[string]string{"roster": rosterCSV},
		map[string]string{"config": `{"working_days": {"default": 99}}`},
	)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateRun_StoredCalendarReference(t *testing.T) {
	// GIVEN: A saved 10-day calendar referenced by name
	// WHEN: POSTing a run with the calendar field
	// THEN: The planned hours reflect the stored calendar

	server := newTestServer(t)

	saveBody := `{"name": "short-year", "default": 10}`
	saveResp, err := http.Post(server.URL+"/api/calendars", "application/json", strings.NewReader(saveBody))
	require.NoError(t, err)
	saveResp.Body.Close()
	require.Equal(t, http.StatusCreated, saveResp.StatusCode)

	resp := postRun(t, server,
		map[string]string{"roster": rosterCSV},
		map[string]string{"calendar": "short-year"},
	)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	run := decodeRun(t, resp)
	janPlanned := cellByColumn(t, run, 0, "Jan Planned")
	assert.Equal(t, "87.5", janPlanned, "10 days x 8.75h for the OFFSHORE row")
}

func TestCreateRun_UnknownCalendarReference_BadRequest(t *testing.T) {
	// GIVEN: A calendar name that was never saved
	// WHEN: POSTing a run referencing it
	// THEN: 400

	server := newTestServer(t)

	resp := postRun(t, server,
		map[string]string{"roster": rosterCSV},
		map[string]string{"calendar": "nope"},
	)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// EXPORT ENDPOINT TESTS
// =============================================================================

func TestExportRun_CSV(t *testing.T) {
	// GIVEN: A processed run
	// WHEN: Fetching its CSV export
	// THEN: The download has the CSV content type and the projected header

	server := newTestServer(t)

	run := decodeRun(t, postRun(t, server, map[string]string{"roster": rosterCSV}, nil))

	resp, err := http.Get(fmt.Sprintf("%s/api/runs/%s/export?format=csv", server.URL, run.RunID))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "processed_output.csv")

	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(body.String(), "Hexaware ID's,PPM ID,Resource"))
}

func TestExportRun_XLSX(t *testing.T) {
	// GIVEN: A processed run
	// WHEN: Fetching its XLSX export
	// THEN: The download has the workbook content type and a non-empty body

	server := newTestServer(t)

	run := decodeRun(t, postRun(t, server, map[string]string{"roster": rosterCSV}, nil))

	resp, err := http.Get(fmt.Sprintf("%s/api/runs/%s/export?format=xlsx", server.URL, run.RunID))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")

	var body bytes.Buffer
	n, err := body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Greater(t, n, int64(0))
}

func TestExportRun_UnknownID_NotFound(t *testing.T) {
	// GIVEN: A run token that was never issued
	// WHEN: Fetching its export
	// THEN: 404

	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/runs/nope/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExportRun_UnknownFormat_BadRequest(t *testing.T) {
	// GIVEN: A processed run
	// WHEN: Requesting an unsupported format
	// THEN: 400

	server := newTestServer(t)

	run := decodeRun(t, postRun(t, server, map[string]string{"roster": rosterCSV}, nil))

	resp, err := http.Get(fmt.Sprintf("%s/api/runs/%s/export?format=pdf", server.URL, run.RunID))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// REFERENCE DATA AND METADATA TESTS
// =============================================================================

func TestCalendars_SaveListDelete(t *testing.T) {
	// GIVEN: A saved calendar
	// WHEN: Listing, then deleting, then listing again
	// THEN: The calendar appears once and then disappears

	server := newTestServer(t)

	saveBody := `{"name": "FY2026", "default": 21, "months": {"Dec": 18}}`
	saveResp, err := http.Post(server.URL+"/api/calendars", "application/json", strings.NewReader(saveBody))
	require.NoError(t, err)
	saveResp.Body.Close()
	require.Equal(t, http.StatusCreated, saveResp.StatusCode)

	listResp, err := http.Get(server.URL + "/api/calendars")
	require.NoError(t, err)
	var calendars []api.CalendarDTO
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&calendars))
	listResp.Body.Close()
	require.Len(t, calendars, 1)
	assert.Equal(t, "FY2026", calendars[0].Name)
	assert.Equal(t, 18, calendars[0].Days["Dec"])
	assert.Equal(t, 21, calendars[0].Days["Jan"])

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/calendars/FY2026", nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	listResp, err = http.Get(server.URL + "/api/calendars")
	require.NoError(t, err)
	calendars = nil
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&calendars))
	listResp.Body.Close()
	assert.Empty(t, calendars)
}

func TestRatePresets_SaveValidation(t *testing.T) {
	// GIVEN: A preset whose config names an unknown conversion method
	// WHEN: Saving
	// THEN: 400; a valid preset saves with 201

	server := newTestServer(t)

	bad := `{"name": "bad", "config": {"conversion_method": "osmosis"}}`
	resp, err := http.Post(server.URL+"/api/rate-presets", "application/json", strings.NewReader(bad))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	good := `{"name": "august", "config": {"offshore_country": "Poland", "rates": {"MXN": 0.058}}}`
	resp, err = http.Post(server.URL+"/api/rate-presets", "application/json", strings.NewReader(good))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestGetMeta(t *testing.T) {
	// GIVEN: A running server
	// WHEN: Fetching the metadata
	// THEN: The fixed choices and default rates are present

	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/meta")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var meta api.MetaDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&meta))
	assert.Contains(t, meta.OffshoreCountries, "Mexico")
	assert.Contains(t, meta.OffshoreCountries, "Philippines")
	assert.ElementsMatch(t, []string{"divide", "multiply"}, meta.ConversionMethods)
	assert.Equal(t, "0.012", meta.DefaultRates["INR"])
}

// =============================================================================
// HELPERS
// =============================================================================

// cellByColumn reads one cell of the response table by column name.
func cellByColumn(t *testing.T, run api.RunResponse, row int, column string) string {
	t.Helper()
	for i, col := range run.Columns {
		if col == column {
			require.Less(t, row, len(run.Rows))
			require.Less(t, i, len(run.Rows[row]))
			return run.Rows[row][i]
		}
	}
	t.Fatalf("column %q not found", column)
	return ""
}
