package export_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/export"
	"github.com/warp/billing-engine/schema"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleRecord() billing.OutputRecord {
	rec := billing.OutputRecord{
		Employee: billing.EmployeeRecord{
			ID: "E-1001", PPMID: "102", Name: "Ana Chen", Project: "Atlas Migration",
			StartDate: "2024-01-02", Status: "Active",
			Rate: dec("52.5"), Deputation: billing.Offshore, TSRCode: "102 B",
		},
		TotalPlanned:  dec("2205"),
		TotalActual:   dec("2100.5"),
		Diff:          dec("104.5"),
		Utilization:   dec("95.26"),
		BillingAmount: dec("97043.1"),
	}
	for _, m := range billing.Months() {
		rec.Monthly[m] = billing.MonthlyFigures{
			Planned: dec("183.75"),
			Actual:  dec("183.75"),
			Billing: dec("8489.53"),
		}
	}
	return rec
}

// =============================================================================
// COLUMN LAYOUT TESTS
// =============================================================================

func TestProject_PlainColumnOrder(t *testing.T) {
	// GIVEN: An un-enriched run whose input carried a TSR column
	// WHEN: Projecting
	// THEN: Identity columns, the raw code, twelve 3-column month blocks,
	//       then the totals block, in that exact order

	ds := export.Project([]billing.OutputRecord{sampleRecord()}, export.Options{IncludeRawCode: true})

	require.Len(t, ds.Columns, 9+1+12*3+6)

	assert.Equal(t, schema.ColEmployeeID, ds.Columns[0])
	assert.Equal(t, schema.ColDeputation, ds.Columns[8])
	assert.Equal(t, schema.ColTSR, ds.Columns[9])
	assert.Equal(t, "Jan Planned", ds.Columns[10])
	assert.Equal(t, "Jan Actual", ds.Columns[11])
	assert.Equal(t, "Jan Billing", ds.Columns[12])
	assert.Equal(t, "Feb Planned", ds.Columns[13])
	assert.Equal(t, "Dec Billing", ds.Columns[45])
	assert.Equal(t, []string{
		"Total Planned Hrs", "Total Actual Hrs", "Total Planned Vs Actual Diff",
		"Utilization %", "Billing Amount", "Updated From CSV2",
	}, ds.Columns[46:])
}

func TestProject_EnrichedColumnOrder(t *testing.T) {
	// GIVEN: An enriched run
	// WHEN: Projecting
	// THEN: TSR Code/Name follow the identity block, each month block gains
	//       a TSR column, and the margin block closes the row

	ds := export.Project([]billing.OutputRecord{sampleRecord()}, export.Options{Enriched: true})

	require.Len(t, ds.Columns, 9+2+12*4+6+3)

	assert.Equal(t, "TSR Code", ds.Columns[9])
	assert.Equal(t, "TSR Name", ds.Columns[10])
	assert.Equal(t, "Jan Planned", ds.Columns[11])
	assert.Equal(t, "Jan TSR", ds.Columns[14])
	assert.Equal(t, "Feb Planned", ds.Columns[15])
	assert.Equal(t, []string{"Total TSR", "DGM", "%DGM"}, ds.Columns[len(ds.Columns)-3:])
}

func TestProject_NoRawCode_OmitsTSRColumn(t *testing.T) {
	// GIVEN: An un-enriched run whose input had no TSR column
	// WHEN: Projecting
	// THEN: No TSR column appears at all

	ds := export.Project([]billing.OutputRecord{sampleRecord()}, export.Options{})

	assert.False(t, ds.HasColumn(schema.ColTSR))
	assert.Equal(t, "Jan Planned", ds.Columns[9])
}

// =============================================================================
// CELL FORMATTING TESTS
// =============================================================================

func TestProject_CellFormatting(t *testing.T) {
	// GIVEN: Integral hours, fractional hours, and money values
	// WHEN: Projecting
	// THEN: Hours drop trailing zeros, money always carries two decimals

	ds := export.Project([]billing.OutputRecord{sampleRecord()}, export.Options{IncludeRawCode: true})
	require.Len(t, ds.Rows, 1)

	name, _ := ds.Cell(0, schema.ColResource)
	assert.Equal(t, "Ana Chen", name)

	rawCode, _ := ds.Cell(0, schema.ColTSR)
	assert.Equal(t, "102 B", rawCode)

	planned, _ := ds.Cell(0, "Jan Planned")
	assert.Equal(t, "183.75", planned)

	totalPlanned, _ := ds.Cell(0, "Total Planned Hrs")
	assert.Equal(t, "2205", totalPlanned, "integral hours render without decimals")

	billingCell, _ := ds.Cell(0, "Jan Billing")
	assert.Equal(t, "8489.53", billingCell)

	amount, _ := ds.Cell(0, "Billing Amount")
	assert.Equal(t, "97043.10", amount, "money always carries two decimals")

	flag, _ := ds.Cell(0, "Updated From CSV2")
	assert.Equal(t, "No", flag)
}

func TestProject_OverrideFlagRendered(t *testing.T) {
	// GIVEN: A record whose actuals came from the override source
	// WHEN: Projecting
	// THEN: The provenance column reads "Yes"

	rec := sampleRecord()
	rec.UpdatedFromOverride = true

	ds := export.Project([]billing.OutputRecord{rec}, export.Options{})

	flag, _ := ds.Cell(0, "Updated From CSV2")
	assert.Equal(t, "Yes", flag)
}

func TestProject_EnrichedCells(t *testing.T) {
	// GIVEN: An enriched record with service-rate figures
	// WHEN: Projecting
	// THEN: The TSR, margin, and name cells are rendered

	rec := sampleRecord()
	rec.Enriched = true
	rec.TSRName = "Data Services"
	rec.TotalTSR = dec("1044")
	rec.DGM = dec("95999.1")
	rec.DGMPercent = dec("98.92")
	for _, m := range billing.Months() {
		rec.Monthly[m].TSR = dec("87")
	}

	ds := export.Project([]billing.OutputRecord{rec}, export.Options{Enriched: true})

	tsrName, _ := ds.Cell(0, "TSR Name")
	assert.Equal(t, "Data Services", tsrName)

	janTSR, _ := ds.Cell(0, "Jan TSR")
	assert.Equal(t, "87.00", janTSR)

	totalTSR, _ := ds.Cell(0, "Total TSR")
	assert.Equal(t, "1044.00", totalTSR)

	dgmPct, _ := ds.Cell(0, "%DGM")
	assert.Equal(t, "98.92", dgmPct)
}

func TestProject_RecordOrderPreserved(t *testing.T) {
	// GIVEN: Two records in roster order
	// WHEN: Projecting
	// THEN: Rows come out in the same order

	first := sampleRecord()
	second := sampleRecord()
	second.Employee.Name = "Bo Diaz"

	ds := export.Project([]billing.OutputRecord{first, second}, export.Options{})

	require.Len(t, ds.Rows, 2)
	a, _ := ds.Cell(0, schema.ColResource)
	b, _ := ds.Cell(1, schema.ColResource)
	assert.Equal(t, "Ana Chen", a)
	assert.Equal(t, "Bo Diaz", b)
}
