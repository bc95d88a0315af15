/*
runner.go - One-shot run orchestration

PURPOSE:
  Drives a single billing run end to end: normalize and validate the
  uploads, parse them into typed records, run the engine, optionally apply
  the service-rate pass, and project the result into the output table.

FAILURE POLICY:
  - A roster schema failure aborts the run (the caller gets the
    SchemaError naming every missing column)
  - A service-rate failure NEVER aborts the run: the outcome carries the
    un-enriched ledger plus a warning describing what went wrong

DETERMINISM:
  The outcome's dataset is a pure function of the uploads and the config;
  only the run token differs between invocations.

SEE ALSO:
  - handlers.go: HTTP entry point and upload decoding
  - billing/engine.go, tsr/enrich.go: The passes orchestrated here
*/
package api

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/dataset"
	"github.com/warp/billing-engine/export"
	"github.com/warp/billing-engine/factory"
	"github.com/warp/billing-engine/schema"
	"github.com/warp/billing-engine/tsr"
)

// RunOutcome is the in-memory result of one processed run.
type RunOutcome struct {
	ID       string
	Table    *dataset.Dataset
	Records  []billing.OutputRecord
	Enriched bool
	Warnings []string
}

// processRun executes the whole pipeline. actuals and rates may be nil.
func processRun(roster, actuals, rates *dataset.Dataset, cfg *factory.RunConfig) (*RunOutcome, error) {
	normalized := schema.Normalize(roster, schema.NormalizeOptions{RecognizeMonths: true})
	if err := schema.Validate(normalized, schema.ValidateOptions{DatasetName: "roster"}); err != nil {
		return nil, err
	}

	input := billing.RunInput{
		Roster:      schema.ParseRoster(normalized),
		Adjustments: cfg.Adjustments,
	}

	if actuals != nil {
		secondary := schema.Normalize(actuals, schema.NormalizeOptions{RecognizeMonths: true})
		input.Overrides = schema.ParseOverrides(secondary)
	}

	records := billing.NewEngine(cfg.WorkingDays).Run(input)

	outcome := &RunOutcome{
		ID:      uuid.NewString(),
		Records: records,
	}

	if rates != nil && cfg.TSR != nil {
		table, err := tsr.LoadRateTable(rates)
		if err != nil {
			outcome.Warnings = append(outcome.Warnings,
				fmt.Sprintf("service-rate processing failed, continuing without TSR data: %v", err))
		} else {
			tsr.Enrich(records, table, *cfg.TSR)
			outcome.Enriched = true
		}
	}

	outcome.Table = export.Project(records, export.Options{
		Enriched:       outcome.Enriched,
		IncludeRawCode: normalized.HasColumn(schema.ColTSR),
	})

	return outcome, nil
}

// summarize derives the dashboard metrics from computed records.
func summarize(records []billing.OutputRecord) RunSummaryDTO {
	summary := RunSummaryDTO{TotalEmployees: len(records)}

	totalTSR := decimal.Zero
	totalBilling := decimal.Zero
	for i := range records {
		if records[i].TotalTSR.IsPositive() {
			summary.WithTSRData++
		}
		totalTSR = totalTSR.Add(records[i].TotalTSR)
		totalBilling = totalBilling.Add(records[i].BillingAmount)
	}

	summary.TotalTSR = totalTSR.StringFixed(2)
	summary.TotalBilling = totalBilling.StringFixed(2)
	return summary
}
