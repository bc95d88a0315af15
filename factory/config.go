/*
Package factory provides JSON to Go run-configuration conversion.

PURPOSE:
  Converts the JSON configuration uploaded alongside a roster into typed
  engine inputs: the working-day calendar, the per-employee adjustment
  specs, and the optional service-rate settings. This keeps the adjustment
  form a dumb JSON producer - all interpretation and defaulting lives here.

JSON SCHEMA:
  {
    "working_days": {
      "default": 21,
      "months": {"Apr": 20, "Dec": 18}
    },
    "adjustments": [
      {
        "resource": "Ana Chen",
        "kind": "exit",
        "exit": {"month": "Apr", "day": 15, "year": 2025},
        "replacement": {
          "name": "Bo Diaz", "id": "E-2041",
          "join": {"month": "Apr", "day": 10, "year": 2025}
        }
      },
      {
        "resource": "Raj Patel",
        "kind": "leave",
        "leave": {"month": "May", "days": 5}
      }
    ],
    "tsr": {
      "offshore_country": "Mexico",
      "conversion_method": "divide",
      "rates": {"INR": 82.25, "MXN": 17.2}
    }
  }

KEY FEATURES:
  - Validates month tokens, day ranges, and adjustment kinds
  - Working days default to 21 uniformly; per-month overrides clamp to 1-31
  - Exchange rates convert to the multiply convention here, once
  - A replacement is accepted only on an exit adjustment

USAGE:
  cfg, err := factory.ParseRunConfig(jsonBytes)
  records := billing.NewEngine(cfg.WorkingDays).Run(billing.RunInput{
      Roster:      roster,
      Adjustments: cfg.Adjustments,
  })

SEE ALSO:
  - billing/types.go: AdjustmentSpec, WorkingDays
  - tsr/rates.go: ExchangeRates and conversion conventions
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
	"github.com/warp/billing-engine/tsr"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RunConfigJSON is the JSON representation of a run configuration.
type RunConfigJSON struct {
	WorkingDays *WorkingDaysJSON `json:"working_days,omitempty"`
	Adjustments []AdjustmentJSON `json:"adjustments,omitempty"`
	TSR         *TSRConfigJSON   `json:"tsr,omitempty"`
}

// WorkingDaysJSON configures the calendar.
type WorkingDaysJSON struct {
	Default int            `json:"default,omitempty"`
	Months  map[string]int `json:"months,omitempty"`
}

// AdjustmentJSON configures one employee's correction.
type AdjustmentJSON struct {
	Resource    string           `json:"resource"`
	Kind        string           `json:"kind"` // none, exit, leave
	Exit        *DateJSON        `json:"exit,omitempty"`
	Leave       *LeaveJSON       `json:"leave,omitempty"`
	Replacement *ReplacementJSON `json:"replacement,omitempty"`
}

// DateJSON is a month/day/year triple.
type DateJSON struct {
	Month string `json:"month"`
	Day   int    `json:"day"`
	Year  int    `json:"year"`
}

// LeaveJSON configures leave days within one month.
type LeaveJSON struct {
	Month string `json:"month"`
	Days  int    `json:"days"`
}

// ReplacementJSON configures a replacement hire for an exit.
type ReplacementJSON struct {
	Name string   `json:"name"`
	ID   string   `json:"id"`
	Join DateJSON `json:"join"`
}

// TSRConfigJSON configures the service-rate pass.
type TSRConfigJSON struct {
	OffshoreCountry  string             `json:"offshore_country,omitempty"`
	ConversionMethod string             `json:"conversion_method,omitempty"` // divide, multiply
	Rates            map[string]float64 `json:"rates,omitempty"`
}

// =============================================================================
// TYPED RUN CONFIG
// =============================================================================

// RunConfig is the typed, validated configuration for one engine run.
type RunConfig struct {
	WorkingDays billing.WorkingDays
	Adjustments map[string]billing.AdjustmentSpec
	TSR         *tsr.Config
}

// ParseRunConfig parses and validates a JSON run configuration. An empty
// input yields the all-defaults config (21 working days, no adjustments,
// no enrichment).
func ParseRunConfig(raw []byte) (*RunConfig, error) {
	var cj RunConfigJSON
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cj); err != nil {
			return nil, fmt.Errorf("failed to parse run config JSON: %w", err)
		}
	}
	return FromJSON(cj)
}

// FromJSON converts a decoded configuration into typed engine inputs.
func FromJSON(cj RunConfigJSON) (*RunConfig, error) {
	cfg := &RunConfig{
		Adjustments: make(map[string]billing.AdjustmentSpec),
	}

	wd, err := workingDaysFromJSON(cj.WorkingDays)
	if err != nil {
		return nil, err
	}
	cfg.WorkingDays = wd

	for _, aj := range cj.Adjustments {
		spec, err := adjustmentFromJSON(aj)
		if err != nil {
			return nil, err
		}
		if aj.Resource == "" {
			return nil, fmt.Errorf("adjustment is missing the resource name")
		}
		cfg.Adjustments[aj.Resource] = spec
	}

	if cj.TSR != nil {
		tc, err := tsrConfigFromJSON(*cj.TSR)
		if err != nil {
			return nil, err
		}
		cfg.TSR = tc
	}

	return cfg, nil
}

func workingDaysFromJSON(wj *WorkingDaysJSON) (billing.WorkingDays, error) {
	def := billing.DefaultWorkingDays
	if wj != nil && wj.Default != 0 {
		def = wj.Default
	}
	if def < 1 || def > 31 {
		return billing.WorkingDays{}, fmt.Errorf("default working days must be 1-31, got %d", def)
	}

	wd := billing.UniformWorkingDays(def)
	if wj == nil {
		return wd, nil
	}

	for token, days := range wj.Months {
		m, ok := billing.ParseMonth(token)
		if !ok {
			return billing.WorkingDays{}, fmt.Errorf("unknown month %q in working days", token)
		}
		if days < 1 || days > 31 {
			return billing.WorkingDays{}, fmt.Errorf("working days for %s must be 1-31, got %d", m, days)
		}
		wd[m] = days
	}
	return wd, nil
}

func adjustmentFromJSON(aj AdjustmentJSON) (billing.AdjustmentSpec, error) {
	spec := billing.NoAdjustment()

	switch billing.AdjustmentKind(aj.Kind) {
	case billing.AdjustNone, "":
		if aj.Replacement != nil {
			return spec, fmt.Errorf("adjustment for %q: replacement requires an exit", aj.Resource)
		}
		return spec, nil

	case billing.AdjustExit:
		if aj.Exit == nil {
			return spec, fmt.Errorf("adjustment for %q: exit kind requires an exit date", aj.Resource)
		}
		m, ok := billing.ParseMonth(aj.Exit.Month)
		if !ok {
			return spec, fmt.Errorf("adjustment for %q: unknown exit month %q", aj.Resource, aj.Exit.Month)
		}
		spec.Kind = billing.AdjustExit
		spec.ExitMonth = m
		spec.ExitDay = aj.Exit.Day
		spec.ExitYear = aj.Exit.Year

		if aj.Replacement != nil {
			rep, err := replacementFromJSON(aj.Resource, *aj.Replacement)
			if err != nil {
				return spec, err
			}
			spec.Replacement = &rep
		}
		return spec, nil

	case billing.AdjustLeave:
		if aj.Leave == nil {
			return spec, fmt.Errorf("adjustment for %q: leave kind requires leave details", aj.Resource)
		}
		if aj.Replacement != nil {
			return spec, fmt.Errorf("adjustment for %q: replacement requires an exit", aj.Resource)
		}
		m, ok := billing.ParseMonth(aj.Leave.Month)
		if !ok {
			return spec, fmt.Errorf("adjustment for %q: unknown leave month %q", aj.Resource, aj.Leave.Month)
		}
		if aj.Leave.Days < 0 {
			return spec, fmt.Errorf("adjustment for %q: leave days cannot be negative", aj.Resource)
		}
		spec.Kind = billing.AdjustLeave
		spec.LeaveMonth = m
		spec.LeaveDays = aj.Leave.Days
		return spec, nil

	default:
		return spec, fmt.Errorf("adjustment for %q: unknown kind %q", aj.Resource, aj.Kind)
	}
}

func replacementFromJSON(resource string, rj ReplacementJSON) (billing.ReplacementSpec, error) {
	if rj.Name == "" || rj.ID == "" {
		return billing.ReplacementSpec{}, fmt.Errorf("replacement for %q requires a name and an id", resource)
	}
	m, ok := billing.ParseMonth(rj.Join.Month)
	if !ok {
		return billing.ReplacementSpec{}, fmt.Errorf("replacement for %q: unknown join month %q", resource, rj.Join.Month)
	}
	return billing.ReplacementSpec{
		Name:      rj.Name,
		ID:        rj.ID,
		JoinMonth: m,
		JoinDay:   rj.Join.Day,
		JoinYear:  rj.Join.Year,
	}, nil
}

func tsrConfigFromJSON(tj TSRConfigJSON) (*tsr.Config, error) {
	method := tsr.ConversionMethod(tj.ConversionMethod)
	switch method {
	case "":
		method = tsr.ConvertMultiply
	case tsr.ConvertDivide, tsr.ConvertMultiply:
	default:
		return nil, fmt.Errorf("unknown conversion method %q", tj.ConversionMethod)
	}

	country := tj.OffshoreCountry
	if country == "" {
		country = "Mexico"
	}

	rates := tsr.DefaultExchangeRates()
	for currency, rate := range tj.Rates {
		rates[currency] = tsr.ConvertRate(decimal.NewFromFloat(rate), method)
	}
	// USD is the target currency; its multiplier is pinned.
	rates["USD"] = decimal.NewFromInt(1)

	return &tsr.Config{OffshoreCountry: country, Rates: rates}, nil
}
