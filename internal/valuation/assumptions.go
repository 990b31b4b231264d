package valuation

import (
	"errors"
	"fmt"
)

// ErrInvalidAssumptions tags validation failures so callers can tell a bad
// request apart from an engine fault.
var ErrInvalidAssumptions = errors.New("invalid assumptions")

// MinRateSpread is the minimum allowed gap between the discount rate and
// the terminal growth rate. Below this the Gordon-growth denominator is
// close enough to zero that the terminal value is numerically meaningless,
// so such assumption sets are rejected before any evaluation runs.
const MinRateSpread = 0.02

// Assumptions is one complete DCF parameterization. Treated as immutable
// after construction: the engine copies it into each Result and never
// writes back.
type Assumptions struct {
	Scenario string `json:"scenario"`

	// RevenueGrowth holds one growth rate per projection year.
	RevenueGrowth   []float64 `json:"revenue_growth"`
	TerminalGrowth  float64   `json:"terminal_growth"`
	DiscountRate    float64   `json:"discount_rate"`
	TaxRate         float64   `json:"tax_rate"`
	CapExPct        float64   `json:"capex_pct"`
	NWCPct          float64   `json:"nwc_pct"`
	DepreciationPct float64   `json:"depreciation_pct"`
	ProjectionYears int       `json:"projection_years"`
}

// UniformGrowth expands a single growth rate into a per-year sequence.
func UniformGrowth(rate float64, years int) []float64 {
	if years < 1 {
		return nil
	}
	seq := make([]float64, years)
	for i := range seq {
		seq[i] = rate
	}
	return seq
}

// ValidationReport separates hard errors, which block a calculation, from
// soft warnings, which ride along on the result.
type ValidationReport struct {
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// OK reports whether the assumptions may be evaluated.
func (r ValidationReport) OK() bool { return len(r.Errors) == 0 }

// Err converts the report's hard errors into a single error, nil when OK.
func (r ValidationReport) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrInvalidAssumptions, r.Errors)
}

// Validate checks the assumption set against the engine's stability and
// sanity bounds.
func (a Assumptions) Validate() ValidationReport {
	var rep ValidationReport

	if a.ProjectionYears < 1 || a.ProjectionYears > 50 {
		rep.Errors = append(rep.Errors,
			fmt.Sprintf("projection years %d outside [1, 50]", a.ProjectionYears))
	}

	if len(a.RevenueGrowth) != a.ProjectionYears {
		rep.Errors = append(rep.Errors,
			fmt.Sprintf("growth sequence has %d entries for %d projection years",
				len(a.RevenueGrowth), a.ProjectionYears))
	}

	if a.DiscountRate-a.TerminalGrowth < MinRateSpread {
		rep.Errors = append(rep.Errors,
			fmt.Sprintf("discount rate %.2f%% and terminal growth %.2f%% are less than %.0f points apart; terminal value would be unstable",
				a.DiscountRate*100, a.TerminalGrowth*100, MinRateSpread*100))
	}

	if a.TaxRate < 0 || a.TaxRate > 0.50 {
		rep.Errors = append(rep.Errors,
			fmt.Sprintf("tax rate %.2f%% outside [0%%, 50%%]", a.TaxRate*100))
	}

	for i, g := range a.RevenueGrowth {
		if g < -0.50 || g > 2.00 {
			rep.Errors = append(rep.Errors,
				fmt.Sprintf("year %d growth %.2f%% outside [-50%%, 200%%]", i+1, g*100))
		}
	}

	if a.DiscountRate < 0.05 || a.DiscountRate > 0.25 {
		rep.Warnings = append(rep.Warnings,
			fmt.Sprintf("discount rate %.2f%% is outside the typical 5%%-25%% band", a.DiscountRate*100))
	}
	if a.CapExPct > 0.30 {
		rep.Warnings = append(rep.Warnings,
			fmt.Sprintf("capex at %.1f%% of revenue is unusually heavy", a.CapExPct*100))
	}

	return rep
}
