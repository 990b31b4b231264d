package valuation

import (
	"fmt"
	"math"
)

// Canonical scenario names.
const (
	ScenarioConservative = "conservative"
	ScenarioBase         = "base"
	ScenarioAggressive   = "aggressive"
)

// Blend weights for the weighted-average valuation. Investors read the
// conservative-to-aggressive spread as a confidence band, so these weights
// (and the preset ladder below) are part of the product and must not drift.
const (
	WeightBase         = 0.40
	WeightConservative = 0.30
	WeightAggressive   = 0.30
)

const presetHorizonYears = 5

// buildScenarios derives the three canonical assumption sets from the base
// metrics. The ladder pairs lower growth with a higher discount rate and
// vice versa:
//
//	conservative: growth = max(3%, 0.6×CAGR), tg 2.0%, WACC 12%, capex ×1.2
//	base:         growth = CAGR (10% fallback), tg 2.5%, WACC 10%, capex ×1.0
//	aggressive:   growth = min(25%, 1.5×CAGR), tg 3.0%, WACC  8%, capex ×0.8
func buildScenarios(base BaseMetrics) map[string]Assumptions {
	growth := base.HistoricalCAGR
	if !base.GrowthFromHistory || growth <= 0 {
		growth = DefaultRevenueGrowth
	}

	shared := func(scenario string, g, tg, wacc, capexFactor float64) Assumptions {
		return Assumptions{
			Scenario:        scenario,
			RevenueGrowth:   UniformGrowth(g, presetHorizonYears),
			TerminalGrowth:  tg,
			DiscountRate:    wacc,
			TaxRate:         base.TaxRate,
			CapExPct:        base.CapExPctRevenue * capexFactor,
			NWCPct:          base.NWCPctRevenue,
			DepreciationPct: base.DepreciationPctRevenue,
			ProjectionYears: presetHorizonYears,
		}
	}

	return map[string]Assumptions{
		ScenarioConservative: shared(ScenarioConservative, math.Max(0.03, 0.6*growth), 0.02, 0.12, 1.2),
		ScenarioBase:         shared(ScenarioBase, growth, 0.025, 0.10, 1.0),
		ScenarioAggressive:   shared(ScenarioAggressive, math.Min(0.25, 1.5*growth), 0.03, 0.08, 0.8),
	}
}

// ScenarioSummaryRow is one line of the scenario comparison table.
type ScenarioSummaryRow struct {
	Scenario        string  `json:"scenario"`
	ValuePerShare   float64 `json:"value_per_share"`
	EquityValue     float64 `json:"equity_value"`
	EnterpriseValue float64 `json:"enterprise_value"`
	TerminalPctOfEV float64 `json:"terminal_pct_of_ev"`
	DiscountRate    float64 `json:"discount_rate"`
	TerminalGrowth  float64 `json:"terminal_growth"`
}

// ScenarioSet is the result of evaluating all three canonical scenarios
// plus the 40/30/30 weighted blend.
type ScenarioSet struct {
	Ticker       string  `json:"ticker"`
	Conservative *Result `json:"conservative"`
	Base         *Result `json:"base"`
	Aggressive   *Result `json:"aggressive"`

	WeightedValuePerShare   float64 `json:"weighted_value_per_share"`
	WeightedEquityValue     float64 `json:"weighted_equity_value"`
	WeightedEnterpriseValue float64 `json:"weighted_enterprise_value"`

	Summary []ScenarioSummaryRow `json:"summary"`
}

// RunAllScenarios evaluates the three canonical presets and blends them
// 0.40×base + 0.30×conservative + 0.30×aggressive.
func (e *Engine) RunAllScenarios() (*ScenarioSet, error) {
	set := &ScenarioSet{Ticker: e.ticker}

	for _, name := range []string{ScenarioConservative, ScenarioBase, ScenarioAggressive} {
		a, ok := e.Scenario(name)
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", name)
		}
		res, err := e.Calculate(a)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", name, err)
		}
		switch name {
		case ScenarioConservative:
			set.Conservative = res
		case ScenarioBase:
			set.Base = res
		case ScenarioAggressive:
			set.Aggressive = res
		}
	}

	blend := func(c, b, a float64) float64 {
		return WeightBase*b + WeightConservative*c + WeightAggressive*a
	}
	set.WeightedValuePerShare = blend(set.Conservative.ValuePerShare, set.Base.ValuePerShare, set.Aggressive.ValuePerShare)
	set.WeightedEquityValue = blend(set.Conservative.EquityValue, set.Base.EquityValue, set.Aggressive.EquityValue)
	set.WeightedEnterpriseValue = blend(set.Conservative.EnterpriseValue, set.Base.EnterpriseValue, set.Aggressive.EnterpriseValue)

	for _, res := range []*Result{set.Conservative, set.Base, set.Aggressive} {
		set.Summary = append(set.Summary, ScenarioSummaryRow{
			Scenario:        res.Scenario,
			ValuePerShare:   res.ValuePerShare,
			EquityValue:     res.EquityValue,
			EnterpriseValue: res.EnterpriseValue,
			TerminalPctOfEV: res.TerminalPctOfEV(),
			DiscountRate:    res.Assumptions.DiscountRate,
			TerminalGrowth:  res.Assumptions.TerminalGrowth,
		})
	}

	return set, nil
}
