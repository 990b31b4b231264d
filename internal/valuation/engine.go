// Package valuation implements the EquityLens DCF core: base-metric
// extraction from a fundamentals bundle, the forward scenario engine with
// sensitivity analysis, and the reverse engine that solves for the growth
// (and margin) assumptions implied by an observed market price.
package valuation

import (
	"math"

	"github.com/equitylens/equitylens/pkg/models"
)

// ProjectionRow is one explicit projection year of the DCF.
type ProjectionRow struct {
	Year         int     `json:"year"`
	Revenue      float64 `json:"revenue"`
	EBIT         float64 `json:"ebit"`
	Tax          float64 `json:"tax"`
	NOPAT        float64 `json:"nopat"`
	Depreciation float64 `json:"depreciation"`
	CapEx        float64 `json:"capex"`
	ChangeInNWC  float64 `json:"change_in_nwc"`
	FCF          float64 `json:"fcf"`
	PresentValue float64 `json:"present_value"`
}

// Result is the output of one DCF evaluation. Constructed fresh per call
// and never mutated afterwards.
type Result struct {
	Ticker      string      `json:"ticker"`
	Scenario    string      `json:"scenario"`
	Assumptions Assumptions `json:"assumptions"`

	EnterpriseValue float64 `json:"enterprise_value"`
	EquityValue     float64 `json:"equity_value"`
	ValuePerShare   float64 `json:"value_per_share"`

	ExplicitPV    float64 `json:"explicit_pv"`
	TerminalPV    float64 `json:"terminal_pv"`
	TerminalValue float64 `json:"terminal_value"`

	NetDebt           float64 `json:"net_debt"`
	SharesOutstanding float64 `json:"shares_outstanding"`

	Projections []ProjectionRow `json:"projections"`
	Warnings    []string        `json:"warnings,omitempty"`
}

// TerminalPctOfEV returns the terminal value's share of enterprise value,
// in percent. 0 when the enterprise value is 0.
func (r *Result) TerminalPctOfEV() float64 {
	if r.EnterpriseValue == 0 {
		return 0
	}
	return r.TerminalPV / r.EnterpriseValue * 100
}

// Engine is the forward DCF engine for one company. It caches the extracted
// base metrics and the three canonical scenario assumption sets at
// construction; every evaluation afterwards is a pure function of those
// immutable inputs plus the assumptions passed in.
type Engine struct {
	ticker    string
	base      BaseMetrics
	scenarios map[string]Assumptions
}

// NewEngine constructs a forward engine from a fundamentals bundle.
func NewEngine(b *models.FundamentalsBundle) *Engine {
	return NewEngineFromMetrics(b.Ticker, ExtractBaseMetrics(b))
}

// NewEngineFromMetrics constructs a forward engine from already-extracted
// base metrics.
func NewEngineFromMetrics(ticker string, base BaseMetrics) *Engine {
	return &Engine{
		ticker:    ticker,
		base:      base,
		scenarios: buildScenarios(base),
	}
}

// Base returns the cached base metrics.
func (e *Engine) Base() BaseMetrics { return e.base }

// Scenario returns one of the canonical preset assumption sets.
func (e *Engine) Scenario(name string) (Assumptions, bool) {
	a, ok := e.scenarios[name]
	return a, ok
}

// Calculate runs one DCF evaluation. Hard validation errors block the
// calculation; soft warnings are attached to the result. Negative FCF,
// enterprise value or equity value are legitimate outputs for distressed
// or capital-hungry companies and come back signed, never clamped.
func (e *Engine) Calculate(a Assumptions) (*Result, error) {
	rep := a.Validate()
	if err := rep.Err(); err != nil {
		return nil, err
	}

	res := runDCF(e.base, a, e.base.OperatingMargin)
	res.Ticker = e.ticker
	res.Warnings = rep.Warnings
	return res, nil
}

// runDCF is the shared projection/terminal-value/discounting pipeline used
// by both the forward and reverse engines. margin overrides the base
// operating margin (the reverse engine treats it as a free variable).
// Pure: no state is read other than the arguments.
func runDCF(base BaseMetrics, a Assumptions, margin float64) *Result {
	rows := make([]ProjectionRow, 0, a.ProjectionYears)
	revenue := base.Revenue
	var explicitPV float64

	for year := 1; year <= a.ProjectionYears; year++ {
		growth := a.RevenueGrowth[year-1]
		revenue *= 1 + growth

		ebit := revenue * margin
		tax := ebit * a.TaxRate
		nopat := ebit - tax
		depreciation := revenue * a.DepreciationPct
		capex := revenue * a.CapExPct
		// Working capital tracks incremental revenue, so the build-out
		// scales with the year's growth rather than the revenue level.
		changeInNWC := revenue * a.NWCPct * growth
		fcf := nopat + depreciation - capex - changeInNWC

		discount := math.Pow(1+a.DiscountRate, float64(year))
		pv := fcf / discount
		explicitPV += pv

		rows = append(rows, ProjectionRow{
			Year:         year,
			Revenue:      revenue,
			EBIT:         ebit,
			Tax:          tax,
			NOPAT:        nopat,
			Depreciation: depreciation,
			CapEx:        capex,
			ChangeInNWC:  changeInNWC,
			FCF:          fcf,
			PresentValue: pv,
		})
	}

	// Gordon-growth terminal value off the final explicit-year FCF, grown
	// one more period. Validation guarantees the denominator spread.
	finalFCF := rows[len(rows)-1].FCF
	terminalValue := finalFCF * (1 + a.TerminalGrowth) / (a.DiscountRate - a.TerminalGrowth)
	terminalPV := terminalValue / math.Pow(1+a.DiscountRate, float64(a.ProjectionYears))

	enterpriseValue := explicitPV + terminalPV
	equityValue := enterpriseValue - base.NetDebt

	// Zero shares outstanding is a legitimate data condition (placeholder
	// listings); the per-share value degrades to the 0 sentinel.
	var valuePerShare float64
	if base.SharesOutstanding > 0 {
		valuePerShare = equityValue / base.SharesOutstanding
	}

	return &Result{
		Scenario:          a.Scenario,
		Assumptions:       a,
		EnterpriseValue:   enterpriseValue,
		EquityValue:       equityValue,
		ValuePerShare:     valuePerShare,
		ExplicitPV:        explicitPV,
		TerminalPV:        terminalPV,
		TerminalValue:     terminalValue,
		NetDebt:           base.NetDebt,
		SharesOutstanding: base.SharesOutstanding,
		Projections:       rows,
	}
}
