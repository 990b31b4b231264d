package valuation

import (
	"fmt"
	"math"

	"github.com/equitylens/equitylens/pkg/models"
)

// Search bounds for the implied-assumption solves.
const (
	impliedGrowthMin = -0.20
	impliedGrowthMax = 0.50
	impliedMarginMin = 0.01
	impliedMarginMax = 0.50
)

// Reverse-engine fixed defaults, used unless overridden per solve. The
// reverse horizon is longer than the forward presets: expectations priced
// into a share usually extend past five years.
const (
	ReverseDefaultWACC           = 0.10
	ReverseDefaultTerminalGrowth = 0.025
	ReverseDefaultTaxRate        = 0.25
	ReverseDefaultHorizonYears   = 10
)

// unreachableRelErr is the relative error above which a converged solve is
// flagged as not actually reaching the target price within the bounds.
const unreachableRelErr = 0.01

// ReverseOptions overrides the fixed assumptions held constant during a
// solve. Zero values fall back to the reverse defaults.
type ReverseOptions struct {
	WACC            float64 `json:"wacc,omitempty"`
	TerminalGrowth  float64 `json:"terminal_growth,omitempty"`
	TaxRate         float64 `json:"tax_rate,omitempty"`
	ProjectionYears int     `json:"projection_years,omitempty"`
}

func (o ReverseOptions) withDefaults() ReverseOptions {
	if o.WACC == 0 {
		o.WACC = ReverseDefaultWACC
	}
	if o.TerminalGrowth == 0 {
		o.TerminalGrowth = ReverseDefaultTerminalGrowth
	}
	if o.TaxRate == 0 {
		o.TaxRate = ReverseDefaultTaxRate
	}
	if o.ProjectionYears == 0 {
		o.ProjectionYears = ReverseDefaultHorizonYears
	}
	return o
}

// ReverseResult reports the growth (and optionally margin) assumptions the
// market price implies.
type ReverseResult struct {
	Ticker string `json:"ticker"`
	Mode   string `json:"mode"` // "growth" or "growth+margin"

	ImpliedGrowth float64 `json:"implied_growth"`
	ImpliedMargin float64 `json:"implied_margin,omitempty"`
	ActualMargin  float64 `json:"actual_margin"`
	MarginDelta   float64 `json:"margin_delta,omitempty"`

	TargetEnterpriseValue   float64 `json:"target_enterprise_value"`
	AchievedEnterpriseValue float64 `json:"achieved_enterprise_value"`
	RelativeError           float64 `json:"relative_error"`

	// TargetUnreachable is set when the minimizer converged but the best
	// achievable enterprise value still misses the target, meaning the
	// observed price cannot be rationalized inside the search bounds.
	TargetUnreachable bool   `json:"target_unreachable,omitempty"`
	Note              string `json:"note,omitempty"`

	Interpretation string      `json:"interpretation"`
	Iterations     int         `json:"iterations"`
	Assumptions    Assumptions `json:"assumptions"`
}

// ReverseEngine inverts the DCF: given the observed share price it solves
// for the growth rate (or growth/margin pair) that reproduces it. Unlike
// the forward engine it has hard input requirements — without a price and
// a share count there is nothing to explain.
type ReverseEngine struct {
	ticker string
	base   BaseMetrics
}

// NewReverseEngine constructs a reverse engine, failing when the bundle
// cannot resolve a current share price or shares outstanding.
func NewReverseEngine(b *models.FundamentalsBundle) (*ReverseEngine, error) {
	return NewReverseEngineFromMetrics(b.Ticker, ExtractBaseMetrics(b))
}

// NewReverseEngineFromMetrics constructs a reverse engine from
// already-extracted base metrics.
func NewReverseEngineFromMetrics(ticker string, base BaseMetrics) (*ReverseEngine, error) {
	if base.SharePrice <= 0 {
		return nil, fmt.Errorf("reverse DCF for %s: current share price unavailable", ticker)
	}
	if base.SharesOutstanding <= 0 {
		return nil, fmt.Errorf("reverse DCF for %s: shares outstanding unavailable", ticker)
	}
	return &ReverseEngine{ticker: ticker, base: base}, nil
}

// Base returns the cached base metrics.
func (r *ReverseEngine) Base() BaseMetrics { return r.base }

// TargetEnterpriseValue is the enterprise value implied by the observed
// market price: price × shares + net debt.
func (r *ReverseEngine) TargetEnterpriseValue() float64 {
	return r.base.SharePrice*r.base.SharesOutstanding + r.base.NetDebt
}

// enterpriseValue evaluates the forward DCF pipeline at a trial growth and
// margin, with everything else fixed by opts.
func (r *ReverseEngine) enterpriseValue(growth, margin float64, opts ReverseOptions) float64 {
	a := r.assumptions(growth, opts)
	return runDCF(r.base, a, margin).EnterpriseValue
}

func (r *ReverseEngine) assumptions(growth float64, opts ReverseOptions) Assumptions {
	return Assumptions{
		Scenario:        "implied",
		RevenueGrowth:   UniformGrowth(growth, opts.ProjectionYears),
		TerminalGrowth:  opts.TerminalGrowth,
		DiscountRate:    opts.WACC,
		TaxRate:         opts.TaxRate,
		CapExPct:        r.base.CapExPctRevenue,
		NWCPct:          r.base.NWCPctRevenue,
		DepreciationPct: r.base.DepreciationPctRevenue,
		ProjectionYears: opts.ProjectionYears,
	}
}

// SolveGrowth finds the single revenue growth rate that makes the DCF
// reproduce the observed price, holding the operating margin at the
// company's historical value. Growth is searched over [-20%, +50%] with a
// bounded golden-section minimizer on the squared enterprise-value error.
func (r *ReverseEngine) SolveGrowth(opts ReverseOptions) (*ReverseResult, error) {
	opts = opts.withDefaults()
	if err := r.assumptions(0, opts).Validate().Err(); err != nil {
		return nil, err
	}

	target := r.TargetEnterpriseValue()
	margin := r.base.OperatingMargin
	scale := objectiveScale(target)

	objective := func(g float64) float64 {
		diff := (r.enterpriseValue(g, margin, opts) - target) / scale
		return diff * diff
	}

	growth, iterations, err := minimizeScalar(objective, impliedGrowthMin, impliedGrowthMax)
	if err != nil {
		return nil, fmt.Errorf("reverse DCF for %s: %w", r.ticker, err)
	}

	res := r.buildResult("growth", growth, margin, target, iterations, opts)
	return res, nil
}

// SolveGrowthAndMargin frees both the growth rate and the operating margin
// and solves for the pair jointly via Nelder-Mead, seeded at (5%, the
// historical margin). Out-of-bounds trial points are pushed back by a
// quadratic penalty on the clamped evaluation. This mode is strictly less
// constrained than SolveGrowth and typically finds a lower growth rate
// paired with margin expansion.
func (r *ReverseEngine) SolveGrowthAndMargin(opts ReverseOptions) (*ReverseResult, error) {
	opts = opts.withDefaults()
	if err := r.assumptions(0, opts).Validate().Err(); err != nil {
		return nil, err
	}

	target := r.TargetEnterpriseValue()
	scale := objectiveScale(target)
	seedMargin := clampRate(r.base.OperatingMargin, impliedMarginMin, impliedMarginMax)

	objective := func(x []float64) float64 {
		g := clampRate(x[0], impliedGrowthMin, impliedGrowthMax)
		m := clampRate(x[1], impliedMarginMin, impliedMarginMax)
		diff := (r.enterpriseValue(g, m, opts) - target) / scale
		err := diff * diff

		// Quadratic penalty pushes the simplex back into the feasible box;
		// the 1e4 factor dominates any normalized in-bounds error.
		penalty := ((x[0]-g)*(x[0]-g) + (x[1]-m)*(x[1]-m)) * 1e4
		return err + penalty
	}

	point, iterations, err := minimizeSimplex(objective, []float64{0.05, seedMargin}, []float64{0.05, 0.05})
	if err != nil {
		return nil, fmt.Errorf("reverse DCF for %s: %w", r.ticker, err)
	}

	growth := clampRate(point[0], impliedGrowthMin, impliedGrowthMax)
	margin := clampRate(point[1], impliedMarginMin, impliedMarginMax)

	res := r.buildResult("growth+margin", growth, margin, target, iterations, opts)
	res.ImpliedMargin = margin
	res.MarginDelta = margin - r.base.OperatingMargin
	return res, nil
}

func (r *ReverseEngine) buildResult(mode string, growth, margin, target float64, iterations int, opts ReverseOptions) *ReverseResult {
	achieved := r.enterpriseValue(growth, margin, opts)

	relErr := 0.0
	if target != 0 {
		relErr = math.Abs(achieved-target) / math.Abs(target)
	}

	res := &ReverseResult{
		Ticker:                  r.ticker,
		Mode:                    mode,
		ImpliedGrowth:           growth,
		ActualMargin:            r.base.OperatingMargin,
		TargetEnterpriseValue:   target,
		AchievedEnterpriseValue: achieved,
		RelativeError:           relErr,
		Interpretation:          InterpretGrowth(growth),
		Iterations:              iterations,
		Assumptions:             r.assumptions(growth, opts),
	}

	if relErr > unreachableRelErr {
		res.TargetUnreachable = true
		res.Note = fmt.Sprintf(
			"market price not reachable within growth bounds [%.0f%%, %.0f%%]: best fit misses target by %.1f%%",
			impliedGrowthMin*100, impliedGrowthMax*100, relErr*100)
	}

	return res
}

// InterpretGrowth buckets an implied growth rate into the qualitative
// ladder shown in the dashboard.
func InterpretGrowth(g float64) string {
	switch {
	case g < 0:
		return "declining"
	case g < 0.03:
		return "slow growth"
	case g < 0.08:
		return "moderate growth"
	case g < 0.15:
		return "healthy growth"
	case g < 0.25:
		return "high growth"
	default:
		return "extreme growth"
	}
}
