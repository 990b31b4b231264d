package valuation

import (
	"math"

	"github.com/equitylens/equitylens/pkg/models"
)

// Sector-typical fallbacks applied when a bundle field cannot be resolved.
// The forward engine always produces a result from partial data; every
// substitution is recorded in BaseMetrics.Defaulted so callers can see how
// much of the valuation rests on defaults rather than reported numbers.
const (
	DefaultRevenueGrowth   = 0.10
	DefaultOperatingMargin = 0.15
	DefaultCapExPct        = 0.05
	DefaultDepreciationPct = 0.04
	DefaultNWCPct          = 0.03
	DefaultTaxRate         = 0.25
)

// Historical CAGR clamp bounds. Short or noisy revenue histories can imply
// absurd extrapolations; anything outside this band is capped.
const (
	minHistoricalCAGR = -0.10
	maxHistoricalCAGR = 0.50
)

// BaseMetrics is the fully-populated snapshot extracted from one
// FundamentalsBundle. All DCF math reads from this struct, never from the
// bundle directly, so the projection code needs no defensive field handling.
type BaseMetrics struct {
	Ticker string `json:"ticker"`

	Revenue           float64 `json:"revenue"`
	OperatingMargin   float64 `json:"operating_margin"`
	OperatingCashFlow float64 `json:"operating_cash_flow"`
	CapEx             float64 `json:"capex"`

	CapExPctRevenue        float64 `json:"capex_pct_revenue"`
	DepreciationPctRevenue float64 `json:"depreciation_pct_revenue"`
	NWCPctRevenue          float64 `json:"nwc_pct_revenue"`
	TaxRate                float64 `json:"tax_rate"`

	TotalDebt         float64 `json:"total_debt"`
	Cash              float64 `json:"cash"`
	NetDebt           float64 `json:"net_debt"`
	SharesOutstanding float64 `json:"shares_outstanding"`
	SharePrice        float64 `json:"share_price"`

	// HistoricalCAGR is the trailing revenue CAGR over the bundle's full
	// history, clamped to [minHistoricalCAGR, maxHistoricalCAGR].
	// GrowthFromHistory is false when fewer than two usable revenue points
	// existed and the default growth was substituted instead.
	HistoricalCAGR    float64 `json:"historical_cagr"`
	GrowthFromHistory bool    `json:"growth_from_history"`
	RevenuePeriods    int     `json:"revenue_periods"`

	// Defaulted lists every logical field that fell back to its default.
	Defaulted []string `json:"defaulted,omitempty"`
}

// ExtractBaseMetrics pulls base-year figures from the bundle, resolving
// line items through the models alias tables and substituting documented
// defaults for anything missing. It never fails: a near-empty bundle yields
// a metrics struct that is mostly defaults, visibly flagged as such.
func ExtractBaseMetrics(b *models.FundamentalsBundle) BaseMetrics {
	m := BaseMetrics{
		Ticker:       b.Ticker,
		NWCPctRevenue: DefaultNWCPct,
	}

	revenue, hasRevenue := b.Income.Latest(models.AliasRevenue...)
	if hasRevenue && revenue > 0 {
		m.Revenue = revenue
	} else {
		m.Defaulted = append(m.Defaulted, "revenue")
	}

	opIncome, hasOpIncome := b.Income.Latest(models.AliasOperatingIncome...)
	if hasRevenue && hasOpIncome && revenue > 0 {
		m.OperatingMargin = opIncome / revenue
	} else {
		m.OperatingMargin = DefaultOperatingMargin
		m.Defaulted = append(m.Defaulted, "operating margin")
	}

	if ocf, ok := b.CashFlow.Latest(models.AliasOperatingCashFlow...); ok {
		m.OperatingCashFlow = ocf
	}

	// CapEx is reported as a negative outflow by most vendors; the engine
	// works with its magnitude.
	if capex, ok := b.CashFlow.Latest(models.AliasCapEx...); ok && capex != 0 && m.Revenue > 0 {
		m.CapEx = math.Abs(capex)
		m.CapExPctRevenue = m.CapEx / m.Revenue
	} else {
		m.CapExPctRevenue = DefaultCapExPct
		m.Defaulted = append(m.Defaulted, "capex ratio")
	}

	if depn, ok := b.CashFlow.Latest(models.AliasDepreciation...); ok && depn > 0 && m.Revenue > 0 {
		m.DepreciationPctRevenue = depn / m.Revenue
	} else {
		m.DepreciationPctRevenue = DefaultDepreciationPct
		m.Defaulted = append(m.Defaulted, "depreciation ratio")
	}

	m.TaxRate = extractTaxRate(b)
	if m.TaxRate == DefaultTaxRate {
		m.Defaulted = append(m.Defaulted, "tax rate")
	}

	m.TotalDebt = extractTotalDebt(b)
	m.Cash = extractCash(b)
	m.NetDebt = m.TotalDebt - m.Cash

	m.SharesOutstanding = b.Facts.SharesOutstanding
	m.SharePrice = b.Facts.SharePrice
	if m.SharesOutstanding == 0 && b.Facts.MarketCap > 0 && m.SharePrice > 0 {
		m.SharesOutstanding = b.Facts.MarketCap / m.SharePrice
	}

	m.HistoricalCAGR, m.GrowthFromHistory, m.RevenuePeriods = historicalCAGR(b)
	if !m.GrowthFromHistory {
		m.Defaulted = append(m.Defaulted, "historical growth")
	}

	return m
}

// extractTaxRate derives the effective tax rate from the latest income
// statement, clamped to [0, 50%]. Falls back to the statutory-ish default.
func extractTaxRate(b *models.FundamentalsBundle) float64 {
	tax, okTax := b.Income.Latest(models.AliasTaxProvision...)
	pretax, okPre := b.Income.Latest(models.AliasPretaxIncome...)
	if !okTax || !okPre || pretax <= 0 || tax < 0 {
		return DefaultTaxRate
	}
	return clampRate(tax/pretax, 0, 0.50)
}

func extractTotalDebt(b *models.FundamentalsBundle) float64 {
	if b.Facts.TotalDebt > 0 {
		return b.Facts.TotalDebt
	}
	if debt, ok := b.Balance.Latest(models.AliasTotalDebt...); ok {
		return debt
	}
	var total float64
	if lt, ok := b.Balance.Latest(models.AliasLongTermDebt...); ok {
		total += lt
	}
	if st, ok := b.Balance.Latest(models.AliasShortTermDebt...); ok {
		total += st
	}
	return total
}

func extractCash(b *models.FundamentalsBundle) float64 {
	if b.Facts.CashAndEquivalents > 0 {
		return b.Facts.CashAndEquivalents
	}
	if cash, ok := b.Balance.Latest(models.AliasCash...); ok {
		return cash
	}
	return 0
}

// historicalCAGR computes the trailing revenue CAGR from the full history
// in the bundle (most-recent first). Returns the default growth with
// fromHistory=false when fewer than two positive data points are usable.
func historicalCAGR(b *models.FundamentalsBundle) (cagr float64, fromHistory bool, periods int) {
	series, ok := b.Income.Series(models.AliasRevenue...)
	if !ok {
		return DefaultRevenueGrowth, false, 0
	}

	// Trim trailing zero-padding: the oldest usable point is the last
	// positive value in the series.
	usable := make([]float64, 0, len(series))
	for _, v := range series {
		if v > 0 {
			usable = append(usable, v)
		}
	}
	periods = len(usable)
	if periods < 2 {
		return DefaultRevenueGrowth, false, periods
	}

	latest := usable[0]
	oldest := usable[periods-1]
	years := float64(periods - 1)
	cagr = math.Pow(latest/oldest, 1/years) - 1
	return clampRate(cagr, minHistoricalCAGR, maxHistoricalCAGR), true, periods
}
