package models

// FinancialRatios contains key valuation and quality ratios computed from a
// fundamentals bundle plus the current price.
type FinancialRatios struct {
	PE               float64 `json:"pe"`
	PB               float64 `json:"pb"`
	EVEBITDA         float64 `json:"ev_ebitda"`
	ROE              float64 `json:"roe"`              // %
	ROA              float64 `json:"roa"`              // %
	ROIC             float64 `json:"roic"`             // %
	OperatingMargin  float64 `json:"operating_margin"` // %
	NetMargin        float64 `json:"net_margin"`       // %
	DebtEquity       float64 `json:"debt_equity"`
	CurrentRatio     float64 `json:"current_ratio"`
	InterestCoverage float64 `json:"interest_coverage"`
	FCFYield         float64 `json:"fcf_yield"`      // %
	DividendYield    float64 `json:"dividend_yield"` // %
	PayoutRatio      float64 `json:"payout_ratio"`   // %
	EPS              float64 `json:"eps"`
	BookValue        float64 `json:"book_value"` // per share
	PEGRatio         float64 `json:"peg_ratio"`
	GrahamNumber     float64 `json:"graham_number"`
}

// GrowthRates holds computed growth metrics, all in percent.
type GrowthRates struct {
	RevenueGrowthYoY   float64 `json:"revenue_growth_yoy"`
	RevenueCAGR3Y      float64 `json:"revenue_cagr_3y"`
	RevenueCAGR5Y      float64 `json:"revenue_cagr_5y"`
	NetIncomeGrowthYoY float64 `json:"net_income_growth_yoy"`
	NetIncomeCAGR3Y    float64 `json:"net_income_cagr_3y"`
	FCFGrowthYoY       float64 `json:"fcf_growth_yoy"`
	FCFCAGR3Y          float64 `json:"fcf_cagr_3y"`
}
