package fundamental

import (
	"math"
	"strings"
	"testing"

	"github.com/equitylens/equitylens/pkg/models"
)

func approx(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v (±%v)", name, got, want, tol)
	}
}

// healthyBundle builds a four-period fixture for a steadily growing company:
// 10% revenue growth, 20% operating margin, low leverage, positive FCF.
func healthyBundle() *models.FundamentalsBundle {
	income := models.NewStatementTable("FY2025", "FY2024", "FY2023", "FY2022")
	income.SetRow("Revenue", 133.1, 121, 110, 100)
	income.SetRow("Gross Profit", 54.0, 48.4, 44.0, 40.0)
	income.SetRow("Operating Income", 26.62, 24.2, 22.0, 20.0)
	income.SetRow("Pretax Income", 25.0, 22.0, 20.0, 18.0)
	income.SetRow("Income Tax Expense", 5.0, 4.4, 4.0, 3.6)
	income.SetRow("Net Income", 20.0, 17.6, 16.0, 14.4)
	income.SetRow("Interest Expense", 2.0, 2.1, 2.2, 2.3)

	balance := models.NewStatementTable("FY2025", "FY2024")
	balance.SetRow("Total Assets", 200, 190)
	balance.SetRow("Total Current Assets", 80, 70)
	balance.SetRow("Total Current Liabilities", 40, 38)
	balance.SetRow("Total Debt", 30, 35)
	balance.SetRow("Long Term Debt", 25, 30)
	balance.SetRow("Total Stockholders Equity", 100, 90)
	balance.SetRow("Retained Earnings", 60, 50)
	balance.SetRow("Cash & Equivalents", 20, 18)

	cashflow := models.NewStatementTable("FY2025", "FY2024", "FY2023", "FY2022")
	cashflow.SetRow("Operating Cash Flow", 25, 22, 20, 18)
	cashflow.SetRow("Capital Expenditure", -6, -5, -5, -4)
	cashflow.SetRow("Free Cash Flow", 19, 17, 15, 14)
	cashflow.SetRow("Depreciation And Amortization", 4, 3.8, 3.6, 3.4)
	cashflow.SetRow("Dividends Paid", -5, -4, -4, -3)

	return &models.FundamentalsBundle{
		Ticker:   "TEST",
		Income:   income,
		Balance:  balance,
		CashFlow: cashflow,
		Facts: models.CompanyFacts{
			SharePrice:        50,
			SharesOutstanding: 10,
			MarketCap:         500,
			TotalDebt:         30,
		},
	}
}

func TestComputeRatios(t *testing.T) {
	r := ComputeRatios(healthyBundle())

	approx(t, "EPS", r.EPS, 2.0, 1e-9)
	approx(t, "PE", r.PE, 25.0, 1e-9)
	approx(t, "BookValue", r.BookValue, 10.0, 1e-9)
	approx(t, "PB", r.PB, 5.0, 1e-9)
	approx(t, "DebtEquity", r.DebtEquity, 0.3, 1e-9)
	approx(t, "CurrentRatio", r.CurrentRatio, 2.0, 1e-9)
	approx(t, "ROE", r.ROE, 20.0, 1e-9)
	approx(t, "ROA", r.ROA, 10.0, 1e-9)
	approx(t, "OperatingMargin", r.OperatingMargin, 20.0, 1e-9)
	approx(t, "InterestCoverage", r.InterestCoverage, 13.31, 1e-9)

	// NOPAT = 26.62 * (1 - 5/25) over debt 30 + equity 100.
	approx(t, "ROIC", r.ROIC, 21.296/130*100, 1e-9)

	// EBITDA 26.62+4 = 30.62, EV = 500 + 30 - 20 = 510.
	approx(t, "EVEBITDA", r.EVEBITDA, 510/30.62, 1e-9)

	approx(t, "FCFYield", r.FCFYield, 3.8, 1e-9)
	approx(t, "PayoutRatio", r.PayoutRatio, 25.0, 1e-9)
	approx(t, "GrahamNumber", r.GrahamNumber, math.Sqrt(450), 1e-9)

	// PE 25 over net income YoY (20-17.6)/17.6.
	approx(t, "PEGRatio", r.PEGRatio, 25/(2.4/17.6*100), 1e-9)
}

func TestComputeRatiosNilBundle(t *testing.T) {
	r := ComputeRatios(nil)
	if r.PE != 0 || r.ROE != 0 {
		t.Errorf("nil bundle should produce zero ratios, got %+v", r)
	}
}

func TestComputeRatiosSharesFromMarketCap(t *testing.T) {
	b := healthyBundle()
	b.Facts.SharesOutstanding = 0 // derived from market cap / price
	r := ComputeRatios(b)
	approx(t, "EPS", r.EPS, 2.0, 1e-9)
}

func TestComputeGrowth(t *testing.T) {
	g := ComputeGrowth(healthyBundle())

	approx(t, "RevenueGrowthYoY", g.RevenueGrowthYoY, 10.0, 1e-9)
	// (133.1/100)^(1/3) - 1 = 10% exactly.
	approx(t, "RevenueCAGR3Y", g.RevenueCAGR3Y, 10.0, 1e-6)
	if g.RevenueCAGR5Y != 0 {
		t.Errorf("RevenueCAGR5Y = %v, want 0 with only 4 periods", g.RevenueCAGR5Y)
	}
	approx(t, "NetIncomeGrowthYoY", g.NetIncomeGrowthYoY, 2.4/17.6*100, 1e-9)
	approx(t, "FCFGrowthYoY", g.FCFGrowthYoY, 2.0/17*100, 1e-9)
}

func TestComputeGrowthFCFFallback(t *testing.T) {
	b := healthyBundle()
	delete(b.CashFlow.Rows, "Free Cash Flow")
	g := ComputeGrowth(b)
	// OCF + capex: 19 vs 17, same as the reported row.
	approx(t, "FCFGrowthYoY", g.FCFGrowthYoY, 2.0/17*100, 1e-9)
}

func TestAssessHealth(t *testing.T) {
	b := healthyBundle()
	h := AssessHealth(ComputeRatios(b), ComputeGrowth(b))

	// prof 6+10+6, solv 12.5+12.5, liq 12, growth 3+6, cf 10.
	approx(t, "Score", h.Score, 78.0, 1e-9)
	if h.Grade != "A" {
		t.Errorf("Grade = %q, want A", h.Grade)
	}
	if len(h.Weaknesses) != 0 {
		t.Errorf("unexpected weaknesses: %v", h.Weaknesses)
	}
	found := false
	for _, s := range h.Strengths {
		if strings.Contains(s, "free cash flow") {
			found = true
		}
	}
	if !found {
		t.Errorf("strengths missing FCF note: %v", h.Strengths)
	}
	if h.Components["solvency"] != 25 {
		t.Errorf("solvency component = %v, want 25", h.Components["solvency"])
	}
}

func TestAssessHealthDistressed(t *testing.T) {
	ratios := models.FinancialRatios{
		ROE:             -5,
		OperatingMargin: -2,
		DebtEquity:      3.5,
		CurrentRatio:    0.6,
		FCFYield:        -1,
	}
	growth := models.GrowthRates{RevenueGrowthYoY: -8, NetIncomeGrowthYoY: -30}

	h := AssessHealth(ratios, growth)
	if h.Grade != "D" && h.Grade != "C" {
		t.Errorf("Grade = %q, want C or D for a distressed profile", h.Grade)
	}
	if len(h.Weaknesses) < 4 {
		t.Errorf("weaknesses = %v, want the major flags listed", h.Weaknesses)
	}
	if h.Score > 25 {
		t.Errorf("Score = %v, want low", h.Score)
	}
}

func TestPiotroskiFScorePerfect(t *testing.T) {
	qs := PiotroskiFScore(healthyBundle())
	if qs.Score != 9 {
		t.Errorf("Score = %d, want 9; checks:\n%s", qs.Score, strings.Join(qs.Checks, "\n"))
	}
	if len(qs.Checks) != 9 {
		t.Errorf("got %d checks, want 9", len(qs.Checks))
	}
}

func TestPiotroskiFScoreDeteriorating(t *testing.T) {
	b := healthyBundle()
	b.Income.SetRow("Net Income", -5, 17.6, 16.0, 14.4)
	b.CashFlow.SetRow("Operating Cash Flow", -2, 22, 20, 18)
	b.Balance.SetRow("Long Term Debt", 60, 30)
	b.Balance.SetRow("Total Current Assets", 30, 70)

	qs := PiotroskiFScore(b)
	if qs.Score > 4 {
		t.Errorf("Score = %d, want low for deteriorating fixture; checks:\n%s",
			qs.Score, strings.Join(qs.Checks, "\n"))
	}
}

func TestPiotroskiFScoreInsufficientHistory(t *testing.T) {
	income := models.NewStatementTable("FY2025")
	income.SetRow("Revenue", 100)
	b := &models.FundamentalsBundle{Income: income}

	qs := PiotroskiFScore(b)
	if qs.Score != 0 || len(qs.Checks) != 0 {
		t.Errorf("want zero score with one period, got %+v", qs)
	}
}
