package forensic

import (
	"math"
	"testing"

	"github.com/equitylens/equitylens/pkg/models"
)

func approx(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v (±%v)", name, got, want, tol)
	}
}

// steadyBundle is a clean grower: every Beneish ratio stays flat year over
// year and operating cash comfortably exceeds earnings.
func steadyBundle() *models.FundamentalsBundle {
	income := models.NewStatementTable("FY2025", "FY2024")
	income.SetRow("Revenue", 110, 100)
	income.SetRow("Cost Of Revenue", 66, 60)
	income.SetRow("Operating Income", 22, 20)
	income.SetRow("Net Income", 15, 14)
	income.SetRow("Selling General And Administrative", 11, 10)

	balance := models.NewStatementTable("FY2025", "FY2024")
	balance.SetRow("Total Assets", 200, 180)
	balance.SetRow("Total Current Assets", 80, 72)
	balance.SetRow("Total Current Liabilities", 40, 36)
	balance.SetRow("Net Receivables", 11, 10)
	balance.SetRow("Net PPE", 90, 81)
	balance.SetRow("Long Term Debt", 30, 27)
	balance.SetRow("Retained Earnings", 80, 70)
	balance.SetRow("Total Stockholders Equity", 100, 90)

	cashflow := models.NewStatementTable("FY2025", "FY2024")
	cashflow.SetRow("Operating Cash Flow", 20, 18)
	cashflow.SetRow("Depreciation And Amortization", 10, 9)

	return &models.FundamentalsBundle{
		Ticker:   "STDY",
		Income:   income,
		Balance:  balance,
		CashFlow: cashflow,
		Facts:    models.CompanyFacts{MarketCap: 400},
	}
}

// manipulatorBundle shows the classic pattern: receivables ballooning ahead
// of sales, margins compressing, soft assets piling up, earnings far ahead
// of operating cash.
func manipulatorBundle() *models.FundamentalsBundle {
	income := models.NewStatementTable("FY2025", "FY2024")
	income.SetRow("Revenue", 150, 100)
	income.SetRow("Cost Of Revenue", 105, 60)
	income.SetRow("Operating Income", 25, 20)
	income.SetRow("Net Income", 20, 10)
	income.SetRow("Selling General And Administrative", 15, 10)

	balance := models.NewStatementTable("FY2025", "FY2024")
	balance.SetRow("Total Assets", 300, 200)
	balance.SetRow("Total Current Assets", 90, 80)
	balance.SetRow("Total Current Liabilities", 60, 40)
	balance.SetRow("Net Receivables", 45, 10)
	balance.SetRow("Net PPE", 60, 80)
	balance.SetRow("Long Term Debt", 60, 30)
	balance.SetRow("Retained Earnings", 50, 40)
	balance.SetRow("Total Stockholders Equity", 90, 80)

	cashflow := models.NewStatementTable("FY2025", "FY2024")
	cashflow.SetRow("Operating Cash Flow", 2, 12)
	cashflow.SetRow("Depreciation And Amortization", 5, 8)

	return &models.FundamentalsBundle{
		Ticker:   "MNIP",
		Income:   income,
		Balance:  balance,
		CashFlow: cashflow,
		Facts:    models.CompanyFacts{MarketCap: 500},
	}
}

func TestBeneishSteadyCompanyNotFlagged(t *testing.T) {
	r, err := BeneishMScore(steadyBundle())
	if err != nil {
		t.Fatalf("BeneishMScore: %v", err)
	}

	// Flat ratios: every index should sit at its neutral value.
	approx(t, "DSRI", r.DSRI, 1.0, 1e-9)
	approx(t, "GMI", r.GMI, 1.0, 1e-9)
	approx(t, "AQI", r.AQI, 1.0, 1e-9)
	approx(t, "SGI", r.SGI, 1.1, 1e-9)
	approx(t, "DEPI", r.DEPI, 1.0, 1e-9)
	approx(t, "SGAI", r.SGAI, 1.0, 1e-9)
	approx(t, "LVGI", r.LVGI, 1.0, 1e-9)
	approx(t, "TATA", r.TATA, -0.025, 1e-9)

	if r.Flagged {
		t.Errorf("steady company flagged, M = %v", r.MScore)
	}
	if r.MScore > -2.0 {
		t.Errorf("M = %v, want well below the -1.78 threshold", r.MScore)
	}
}

func TestBeneishManipulatorFlagged(t *testing.T) {
	r, err := BeneishMScore(manipulatorBundle())
	if err != nil {
		t.Fatalf("BeneishMScore: %v", err)
	}

	if r.DSRI < 2.5 {
		t.Errorf("DSRI = %v, want receivables blow-up visible", r.DSRI)
	}
	approx(t, "SGI", r.SGI, 1.5, 1e-9)
	if r.GMI <= 1 {
		t.Errorf("GMI = %v, want margin deterioration > 1", r.GMI)
	}
	if r.TATA <= 0 {
		t.Errorf("TATA = %v, want positive accruals", r.TATA)
	}

	if !r.Flagged {
		t.Errorf("manipulator not flagged, M = %v", r.MScore)
	}
}

func TestBeneishNeedsTwoPeriods(t *testing.T) {
	income := models.NewStatementTable("FY2025")
	income.SetRow("Revenue", 100)
	b := &models.FundamentalsBundle{Income: income}

	if _, err := BeneishMScore(b); err == nil {
		t.Error("expected error with a single period")
	}
	if _, err := BeneishMScore(nil); err == nil {
		t.Error("expected error for nil bundle")
	}
}

func TestBeneishMissingRowsStayNeutral(t *testing.T) {
	b := steadyBundle()
	delete(b.Balance.Rows, "Net Receivables")
	delete(b.Income.Rows, "Selling General And Administrative")

	r, err := BeneishMScore(b)
	if err != nil {
		t.Fatalf("BeneishMScore: %v", err)
	}
	approx(t, "DSRI", r.DSRI, 1.0, 1e-9)
	approx(t, "SGAI", r.SGAI, 1.0, 1e-9)
}

func TestAltmanSafeCompany(t *testing.T) {
	r, err := AltmanZScore(steadyBundle())
	if err != nil {
		t.Fatalf("AltmanZScore: %v", err)
	}

	approx(t, "WorkingCapitalTA", r.WorkingCapitalTA, 0.2, 1e-9)
	approx(t, "RetainedEarningsTA", r.RetainedEarningsTA, 0.4, 1e-9)
	approx(t, "EBITTA", r.EBITTA, 0.11, 1e-9)
	approx(t, "MarketEquityTL", r.MarketEquityTL, 4.0, 1e-9)
	approx(t, "SalesTA", r.SalesTA, 0.55, 1e-9)

	// 1.2*0.2 + 1.4*0.4 + 3.3*0.11 + 0.6*4 + 0.55
	approx(t, "ZScore", r.ZScore, 4.113, 1e-9)
	if r.Band != "safe" {
		t.Errorf("band = %q, want safe", r.Band)
	}
}

func TestAltmanDistressedCompany(t *testing.T) {
	income := models.NewStatementTable("FY2025")
	income.SetRow("Revenue", 120)
	income.SetRow("Operating Income", -10)

	balance := models.NewStatementTable("FY2025")
	balance.SetRow("Total Assets", 200)
	balance.SetRow("Total Current Assets", 30)
	balance.SetRow("Total Current Liabilities", 80)
	balance.SetRow("Retained Earnings", -40)
	balance.SetRow("Total Stockholders Equity", 20)

	b := &models.FundamentalsBundle{
		Income:  income,
		Balance: balance,
		Facts:   models.CompanyFacts{MarketCap: 30},
	}

	r, err := AltmanZScore(b)
	if err != nil {
		t.Fatalf("AltmanZScore: %v", err)
	}
	if r.Band != "distress" {
		t.Errorf("band = %q (Z = %v), want distress", r.Band, r.ZScore)
	}
	if r.ZScore >= 1.81 {
		t.Errorf("Z = %v, want below 1.81", r.ZScore)
	}
}

func TestAltmanRequiresAssets(t *testing.T) {
	if _, err := AltmanZScore(&models.FundamentalsBundle{}); err == nil {
		t.Error("expected error without total assets")
	}
	if _, err := AltmanZScore(nil); err == nil {
		t.Error("expected error for nil bundle")
	}
}
