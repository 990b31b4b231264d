package valuation

import (
	"math"
	"slices"
	"testing"

	"github.com/equitylens/equitylens/pkg/models"
)

// fullBundle builds a three-period bundle with every line item the extractor
// reads, using Yahoo-style captions.
func fullBundle() *models.FundamentalsBundle {
	income := models.NewStatementTable("FY2025", "FY2024", "FY2023")
	income.SetRow("Total Revenue", 121, 110, 100)
	income.SetRow("Operating Income", 24.2, 22, 20)
	income.SetRow("Pretax Income", 22, 20, 18)
	income.SetRow("Tax Provision", 4.62, 4.2, 3.78)

	balance := models.NewStatementTable("FY2025", "FY2024", "FY2023")
	balance.SetRow("Total Debt", 30, 32, 34)
	balance.SetRow("Cash And Cash Equivalents", 12, 10, 8)

	cashflow := models.NewStatementTable("FY2025", "FY2024", "FY2023")
	cashflow.SetRow("Operating Cash Flow", 28, 25, 22)
	cashflow.SetRow("Capital Expenditure", -6.05, -5.5, -5)
	cashflow.SetRow("Depreciation And Amortization", 4.84, 4.4, 4)

	return &models.FundamentalsBundle{
		Ticker:   "ACME",
		Facts:    models.CompanyFacts{SharePrice: 50, SharesOutstanding: 2},
		Income:   income,
		Balance:  balance,
		CashFlow: cashflow,
	}
}

func TestExtractBaseMetricsFullBundle(t *testing.T) {
	m := ExtractBaseMetrics(fullBundle())

	if m.Revenue != 121 {
		t.Errorf("revenue = %v, want 121", m.Revenue)
	}
	if !approxEqual(m.OperatingMargin, 0.20, 1e-9) {
		t.Errorf("operating margin = %v, want 0.20", m.OperatingMargin)
	}
	if !approxEqual(m.CapExPctRevenue, 0.05, 1e-9) {
		t.Errorf("capex pct = %v, want 0.05", m.CapExPctRevenue)
	}
	if m.CapEx != 6.05 {
		t.Errorf("capex magnitude = %v, want 6.05 (sign flipped)", m.CapEx)
	}
	if !approxEqual(m.DepreciationPctRevenue, 0.04, 1e-9) {
		t.Errorf("depreciation pct = %v, want 0.04", m.DepreciationPctRevenue)
	}
	if !approxEqual(m.TaxRate, 0.21, 1e-9) {
		t.Errorf("tax rate = %v, want 0.21", m.TaxRate)
	}
	if m.NetDebt != 18 {
		t.Errorf("net debt = %v, want 18", m.NetDebt)
	}

	// 100 → 121 over two years is exactly 10% compounded.
	if !m.GrowthFromHistory {
		t.Error("expected growth from history with a 3-period revenue series")
	}
	if !approxEqual(m.HistoricalCAGR, 0.10, 1e-9) {
		t.Errorf("historical CAGR = %v, want 0.10", m.HistoricalCAGR)
	}
	if m.RevenuePeriods != 3 {
		t.Errorf("revenue periods = %d, want 3", m.RevenuePeriods)
	}

	if len(m.Defaulted) != 0 {
		t.Errorf("expected no defaulted fields, got %v", m.Defaulted)
	}
}

func TestExtractBaseMetricsEmptyBundleDefaults(t *testing.T) {
	m := ExtractBaseMetrics(&models.FundamentalsBundle{Ticker: "NADA"})

	if m.OperatingMargin != DefaultOperatingMargin {
		t.Errorf("operating margin = %v, want default %v", m.OperatingMargin, DefaultOperatingMargin)
	}
	if m.CapExPctRevenue != DefaultCapExPct {
		t.Errorf("capex pct = %v, want default %v", m.CapExPctRevenue, DefaultCapExPct)
	}
	if m.DepreciationPctRevenue != DefaultDepreciationPct {
		t.Errorf("depreciation pct = %v, want default %v", m.DepreciationPctRevenue, DefaultDepreciationPct)
	}
	if m.NWCPctRevenue != DefaultNWCPct {
		t.Errorf("nwc pct = %v, want default %v", m.NWCPctRevenue, DefaultNWCPct)
	}
	if m.TaxRate != DefaultTaxRate {
		t.Errorf("tax rate = %v, want default %v", m.TaxRate, DefaultTaxRate)
	}
	if m.GrowthFromHistory {
		t.Error("no revenue history should mean GrowthFromHistory=false")
	}
	if m.HistoricalCAGR != DefaultRevenueGrowth {
		t.Errorf("historical CAGR = %v, want default %v", m.HistoricalCAGR, DefaultRevenueGrowth)
	}

	for _, field := range []string{
		"revenue", "operating margin", "capex ratio",
		"depreciation ratio", "tax rate", "historical growth",
	} {
		if !slices.Contains(m.Defaulted, field) {
			t.Errorf("Defaulted missing %q: %v", field, m.Defaulted)
		}
	}
}

func TestExtractBaseMetricsCAGRClamp(t *testing.T) {
	b := fullBundle()
	// 10 → 1000 over two years is ~900% CAGR, far past the cap.
	b.Income.SetRow("Total Revenue", 1000, 100, 10)
	m := ExtractBaseMetrics(b)
	if m.HistoricalCAGR != maxHistoricalCAGR {
		t.Errorf("CAGR = %v, want clamped to %v", m.HistoricalCAGR, maxHistoricalCAGR)
	}

	// Collapsing revenue clamps at the floor.
	b.Income.SetRow("Total Revenue", 10, 100, 1000)
	m = ExtractBaseMetrics(b)
	if m.HistoricalCAGR != minHistoricalCAGR {
		t.Errorf("CAGR = %v, want clamped to %v", m.HistoricalCAGR, minHistoricalCAGR)
	}
}

func TestExtractBaseMetricsSkipsZeroPaddedPeriods(t *testing.T) {
	b := fullBundle()
	// Oldest period unreported: only two usable points, 110 → 121 = 10%.
	b.Income.SetRow("Total Revenue", 121, 110, 0)
	m := ExtractBaseMetrics(b)
	if m.RevenuePeriods != 2 {
		t.Errorf("revenue periods = %d, want 2", m.RevenuePeriods)
	}
	if !approxEqual(m.HistoricalCAGR, 0.10, 1e-9) {
		t.Errorf("historical CAGR = %v, want 0.10", m.HistoricalCAGR)
	}
}

func TestExtractBaseMetricsSharesFromMarketCap(t *testing.T) {
	b := fullBundle()
	b.Facts.SharesOutstanding = 0
	b.Facts.MarketCap = 150
	b.Facts.SharePrice = 50
	m := ExtractBaseMetrics(b)
	if m.SharesOutstanding != 3 {
		t.Errorf("shares = %v, want 3 derived from market cap / price", m.SharesOutstanding)
	}
}

func TestExtractTaxRateGuards(t *testing.T) {
	b := fullBundle()
	// Negative pretax income makes the effective rate meaningless.
	b.Income.SetRow("Pretax Income", -5, 20, 18)
	m := ExtractBaseMetrics(b)
	if m.TaxRate != DefaultTaxRate {
		t.Errorf("tax rate = %v, want default on negative pretax", m.TaxRate)
	}

	// An effective rate above 50% is clamped, not trusted.
	b = fullBundle()
	b.Income.SetRow("Tax Provision", 20, 4.2, 3.78)
	m = ExtractBaseMetrics(b)
	if m.TaxRate != 0.50 {
		t.Errorf("tax rate = %v, want clamped to 0.50", m.TaxRate)
	}
}

func TestExtractTotalDebtFallbackChain(t *testing.T) {
	// Facts win over the balance sheet.
	b := fullBundle()
	b.Facts.TotalDebt = 40
	if m := ExtractBaseMetrics(b); m.TotalDebt != 40 {
		t.Errorf("total debt = %v, want 40 from facts", m.TotalDebt)
	}

	// Without a combined row, long- plus short-term debt is summed.
	b = fullBundle()
	delete(b.Balance.Rows, "Total Debt")
	b.Balance.SetRow("Long Term Debt", 25, 25, 25)
	b.Balance.SetRow("Current Debt", 5, 5, 5)
	if m := ExtractBaseMetrics(b); m.TotalDebt != 30 {
		t.Errorf("total debt = %v, want 30 from LT+ST", m.TotalDebt)
	}
}

func TestHistoricalCAGRNaNNeverEscapes(t *testing.T) {
	b := fullBundle()
	b.Income.SetRow("Total Revenue", 121)
	m := ExtractBaseMetrics(b)
	if math.IsNaN(m.HistoricalCAGR) {
		t.Error("single-period history must not produce NaN CAGR")
	}
}
