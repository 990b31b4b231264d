package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/equitylens/equitylens/pkg/models"
)

func saStatementPage(rows string) string {
	return fmt.Sprintf(`<html><body>
<p>Financials in millions USD.</p>
<table>
<thead><tr><th>Fiscal Year</th><th>FY 2024</th><th>FY 2023</th></tr></thead>
<tbody>%s</tbody>
</table>
</body></html>`, rows)
}

const saIncomeRows = `
<tr><td>Revenue</td><td>391,035</td><td>383,285</td></tr>
<tr><td>Operating Income</td><td>123,216</td><td>114,301</td></tr>
<tr><td>Operating Margin</td><td>31.51%</td><td>29.82%</td></tr>
<tr><td>Income Tax</td><td>29,749</td><td>16,741</td></tr>
<tr><td>Pretax Income</td><td>123,485</td><td>113,736</td></tr>
`

const saBalanceRows = `
<tr><td>Cash &amp; Equivalents</td><td>29,943</td><td>29,965</td></tr>
<tr><td>Total Debt</td><td>106,629</td><td>111,088</td></tr>
<tr><td>Total Current Assets</td><td>152,987</td><td>143,566</td></tr>
<tr><td>Total Current Liabilities</td><td>176,392</td><td>145,308</td></tr>
`

const saCashFlowRows = `
<tr><td>Capital Expenditures</td><td>(9,447)</td><td>(10,959)</td></tr>
<tr><td>Depreciation &amp; Amortization</td><td>11,445</td><td>11,519</td></tr>
<tr><td>Free Cash Flow</td><td>108,807</td><td>99,584</td></tr>
`

func stockAnalysisStub(t *testing.T) *StockAnalysis {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch {
		case strings.Contains(r.URL.Path, "balance-sheet"):
			fmt.Fprint(w, saStatementPage(saBalanceRows))
		case strings.Contains(r.URL.Path, "cash-flow"):
			fmt.Fprint(w, saStatementPage(saCashFlowRows))
		default:
			fmt.Fprint(w, saStatementPage(saIncomeRows))
		}
	}))
	t.Cleanup(srv.Close)
	return NewStockAnalysisWithBaseURL(srv.URL)
}

func TestStockAnalysisGetFundamentals(t *testing.T) {
	sa := stockAnalysisStub(t)

	bundle, err := sa.GetFundamentals(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetFundamentals: %v", err)
	}
	if bundle.Ticker != "AAPL" {
		t.Errorf("ticker = %q, want AAPL", bundle.Ticker)
	}

	rev, ok := bundle.Income.Latest(models.AliasRevenue...)
	if !ok {
		t.Fatal("revenue row not resolvable")
	}
	if rev != 391035e6 {
		t.Errorf("revenue = %v, want 391035e6 (page scale applied)", rev)
	}

	capex, ok := bundle.CashFlow.Latest(models.AliasCapEx...)
	if !ok {
		t.Fatal("capex row not resolvable")
	}
	if capex != -9447e6 {
		t.Errorf("capex = %v, want -9447e6 (parenthesized negative)", capex)
	}

	debt, ok := bundle.Balance.Latest(models.AliasTotalDebt...)
	if !ok || debt != 106629e6 {
		t.Errorf("total debt = %v ok=%v, want 106629e6", debt, ok)
	}
}

func TestStockAnalysisNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	sa := NewStockAnalysisWithBaseURL(srv.URL)
	_, err := sa.GetFundamentals(context.Background(), "ZZZZ")
	if err == nil {
		t.Fatal("expected error for missing ticker")
	}
	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) {
		t.Errorf("err = %v, want wrapped *ErrHTTP", err)
	}
}

func TestStockAnalysisUnsupportedMethods(t *testing.T) {
	sa := NewStockAnalysis()
	if _, err := sa.GetQuote(context.Background(), "AAPL"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("GetQuote err = %v, want ErrNotSupported", err)
	}
}

func TestParseStatementTablePercentRowsNotScaled(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(saStatementPage(saIncomeRows)))
	if err != nil {
		t.Fatal(err)
	}

	table := parseStatementTable(doc)
	margin, ok := table.Latest("Operating Margin")
	if !ok {
		t.Fatal("margin row missing")
	}
	if margin != 31.51 {
		t.Errorf("margin = %v, want 31.51 (percent cells keep printed value)", margin)
	}
}

func TestDetectScale(t *testing.T) {
	tests := []struct {
		html string
		want float64
	}{
		{"<p>All figures in billions.</p>", 1e9},
		{"<p>All figures in millions.</p>", 1e6},
		{"<p>All figures in thousands.</p>", 1e3},
		{"<p>no units note</p>", 1e6},
	}
	for _, tt := range tests {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body>" + tt.html + "</body></html>"))
		if err != nil {
			t.Fatal(err)
		}
		if got := detectScale(doc); got != tt.want {
			t.Errorf("detectScale(%q) = %v, want %v", tt.html, got, tt.want)
		}
	}
}

func TestParseScaledNumber(t *testing.T) {
	tests := []struct {
		in       string
		want     float64
		absolute bool
	}{
		{"391,035", 391035, false},
		{"(9,447)", -9447, false},
		{"$1,234.5", 1234.5, false},
		{"31.51%", 31.51, true},
		{"12.5B", 12.5e9, true},
		{"270M", 270e6, true},
		{"15K", 15e3, true},
		{"-", 0, false},
		{"—", 0, false},
		{"n/a", 0, false},
		{"", 0, false},
		{"garbage", 0, false},
	}
	for _, tt := range tests {
		got, abs := parseScaledNumber(tt.in)
		if got != tt.want || abs != tt.absolute {
			t.Errorf("parseScaledNumber(%q) = (%v, %v), want (%v, %v)",
				tt.in, got, abs, tt.want, tt.absolute)
		}
	}
}
