package models

import (
	"strings"
	"time"
)

// StatementTable is a single financial statement: line-item caption × period,
// most-recent period first. Captions are stored as the data vendor printed
// them; lookups go through ordered alias lists so that "Total Revenue",
// "Revenue" and "Net Sales" all resolve to the same logical field.
type StatementTable struct {
	Periods []string             `json:"periods"` // e.g., ["FY2025", "FY2024", ...]
	Rows    map[string][]float64 `json:"rows"`    // caption → one value per period
}

// NewStatementTable creates an empty table for the given periods.
func NewStatementTable(periods ...string) StatementTable {
	return StatementTable{
		Periods: periods,
		Rows:    make(map[string][]float64),
	}
}

// SetRow stores a line item under the given caption. Values are aligned with
// Periods; short rows are padded with zeros.
func (t *StatementTable) SetRow(caption string, values ...float64) {
	if t.Rows == nil {
		t.Rows = make(map[string][]float64)
	}
	row := make([]float64, len(t.Periods))
	copy(row, values)
	t.Rows[caption] = row
}

// Empty reports whether the table has no periods or no rows.
func (t StatementTable) Empty() bool {
	return len(t.Periods) == 0 || len(t.Rows) == 0
}

// Latest resolves the first alias that matches a row and returns its
// most-recent value. The bool is false when no alias matches.
func (t StatementTable) Latest(aliases ...string) (float64, bool) {
	row, ok := t.lookup(aliases)
	if !ok || len(row) == 0 {
		return 0, false
	}
	return row[0], true
}

// Value returns the value at the given period index (0 = most recent).
func (t StatementTable) Value(periodIdx int, aliases ...string) (float64, bool) {
	row, ok := t.lookup(aliases)
	if !ok || periodIdx < 0 || periodIdx >= len(row) {
		return 0, false
	}
	return row[periodIdx], true
}

// Series returns the full history for the first matching alias,
// most-recent first.
func (t StatementTable) Series(aliases ...string) ([]float64, bool) {
	row, ok := t.lookup(aliases)
	if !ok {
		return nil, false
	}
	out := make([]float64, len(row))
	copy(out, row)
	return out, true
}

// lookup walks the alias list in order and returns the first matching row.
// Caption matching is case- and whitespace-insensitive.
func (t StatementTable) lookup(aliases []string) ([]float64, bool) {
	if len(t.Rows) == 0 {
		return nil, false
	}
	for _, alias := range aliases {
		want := normalizeCaption(alias)
		for caption, row := range t.Rows {
			if normalizeCaption(caption) == want {
				return row, true
			}
		}
	}
	return nil, false
}

// normalizeCaption lowercases and collapses interior whitespace so that
// "Total  Revenue" and "total revenue" compare equal.
func normalizeCaption(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Line-item alias lists, in lookup priority order. These cover the caption
// spellings seen across Yahoo Finance, stockanalysis.com and FMP; extend
// here, never inline in calling code.
var (
	AliasRevenue = []string{
		"Total Revenue", "Revenue", "Net Sales", "Total Sales", "Sales",
		"Operating Revenue",
	}
	AliasOperatingIncome = []string{
		"Operating Income", "Operating Income Loss", "Operating Profit",
		"Income From Operations", "EBIT",
	}
	AliasGrossProfit = []string{
		"Gross Profit", "Gross Income",
	}
	AliasCostOfRevenue = []string{
		"Cost Of Revenue", "Cost Of Goods Sold", "COGS", "Cost Of Sales",
	}
	AliasSGA = []string{
		"Selling General And Administrative", "Selling General & Admin",
		"SG&A Expenses", "SGA Expense",
	}
	AliasNetIncome = []string{
		"Net Income", "Net Income Common Stockholders",
		"Net Income Applicable To Common Shares", "Net Profit",
	}
	AliasPretaxIncome = []string{
		"Pretax Income", "Income Before Tax", "Earnings Before Tax",
		"Pre-Tax Income",
	}
	AliasTaxProvision = []string{
		"Tax Provision", "Income Tax Expense", "Provision For Income Taxes",
		"Income Taxes",
	}
	AliasInterestExpense = []string{
		"Interest Expense", "Interest Expense Non Operating",
		"Net Interest Expense",
	}
	AliasEBITDA = []string{
		"EBITDA", "Normalized EBITDA",
	}

	AliasTotalAssets = []string{
		"Total Assets",
	}
	AliasCurrentAssets = []string{
		"Total Current Assets", "Current Assets",
	}
	AliasCurrentLiabilities = []string{
		"Total Current Liabilities", "Current Liabilities",
	}
	AliasCash = []string{
		"Cash And Cash Equivalents", "Cash & Equivalents",
		"Cash Cash Equivalents And Short Term Investments",
		"Cash And Short Term Investments", "Cash",
	}
	AliasReceivables = []string{
		"Net Receivables", "Receivables", "Accounts Receivable",
	}
	AliasInventory = []string{
		"Inventory", "Inventories",
	}
	AliasNetPPE = []string{
		"Net PPE", "Property Plant And Equipment Net",
		"Property, Plant & Equipment", "Net Property Plant Equipment",
	}
	AliasTotalDebt = []string{
		"Total Debt", "Total Debt And Capital Lease Obligation",
	}
	AliasLongTermDebt = []string{
		"Long Term Debt", "Long-Term Debt",
		"Long Term Debt And Capital Lease Obligation",
	}
	AliasShortTermDebt = []string{
		"Current Debt", "Short Term Debt", "Short-Term Debt",
		"Current Debt And Capital Lease Obligation",
	}
	AliasTotalEquity = []string{
		"Total Equity", "Stockholders Equity", "Total Stockholders Equity",
		"Shareholders Equity", "Total Equity Gross Minority Interest",
	}
	AliasRetainedEarnings = []string{
		"Retained Earnings", "Retained Earnings Accumulated Deficit",
	}

	AliasOperatingCashFlow = []string{
		"Operating Cash Flow", "Total Cash From Operating Activities",
		"Cash Flow From Operations", "Net Cash Provided By Operating Activities",
	}
	AliasCapEx = []string{
		"Capital Expenditure", "Capital Expenditures", "CapEx",
		"Purchase Of PPE",
	}
	AliasDepreciation = []string{
		"Depreciation And Amortization", "Depreciation Amortization Depletion",
		"Depreciation & Amortization", "Depreciation", "Reconciled Depreciation",
	}
	AliasDividendsPaid = []string{
		"Dividends Paid", "Cash Dividends Paid", "Common Stock Dividend Paid",
	}
	AliasFreeCashFlow = []string{
		"Free Cash Flow",
	}
)

// CompanyFacts holds scalar company/market facts resolved alongside the
// statements. Zero values mean "not available" — the valuation layer decides
// what degrades to a default and what is a hard requirement.
type CompanyFacts struct {
	Name               string  `json:"name"`
	Exchange           string  `json:"exchange"`
	Sector             string  `json:"sector"`
	Industry           string  `json:"industry"`
	Currency           string  `json:"currency"`
	SharePrice         float64 `json:"share_price"`
	SharesOutstanding  float64 `json:"shares_outstanding"`
	MarketCap          float64 `json:"market_cap"`
	TotalDebt          float64 `json:"total_debt"`
	CashAndEquivalents float64 `json:"cash_and_equivalents"`
	Beta               float64 `json:"beta"`
	DividendYield      float64 `json:"dividend_yield"`
	TrailingPE         float64 `json:"trailing_pe"`
}

// FundamentalsBundle aggregates everything the analysis and valuation layers
// consume for one company. Produced by the datasource aggregator; treated as
// read-only downstream.
type FundamentalsBundle struct {
	Ticker    string         `json:"ticker"`
	Facts     CompanyFacts   `json:"facts"`
	Income    StatementTable `json:"income_statement"`
	Balance   StatementTable `json:"balance_sheet"`
	CashFlow  StatementTable `json:"cash_flow"`
	Source    string         `json:"source"` // which provider filled the statements
	FetchedAt time.Time      `json:"fetched_at"`
}

// HasStatements reports whether at least one statement table carries data.
func (b *FundamentalsBundle) HasStatements() bool {
	return !b.Income.Empty() || !b.Balance.Empty() || !b.CashFlow.Empty()
}
