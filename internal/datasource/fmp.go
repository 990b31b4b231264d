package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/equitylens/equitylens/internal/infra"
	"github.com/equitylens/equitylens/pkg/models"
	"github.com/equitylens/equitylens/pkg/utils"
)

const fmpBaseURL = "https://financialmodelingprep.com/api/v3"

// fmpStatementYears is how many annual periods to request.
const fmpStatementYears = 5

// FMP implements the DataSource interface using the financialmodelingprep
// API. Enabled only when an API key is configured.
type FMP struct {
	baseURL  string
	apiKey   string
	bundles  *infra.Cache[*models.FundamentalsBundle]
	throttle *infra.Throttle
}

// NewFMP creates a new financialmodelingprep data source.
func NewFMP(apiKey string) *FMP {
	return &FMP{
		baseURL:  fmpBaseURL,
		apiKey:   apiKey,
		bundles:  infra.NewCache[*models.FundamentalsBundle](time.Hour),
		throttle: infra.NewThrottle(4), // free-tier budget
	}
}

// NewFMPWithBaseURL creates an FMP source pointed at a custom host.
func NewFMPWithBaseURL(baseURL, apiKey string) *FMP {
	f := NewFMP(apiKey)
	f.baseURL = strings.TrimSuffix(baseURL, "/")
	return f
}

// Name returns the data source name.
func (f *FMP) Name() string { return "FMP" }

// Enabled reports whether an API key is configured.
func (f *FMP) Enabled() bool { return f.apiKey != "" }

// --- FMP API types ---

type fmpIncome struct {
	Date                        string  `json:"date"`
	Revenue                     float64 `json:"revenue"`
	CostOfRevenue               float64 `json:"costOfRevenue"`
	GrossProfit                 float64 `json:"grossProfit"`
	OperatingIncome             float64 `json:"operatingIncome"`
	IncomeBeforeTax             float64 `json:"incomeBeforeTax"`
	IncomeTaxExpense            float64 `json:"incomeTaxExpense"`
	NetIncome                   float64 `json:"netIncome"`
	InterestExpense             float64 `json:"interestExpense"`
	DepreciationAndAmortization float64 `json:"depreciationAndAmortization"`
	EBITDA                      float64 `json:"ebitda"`
	SGAExpense                  float64 `json:"generalAndAdministrativeExpenses"`
}

type fmpBalance struct {
	Date                    string  `json:"date"`
	CashAndCashEquivalents  float64 `json:"cashAndCashEquivalents"`
	NetReceivables          float64 `json:"netReceivables"`
	Inventory               float64 `json:"inventory"`
	TotalCurrentAssets      float64 `json:"totalCurrentAssets"`
	PropertyPlantEquipment  float64 `json:"propertyPlantEquipmentNet"`
	TotalAssets             float64 `json:"totalAssets"`
	ShortTermDebt           float64 `json:"shortTermDebt"`
	TotalCurrentLiabilities float64 `json:"totalCurrentLiabilities"`
	LongTermDebt            float64 `json:"longTermDebt"`
	TotalDebt               float64 `json:"totalDebt"`
	RetainedEarnings        float64 `json:"retainedEarnings"`
	TotalStockholdersEquity float64 `json:"totalStockholdersEquity"`
}

type fmpCashFlow struct {
	Date                        string  `json:"date"`
	OperatingCashFlow           float64 `json:"operatingCashFlow"`
	CapitalExpenditure          float64 `json:"capitalExpenditure"`
	DepreciationAndAmortization float64 `json:"depreciationAndAmortization"`
	DividendsPaid               float64 `json:"dividendsPaid"`
	FreeCashFlow                float64 `json:"freeCashFlow"`
}

type fmpProfile struct {
	Symbol            string  `json:"symbol"`
	CompanyName       string  `json:"companyName"`
	ExchangeShortName string  `json:"exchangeShortName"`
	Sector            string  `json:"sector"`
	Industry          string  `json:"industry"`
	Currency          string  `json:"currency"`
	Price             float64 `json:"price"`
	MktCap            float64 `json:"mktCap"`
	Beta              float64 `json:"beta"`
}

// --- Public methods ---

// GetFundamentals returns statements assembled from the three FMP
// annual-statement endpoints.
func (f *FMP) GetFundamentals(ctx context.Context, ticker string) (*models.FundamentalsBundle, error) {
	if !f.Enabled() {
		return nil, ErrNotSupported
	}
	symbol := utils.NormalizeTicker(ticker)

	if bundle, ok := f.bundles.Get(symbol); ok {
		return bundle, nil
	}

	var income []fmpIncome
	if err := f.getJSON(ctx, fmt.Sprintf("income-statement/%s?limit=%d", symbol, fmpStatementYears), &income); err != nil {
		return nil, fmt.Errorf("fmp income %s: %w", symbol, err)
	}
	var balance []fmpBalance
	if err := f.getJSON(ctx, fmt.Sprintf("balance-sheet-statement/%s?limit=%d", symbol, fmpStatementYears), &balance); err != nil {
		return nil, fmt.Errorf("fmp balance %s: %w", symbol, err)
	}
	var cashflow []fmpCashFlow
	if err := f.getJSON(ctx, fmt.Sprintf("cash-flow-statement/%s?limit=%d", symbol, fmpStatementYears), &cashflow); err != nil {
		return nil, fmt.Errorf("fmp cash flow %s: %w", symbol, err)
	}

	if len(income) == 0 && len(balance) == 0 && len(cashflow) == 0 {
		return nil, fmt.Errorf("%w: %s on FMP", ErrTickerNotFound, ticker)
	}

	bundle := &models.FundamentalsBundle{
		Ticker:    symbol,
		Income:    fmpIncomeTable(income),
		Balance:   fmpBalanceTable(balance),
		CashFlow:  fmpCashFlowTable(cashflow),
		Source:    f.Name(),
		FetchedAt: time.Now(),
	}

	f.bundles.Put(symbol, bundle)
	return bundle, nil
}

// GetProfile returns company identity and market facts from the FMP profile
// endpoint.
func (f *FMP) GetProfile(ctx context.Context, ticker string) (*models.CompanyProfile, error) {
	if !f.Enabled() {
		return nil, ErrNotSupported
	}
	symbol := utils.NormalizeTicker(ticker)

	var profiles []fmpProfile
	if err := f.getJSON(ctx, "profile/"+symbol, &profiles); err != nil {
		return nil, fmt.Errorf("fmp profile %s: %w", symbol, err)
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("%w: %s on FMP", ErrTickerNotFound, ticker)
	}

	p := profiles[0]
	return &models.CompanyProfile{
		Stock: models.Stock{
			Ticker:    symbol,
			Name:      p.CompanyName,
			Exchange:  p.ExchangeShortName,
			Sector:    p.Sector,
			Industry:  p.Industry,
			Currency:  p.Currency,
			MarketCap: p.MktCap,
		},
		FetchedAt: time.Now(),
	}, nil
}

// GetQuote is not supported on the free FMP tier.
func (f *FMP) GetQuote(_ context.Context, _ string) (*models.Quote, error) {
	return nil, ErrNotSupported
}

// GetCandles is not supported on the free FMP tier.
func (f *FMP) GetCandles(_ context.Context, _ string, _, _ time.Time, _ models.Timeframe) ([]models.OHLCV, error) {
	return nil, ErrNotSupported
}

// --- Internal helpers ---

func (f *FMP) getJSON(ctx context.Context, pathAndQuery string, out any) error {
	if err := f.throttle.Wait(ctx); err != nil {
		return err
	}

	sep := "?"
	if strings.Contains(pathAndQuery, "?") {
		sep = "&"
	}
	url := fmt.Sprintf("%s/%s%sapikey=%s", f.baseURL, pathAndQuery, sep, f.apiKey)

	body, _, err := doGet(ctx, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse FMP response: %w", err)
	}
	return nil
}

func fmpIncomeTable(income []fmpIncome) models.StatementTable {
	periods := make([]string, len(income))
	for i, st := range income {
		periods[i] = st.Date
	}
	t := models.NewStatementTable(periods...)
	for i, st := range income {
		setCell(&t, "Revenue", i, st.Revenue)
		setCell(&t, "Cost Of Revenue", i, st.CostOfRevenue)
		setCell(&t, "Gross Profit", i, st.GrossProfit)
		setCell(&t, "Operating Income", i, st.OperatingIncome)
		setCell(&t, "Income Before Tax", i, st.IncomeBeforeTax)
		setCell(&t, "Income Tax Expense", i, st.IncomeTaxExpense)
		setCell(&t, "Net Income", i, st.NetIncome)
		setCell(&t, "Interest Expense", i, st.InterestExpense)
		setCell(&t, "Depreciation And Amortization", i, st.DepreciationAndAmortization)
		setCell(&t, "EBITDA", i, st.EBITDA)
		setCell(&t, "Selling General And Administrative", i, st.SGAExpense)
	}
	return t
}

func fmpBalanceTable(balance []fmpBalance) models.StatementTable {
	periods := make([]string, len(balance))
	for i, st := range balance {
		periods[i] = st.Date
	}
	t := models.NewStatementTable(periods...)
	for i, st := range balance {
		setCell(&t, "Cash And Cash Equivalents", i, st.CashAndCashEquivalents)
		setCell(&t, "Net Receivables", i, st.NetReceivables)
		setCell(&t, "Inventory", i, st.Inventory)
		setCell(&t, "Total Current Assets", i, st.TotalCurrentAssets)
		setCell(&t, "Net PPE", i, st.PropertyPlantEquipment)
		setCell(&t, "Total Assets", i, st.TotalAssets)
		setCell(&t, "Short Term Debt", i, st.ShortTermDebt)
		setCell(&t, "Total Current Liabilities", i, st.TotalCurrentLiabilities)
		setCell(&t, "Long Term Debt", i, st.LongTermDebt)
		setCell(&t, "Total Debt", i, st.TotalDebt)
		setCell(&t, "Retained Earnings", i, st.RetainedEarnings)
		setCell(&t, "Total Stockholders Equity", i, st.TotalStockholdersEquity)
	}
	return t
}

func fmpCashFlowTable(cashflow []fmpCashFlow) models.StatementTable {
	periods := make([]string, len(cashflow))
	for i, st := range cashflow {
		periods[i] = st.Date
	}
	t := models.NewStatementTable(periods...)
	for i, st := range cashflow {
		setCell(&t, "Operating Cash Flow", i, st.OperatingCashFlow)
		setCell(&t, "Capital Expenditure", i, st.CapitalExpenditure)
		setCell(&t, "Depreciation And Amortization", i, st.DepreciationAndAmortization)
		setCell(&t, "Dividends Paid", i, st.DividendsPaid)
		setCell(&t, "Free Cash Flow", i, st.FreeCashFlow)
	}
	return t
}

// setCell writes one period value into a row, creating the row on first use.
func setCell(t *models.StatementTable, caption string, periodIdx int, value float64) {
	row, ok := t.Rows[caption]
	if !ok {
		row = make([]float64, len(t.Periods))
		t.Rows[caption] = row
	}
	row[periodIdx] = value
}
