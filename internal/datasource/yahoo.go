package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/equitylens/equitylens/internal/infra"
	"github.com/equitylens/equitylens/pkg/models"
	"github.com/equitylens/equitylens/pkg/utils"
)

// yahooBaseURL is the production Yahoo Finance API host. Tests point the
// source at an httptest server instead.
const yahooBaseURL = "https://query1.finance.yahoo.com"

// Yahoo implements the DataSource interface using the Yahoo Finance chart v8
// and quoteSummary v10 JSON endpoints. It is the primary quote and candle
// source and the last-resort statement source.
type Yahoo struct {
	baseURL  string
	quotes   *infra.Cache[*models.Quote]
	candles  *infra.Cache[[]models.OHLCV]
	facts    *infra.Cache[*models.CompanyFacts]
	bundles  *infra.Cache[*models.FundamentalsBundle]
	throttle *infra.Throttle
}

// NewYahoo creates a new Yahoo Finance data source.
func NewYahoo() *Yahoo {
	return &Yahoo{
		baseURL:  yahooBaseURL,
		quotes:   infra.NewCache[*models.Quote](5 * time.Minute),
		candles:  infra.NewCache[[]models.OHLCV](15 * time.Minute),
		facts:    infra.NewCache[*models.CompanyFacts](time.Hour),
		bundles:  infra.NewCache[*models.FundamentalsBundle](time.Hour),
		throttle: infra.NewThrottle(5), // query1 tolerates ~5 req/s
	}
}

// NewYahooWithBaseURL creates a Yahoo source pointed at a custom host.
func NewYahooWithBaseURL(baseURL string) *Yahoo {
	y := NewYahoo()
	y.baseURL = strings.TrimSuffix(baseURL, "/")
	return y
}

// Name returns the data source name.
func (y *Yahoo) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance API types ---

// yfValue is Yahoo's {"raw": 1234.5, "fmt": "1.23K"} number wrapper.
type yfValue struct {
	Raw float64 `json:"raw"`
	Fmt string  `json:"fmt"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol             string  `json:"symbol"`
	Currency           string  `json:"currency"`
	ExchangeName       string  `json:"exchangeName"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
}

type yfIndicators struct {
	Quote    []yfOHLCV    `json:"quote"`
	AdjClose []yfAdjClose `json:"adjclose"`
}

type yfOHLCV struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type yfAdjClose struct {
	AdjClose []*float64 `json:"adjclose"`
}

type yfSummaryResponse struct {
	QuoteSummary struct {
		Result []yfSummaryResult `json:"result"`
		Error  *yfError          `json:"error"`
	} `json:"quoteSummary"`
}

type yfSummaryResult struct {
	Price                *yfPrice        `json:"price"`
	SummaryDetail        *yfDetail       `json:"summaryDetail"`
	FinancialData        *yfFinData      `json:"financialData"`
	DefaultKeyStatistics *yfKeyStats     `json:"defaultKeyStatistics"`
	AssetProfile         *yfAssetProfile `json:"assetProfile"`

	IncomeStatementHistory   *yfIncomeHistory   `json:"incomeStatementHistory"`
	BalanceSheetHistory      *yfBalanceHistory  `json:"balanceSheetHistory"`
	CashflowStatementHistory *yfCashflowHistory `json:"cashflowStatementHistory"`
}

type yfPrice struct {
	ShortName                  string  `json:"shortName"`
	LongName                   string  `json:"longName"`
	Currency                   string  `json:"currency"`
	ExchangeName               string  `json:"exchangeName"`
	RegularMarketPrice         yfValue `json:"regularMarketPrice"`
	RegularMarketChange        yfValue `json:"regularMarketChange"`
	RegularMarketChangePercent yfValue `json:"regularMarketChangePercent"`
	RegularMarketOpen          yfValue `json:"regularMarketOpen"`
	RegularMarketDayHigh       yfValue `json:"regularMarketDayHigh"`
	RegularMarketDayLow        yfValue `json:"regularMarketDayLow"`
	RegularMarketPreviousClose yfValue `json:"regularMarketPreviousClose"`
	RegularMarketVolume        yfValue `json:"regularMarketVolume"`
	MarketCap                  yfValue `json:"marketCap"`
	RegularMarketTime          int64   `json:"regularMarketTime"`
}

type yfDetail struct {
	FiftyTwoWeekHigh yfValue `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow  yfValue `json:"fiftyTwoWeekLow"`
	TrailingPE       yfValue `json:"trailingPE"`
	DividendYield    yfValue `json:"dividendYield"`
}

type yfFinData struct {
	TotalDebt yfValue `json:"totalDebt"`
	TotalCash yfValue `json:"totalCash"`
}

type yfKeyStats struct {
	SharesOutstanding yfValue `json:"sharesOutstanding"`
	Beta              yfValue `json:"beta"`
	TrailingEps       yfValue `json:"trailingEps"`
}

type yfAssetProfile struct {
	Sector   string `json:"sector"`
	Industry string `json:"industry"`
}

// Yahoo nests each statement list under a key repeating the module name.
type yfIncomeHistory struct {
	Statements []yfStatement `json:"incomeStatementHistory"`
}

type yfBalanceHistory struct {
	Statements []yfStatement `json:"balanceSheetStatements"`
}

type yfCashflowHistory struct {
	Statements []yfStatement `json:"cashflowStatements"`
}

// yfStatement keeps the raw field map: line items vary by company and the
// caption set is open-ended, so rows are lifted generically.
type yfStatement map[string]json.RawMessage

// --- Public methods ---

// GetQuote returns a quote from the quoteSummary price + summaryDetail modules.
func (y *Yahoo) GetQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	symbol := utils.ToYahooTicker(ticker)

	if quote, ok := y.quotes.Get(symbol); ok {
		return quote, nil
	}

	result, err := y.quoteSummary(ctx, symbol, "price,summaryDetail")
	if err != nil {
		return nil, fmt.Errorf("yahoo quote %s: %w", symbol, err)
	}
	if result.Price == nil {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, ticker)
	}

	p := result.Price
	quote := &models.Quote{
		Ticker:    utils.FromYahooTicker(symbol),
		Name:      coalesce(p.LongName, p.ShortName),
		LastPrice: p.RegularMarketPrice.Raw,
		Change:    p.RegularMarketChange.Raw,
		ChangePct: p.RegularMarketChangePercent.Raw * 100,
		Open:      p.RegularMarketOpen.Raw,
		High:      p.RegularMarketDayHigh.Raw,
		Low:       p.RegularMarketDayLow.Raw,
		PrevClose: p.RegularMarketPreviousClose.Raw,
		Volume:    int64(p.RegularMarketVolume.Raw),
		MarketCap: p.MarketCap.Raw,
		Currency:  p.Currency,
		Timestamp: time.Unix(p.RegularMarketTime, 0),
	}
	if d := result.SummaryDetail; d != nil {
		quote.WeekHigh52 = d.FiftyTwoWeekHigh.Raw
		quote.WeekLow52 = d.FiftyTwoWeekLow.Raw
		quote.PE = d.TrailingPE.Raw
		quote.DividendYield = d.DividendYield.Raw * 100 // ratio → percent
	}

	y.quotes.Put(symbol, quote)
	return quote, nil
}

// GetCandles returns OHLCV candles from the Yahoo Finance chart v8 API.
func (y *Yahoo) GetCandles(ctx context.Context, ticker string, from, to time.Time, tf models.Timeframe) ([]models.OHLCV, error) {
	symbol := utils.ToYahooTicker(ticker)

	cacheKey := fmt.Sprintf("%s:%d:%d:%s", symbol, from.Unix(), to.Unix(), tf)
	if candles, ok := y.candles.Get(cacheKey); ok {
		return candles, nil
	}

	if err := y.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf(
		"%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=%s",
		y.baseURL, symbol, from.Unix(), to.Unix(), yfInterval(tf),
	)

	body, _, err := doGet(ctx, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp yfChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse yahoo chart: %w", err)
	}

	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart error: %s", resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, ticker)
	}

	candles := parseYFCandles(resp.Chart.Result[0])

	y.candles.Put(cacheKey, candles)
	return candles, nil
}

// GetFacts returns scalar company/market facts from the quoteSummary modules.
func (y *Yahoo) GetFacts(ctx context.Context, ticker string) (*models.CompanyFacts, error) {
	symbol := utils.ToYahooTicker(ticker)

	if facts, ok := y.facts.Get(symbol); ok {
		return facts, nil
	}

	result, err := y.quoteSummary(ctx, symbol,
		"price,summaryDetail,financialData,defaultKeyStatistics,assetProfile")
	if err != nil {
		return nil, fmt.Errorf("yahoo facts %s: %w", symbol, err)
	}
	if result.Price == nil {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, ticker)
	}

	facts := &models.CompanyFacts{
		Name:       coalesce(result.Price.LongName, result.Price.ShortName),
		Exchange:   result.Price.ExchangeName,
		Currency:   result.Price.Currency,
		SharePrice: result.Price.RegularMarketPrice.Raw,
		MarketCap:  result.Price.MarketCap.Raw,
	}
	if d := result.SummaryDetail; d != nil {
		facts.TrailingPE = d.TrailingPE.Raw
		facts.DividendYield = d.DividendYield.Raw
	}
	if f := result.FinancialData; f != nil {
		facts.TotalDebt = f.TotalDebt.Raw
		facts.CashAndEquivalents = f.TotalCash.Raw
	}
	if k := result.DefaultKeyStatistics; k != nil {
		facts.SharesOutstanding = k.SharesOutstanding.Raw
		facts.Beta = k.Beta.Raw
	}
	if a := result.AssetProfile; a != nil {
		facts.Sector = a.Sector
		facts.Industry = a.Industry
	}

	y.facts.Put(symbol, facts)
	return facts, nil
}

// GetFundamentals returns a bundle with facts plus whatever annual statement
// history the quoteSummary modules still expose. Statement coverage on this
// endpoint is thinner than the scraped sources; it is the fallback of last
// resort in the aggregator.
func (y *Yahoo) GetFundamentals(ctx context.Context, ticker string) (*models.FundamentalsBundle, error) {
	symbol := utils.ToYahooTicker(ticker)

	if bundle, ok := y.bundles.Get(symbol); ok {
		return bundle, nil
	}

	result, err := y.quoteSummary(ctx, symbol,
		"incomeStatementHistory,balanceSheetHistory,cashflowStatementHistory")
	if err != nil {
		return nil, fmt.Errorf("yahoo fundamentals %s: %w", symbol, err)
	}

	bundle := &models.FundamentalsBundle{
		Ticker:    utils.FromYahooTicker(symbol),
		Source:    y.Name(),
		FetchedAt: time.Now(),
	}
	if h := result.IncomeStatementHistory; h != nil {
		bundle.Income = statementsToTable(h.Statements)
	}
	if h := result.BalanceSheetHistory; h != nil {
		bundle.Balance = statementsToTable(h.Statements)
	}
	if h := result.CashflowStatementHistory; h != nil {
		bundle.CashFlow = statementsToTable(h.Statements)
	}

	if !bundle.HasStatements() {
		return nil, fmt.Errorf("yahoo fundamentals %s: no statement data", symbol)
	}

	y.bundles.Put(symbol, bundle)
	return bundle, nil
}

// GetProfile assembles a company profile from quote and facts.
func (y *Yahoo) GetProfile(ctx context.Context, ticker string) (*models.CompanyProfile, error) {
	quote, err := y.GetQuote(ctx, ticker)
	if err != nil {
		return nil, err
	}

	profile := &models.CompanyProfile{
		Stock: models.Stock{
			Ticker:    utils.NormalizeTicker(ticker),
			Name:      quote.Name,
			Currency:  quote.Currency,
			MarketCap: quote.MarketCap,
		},
		Quote:     quote,
		FetchedAt: time.Now(),
	}

	if facts, err := y.GetFacts(ctx, ticker); err == nil {
		profile.Stock.Exchange = facts.Exchange
		profile.Stock.Sector = facts.Sector
		profile.Stock.Industry = facts.Industry
	}

	return profile, nil
}

// --- Internal helpers ---

// quoteSummary fetches and unwraps a v10 quoteSummary call for the given modules.
func (y *Yahoo) quoteSummary(ctx context.Context, symbol, modules string) (*yfSummaryResult, error) {
	if err := y.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s", y.baseURL, symbol, modules)
	body, _, err := doGet(ctx, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp yfSummaryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse quoteSummary: %w", err)
	}
	if resp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("yahoo API error: %s", resp.QuoteSummary.Error.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, ErrTickerNotFound
	}
	return &resp.QuoteSummary.Result[0], nil
}

// statementsToTable lifts Yahoo's per-year field maps into a StatementTable.
// Field names are camelCase ("totalRevenue"); captions are their spaced form
// ("Total Revenue"), which the alias tables already cover.
func statementsToTable(statements []yfStatement) models.StatementTable {
	periods := make([]string, 0, len(statements))
	for _, st := range statements {
		periods = append(periods, statementEndDate(st))
	}

	table := models.NewStatementTable(periods...)
	for i, st := range statements {
		for field, raw := range st {
			if field == "endDate" || field == "maxAge" {
				continue
			}
			var v yfValue
			if err := json.Unmarshal(raw, &v); err != nil || (v.Raw == 0 && v.Fmt == "") {
				continue
			}
			caption := splitCamel(field)
			row, ok := table.Rows[caption]
			if !ok {
				row = make([]float64, len(periods))
				table.Rows[caption] = row
			}
			row[i] = v.Raw
		}
	}
	return table
}

func statementEndDate(st yfStatement) string {
	raw, ok := st["endDate"]
	if !ok {
		return ""
	}
	var v yfValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v.Fmt
}

// splitCamel converts "totalRevenue" to "Total Revenue".
func splitCamel(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i == 0 {
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		if unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func parseYFCandles(result yfChartResult) []models.OHLCV {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}

	q := result.Indicators.Quote[0]
	var adjCloses []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjCloses = result.Indicators.AdjClose[0].AdjClose
	}

	candles := make([]models.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c := models.OHLCV{
			Timestamp: time.Unix(ts, 0),
		}
		if i < len(q.Open) && q.Open[i] != nil {
			c.Open = *q.Open[i]
		}
		if i < len(q.High) && q.High[i] != nil {
			c.High = *q.High[i]
		}
		if i < len(q.Low) && q.Low[i] != nil {
			c.Low = *q.Low[i]
		}
		if i < len(q.Close) && q.Close[i] != nil {
			c.Close = *q.Close[i]
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			c.Volume = *q.Volume[i]
		}
		if i < len(adjCloses) && adjCloses[i] != nil {
			c.AdjClose = *adjCloses[i]
		}
		candles = append(candles, c)
	}
	return candles
}

func yfInterval(tf models.Timeframe) string {
	switch tf {
	case models.Timeframe1Min:
		return "1m"
	case models.Timeframe5Min:
		return "5m"
	case models.Timeframe15Min:
		return "15m"
	case models.Timeframe1Hour:
		return "1h"
	case models.Timeframe1Day:
		return "1d"
	case models.Timeframe1Week:
		return "1wk"
	case models.Timeframe1Mon:
		return "1mo"
	default:
		return "1d"
	}
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
