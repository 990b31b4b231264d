package datasource

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/equitylens/equitylens/internal/infra"
	"github.com/equitylens/equitylens/pkg/models"
	"github.com/equitylens/equitylens/pkg/utils"
)

const stockAnalysisBaseURL = "https://stockanalysis.com"

// StockAnalysis scrapes financial-statement tables from stockanalysis.com.
// Rows are stored under the captions exactly as printed; downstream lookups
// resolve them through the models alias tables. Primary statement source.
type StockAnalysis struct {
	baseURL  string
	bundles  *infra.Cache[*models.FundamentalsBundle]
	throttle *infra.Throttle
}

// NewStockAnalysis creates a new stockanalysis.com data source.
func NewStockAnalysis() *StockAnalysis {
	return &StockAnalysis{
		baseURL:  stockAnalysisBaseURL,
		bundles:  infra.NewCache[*models.FundamentalsBundle](time.Hour),
		throttle: infra.NewThrottle(1), // scraping, stay conservative
	}
}

// NewStockAnalysisWithBaseURL creates a source pointed at a custom host.
func NewStockAnalysisWithBaseURL(baseURL string) *StockAnalysis {
	s := NewStockAnalysis()
	s.baseURL = strings.TrimSuffix(baseURL, "/")
	return s
}

// Name returns the data source name.
func (s *StockAnalysis) Name() string { return "stockanalysis.com" }

// --- Public methods ---

// GetFundamentals scrapes the three statement pages into a bundle.
func (s *StockAnalysis) GetFundamentals(ctx context.Context, ticker string) (*models.FundamentalsBundle, error) {
	symbol := strings.ToLower(utils.NormalizeTicker(ticker))

	if bundle, ok := s.bundles.Get(symbol); ok {
		return bundle, nil
	}

	bundle := &models.FundamentalsBundle{
		Ticker:    utils.NormalizeTicker(ticker),
		Source:    s.Name(),
		FetchedAt: time.Now(),
	}

	pages := []struct {
		path  string
		table *models.StatementTable
	}{
		{"financials", &bundle.Income},
		{"financials/balance-sheet", &bundle.Balance},
		{"financials/cash-flow-statement", &bundle.CashFlow},
	}

	for _, page := range pages {
		doc, err := s.fetchPage(ctx, symbol, page.path)
		if err != nil {
			return nil, fmt.Errorf("stockanalysis %s/%s: %w", symbol, page.path, err)
		}
		*page.table = parseStatementTable(doc)
	}

	if !bundle.HasStatements() {
		return nil, fmt.Errorf("%w: %s on stockanalysis.com", ErrTickerNotFound, ticker)
	}

	s.bundles.Put(symbol, bundle)
	return bundle, nil
}

// GetProfile returns a profile carrying only fundamentals; quotes come from
// Yahoo.
func (s *StockAnalysis) GetProfile(ctx context.Context, ticker string) (*models.CompanyProfile, error) {
	bundle, err := s.GetFundamentals(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return &models.CompanyProfile{
		Stock:        models.Stock{Ticker: utils.NormalizeTicker(ticker)},
		Fundamentals: bundle,
		FetchedAt:    time.Now(),
	}, nil
}

// GetQuote is not supported by stockanalysis.com.
func (s *StockAnalysis) GetQuote(_ context.Context, _ string) (*models.Quote, error) {
	return nil, ErrNotSupported
}

// GetCandles is not supported by stockanalysis.com.
func (s *StockAnalysis) GetCandles(_ context.Context, _ string, _, _ time.Time, _ models.Timeframe) ([]models.OHLCV, error) {
	return nil, ErrNotSupported
}

// --- Internal helpers ---

// fetchPage downloads and parses one statement page.
func (s *StockAnalysis) fetchPage(ctx context.Context, symbol, path string) (*goquery.Document, error) {
	if err := s.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/stocks/%s/%s/", s.baseURL, symbol, path)
	body, _, err := doGet(ctx, url, map[string]string{
		"Accept": "text/html",
	})
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return doc, nil
}

// parseStatementTable lifts the first data table on the page into a
// StatementTable. The header row carries the fiscal periods; each body row is
// one line item, caption in the first cell. Dollar figures are scaled by the
// page's "in millions/billions/thousands" note; percent cells stay as
// printed.
func parseStatementTable(doc *goquery.Document) models.StatementTable {
	scale := detectScale(doc)

	var periods []string
	doc.Find("table thead tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
		if i == 0 { // row label column
			return
		}
		label := strings.TrimSpace(th.Text())
		// Trailing "Current" / "TTM" columns are not fiscal years but still
		// occupy a column; keep them so row values stay aligned.
		periods = append(periods, label)
	})
	if len(periods) == 0 {
		return models.StatementTable{}
	}

	table := models.NewStatementTable(periods...)

	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		caption := strings.TrimSpace(cells.First().Text())
		if caption == "" {
			return
		}

		values := make([]float64, len(periods))
		cells.Each(func(i int, cell *goquery.Selection) {
			if i == 0 || i-1 >= len(periods) {
				return
			}
			text := strings.TrimSpace(cell.Text())
			val, absolute := parseScaledNumber(text)
			if absolute {
				values[i-1] = val
			} else {
				values[i-1] = val * scale
			}
		})
		table.SetRow(caption, values...)
	})

	return table
}

// detectScale reads the page's units note. stockanalysis.com prints dollar
// line items scaled, usually in millions.
func detectScale(doc *goquery.Document) float64 {
	text := strings.ToLower(doc.Text())
	switch {
	case strings.Contains(text, "in billions"):
		return 1e9
	case strings.Contains(text, "in thousands"):
		return 1e3
	case strings.Contains(text, "in millions"):
		return 1e6
	default:
		return 1e6
	}
}

// parseScaledNumber parses a table cell: commas, $ signs, parenthesized
// negatives, "-"/"—" placeholders, and % / B / M / K suffixes. absolute is
// true when the cell carries its own unit (percent or a magnitude suffix)
// and the page scale must not be applied on top.
func parseScaledNumber(s string) (val float64, absolute bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || s == "—" || strings.EqualFold(s, "n/a") {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.TrimSpace(s)

	if strings.HasSuffix(s, "%") {
		absolute = true
		s = strings.TrimSuffix(s, "%")
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "B"):
		multiplier = 1e9
		absolute = true
		s = strings.TrimSuffix(s, "B")
	case strings.HasSuffix(s, "M"):
		multiplier = 1e6
		absolute = true
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "K"):
		multiplier = 1e3
		absolute = true
		s = strings.TrimSuffix(s, "K")
	}

	parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	if negative {
		parsed = -parsed
	}
	return parsed * multiplier, absolute
}
