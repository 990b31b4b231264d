package datasource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/equitylens/equitylens/internal/infra"
	"github.com/equitylens/equitylens/pkg/models"
	"github.com/equitylens/equitylens/pkg/utils"
)

// Aggregator fetches and merges data from multiple sources concurrently.
// Statements fall back stockanalysis.com → FMP → Yahoo; quotes and facts
// come from Yahoo.
type Aggregator struct {
	yahoo         *Yahoo
	stockAnalysis *StockAnalysis
	fmp           *FMP
	news          *News
}

// NewAggregator creates an aggregator with all default sources. fmpKey may
// be empty, which disables the FMP source.
func NewAggregator(fmpKey string) *Aggregator {
	return &Aggregator{
		yahoo:         NewYahoo(),
		stockAnalysis: NewStockAnalysis(),
		fmp:           NewFMP(fmpKey),
		news:          NewNews(),
	}
}

// NewAggregatorWithLimits creates an aggregator with a configured quote
// cache lifetime and FMP request budget. Non-positive values keep the
// per-source defaults.
func NewAggregatorWithLimits(fmpKey string, quoteTTL time.Duration, fmpPerSec int) *Aggregator {
	a := NewAggregator(fmpKey)
	if quoteTTL > 0 {
		a.yahoo.quotes = infra.NewCache[*models.Quote](quoteTTL)
	}
	if fmpPerSec > 0 {
		a.fmp.throttle = infra.NewThrottle(fmpPerSec)
	}
	return a
}

// NewAggregatorWithSources wires explicit sources, used by tests.
func NewAggregatorWithSources(yahoo *Yahoo, sa *StockAnalysis, fmp *FMP, news *News) *Aggregator {
	return &Aggregator{yahoo: yahoo, stockAnalysis: sa, fmp: fmp, news: news}
}

// Sources returns all registered data sources.
func (a *Aggregator) Sources() []DataSource {
	return []DataSource{a.yahoo, a.stockAnalysis, a.fmp, a.news}
}

// Yahoo returns the Yahoo source for direct access.
func (a *Aggregator) Yahoo() *Yahoo { return a.yahoo }

// StockAnalysis returns the stockanalysis.com source for direct access.
func (a *Aggregator) StockAnalysis() *StockAnalysis { return a.stockAnalysis }

// FMP returns the FMP source for direct access.
func (a *Aggregator) FMP() *FMP { return a.fmp }

// NewsSource returns the news source for direct access.
func (a *Aggregator) NewsSource() *News { return a.news }

// FetchBundle assembles a FundamentalsBundle: statements and market facts
// fetched in parallel, facts merged into the statement bundle. Statement
// sources are tried in fallback order; the first that yields data wins.
func (a *Aggregator) FetchBundle(ctx context.Context, ticker string) (*models.FundamentalsBundle, error) {
	symbol := utils.NormalizeTicker(ticker)

	var (
		mu     sync.Mutex
		errs   []error
		bundle *models.FundamentalsBundle
		facts  *models.CompanyFacts
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b, err := a.fetchStatements(gctx, symbol)
		if err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("statements: %w", err))
			mu.Unlock()
			return nil // non-fatal
		}
		mu.Lock()
		bundle = b
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		f, err := a.yahoo.GetFacts(gctx, symbol)
		if err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("facts: %w", err))
			mu.Unlock()
			return nil
		}
		mu.Lock()
		facts = f
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if bundle == nil && facts == nil {
		return nil, fmt.Errorf("all sources failed for %s: %w", symbol, errors.Join(errs...))
	}
	if bundle == nil {
		bundle = &models.FundamentalsBundle{
			Ticker:    symbol,
			Source:    a.yahoo.Name(),
			FetchedAt: time.Now(),
		}
	}
	if facts != nil {
		bundle.Facts = *facts
	}

	return bundle, nil
}

// fetchStatements walks the statement sources in fallback order.
func (a *Aggregator) fetchStatements(ctx context.Context, symbol string) (*models.FundamentalsBundle, error) {
	var errs []error

	if b, err := a.stockAnalysis.GetFundamentals(ctx, symbol); err == nil && b.HasStatements() {
		return b, nil
	} else if err != nil {
		errs = append(errs, err)
	}

	if a.fmp.Enabled() {
		if b, err := a.fmp.GetFundamentals(ctx, symbol); err == nil && b.HasStatements() {
			return b, nil
		} else if err != nil {
			errs = append(errs, err)
		}
	}

	if b, err := a.yahoo.GetFundamentals(ctx, symbol); err == nil && b.HasStatements() {
		return b, nil
	} else if err != nil {
		errs = append(errs, err)
	}

	return nil, fmt.Errorf("no statement source succeeded for %s: %w", symbol, errors.Join(errs...))
}

// FetchProfile fetches a company profile by aggregating quote, fundamentals,
// and news concurrently. Per-source failures are non-fatal as long as a
// quote arrives.
func (a *Aggregator) FetchProfile(ctx context.Context, ticker string) (*models.CompanyProfile, error) {
	symbol := utils.NormalizeTicker(ticker)

	profile := &models.CompanyProfile{
		Stock:     models.Stock{Ticker: symbol},
		FetchedAt: time.Now(),
	}

	var mu sync.Mutex
	var errs []error

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		quote, err := a.yahoo.GetQuote(gctx, symbol)
		if err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("quote: %w", err))
			mu.Unlock()
			return nil
		}
		mu.Lock()
		profile.Quote = quote
		profile.Stock.Name = quote.Name
		profile.Stock.Currency = quote.Currency
		profile.Stock.MarketCap = quote.MarketCap
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		bundle, err := a.FetchBundle(gctx, symbol)
		if err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("fundamentals: %w", err))
			mu.Unlock()
			return nil
		}
		mu.Lock()
		profile.Fundamentals = bundle
		if profile.Stock.Name == "" {
			profile.Stock.Name = bundle.Facts.Name
		}
		profile.Stock.Exchange = bundle.Facts.Exchange
		profile.Stock.Sector = bundle.Facts.Sector
		profile.Stock.Industry = bundle.Facts.Industry
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		news, err := a.news.GetStockNews(gctx, symbol, 20)
		if err != nil {
			return nil // news is best-effort
		}
		mu.Lock()
		profile.News = news
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return profile, err
	}

	if profile.Quote == nil && profile.Fundamentals == nil {
		return nil, fmt.Errorf("all sources failed for %s: %w", symbol, errors.Join(errs...))
	}

	return profile, nil
}

// FetchCandles fetches OHLCV data from Yahoo.
func (a *Aggregator) FetchCandles(ctx context.Context, ticker string, from, to time.Time, tf models.Timeframe) ([]models.OHLCV, error) {
	candles, err := a.yahoo.GetCandles(ctx, ticker, from, to, tf)
	if err != nil {
		return nil, fmt.Errorf("candles unavailable for %s: %w", ticker, err)
	}
	return candles, nil
}

// FetchStockNews returns recent news for a ticker.
func (a *Aggregator) FetchStockNews(ctx context.Context, ticker string, limit int) ([]models.NewsArticle, error) {
	return a.news.GetStockNews(ctx, ticker, limit)
}
