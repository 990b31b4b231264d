package datasource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/equitylens/equitylens/internal/infra"
	"github.com/equitylens/equitylens/pkg/models"
	"github.com/equitylens/equitylens/pkg/utils"
)

// NewsSource is one RSS feed configuration.
type NewsSource struct {
	Name   string
	RSSURL string
}

// DefaultNewsSources lists the configured US market news RSS feeds.
var DefaultNewsSources = []NewsSource{
	{
		Name:   "Yahoo Finance",
		RSSURL: "https://finance.yahoo.com/news/rssindex",
	},
	{
		Name:   "CNBC Markets",
		RSSURL: "https://www.cnbc.com/id/100003114/device/rss/rss.html",
	},
	{
		Name:   "MarketWatch",
		RSSURL: "https://feeds.marketwatch.com/marketwatch/topstories/",
	},
}

// yahooTickerFeedURL is the per-ticker headline feed, %s = symbol.
const yahooTickerFeedURL = "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US"

// News fetches financial headlines over RSS.
type News struct {
	sources       []NewsSource
	tickerFeedURL string
	articles      *infra.Cache[[]models.NewsArticle]
	throttle      *infra.Throttle
	parser        *gofeed.Parser
}

// NewNews creates a news source with the default US feeds.
func NewNews() *News {
	return &News{
		sources:       DefaultNewsSources,
		tickerFeedURL: yahooTickerFeedURL,
		articles:      infra.NewCache[[]models.NewsArticle](10 * time.Minute),
		throttle:      infra.NewThrottle(2), // feeds are polled, not streamed
		parser:        gofeed.NewParser(),
	}
}

// NewNewsWithSources creates a news source with custom feeds. tickerFeedURL
// must contain one %s for the symbol.
func NewNewsWithSources(sources []NewsSource, tickerFeedURL string) *News {
	n := NewNews()
	n.sources = sources
	if tickerFeedURL != "" {
		n.tickerFeedURL = tickerFeedURL
	}
	return n
}

// Name returns the data source name.
func (n *News) Name() string { return "Market News" }

// --- Public methods ---

// GetMarketNews returns recent market news from all configured feeds.
func (n *News) GetMarketNews(ctx context.Context, limit int) ([]models.NewsArticle, error) {
	cacheKey := fmt.Sprintf("market:%d", limit)
	if articles, ok := n.articles.Get(cacheKey); ok {
		return articles, nil
	}

	var allArticles []models.NewsArticle
	for _, src := range n.sources {
		articles, err := n.fetchRSS(ctx, src.Name, src.RSSURL)
		if err != nil {
			// Non-critical: skip failed feeds.
			continue
		}
		allArticles = append(allArticles, articles...)
	}

	sortArticlesByDate(allArticles)

	if limit > 0 && len(allArticles) > limit {
		allArticles = allArticles[:limit]
	}

	n.articles.Put(cacheKey, allArticles)
	return allArticles, nil
}

// GetStockNews returns headlines for one ticker: the per-ticker Yahoo feed
// first, topped up with keyword-filtered market news.
func (n *News) GetStockNews(ctx context.Context, ticker string, limit int) ([]models.NewsArticle, error) {
	symbol := utils.NormalizeTicker(ticker)

	cacheKey := fmt.Sprintf("stock:%s:%d", symbol, limit)
	if articles, ok := n.articles.Get(cacheKey); ok {
		return articles, nil
	}

	articles, err := n.fetchRSS(ctx, "Yahoo Finance", fmt.Sprintf(n.tickerFeedURL, utils.ToYahooTicker(symbol)))
	if err != nil {
		articles = nil // fall through to the filtered market feeds
	}

	seen := make(map[string]bool, len(articles))
	for _, a := range articles {
		seen[a.URL] = true
	}

	marketNews, marketErr := n.GetMarketNews(ctx, 0)
	if marketErr == nil {
		keywords := []string{strings.ToLower(symbol)}
		for _, a := range marketNews {
			if seen[a.URL] {
				continue
			}
			if matchesAny(a.Title+" "+a.Summary, keywords) {
				articles = append(articles, a)
			}
		}
	}
	if len(articles) == 0 && err != nil {
		return nil, fmt.Errorf("news for %s: %w", symbol, err)
	}

	sortArticlesByDate(articles)
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}

	n.articles.Put(cacheKey, articles)
	return articles, nil
}

// --- DataSource interface (partial) ---

// GetQuote is not supported by the news source.
func (n *News) GetQuote(_ context.Context, _ string) (*models.Quote, error) {
	return nil, ErrNotSupported
}

// GetCandles is not supported by the news source.
func (n *News) GetCandles(_ context.Context, _ string, _, _ time.Time, _ models.Timeframe) ([]models.OHLCV, error) {
	return nil, ErrNotSupported
}

// GetFundamentals is not supported by the news source.
func (n *News) GetFundamentals(_ context.Context, _ string) (*models.FundamentalsBundle, error) {
	return nil, ErrNotSupported
}

// GetProfile is not supported by the news source.
func (n *News) GetProfile(_ context.Context, _ string) (*models.CompanyProfile, error) {
	return nil, ErrNotSupported
}

// --- Internal helpers ---

// fetchRSS parses an RSS feed and returns articles.
func (n *News) fetchRSS(ctx context.Context, sourceName, url string) ([]models.NewsArticle, error) {
	if err := n.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	feed, err := n.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", sourceName, err)
	}

	articles := make([]models.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		a := models.NewsArticle{
			Title:   item.Title,
			URL:     item.Link,
			Source:  sourceName,
			Summary: cleanHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
		}
		articles = append(articles, a)
	}

	return articles, nil
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// matchesAny checks if text contains any of the keywords (case-insensitive).
func matchesAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// sortArticlesByDate sorts articles by published date, newest first.
func sortArticlesByDate(articles []models.NewsArticle) {
	for i := 1; i < len(articles); i++ {
		key := articles[i]
		j := i - 1
		for j >= 0 && articles[j].PublishedAt.Before(key.PublishedAt) {
			articles[j+1] = articles[j]
			j--
		}
		articles[j+1] = key
	}
}
