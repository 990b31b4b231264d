package datasource

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/equitylens/equitylens/pkg/models"
)

func rssFeed(items ...string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Test Feed</title>%s</channel></rss>`,
		strings.Join(items, ""))
}

func rssItem(title, link, pubDate, desc string) string {
	return fmt.Sprintf(`<item><title>%s</title><link>%s</link><pubDate>%s</pubDate><description>%s</description></item>`,
		title, link, pubDate, desc)
}

func TestGetMarketNews(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssFeed(
			rssItem("Fed holds rates steady", "https://example.com/1",
				"Mon, 17 Aug 2026 10:00:00 GMT", "<p>The central bank kept rates unchanged.</p>"),
			rssItem("Tech stocks rally", "https://example.com/2",
				"Tue, 18 Aug 2026 10:00:00 GMT", "Chipmakers led the advance."),
		))
	}))
	defer srv.Close()

	n := NewNewsWithSources([]NewsSource{{Name: "Test Feed", RSSURL: srv.URL}}, "")

	articles, err := n.GetMarketNews(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetMarketNews: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2", len(articles))
	}
	// Newest first.
	if articles[0].Title != "Tech stocks rally" {
		t.Errorf("first article = %q, want newest", articles[0].Title)
	}
	if articles[0].Source != "Test Feed" {
		t.Errorf("source = %q", articles[0].Source)
	}
	// HTML stripped from summaries.
	if strings.Contains(articles[1].Summary, "<p>") {
		t.Errorf("summary still has HTML: %q", articles[1].Summary)
	}
}

func TestGetMarketNewsSkipsFailedFeeds(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssFeed(rssItem("Only story", "https://example.com/1",
			"Mon, 17 Aug 2026 10:00:00 GMT", "")))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer bad.Close()

	n := NewNewsWithSources([]NewsSource{
		{Name: "Bad", RSSURL: bad.URL},
		{Name: "Good", RSSURL: good.URL},
	}, "")

	articles, err := n.GetMarketNews(context.Background(), 0)
	if err != nil {
		t.Fatalf("GetMarketNews: %v", err)
	}
	if len(articles) != 1 || articles[0].Title != "Only story" {
		t.Errorf("articles = %+v, want the one good story", articles)
	}
}

func TestGetStockNews(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ticker", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("s") != "AAPL" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, rssFeed(rssItem("Apple unveils new chip", "https://example.com/aapl-1",
			"Tue, 18 Aug 2026 09:00:00 GMT", "")))
	})
	mux.HandleFunc("/market", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssFeed(
			rssItem("AAPL supplier beats estimates", "https://example.com/aapl-2",
				"Mon, 17 Aug 2026 09:00:00 GMT", ""),
			rssItem("Oil prices slide", "https://example.com/oil",
				"Mon, 17 Aug 2026 08:00:00 GMT", ""),
		))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	n := NewNewsWithSources(
		[]NewsSource{{Name: "Market", RSSURL: srv.URL + "/market"}},
		srv.URL+"/ticker?s=%s",
	)

	articles, err := n.GetStockNews(context.Background(), "aapl", 10)
	if err != nil {
		t.Fatalf("GetStockNews: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2 (ticker feed + keyword match)", len(articles))
	}
	for _, a := range articles {
		if a.Title == "Oil prices slide" {
			t.Error("unrelated market story leaked into stock news")
		}
	}
	if articles[0].Title != "Apple unveils new chip" {
		t.Errorf("first article = %q, want newest", articles[0].Title)
	}
}

func TestNewsUnsupportedMethods(t *testing.T) {
	n := NewNews()
	if _, err := n.GetQuote(context.Background(), "AAPL"); err != ErrNotSupported {
		t.Errorf("GetQuote err = %v, want ErrNotSupported", err)
	}
	if _, err := n.GetFundamentals(context.Background(), "AAPL"); err != ErrNotSupported {
		t.Errorf("GetFundamentals err = %v, want ErrNotSupported", err)
	}
}

func TestSortArticlesByDate(t *testing.T) {
	ts := func(d int) time.Time { return time.Date(2026, 8, d, 0, 0, 0, 0, time.UTC) }
	articles := []models.NewsArticle{
		{Title: "old", PublishedAt: ts(1)},
		{Title: "new", PublishedAt: ts(20)},
		{Title: "mid", PublishedAt: ts(10)},
	}
	sortArticlesByDate(articles)
	want := []string{"new", "mid", "old"}
	for i, w := range want {
		if articles[i].Title != w {
			t.Errorf("articles[%d] = %q, want %q", i, articles[i].Title, w)
		}
	}
}

func TestCleanHTML(t *testing.T) {
	tests := []struct{ in, want string }{
		{"<p>hello <b>world</b></p>", "hello world"},
		{"plain text", "plain text"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cleanHTML(tt.in); got != tt.want {
			t.Errorf("cleanHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
