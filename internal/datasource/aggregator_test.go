package datasource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// failingServer returns 404 for everything, making any source pointed at it
// fail.
func failingServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func emptyNewsStub(t *testing.T) *News {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		feed := `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title></channel></rss>`
		w.Write([]byte(feed))
	}))
	t.Cleanup(srv.Close)
	return NewNewsWithSources([]NewsSource{{Name: "Stub", RSSURL: srv.URL}}, srv.URL+"?s=%s")
}

// factsOnlyYahooStub serves facts modules but no statement history, so
// GetFacts succeeds while GetFundamentals fails.
func factsOnlyYahooStub(t *testing.T) *Yahoo {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Query().Get("modules"), "History") {
			w.Write([]byte(`{"quoteSummary": {"result": [{}], "error": null}}`))
			return
		}
		w.Write([]byte(yfQuoteSummaryJSON))
	}))
	t.Cleanup(srv.Close)
	return NewYahooWithBaseURL(srv.URL)
}

func TestFetchBundlePrefersStockAnalysis(t *testing.T) {
	agg := NewAggregatorWithSources(
		yahooStub(t),
		stockAnalysisStub(t),
		NewFMP(""),
		emptyNewsStub(t),
	)

	bundle, err := agg.FetchBundle(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchBundle: %v", err)
	}
	if bundle.Source != "stockanalysis.com" {
		t.Errorf("source = %q, want stockanalysis.com first", bundle.Source)
	}
	// Facts arrive from Yahoo regardless of the statement source.
	if bundle.Facts.SharesOutstanding != 15.5e9 {
		t.Errorf("facts not merged: shares = %v", bundle.Facts.SharesOutstanding)
	}
}

func TestFetchBundleFallsBackToFMP(t *testing.T) {
	fmp, _ := fmpStub(t)
	agg := NewAggregatorWithSources(
		yahooStub(t),
		NewStockAnalysisWithBaseURL(failingServer(t)),
		fmp,
		emptyNewsStub(t),
	)

	bundle, err := agg.FetchBundle(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchBundle: %v", err)
	}
	if bundle.Source != "FMP" {
		t.Errorf("source = %q, want FMP when stockanalysis fails", bundle.Source)
	}
}

func TestFetchBundleFallsBackToYahoo(t *testing.T) {
	agg := NewAggregatorWithSources(
		yahooStub(t),
		NewStockAnalysisWithBaseURL(failingServer(t)),
		NewFMP(""), // disabled, skipped in the chain
		emptyNewsStub(t),
	)

	bundle, err := agg.FetchBundle(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchBundle: %v", err)
	}
	if bundle.Source != "Yahoo Finance" {
		t.Errorf("source = %q, want Yahoo Finance as last resort", bundle.Source)
	}
}

func TestFetchBundleFactsOnly(t *testing.T) {
	agg := NewAggregatorWithSources(
		factsOnlyYahooStub(t),
		NewStockAnalysisWithBaseURL(failingServer(t)),
		NewFMPWithBaseURL(failingServer(t), "key"),
		emptyNewsStub(t),
	)

	bundle, err := agg.FetchBundle(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FetchBundle: %v", err)
	}
	if bundle.HasStatements() {
		t.Error("bundle should carry no statements")
	}
	if bundle.Facts.TotalDebt != 110e9 {
		t.Errorf("facts missing: total debt = %v", bundle.Facts.TotalDebt)
	}
}

func TestFetchBundleAllSourcesFail(t *testing.T) {
	dead := failingServer(t)
	agg := NewAggregatorWithSources(
		NewYahooWithBaseURL(dead),
		NewStockAnalysisWithBaseURL(dead),
		NewFMPWithBaseURL(dead, "key"),
		emptyNewsStub(t),
	)

	_, err := agg.FetchBundle(context.Background(), "ZZZZ")
	if err == nil {
		t.Fatal("expected error when every source fails")
	}
}

func TestFetchProfile(t *testing.T) {
	agg := NewAggregatorWithSources(
		yahooStub(t),
		stockAnalysisStub(t),
		NewFMP(""),
		emptyNewsStub(t),
	)

	profile, err := agg.FetchProfile(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("FetchProfile: %v", err)
	}
	if profile.Stock.Ticker != "AAPL" {
		t.Errorf("ticker = %q", profile.Stock.Ticker)
	}
	if profile.Quote == nil || profile.Quote.LastPrice != 180.5 {
		t.Errorf("quote = %+v, want last price 180.5", profile.Quote)
	}
	if profile.Fundamentals == nil || !profile.Fundamentals.HasStatements() {
		t.Error("fundamentals missing from profile")
	}
	if profile.Stock.Sector != "Technology" {
		t.Errorf("sector = %q, want filled from facts", profile.Stock.Sector)
	}
}

func TestAggregatorSources(t *testing.T) {
	agg := NewAggregator("")
	sources := agg.Sources()
	if len(sources) != 4 {
		t.Fatalf("got %d sources, want 4", len(sources))
	}
	names := map[string]bool{}
	for _, s := range sources {
		names[s.Name()] = true
	}
	for _, want := range []string{"Yahoo Finance", "stockanalysis.com", "FMP", "Market News"} {
		if !names[want] {
			t.Errorf("source %q not registered", want)
		}
	}
}
