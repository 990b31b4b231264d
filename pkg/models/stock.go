// Package models defines the core data structures shared across EquityLens.
package models

import "time"

// Stock represents basic listed-company identity.
type Stock struct {
	Ticker    string  `json:"ticker"`   // e.g., "AAPL"
	Name      string  `json:"name"`     // e.g., "Apple Inc."
	Exchange  string  `json:"exchange"` // "NASDAQ", "NYSE", ...
	Sector    string  `json:"sector"`   // e.g., "Technology"
	Industry  string  `json:"industry"` // e.g., "Consumer Electronics"
	Currency  string  `json:"currency"` // e.g., "USD"
	MarketCap float64 `json:"market_cap"`
}

// OHLCV represents a single candlestick bar of price data.
type OHLCV struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	AdjClose  float64   `json:"adj_close,omitempty"`
}

// Quote represents a delayed or real-time stock quote.
type Quote struct {
	Ticker        string    `json:"ticker"`
	Name          string    `json:"name"`
	LastPrice     float64   `json:"last_price"`
	Change        float64   `json:"change"`
	ChangePct     float64   `json:"change_pct"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	PrevClose     float64   `json:"prev_close"`
	Volume        int64     `json:"volume"`
	WeekHigh52    float64   `json:"week_high_52"`
	WeekLow52     float64   `json:"week_low_52"`
	MarketCap     float64   `json:"market_cap"`
	PE            float64   `json:"pe,omitempty"`
	EPS           float64   `json:"eps,omitempty"`
	DividendYield float64   `json:"dividend_yield,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Timeframe represents the chart timeframe for OHLCV data.
type Timeframe string

const (
	Timeframe1Min  Timeframe = "1m"
	Timeframe5Min  Timeframe = "5m"
	Timeframe15Min Timeframe = "15m"
	Timeframe1Hour Timeframe = "1h"
	Timeframe1Day  Timeframe = "1d"
	Timeframe1Week Timeframe = "1wk"
	Timeframe1Mon  Timeframe = "1mo"
)

// CompanyProfile aggregates everything fetched for one ticker.
type CompanyProfile struct {
	Stock        Stock               `json:"stock"`
	Quote        *Quote              `json:"quote,omitempty"`
	Historical   []OHLCV             `json:"historical,omitempty"`
	Fundamentals *FundamentalsBundle `json:"fundamentals,omitempty"`
	Ratios       *FinancialRatios    `json:"ratios,omitempty"`
	News         []NewsArticle       `json:"news,omitempty"`
	FetchedAt    time.Time           `json:"fetched_at"`
}
