package models

import "time"

// NewsArticle represents a single financial news item.
type NewsArticle struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// SentimentScore is the scored sentiment of one headline.
type SentimentScore struct {
	Source      string    `json:"source"`
	Headline    string    `json:"headline"`
	Score       float64   `json:"score"`      // -1.0 (bearish) .. +1.0 (bullish)
	Confidence  float64   `json:"confidence"` // 0..1
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// AggregatedSentiment is the time-weighted sentiment across many headlines.
type AggregatedSentiment struct {
	Ticker       string           `json:"ticker"`
	Score        float64          `json:"score"`
	Confidence   float64          `json:"confidence"`
	Label        string           `json:"label"` // "Bullish", "Neutral", ...
	Sources      []SentimentScore `json:"sources,omitempty"`
	ArticleCount int              `json:"article_count"`
	Timestamp    time.Time        `json:"timestamp"`
}
