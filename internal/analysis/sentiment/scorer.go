// Package sentiment scores financial headlines with keyword dictionaries and
// aggregates them into a time-decayed ticker-level reading. Deterministic and
// offline; no model calls.
package sentiment

import (
	"math"
	"strings"
	"time"

	"github.com/equitylens/equitylens/pkg/models"
)

// bullish / bearish keyword dictionaries (lowercase).
var bullishWords = map[string]float64{
	"bullish": 0.7, "rally": 0.6, "surge": 0.7, "soar": 0.7,
	"upbeat": 0.5, "positive": 0.4, "growth": 0.4, "upgrade": 0.6,
	"outperform": 0.6, "buy": 0.5, "strong": 0.4, "recovery": 0.5,
	"breakout": 0.6, "record high": 0.7, "all-time high": 0.7,
	"beat": 0.5, "exceeds": 0.5, "beats estimate": 0.6, "raises guidance": 0.7,
	"expansion": 0.4, "profit": 0.3, "dividend": 0.4, "buyback": 0.5,
}

var bearishWords = map[string]float64{
	"bearish": 0.7, "crash": 0.8, "plunge": 0.7, "slump": 0.6,
	"tumble": 0.6, "negative": 0.4, "downgrade": 0.6, "underperform": 0.6,
	"sell": 0.5, "weak": 0.4, "decline": 0.5, "loss": 0.4,
	"selloff": 0.7, "fall": 0.4, "correction": 0.5, "recession": 0.6,
	"default": 0.7, "fraud": 0.8, "investigation": 0.5, "lawsuit": 0.5,
	"cut": 0.3, "miss": 0.5, "warning": 0.5, "concern": 0.3,
	"cuts guidance": 0.7, "layoff": 0.6,
}

// ScoreHeadline returns a sentiment score for a single headline.
// Score ranges from -1.0 (very bearish) to +1.0 (very bullish).
func ScoreHeadline(headline string) (score float64, confidence float64) {
	lower := strings.ToLower(headline)

	bullScore := 0.0
	bearScore := 0.0
	matches := 0

	for word, weight := range bullishWords {
		if strings.Contains(lower, word) {
			bullScore += weight
			matches++
		}
	}

	for word, weight := range bearishWords {
		if strings.Contains(lower, word) {
			bearScore += weight
			matches++
		}
	}

	if matches == 0 {
		return 0, 0.1 // no signal
	}

	total := bullScore + bearScore
	if total == 0 {
		return 0, 0.1
	}

	// Net score normalized to -1..+1.
	score = (bullScore - bearScore) / total

	// Confidence grows with keyword matches, capped below certainty.
	confidence = math.Min(float64(matches)*0.15+0.2, 0.85)

	return score, confidence
}

// ScoreArticle scores a news article, title plus summary.
func ScoreArticle(article models.NewsArticle) models.SentimentScore {
	text := article.Title
	if article.Summary != "" {
		text += " " + article.Summary
	}

	score, confidence := ScoreHeadline(text)

	return models.SentimentScore{
		Source:      article.Source,
		Headline:    article.Title,
		Score:       score,
		Confidence:  confidence,
		URL:         article.URL,
		PublishedAt: article.PublishedAt,
	}
}

// AggregateSentiment computes a time-weighted aggregate sentiment.
func AggregateSentiment(ticker string, scores []models.SentimentScore) models.AggregatedSentiment {
	return AggregateSentimentAt(ticker, scores, time.Now())
}

// AggregateSentimentAt is AggregateSentiment with an explicit reference time.
// Headline weight halves every 24 hours and scales with per-headline
// confidence.
func AggregateSentimentAt(ticker string, scores []models.SentimentScore, now time.Time) models.AggregatedSentiment {
	if len(scores) == 0 {
		return models.AggregatedSentiment{
			Ticker:    ticker,
			Label:     "Neutral",
			Timestamp: now,
		}
	}

	weightedSum := 0.0
	totalWeight := 0.0
	confSum := 0.0

	for _, s := range scores {
		age := now.Sub(s.PublishedAt).Hours()
		if age < 0 {
			age = 0
		}
		timeWeight := math.Exp(-math.Ln2 * age / 24)
		w := timeWeight * s.Confidence

		weightedSum += s.Score * w
		totalWeight += w
		confSum += s.Confidence
	}

	avgScore := 0.0
	if totalWeight > 0 {
		avgScore = weightedSum / totalWeight
	}

	return models.AggregatedSentiment{
		Ticker:       ticker,
		Score:        avgScore,
		Confidence:   confSum / float64(len(scores)),
		Label:        Label(avgScore),
		Sources:      scores,
		ArticleCount: len(scores),
		Timestamp:    now,
	}
}

// Label maps an aggregate score onto the sentiment ladder.
func Label(score float64) string {
	switch {
	case score > 0.3:
		return "Bullish"
	case score > 0.1:
		return "Slightly Bullish"
	case score < -0.3:
		return "Bearish"
	case score < -0.1:
		return "Slightly Bearish"
	default:
		return "Neutral"
	}
}

// ScoreArticles is the end-to-end path: score each article and aggregate.
func ScoreArticles(ticker string, articles []models.NewsArticle) models.AggregatedSentiment {
	scores := make([]models.SentimentScore, 0, len(articles))
	for _, a := range articles {
		scores = append(scores, ScoreArticle(a))
	}
	return AggregateSentiment(ticker, scores)
}
