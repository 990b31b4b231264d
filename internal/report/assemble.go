package report

import (
	"context"

	"github.com/equitylens/equitylens/internal/analysis/sentiment"
	"github.com/equitylens/equitylens/internal/datasource"
	"github.com/equitylens/equitylens/internal/valuation"
)

// Assemble fetches a company profile and builds the full research report.
// The profile fetch must succeed; valuation sections are best-effort and
// simply omitted when the underlying data cannot support them.
func Assemble(ctx context.Context, agg *datasource.Aggregator, ticker string) (*ResearchReport, error) {
	profile, err := agg.FetchProfile(ctx, ticker)
	if err != nil {
		return nil, err
	}

	r := Build(ticker, profile)

	if profile.Fundamentals != nil {
		engine := valuation.NewEngine(profile.Fundamentals)

		if set, err := engine.RunAllScenarios(); err == nil {
			r.Scenarios = set
		}
		if grid, err := engine.SensitivityAnalysis(valuation.DefaultSensitivityOptions()); err == nil {
			r.Sensitivity = grid
		}
		if rev, err := valuation.NewReverseEngine(profile.Fundamentals); err == nil {
			if res, err := rev.SolveGrowth(valuation.ReverseOptions{}); err == nil {
				r.Reverse = res
			}
		}
	}

	if len(profile.News) > 0 {
		agg := sentiment.ScoreArticles(ticker, profile.News)
		r.Sentiment = &agg
	}

	return r, nil
}
