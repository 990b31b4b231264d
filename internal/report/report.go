// Package report assembles valuation, analysis and sentiment output into a
// research report and renders it as terminal text, HTML, PDF or CSV.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/equitylens/equitylens/internal/analysis/forensic"
	"github.com/equitylens/equitylens/internal/analysis/fundamental"
	"github.com/equitylens/equitylens/internal/valuation"
	"github.com/equitylens/equitylens/pkg/models"
	"github.com/equitylens/equitylens/pkg/utils"
)

// ResearchReport carries everything a rendered report can show. Every
// section pointer is optional; renderers skip what is nil.
type ResearchReport struct {
	Ticker      string                     `json:"ticker"`
	Profile     *models.CompanyProfile     `json:"profile,omitempty"`
	Scenarios   *valuation.ScenarioSet     `json:"scenarios,omitempty"`
	Reverse     *valuation.ReverseResult   `json:"reverse,omitempty"`
	Sensitivity *valuation.SensitivityGrid `json:"sensitivity,omitempty"`

	Ratios  *models.FinancialRatios   `json:"ratios,omitempty"`
	Growth  *models.GrowthRates       `json:"growth,omitempty"`
	Health  *fundamental.Health       `json:"health,omitempty"`
	Quality *fundamental.QualityScore `json:"quality,omitempty"`

	Beneish *forensic.BeneishResult `json:"beneish,omitempty"`
	Altman  *forensic.AltmanResult  `json:"altman,omitempty"`

	Sentiment *models.AggregatedSentiment `json:"sentiment,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Build assembles a report from a profile and whatever analytics could be
// computed. The valuation sections are attached by the caller because they
// may fail independently (reverse DCF needs a price, scenarios need
// statements).
func Build(ticker string, profile *models.CompanyProfile) *ResearchReport {
	r := &ResearchReport{
		Ticker:      ticker,
		Profile:     profile,
		GeneratedAt: utils.NowEastern(),
	}

	if profile != nil && profile.Fundamentals != nil {
		ratios := fundamental.ComputeRatios(profile.Fundamentals)
		growth := fundamental.ComputeGrowth(profile.Fundamentals)
		health := fundamental.AssessHealth(ratios, growth)
		quality := fundamental.PiotroskiFScore(profile.Fundamentals)
		r.Ratios = &ratios
		r.Growth = &growth
		r.Health = &health
		r.Quality = &quality

		if beneish, err := forensic.BeneishMScore(profile.Fundamentals); err == nil {
			r.Beneish = beneish
		}
		if altman, err := forensic.AltmanZScore(profile.Fundamentals); err == nil {
			r.Altman = altman
		}
	}

	return r
}

// CompanyName returns the best display name available.
func (r *ResearchReport) CompanyName() string {
	if r.Profile != nil && r.Profile.Stock.Name != "" {
		return r.Profile.Stock.Name
	}
	return r.Ticker
}

// ════════════════════════════════════════════════════════════════════
// Plain-text renderer (terminal / CLI)
// ════════════════════════════════════════════════════════════════════

// RenderText renders the report for a terminal.
func RenderText(r *ResearchReport) string {
	var sb strings.Builder
	line := strings.Repeat("═", 64)
	thin := strings.Repeat("─", 64)

	sb.WriteString("\n" + line + "\n")
	sb.WriteString(fmt.Sprintf("  %s (%s) — Research Report\n", r.CompanyName(), r.Ticker))
	sb.WriteString(fmt.Sprintf("  Generated: %s\n", r.GeneratedAt.Format("02 Jan 2006, 03:04 PM MST")))
	sb.WriteString(line + "\n")

	if r.Profile != nil && r.Profile.Quote != nil {
		q := r.Profile.Quote
		sb.WriteString(fmt.Sprintf("  Price: %s (%s)  |  Market Cap: %s\n",
			utils.FormatUSD(q.LastPrice), utils.FormatPct(q.ChangePct), utils.FormatUSDCompact(q.MarketCap)))
		sb.WriteString(fmt.Sprintf("  52W Range: %s — %s  |  P/E: %.1f\n",
			utils.FormatUSD(q.WeekLow52), utils.FormatUSD(q.WeekHigh52), q.PE))
		sb.WriteString(thin + "\n")
	}

	if set := r.Scenarios; set != nil {
		sb.WriteString("\n  ■ DCF VALUATION\n")
		sb.WriteString(fmt.Sprintf("    %-14s %14s %16s %10s %8s\n",
			"Scenario", "Value/Share", "Enterprise", "WACC", "TV %EV"))
		for _, row := range set.Summary {
			sb.WriteString(fmt.Sprintf("    %-14s %14s %16s %9.1f%% %7.0f%%\n",
				row.Scenario,
				utils.FormatUSD(row.ValuePerShare),
				utils.FormatUSDCompact(row.EnterpriseValue),
				row.DiscountRate*100,
				row.TerminalPctOfEV))
		}
		sb.WriteString(fmt.Sprintf("    Weighted fair value: %s per share\n",
			utils.FormatUSD(set.WeightedValuePerShare)))
		if r.Profile != nil && r.Profile.Quote != nil && r.Profile.Quote.LastPrice > 0 {
			upside := (set.WeightedValuePerShare/r.Profile.Quote.LastPrice - 1) * 100
			sb.WriteString(fmt.Sprintf("    Upside vs market: %s\n", utils.FormatPct(upside)))
		}
		sb.WriteString(thin + "\n")
	}

	if rev := r.Reverse; rev != nil {
		sb.WriteString("\n  ■ MARKET-IMPLIED EXPECTATIONS (reverse DCF)\n")
		sb.WriteString(fmt.Sprintf("    Implied revenue growth: %s — %s\n",
			utils.FormatPct(rev.ImpliedGrowth*100), rev.Interpretation))
		if rev.Mode == "growth+margin" {
			sb.WriteString(fmt.Sprintf("    Implied operating margin: %s (actual %s)\n",
				utils.FormatPct(rev.ImpliedMargin*100), utils.FormatPct(rev.ActualMargin*100)))
		}
		if rev.TargetUnreachable {
			sb.WriteString("    ⚠ " + rev.Note + "\n")
		}
		sb.WriteString(thin + "\n")
	}

	if grid := r.Sensitivity; grid != nil {
		sb.WriteString("\n  ■ SENSITIVITY (value per share, WACC × terminal growth)\n")
		sb.WriteString("    WACC \\ tg ")
		for _, tg := range grid.TerminalGrowths {
			sb.WriteString(fmt.Sprintf("%9.1f%%", tg*100))
		}
		sb.WriteString("\n")
		for i, wacc := range grid.WACCs {
			sb.WriteString(fmt.Sprintf("    %8.1f%% ", wacc*100))
			for _, v := range grid.Values[i] {
				sb.WriteString(fmt.Sprintf("%10s", sensitivityCell(v)))
			}
			sb.WriteString("\n")
		}
		sb.WriteString(thin + "\n")
	}

	if r.Ratios != nil {
		sb.WriteString("\n  ■ KEY RATIOS\n")
		for _, row := range ratioRows(r.Ratios) {
			sb.WriteString(fmt.Sprintf("    %-22s %s\n", row.Label, row.Value))
		}
		sb.WriteString(thin + "\n")
	}

	if h := r.Health; h != nil {
		sb.WriteString(fmt.Sprintf("\n  ■ FINANCIAL HEALTH: %s (%.0f/100)\n", h.Grade, h.Score))
		if r.Quality != nil {
			sb.WriteString(fmt.Sprintf("    Piotroski F-score: %d/9\n", r.Quality.Score))
		}
		if len(h.Strengths) > 0 {
			sb.WriteString("    Strengths: " + strings.Join(h.Strengths, "; ") + "\n")
		}
		if len(h.Weaknesses) > 0 {
			sb.WriteString("    Weaknesses: " + strings.Join(h.Weaknesses, "; ") + "\n")
		}
		sb.WriteString(thin + "\n")
	}

	if r.Beneish != nil || r.Altman != nil {
		sb.WriteString("\n  ■ FORENSIC SCREENS\n")
		if b := r.Beneish; b != nil {
			flag := "clean"
			if b.Flagged {
				flag = "FLAGGED — earnings manipulation risk"
			}
			sb.WriteString(fmt.Sprintf("    Beneish M-score: %.2f (%s)\n", b.MScore, flag))
		}
		if a := r.Altman; a != nil {
			sb.WriteString(fmt.Sprintf("    Altman Z-score:  %.2f (%s)\n", a.ZScore, a.Band))
		}
		sb.WriteString(thin + "\n")
	}

	if s := r.Sentiment; s != nil {
		sb.WriteString(fmt.Sprintf("\n  ■ NEWS SENTIMENT: %s (%.2f across %d articles)\n",
			s.Label, s.Score, s.ArticleCount))
		sb.WriteString(thin + "\n")
	}

	sb.WriteString("\n" + line + "\n")
	sb.WriteString("  For research and education only. Not investment advice.\n")
	sb.WriteString(line + "\n")

	return sb.String()
}

func sensitivityCell(v float64) string {
	if v != v { // NaN
		return "—"
	}
	return fmt.Sprintf("%.2f", v)
}

// RatioRow is a label/value pair for report tables.
type RatioRow struct {
	Label string
	Value string
}

func ratioRows(r *models.FinancialRatios) []RatioRow {
	return []RatioRow{
		{Label: "P/E Ratio", Value: fmt.Sprintf("%.2f", r.PE)},
		{Label: "P/B Ratio", Value: fmt.Sprintf("%.2f", r.PB)},
		{Label: "EV/EBITDA", Value: fmt.Sprintf("%.2f", r.EVEBITDA)},
		{Label: "ROE", Value: utils.FormatPct(r.ROE)},
		{Label: "ROIC", Value: utils.FormatPct(r.ROIC)},
		{Label: "Operating Margin", Value: utils.FormatPct(r.OperatingMargin)},
		{Label: "Debt/Equity", Value: fmt.Sprintf("%.2f", r.DebtEquity)},
		{Label: "Current Ratio", Value: fmt.Sprintf("%.2f", r.CurrentRatio)},
		{Label: "Interest Coverage", Value: fmt.Sprintf("%.2f", r.InterestCoverage)},
		{Label: "FCF Yield", Value: utils.FormatPct(r.FCFYield)},
		{Label: "Dividend Yield", Value: fmt.Sprintf("%.2f%%", r.DividendYield)},
		{Label: "EPS", Value: utils.FormatUSD(r.EPS)},
		{Label: "Book Value", Value: utils.FormatUSD(r.BookValue)},
		{Label: "PEG Ratio", Value: fmt.Sprintf("%.2f", r.PEGRatio)},
		{Label: "Graham Number", Value: utils.FormatUSD(r.GrahamNumber)},
	}
}
