package main

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/equitylens/equitylens/internal/analysis/forensic"
	"github.com/equitylens/equitylens/internal/analysis/fundamental"
	"github.com/equitylens/equitylens/internal/analysis/quant"
	"github.com/equitylens/equitylens/internal/analysis/sentiment"
	"github.com/equitylens/equitylens/internal/report"
	"github.com/equitylens/equitylens/internal/valuation"
	"github.com/equitylens/equitylens/pkg/models"
	"github.com/equitylens/equitylens/pkg/utils"
)

// --- Value Command (DCF scenario ladder) ---

var valueCmd = &cobra.Command{
	Use:   "value [ticker]",
	Short: "Run the three-scenario DCF valuation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := utils.NormalizeTicker(args[0])
		ctx, cancel := commandContext()
		defer cancel()

		bundle, err := newAggregator().FetchBundle(ctx, ticker)
		if err != nil {
			return err
		}
		set, err := valuation.NewEngine(bundle).RunAllScenarios()
		if err != nil {
			return err
		}

		if csvOut, _ := cmd.Flags().GetString("csv"); csvOut != "" {
			data, err := report.ScenariosCSV(set)
			if err != nil {
				return err
			}
			return writeFile(csvOut, data)
		}

		fmt.Printf("💰 DCF Valuation: %s\n\n", ticker)
		fmt.Printf("  %-14s %14s %14s %8s %8s\n", "Scenario", "Value/Share", "Enterprise", "WACC", "TV %EV")
		for _, row := range set.Summary {
			fmt.Printf("  %-14s %14s %14s %8s %7.0f%%\n",
				row.Scenario,
				utils.FormatUSD(row.ValuePerShare),
				utils.FormatUSDCompact(row.EnterpriseValue),
				utils.FormatRate(row.DiscountRate),
				row.TerminalPctOfEV)
		}
		fmt.Printf("\n  Weighted fair value: %s per share\n", utils.FormatUSD(set.WeightedValuePerShare))

		if set.Base != nil && bundle.Facts.SharePrice > 0 {
			upside := (set.WeightedValuePerShare/bundle.Facts.SharePrice - 1) * 100
			fmt.Printf("  Market price %s, upside %s\n",
				utils.FormatUSD(bundle.Facts.SharePrice), utils.FormatPct(upside))
		}
		for _, warn := range baseWarnings(set) {
			fmt.Printf("  ⚠️  %s\n", warn)
		}
		return nil
	},
}

func init() {
	valueCmd.Flags().String("csv", "", "write scenario summary CSV to a file")
}

func baseWarnings(set *valuation.ScenarioSet) []string {
	if set.Base == nil {
		return nil
	}
	return set.Base.Warnings
}

// --- Reverse Command (market-implied expectations) ---

var reverseCmd = &cobra.Command{
	Use:   "reverse [ticker]",
	Short: "Solve for the growth the market price implies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := utils.NormalizeTicker(args[0])
		ctx, cancel := commandContext()
		defer cancel()

		bundle, err := newAggregator().FetchBundle(ctx, ticker)
		if err != nil {
			return err
		}
		engine, err := valuation.NewReverseEngine(bundle)
		if err != nil {
			return err
		}

		var opts valuation.ReverseOptions
		opts.WACC, _ = cmd.Flags().GetFloat64("wacc")
		opts.TerminalGrowth, _ = cmd.Flags().GetFloat64("terminal-growth")

		withMargin, _ := cmd.Flags().GetBool("margin")
		var result *valuation.ReverseResult
		if withMargin {
			result, err = engine.SolveGrowthAndMargin(opts)
		} else {
			result, err = engine.SolveGrowth(opts)
		}
		if err != nil {
			return err
		}

		fmt.Printf("🔎 Market-Implied Expectations: %s\n\n", ticker)
		fmt.Printf("  Implied revenue growth: %s  (%s)\n",
			utils.FormatRate(result.ImpliedGrowth), result.Interpretation)
		if result.Mode == "growth+margin" {
			fmt.Printf("  Implied operating margin: %s (actual %s)\n",
				utils.FormatRate(result.ImpliedMargin), utils.FormatRate(result.ActualMargin))
		}
		fmt.Printf("  Target EV %s, achieved %s after %d iterations\n",
			utils.FormatUSDCompact(result.TargetEnterpriseValue),
			utils.FormatUSDCompact(result.AchievedEnterpriseValue),
			result.Iterations)
		if result.TargetUnreachable {
			fmt.Printf("  ⚠️  %s\n", result.Note)
		}
		return nil
	},
}

func init() {
	reverseCmd.Flags().Bool("margin", false, "also solve for operating margin")
	reverseCmd.Flags().Float64("wacc", 0, "discount rate override")
	reverseCmd.Flags().Float64("terminal-growth", 0, "terminal growth override")
}

// --- Sensitivity Command ---

var sensitivityCmd = &cobra.Command{
	Use:   "sensitivity [ticker]",
	Short: "Compute the WACC × terminal-growth sensitivity grid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := utils.NormalizeTicker(args[0])
		ctx, cancel := commandContext()
		defer cancel()

		bundle, err := newAggregator().FetchBundle(ctx, ticker)
		if err != nil {
			return err
		}

		opts := valuation.DefaultSensitivityOptions()
		if cfg.Valuation.SensitivitySteps > 0 {
			opts.Steps = cfg.Valuation.SensitivitySteps
		}
		if steps, _ := cmd.Flags().GetInt("steps"); steps > 0 {
			opts.Steps = steps
		}

		grid, err := valuation.NewEngine(bundle).SensitivityAnalysis(opts)
		if err != nil {
			return err
		}

		if csvOut, _ := cmd.Flags().GetString("csv"); csvOut != "" {
			data, err := report.SensitivityCSV(grid)
			if err != nil {
				return err
			}
			return writeFile(csvOut, data)
		}

		fmt.Printf("🧮 Sensitivity Grid: %s (%s scenario, $/share)\n\n", ticker, grid.Scenario)
		fmt.Printf("  %-8s", "WACC")
		for _, tg := range grid.TerminalGrowths {
			fmt.Printf(" %9s", utils.FormatRate(tg))
		}
		fmt.Println()
		for i, wacc := range grid.WACCs {
			fmt.Printf("  %-8s", utils.FormatRate(wacc))
			for _, v := range grid.Values[i] {
				if math.IsNaN(v) {
					fmt.Printf(" %9s", "-")
				} else {
					fmt.Printf(" %9.2f", v)
				}
			}
			fmt.Println()
		}
		for _, note := range grid.Notes {
			fmt.Printf("\n  %s\n", note)
		}
		return nil
	},
}

func init() {
	sensitivityCmd.Flags().Int("steps", 0, "grid steps per axis")
	sensitivityCmd.Flags().String("csv", "", "write the grid as long-form CSV to a file")
}

// --- Metrics Command ---

var metricsCmd = &cobra.Command{
	Use:   "metrics [ticker]",
	Short: "Show fundamental ratios, growth, and financial health",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := utils.NormalizeTicker(args[0])
		ctx, cancel := commandContext()
		defer cancel()

		bundle, err := newAggregator().FetchBundle(ctx, ticker)
		if err != nil {
			return err
		}

		ratios := fundamental.ComputeRatios(bundle)
		growth := fundamental.ComputeGrowth(bundle)
		health := fundamental.AssessHealth(ratios, growth)
		quality := fundamental.PiotroskiFScore(bundle)

		fmt.Printf("📈 Fundamental Metrics: %s\n\n", ticker)
		fmt.Printf("  P/E %.2f   P/B %.2f   EV/EBITDA %.2f\n", ratios.PE, ratios.PB, ratios.EVEBITDA)
		fmt.Printf("  ROE %.1f%%   ROIC %.1f%%   Op. margin %.1f%%   Net margin %.1f%%\n",
			ratios.ROE, ratios.ROIC, ratios.OperatingMargin, ratios.NetMargin)
		fmt.Printf("  Debt/Equity %.2f   Current ratio %.2f   FCF yield %.1f%%\n",
			ratios.DebtEquity, ratios.CurrentRatio, ratios.FCFYield)
		fmt.Printf("  Revenue growth %.1f%%   Net income growth %.1f%%\n\n",
			growth.RevenueGrowthYoY, growth.NetIncomeGrowthYoY)

		fmt.Printf("  Financial health: %s (%.0f/100)   Piotroski F-score: %d/9\n",
			health.Grade, health.Score, quality.Score)
		for _, s := range health.Strengths {
			fmt.Printf("    + %s\n", s)
		}
		for _, w := range health.Weaknesses {
			fmt.Printf("    - %s\n", w)
		}
		return nil
	},
}

// --- Forensic Command ---

var forensicCmd = &cobra.Command{
	Use:   "forensic [ticker]",
	Short: "Run Beneish M-score and Altman Z-score screens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := utils.NormalizeTicker(args[0])
		ctx, cancel := commandContext()
		defer cancel()

		bundle, err := newAggregator().FetchBundle(ctx, ticker)
		if err != nil {
			return err
		}

		fmt.Printf("🕵️  Forensic Screens: %s\n\n", ticker)

		if beneish, err := forensic.BeneishMScore(bundle); err == nil {
			verdict := "no manipulation signal"
			if beneish.Flagged {
				verdict = "FLAGGED — characteristics of earnings manipulators"
			}
			fmt.Printf("  Beneish M-score: %.2f (%s)\n", beneish.MScore, verdict)
		} else {
			fmt.Printf("  Beneish M-score: unavailable (%v)\n", err)
		}

		if altman, err := forensic.AltmanZScore(bundle); err == nil {
			fmt.Printf("  Altman Z-score:  %.2f (%s)\n", altman.ZScore, altman.Band)
		} else {
			fmt.Printf("  Altman Z-score:  unavailable (%v)\n", err)
		}
		return nil
	},
}

// --- Factors Command ---

var factorsCmd = &cobra.Command{
	Use:   "factors [ticker]",
	Short: "Regress daily returns against a benchmark (beta, alpha, R²)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := utils.NormalizeTicker(args[0])
		benchmark, _ := cmd.Flags().GetString("benchmark")
		benchmark = utils.NormalizeTicker(benchmark)
		days, _ := cmd.Flags().GetInt("days")

		ctx, cancel := commandContext()
		defer cancel()

		agg := newAggregator()
		to := time.Now()
		from := to.AddDate(0, 0, -days)

		asset, err := agg.FetchCandles(ctx, ticker, from, to, models.Timeframe1Day)
		if err != nil {
			return err
		}
		bench, err := agg.FetchCandles(ctx, benchmark, from, to, models.Timeframe1Day)
		if err != nil {
			return err
		}

		result, err := quant.MarketModel(asset, bench)
		if err != nil {
			return err
		}

		fmt.Printf("📐 Market Model: %s vs %s (%d days)\n\n", ticker, benchmark, days)
		fmt.Printf("  Beta:  %.2f\n", result.Beta)
		fmt.Printf("  Alpha: %s annualized\n", utils.FormatRate(result.Alpha))
		fmt.Printf("  R²:    %.2f over %d observations\n", result.R2, result.Observations)
		return nil
	},
}

func init() {
	factorsCmd.Flags().String("benchmark", "SPY", "benchmark ticker")
	factorsCmd.Flags().Int("days", 365, "lookback window in calendar days")
}

// --- News Command ---

var newsCmd = &cobra.Command{
	Use:   "news [ticker]",
	Short: "Show recent news with aggregated sentiment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := utils.NormalizeTicker(args[0])
		limit, _ := cmd.Flags().GetInt("limit")

		ctx, cancel := commandContext()
		defer cancel()

		articles, err := newAggregator().FetchStockNews(ctx, ticker, limit)
		if err != nil {
			return err
		}

		agg := sentiment.ScoreArticles(ticker, articles)
		fmt.Printf("📰 News Sentiment: %s — %s (score %.2f, %d articles)\n\n",
			ticker, agg.Label, agg.Score, agg.ArticleCount)
		for _, a := range articles {
			fmt.Printf("  • %s\n    %s — %s\n", a.Title, a.Source, a.PublishedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	newsCmd.Flags().Int("limit", 10, "maximum articles to fetch")
}

// --- Report Command ---

var reportCmd = &cobra.Command{
	Use:   "report [ticker]",
	Short: "Generate the full research report",
	Long: `Assemble quote, valuation, metrics, forensic, and sentiment sections
into one research report.

Formats: text (default), html, pdf.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := utils.NormalizeTicker(args[0])
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")

		ctx, cancel := commandContext()
		defer cancel()

		rep, err := report.Assemble(ctx, newAggregator(), ticker)
		if err != nil {
			return err
		}

		var data []byte
		switch format {
		case "text":
			data = []byte(report.RenderText(rep))
		case "html":
			data, err = report.RenderHTML(rep)
		case "pdf":
			data, err = report.RenderPDF(rep)
		default:
			return fmt.Errorf("unknown format %q, want text, html, or pdf", format)
		}
		if err != nil {
			return err
		}

		if out == "" {
			if format != "text" {
				out = fmt.Sprintf("%s_report.%s", ticker, format)
			} else {
				fmt.Print(string(data))
				return nil
			}
		}
		if err := writeFile(out, data); err != nil {
			return err
		}
		fmt.Printf("📄 Report written to %s\n", out)
		return nil
	},
}

func init() {
	reportCmd.Flags().String("format", "text", "output format: text, html, pdf")
	reportCmd.Flags().String("out", "", "output file (default: stdout for text, <ticker>_report.<ext> otherwise)")
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
