package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/equitylens/equitylens/internal/analysis/forensic"
	"github.com/equitylens/equitylens/internal/analysis/fundamental"
	"github.com/equitylens/equitylens/internal/analysis/quant"
	"github.com/equitylens/equitylens/internal/analysis/sentiment"
	"github.com/equitylens/equitylens/internal/report"
	"github.com/equitylens/equitylens/internal/valuation"
	"github.com/equitylens/equitylens/pkg/models"
	"github.com/equitylens/equitylens/pkg/utils"
)

// ============================================================
// Health
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":      "ok",
			"time":        time.Now().UTC().Format(time.RFC3339),
			"market":      utils.MarketStatus(),
			"persistence": s.store.Enabled(),
			"ws_clients":  s.wsHub.ClientCount(),
		},
	})
}

// ============================================================
// Market data
// ============================================================

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))

	quote, err := s.agg.Yahoo().GetQuote(r.Context(), ticker)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: quote})
}

func (s *Server) handleFundamentals(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))

	bundle, err := s.agg.FetchBundle(r.Context(), ticker)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: bundle})
}

// ============================================================
// Valuation
// ============================================================

func (s *Server) handleValuation(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))

	set, err := s.runScenarios(r.Context(), ticker)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.saveRun(r.Context(), ticker, "dcf", set)
	s.wsHub.Broadcast(WSMessage{Type: "valuation_complete", Data: map[string]string{"ticker": ticker}})

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: set})
}

func (s *Server) handleCustomValuation(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))

	var assumptions valuation.Assumptions
	if err := json.NewDecoder(r.Body).Decode(&assumptions); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	bundle, err := s.agg.FetchBundle(r.Context(), ticker)
	if err != nil {
		writeFetchError(w, err)
		return
	}

	result, err := valuation.NewEngine(bundle).Calculate(assumptions)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.saveRun(r.Context(), ticker, "dcf", result)
	s.wsHub.Broadcast(WSMessage{Type: "valuation_complete", Data: map[string]string{"ticker": ticker}})

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: result})
}

func (s *Server) handleSensitivity(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))

	opts := valuation.DefaultSensitivityOptions()
	if s.cfg.Valuation.SensitivitySteps > 0 {
		opts.Steps = s.cfg.Valuation.SensitivitySteps
	}
	q := r.URL.Query()
	if v := q.Get("scenario"); v != "" {
		opts.Scenario = v
	}
	if v, ok := queryFloat(q.Get("wacc_min")); ok {
		opts.WACCMin = v
	}
	if v, ok := queryFloat(q.Get("wacc_max")); ok {
		opts.WACCMax = v
	}
	if v, ok := queryFloat(q.Get("growth_min")); ok {
		opts.GrowthMin = v
	}
	if v, ok := queryFloat(q.Get("growth_max")); ok {
		opts.GrowthMax = v
	}
	if v, err := strconv.Atoi(q.Get("steps")); err == nil && v > 0 {
		opts.Steps = v
	}

	bundle, err := s.agg.FetchBundle(r.Context(), ticker)
	if err != nil {
		writeFetchError(w, err)
		return
	}

	grid, err := valuation.NewEngine(bundle).SensitivityAnalysis(opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.saveRun(r.Context(), ticker, "sensitivity", grid)

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: grid})
}

func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "growth"
	}
	if mode != "growth" && mode != "growth+margin" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown mode %q, want growth or growth+margin", mode))
		return
	}

	opts := reverseOptionsFromQuery(r.URL.Query())

	bundle, err := s.agg.FetchBundle(r.Context(), ticker)
	if err != nil {
		writeFetchError(w, err)
		return
	}

	engine, err := valuation.NewReverseEngine(bundle)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var result *valuation.ReverseResult
	if mode == "growth+margin" {
		result, err = engine.SolveGrowthAndMargin(opts)
	} else {
		result, err = engine.SolveGrowth(opts)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.saveRun(r.Context(), ticker, "reverse", result)

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: result})
}

// reverseOptionsFromQuery collects the caller-overridable reverse DCF
// inputs: wacc, terminal_growth, tax, and years. Absent or malformed
// values stay zero and fall through to the solver defaults.
func reverseOptionsFromQuery(q url.Values) valuation.ReverseOptions {
	var opts valuation.ReverseOptions
	if v, ok := queryFloat(q.Get("wacc")); ok {
		opts.WACC = v
	}
	if v, ok := queryFloat(q.Get("terminal_growth")); ok {
		opts.TerminalGrowth = v
	}
	if v, ok := queryFloat(q.Get("tax")); ok {
		opts.TaxRate = v
	}
	if v, err := strconv.Atoi(q.Get("years")); err == nil && v > 0 {
		opts.ProjectionYears = v
	}
	return opts
}

// ============================================================
// Analysis
// ============================================================

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))

	bundle, err := s.agg.FetchBundle(r.Context(), ticker)
	if err != nil {
		writeFetchError(w, err)
		return
	}

	ratios := fundamental.ComputeRatios(bundle)
	growth := fundamental.ComputeGrowth(bundle)
	health := fundamental.AssessHealth(ratios, growth)
	quality := fundamental.PiotroskiFScore(bundle)

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: map[string]interface{}{
		"ticker":  ticker,
		"ratios":  ratios,
		"growth":  growth,
		"health":  health,
		"quality": quality,
	}})
}

func (s *Server) handleForensic(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))

	bundle, err := s.agg.FetchBundle(r.Context(), ticker)
	if err != nil {
		writeFetchError(w, err)
		return
	}

	beneish, beneishErr := forensic.BeneishMScore(bundle)
	altman, altmanErr := forensic.AltmanZScore(bundle)

	if beneish == nil && altman == nil {
		writeError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("forensic screens unavailable: %v", errors.Join(beneishErr, altmanErr)))
		return
	}

	data := map[string]interface{}{"ticker": ticker}
	if beneish != nil {
		data["beneish"] = beneish
	} else {
		data["beneish_error"] = beneishErr.Error()
	}
	if altman != nil {
		data["altman"] = altman
	} else {
		data["altman_error"] = altmanErr.Error()
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func (s *Server) handleFactors(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))

	benchmark := utils.NormalizeTicker(r.URL.Query().Get("benchmark"))
	if benchmark == "" {
		benchmark = "SPY"
	}
	days := 365
	if v, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && v > 0 {
		days = v
	}

	to := time.Now()
	from := to.AddDate(0, 0, -days)

	asset, err := s.agg.FetchCandles(r.Context(), ticker, from, to, models.Timeframe1Day)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	bench, err := s.agg.FetchCandles(r.Context(), benchmark, from, to, models.Timeframe1Day)
	if err != nil {
		writeFetchError(w, err)
		return
	}

	result, err := quant.MarketModel(asset, bench)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: map[string]interface{}{
		"ticker":    ticker,
		"benchmark": benchmark,
		"days":      days,
		"model":     result,
	}})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))

	limit := 20
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}

	articles, err := s.agg.FetchStockNews(r.Context(), ticker, limit)
	if err != nil {
		writeFetchError(w, err)
		return
	}

	agg := sentiment.ScoreArticles(ticker, articles)

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: map[string]interface{}{
		"ticker":    ticker,
		"sentiment": agg,
		"articles":  articles,
	}})
}

// ============================================================
// Research report and exports
// ============================================================

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))

	rep, err := s.buildReport(r.Context(), ticker)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: rep})
}

func (s *Server) handleExportScenarios(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))

	set, err := s.runScenarios(r.Context(), ticker)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	data, err := report.ScenariosCSV(set)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAttachment(w, data, "text/csv", ticker+"_scenarios.csv")
}

func (s *Server) handleExportProjections(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))

	set, err := s.runScenarios(r.Context(), ticker)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	data, err := report.ProjectionsCSV(set.Base)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAttachment(w, data, "text/csv", ticker+"_projections.csv")
}

func (s *Server) handleExportSensitivity(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))

	bundle, err := s.agg.FetchBundle(r.Context(), ticker)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	grid, err := valuation.NewEngine(bundle).SensitivityAnalysis(valuation.DefaultSensitivityOptions())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	data, err := report.SensitivityCSV(grid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAttachment(w, data, "text/csv", ticker+"_sensitivity.csv")
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))

	rep, err := s.buildReport(r.Context(), ticker)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	data, err := report.RenderPDF(rep)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeAttachment(w, data, "application/pdf", ticker+"_report.pdf")
}

func writeAttachment(w http.ResponseWriter, data []byte, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

// ============================================================
// Persisted runs
// ============================================================

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	ticker := utils.NormalizeTicker(chi.URLParam(r, "ticker"))

	limit := 20
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}

	runs, err := s.store.History(r.Context(), ticker, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: runs})
}

// ============================================================
// Shared helpers
// ============================================================

// runScenarios fetches fundamentals and runs the full scenario ladder.
func (s *Server) runScenarios(ctx context.Context, ticker string) (*valuation.ScenarioSet, error) {
	bundle, err := s.agg.FetchBundle(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return valuation.NewEngine(bundle).RunAllScenarios()
}

// buildReport assembles the full research report for a ticker.
func (s *Server) buildReport(ctx context.Context, ticker string) (*report.ResearchReport, error) {
	return report.Assemble(ctx, s.agg, ticker)
}

// saveRun persists a valuation run when the store is enabled. Persistence
// failures never fail the request.
func (s *Server) saveRun(ctx context.Context, ticker, mode string, payload interface{}) {
	if !s.store.Enabled() {
		return
	}
	if _, err := s.store.SaveRun(ctx, ticker, mode, payload); err != nil {
		s.log.Warn("failed to persist valuation run",
			zap.String("ticker", ticker),
			zap.String("mode", mode),
			zap.Error(err))
	}
}

func queryFloat(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
