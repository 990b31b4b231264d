package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// RenderPDF renders the report as a PDF document.
func RenderPDF(r *ResearchReport) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("%s Research Report", r.Ticker), false)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	// Title block.
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, fmt.Sprintf("%s (%s)", r.CompanyName(), r.Ticker), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 6, "Equity Research Report - "+r.GeneratedAt.Format("02 Jan 2006, 03:04 PM MST"), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(3)

	if r.Profile != nil && r.Profile.Quote != nil {
		q := r.Profile.Quote
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 7, fmt.Sprintf("Price: $%.2f (%+.2f%%)   Market Cap: $%.1fB",
			q.LastPrice, q.ChangePct, q.MarketCap/1e9), "", 1, "L", false, 0, "")
		pdf.Ln(2)
	}

	if r.Scenarios != nil {
		pdfScenarioTable(pdf, r)
	}
	if r.Reverse != nil {
		pdfReverseSection(pdf, r)
	}
	if r.Sensitivity != nil {
		pdfSensitivityMatrix(pdf, r)
	}
	if r.Scenarios != nil && r.Scenarios.Base != nil {
		pdfProjectionTable(pdf, r)
	}
	if r.Ratios != nil {
		pdfRatioTable(pdf, r)
	}
	pdfScoresSection(pdf, r)

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.MultiCell(0, 4, "For research and education only. Not investment advice.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func pdfSectionHeader(pdf *fpdf.Fpdf, title string) {
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(235, 238, 245)
	pdf.CellFormat(0, 8, "  "+title, "", 1, "L", true, 0, "")
	pdf.Ln(1)
}

func pdfScenarioTable(pdf *fpdf.Fpdf, r *ResearchReport) {
	pdfSectionHeader(pdf, "DCF Valuation")

	set := r.Scenarios
	headers := []string{"Scenario", "Value/Share", "Enterprise ($B)", "WACC", "TV % of EV"}
	widths := []float64{40, 35, 40, 25, 30}

	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, h, "B", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range set.Summary {
		pdf.CellFormat(widths[0], 6, row.Scenario, "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, fmt.Sprintf("$%.2f", row.ValuePerShare), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, fmt.Sprintf("%.1f", row.EnterpriseValue/1e9), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 6, fmt.Sprintf("%.1f%%", row.DiscountRate*100), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[4], 6, fmt.Sprintf("%.0f%%", row.TerminalPctOfEV), "", 1, "L", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 7, fmt.Sprintf("Weighted fair value: $%.2f per share", set.WeightedValuePerShare), "T", 1, "L", false, 0, "")
}

func pdfReverseSection(pdf *fpdf.Fpdf, r *ResearchReport) {
	pdfSectionHeader(pdf, "Market-Implied Expectations (Reverse DCF)")

	rev := r.Reverse
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Implied revenue growth: %.2f%%", rev.ImpliedGrowth*100), "", 1, "L", false, 0, "")
	if rev.Mode == "growth+margin" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Implied operating margin: %.2f%% (actual %.2f%%)",
			rev.ImpliedMargin*100, rev.ActualMargin*100), "", 1, "L", false, 0, "")
	}
	pdf.MultiCell(0, 5, rev.Interpretation, "", "L", false)
	if rev.TargetUnreachable {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, rev.Note, "", "L", false)
	}
}

func pdfSensitivityMatrix(pdf *fpdf.Fpdf, r *ResearchReport) {
	pdfSectionHeader(pdf, "Sensitivity: Value per Share (WACC x Terminal Growth)")

	grid := r.Sensitivity
	cellW := 165.0 / float64(len(grid.TerminalGrowths)+1)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(cellW, 6, "WACC \\ tg", "1", 0, "C", false, 0, "")
	for _, tg := range grid.TerminalGrowths {
		pdf.CellFormat(cellW, 6, fmt.Sprintf("%.1f%%", tg*100), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	for i, wacc := range grid.WACCs {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(cellW, 6, fmt.Sprintf("%.1f%%", wacc*100), "1", 0, "C", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		for _, v := range grid.Values[i] {
			cell := "-"
			if v == v {
				cell = fmt.Sprintf("%.2f", v)
			}
			pdf.CellFormat(cellW, 6, cell, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func pdfProjectionTable(pdf *fpdf.Fpdf, r *ResearchReport) {
	pdfSectionHeader(pdf, "Base Case Projections ($B)")

	headers := []string{"Year", "Revenue", "NOPAT", "CapEx", "FCF", "PV"}
	widths := []float64{20, 30, 30, 30, 30, 30}

	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, h, "B", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, p := range r.Scenarios.Base.Projections {
		pdf.CellFormat(widths[0], 6, fmt.Sprintf("%d", p.Year), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, fmt.Sprintf("%.1f", p.Revenue/1e9), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, fmt.Sprintf("%.1f", p.NOPAT/1e9), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 6, fmt.Sprintf("%.1f", p.CapEx/1e9), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[4], 6, fmt.Sprintf("%.1f", p.FCF/1e9), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[5], 6, fmt.Sprintf("%.1f", p.PresentValue/1e9), "", 1, "L", false, 0, "")
	}
}

func pdfRatioTable(pdf *fpdf.Fpdf, r *ResearchReport) {
	pdfSectionHeader(pdf, "Key Ratios")

	rows := ratioRows(r.Ratios)
	pdf.SetFont("Helvetica", "", 9)

	// Two columns of label/value pairs.
	half := (len(rows) + 1) / 2
	for i := 0; i < half; i++ {
		pdf.CellFormat(45, 6, rows[i].Label, "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, rows[i].Value, "", 0, "L", false, 0, "")
		if j := i + half; j < len(rows) {
			pdf.CellFormat(45, 6, rows[j].Label, "", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, rows[j].Value, "", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func pdfScoresSection(pdf *fpdf.Fpdf, r *ResearchReport) {
	if r.Health == nil && r.Beneish == nil && r.Altman == nil && r.Sentiment == nil {
		return
	}
	pdfSectionHeader(pdf, "Scores & Screens")

	pdf.SetFont("Helvetica", "", 10)
	if h := r.Health; h != nil {
		pdf.CellFormat(0, 6, fmt.Sprintf("Financial health: %s (%.0f/100)", h.Grade, h.Score), "", 1, "L", false, 0, "")
	}
	if q := r.Quality; q != nil {
		pdf.CellFormat(0, 6, fmt.Sprintf("Piotroski F-score: %d/9", q.Score), "", 1, "L", false, 0, "")
	}
	if b := r.Beneish; b != nil {
		flag := "clean"
		if b.Flagged {
			flag = "FLAGGED"
		}
		pdf.CellFormat(0, 6, fmt.Sprintf("Beneish M-score: %.2f (%s)", b.MScore, flag), "", 1, "L", false, 0, "")
	}
	if a := r.Altman; a != nil {
		pdf.CellFormat(0, 6, fmt.Sprintf("Altman Z-score: %.2f (%s)", a.ZScore, a.Band), "", 1, "L", false, 0, "")
	}
	if s := r.Sentiment; s != nil {
		pdf.CellFormat(0, 6, fmt.Sprintf("News sentiment: %s (%.2f, %d articles)", s.Label, s.Score, s.ArticleCount), "", 1, "L", false, 0, "")
	}
}
