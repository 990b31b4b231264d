package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/equitylens/equitylens/pkg/utils"
)

// ReportTemplate is the HTML template for the research report.
// It is embedded as a Go constant so the binary has no external file
// dependencies.
const ReportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --bg: #ffffff;
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #e5e7eb;
    --accent: #2563eb;
    --green: #16a34a;
    --red: #dc2626;
    --section-bg: #f8fafc;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.6;
    max-width: 900px;
    margin: 0 auto;
    padding: 20px;
  }
  h1 { font-size: 1.5rem; margin-bottom: 4px; color: var(--accent); }
  h2 { font-size: 1.2rem; margin: 24px 0 12px; padding-bottom: 6px; border-bottom: 2px solid var(--accent); }
  .muted { color: var(--muted); font-size: 0.85rem; }
  .header { border-bottom: 3px solid var(--accent); padding-bottom: 12px; margin-bottom: 16px; }
  .ticker-badge {
    display: inline-block; background: var(--accent); color: white;
    padding: 2px 12px; border-radius: 4px; font-weight: 700; margin-right: 8px;
  }
  .quote-bar {
    display: grid; grid-template-columns: repeat(auto-fill, minmax(140px, 1fr));
    gap: 8px; background: var(--section-bg); padding: 12px; border-radius: 8px;
    margin-bottom: 16px;
  }
  .quote-item { text-align: center; }
  .quote-item .label { font-size: 0.75rem; color: var(--muted); text-transform: uppercase; }
  .quote-item .value { font-size: 1rem; font-weight: 600; }
  table { width: 100%; border-collapse: collapse; margin: 8px 0; font-size: 0.9rem; }
  th, td { padding: 6px 10px; text-align: left; border-bottom: 1px solid var(--border); }
  th { background: var(--section-bg); font-weight: 600; }
  td.num, th.num { text-align: right; font-variant-numeric: tabular-nums; }
  .highlight { background: var(--section-bg); padding: 10px 14px; border-left: 4px solid var(--accent); margin: 10px 0; }
  .flag { color: var(--red); font-weight: 600; }
  .ok { color: var(--green); font-weight: 600; }
  .grid td { text-align: right; font-variant-numeric: tabular-nums; }
  .footer { margin-top: 28px; padding-top: 12px; border-top: 1px solid var(--border); font-size: 0.75rem; color: var(--muted); }
</style>
</head>
<body>

<div class="header">
  <h1><span class="ticker-badge">{{.Ticker}}</span>{{.CompanyName}}</h1>
  <p class="muted">Equity Research Report &middot; Generated {{.GeneratedAt}}</p>
</div>

{{if .HasQuote}}
<div class="quote-bar">
  <div class="quote-item"><div class="label">Price</div><div class="value">{{.Price}}</div></div>
  <div class="quote-item"><div class="label">Change</div><div class="value">{{.Change}}</div></div>
  <div class="quote-item"><div class="label">Market Cap</div><div class="value">{{.MarketCap}}</div></div>
  <div class="quote-item"><div class="label">52W Range</div><div class="value">{{.Range52W}}</div></div>
</div>
{{end}}

{{if .Scenarios}}
<h2>DCF Valuation</h2>
<table>
  <tr><th>Scenario</th><th class="num">Value/Share</th><th class="num">Enterprise</th><th class="num">WACC</th><th class="num">TV % of EV</th></tr>
  {{range .Scenarios}}
  <tr><td>{{.Scenario}}</td><td class="num">{{.ValuePerShare}}</td><td class="num">{{.EnterpriseValue}}</td><td class="num">{{.WACC}}</td><td class="num">{{.TerminalPct}}</td></tr>
  {{end}}
</table>
<div class="highlight">Weighted fair value: <strong>{{.WeightedValue}}</strong> per share{{if .Upside}} &middot; {{.Upside}} vs market{{end}}</div>
{{end}}

{{if .HasReverse}}
<h2>Market-Implied Expectations</h2>
<p>Implied revenue growth: <strong>{{.ImpliedGrowth}}</strong></p>
{{if .ImpliedMargin}}<p>Implied operating margin: <strong>{{.ImpliedMargin}}</strong> (actual {{.ActualMargin}})</p>{{end}}
<p class="muted">{{.ReverseInterpretation}}</p>
{{if .ReverseNote}}<p class="flag">{{.ReverseNote}}</p>{{end}}
{{end}}

{{if .SensitivityRows}}
<h2>Sensitivity: Value per Share</h2>
<table class="grid">
  <tr><th>WACC \ tg</th>{{range .SensitivityHeader}}<th class="num">{{.}}</th>{{end}}</tr>
  {{range .SensitivityRows}}
  <tr><th>{{.WACC}}</th>{{range .Cells}}<td>{{.}}</td>{{end}}</tr>
  {{end}}
</table>
{{end}}

{{if .Ratios}}
<h2>Key Ratios</h2>
<table>
  {{range .Ratios}}
  <tr><td>{{.Label}}</td><td class="num">{{.Value}}</td></tr>
  {{end}}
</table>
{{end}}

{{if .HasScores}}
<h2>Scores &amp; Screens</h2>
{{if .HealthGrade}}<p>Financial health: <strong>{{.HealthGrade}}</strong> ({{.HealthScore}}/100)</p>{{end}}
{{if .Piotroski}}<p>Piotroski F-score: <strong>{{.Piotroski}}</strong>/9</p>{{end}}
{{if .Beneish}}<p>Beneish M-score: {{.Beneish}} {{if .BeneishFlagged}}<span class="flag">FLAGGED</span>{{else}}<span class="ok">clean</span>{{end}}</p>{{end}}
{{if .Altman}}<p>Altman Z-score: {{.Altman}} ({{.AltmanBand}})</p>{{end}}
{{if .Sentiment}}<p>News sentiment: <strong>{{.Sentiment}}</strong> ({{.SentimentScore}} across {{.SentimentCount}} articles)</p>{{end}}
{{end}}

<div class="footer">
  For research and education only. Not investment advice.
</div>

</body>
</html>`

// htmlData is the flattened, pre-formatted view model the template renders.
type htmlData struct {
	Title       string
	Ticker      string
	CompanyName string
	GeneratedAt string

	HasQuote  bool
	Price     string
	Change    string
	MarketCap string
	Range52W  string

	Scenarios     []htmlScenarioRow
	WeightedValue string
	Upside        string

	HasReverse            bool
	ImpliedGrowth         string
	ImpliedMargin         string
	ActualMargin          string
	ReverseInterpretation string
	ReverseNote           string

	SensitivityHeader []string
	SensitivityRows   []htmlSensitivityRow

	Ratios []RatioRow

	HasScores      bool
	HealthGrade    string
	HealthScore    string
	Piotroski      string
	Beneish        string
	BeneishFlagged bool
	Altman         string
	AltmanBand     string
	Sentiment      string
	SentimentScore string
	SentimentCount int
}

type htmlScenarioRow struct {
	Scenario        string
	ValuePerShare   string
	EnterpriseValue string
	WACC            string
	TerminalPct     string
}

type htmlSensitivityRow struct {
	WACC  string
	Cells []string
}

var reportTmpl = template.Must(template.New("report").Parse(ReportTemplate))

// RenderHTML renders the report as a standalone HTML page.
func RenderHTML(r *ResearchReport) ([]byte, error) {
	data := htmlData{
		Title:       fmt.Sprintf("%s Research Report", r.Ticker),
		Ticker:      r.Ticker,
		CompanyName: r.CompanyName(),
		GeneratedAt: r.GeneratedAt.Format("02 Jan 2006, 03:04 PM MST"),
	}

	if r.Profile != nil && r.Profile.Quote != nil {
		q := r.Profile.Quote
		data.HasQuote = true
		data.Price = utils.FormatUSD(q.LastPrice)
		data.Change = utils.FormatPct(q.ChangePct)
		data.MarketCap = utils.FormatUSDCompact(q.MarketCap)
		data.Range52W = fmt.Sprintf("%s / %s", utils.FormatUSD(q.WeekLow52), utils.FormatUSD(q.WeekHigh52))
	}

	if set := r.Scenarios; set != nil {
		for _, row := range set.Summary {
			data.Scenarios = append(data.Scenarios, htmlScenarioRow{
				Scenario:        row.Scenario,
				ValuePerShare:   utils.FormatUSD(row.ValuePerShare),
				EnterpriseValue: utils.FormatUSDCompact(row.EnterpriseValue),
				WACC:            utils.FormatRate(row.DiscountRate),
				TerminalPct:     fmt.Sprintf("%.0f%%", row.TerminalPctOfEV),
			})
		}
		data.WeightedValue = utils.FormatUSD(set.WeightedValuePerShare)
		if r.Profile != nil && r.Profile.Quote != nil && r.Profile.Quote.LastPrice > 0 {
			data.Upside = utils.FormatPct((set.WeightedValuePerShare/r.Profile.Quote.LastPrice - 1) * 100)
		}
	}

	if rev := r.Reverse; rev != nil {
		data.HasReverse = true
		data.ImpliedGrowth = utils.FormatRate(rev.ImpliedGrowth)
		if rev.Mode == "growth+margin" {
			data.ImpliedMargin = utils.FormatRate(rev.ImpliedMargin)
			data.ActualMargin = utils.FormatRate(rev.ActualMargin)
		}
		data.ReverseInterpretation = rev.Interpretation
		if rev.TargetUnreachable {
			data.ReverseNote = rev.Note
		}
	}

	if grid := r.Sensitivity; grid != nil {
		for _, tg := range grid.TerminalGrowths {
			data.SensitivityHeader = append(data.SensitivityHeader, utils.FormatRate(tg))
		}
		for i, wacc := range grid.WACCs {
			row := htmlSensitivityRow{WACC: utils.FormatRate(wacc)}
			for _, v := range grid.Values[i] {
				row.Cells = append(row.Cells, sensitivityCell(v))
			}
			data.SensitivityRows = append(data.SensitivityRows, row)
		}
	}

	if r.Ratios != nil {
		data.Ratios = ratioRows(r.Ratios)
	}

	if r.Health != nil || r.Beneish != nil || r.Altman != nil || r.Sentiment != nil {
		data.HasScores = true
	}
	if h := r.Health; h != nil {
		data.HealthGrade = h.Grade
		data.HealthScore = fmt.Sprintf("%.0f", h.Score)
	}
	if q := r.Quality; q != nil {
		data.Piotroski = fmt.Sprintf("%d", q.Score)
	}
	if b := r.Beneish; b != nil {
		data.Beneish = fmt.Sprintf("%.2f", b.MScore)
		data.BeneishFlagged = b.Flagged
	}
	if a := r.Altman; a != nil {
		data.Altman = fmt.Sprintf("%.2f", a.ZScore)
		data.AltmanBand = a.Band
	}
	if s := r.Sentiment; s != nil {
		data.Sentiment = s.Label
		data.SentimentScore = fmt.Sprintf("%.2f", s.Score)
		data.SentimentCount = s.ArticleCount
	}

	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}
