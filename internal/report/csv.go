package report

import (
	"fmt"

	"github.com/gocarina/gocsv"

	"github.com/equitylens/equitylens/internal/valuation"
)

// scenarioCSVRow is the CSV shape of one scenario summary line.
type scenarioCSVRow struct {
	Scenario        string  `csv:"scenario"`
	ValuePerShare   float64 `csv:"value_per_share"`
	EquityValue     float64 `csv:"equity_value"`
	EnterpriseValue float64 `csv:"enterprise_value"`
	DiscountRate    float64 `csv:"discount_rate"`
	TerminalGrowth  float64 `csv:"terminal_growth"`
	TerminalPctOfEV float64 `csv:"terminal_pct_of_ev"`
}

// ScenariosCSV renders the scenario summary, including the weighted blend,
// as CSV.
func ScenariosCSV(set *valuation.ScenarioSet) ([]byte, error) {
	if set == nil {
		return nil, fmt.Errorf("scenarios csv: nil scenario set")
	}
	rows := make([]scenarioCSVRow, 0, len(set.Summary)+1)
	for _, s := range set.Summary {
		rows = append(rows, scenarioCSVRow{
			Scenario:        s.Scenario,
			ValuePerShare:   s.ValuePerShare,
			EquityValue:     s.EquityValue,
			EnterpriseValue: s.EnterpriseValue,
			DiscountRate:    s.DiscountRate,
			TerminalGrowth:  s.TerminalGrowth,
			TerminalPctOfEV: s.TerminalPctOfEV,
		})
	}
	rows = append(rows, scenarioCSVRow{
		Scenario:        "weighted",
		ValuePerShare:   set.WeightedValuePerShare,
		EquityValue:     set.WeightedEquityValue,
		EnterpriseValue: set.WeightedEnterpriseValue,
	})

	out, err := gocsv.MarshalString(&rows)
	if err != nil {
		return nil, fmt.Errorf("scenarios csv: %w", err)
	}
	return []byte(out), nil
}

// projectionCSVRow is the CSV shape of one projected year.
type projectionCSVRow struct {
	Year         int     `csv:"year"`
	Revenue      float64 `csv:"revenue"`
	EBIT         float64 `csv:"ebit"`
	Tax          float64 `csv:"tax"`
	NOPAT        float64 `csv:"nopat"`
	Depreciation float64 `csv:"depreciation"`
	CapEx        float64 `csv:"capex"`
	ChangeInNWC  float64 `csv:"change_in_nwc"`
	FCF          float64 `csv:"fcf"`
	PresentValue float64 `csv:"present_value"`
}

// ProjectionsCSV renders one DCF result's year-by-year projection table
// as CSV.
func ProjectionsCSV(result *valuation.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("projections csv: nil result")
	}
	rows := make([]projectionCSVRow, 0, len(result.Projections))
	for _, p := range result.Projections {
		rows = append(rows, projectionCSVRow{
			Year:         p.Year,
			Revenue:      p.Revenue,
			EBIT:         p.EBIT,
			Tax:          p.Tax,
			NOPAT:        p.NOPAT,
			Depreciation: p.Depreciation,
			CapEx:        p.CapEx,
			ChangeInNWC:  p.ChangeInNWC,
			FCF:          p.FCF,
			PresentValue: p.PresentValue,
		})
	}

	out, err := gocsv.MarshalString(&rows)
	if err != nil {
		return nil, fmt.Errorf("projections csv: %w", err)
	}
	return []byte(out), nil
}

// sensitivityCSVRow is the CSV shape of one sensitivity grid cell.
type sensitivityCSVRow struct {
	WACC           float64 `csv:"wacc"`
	TerminalGrowth float64 `csv:"terminal_growth"`
	ValuePerShare  string  `csv:"value_per_share"`
}

// SensitivityCSV renders the WACC × terminal growth grid as long-form CSV,
// one row per cell. Cells skipped by the engine are left empty.
func SensitivityCSV(grid *valuation.SensitivityGrid) ([]byte, error) {
	if grid == nil {
		return nil, fmt.Errorf("sensitivity csv: nil grid")
	}
	rows := make([]sensitivityCSVRow, 0, len(grid.WACCs)*len(grid.TerminalGrowths))
	for i, wacc := range grid.WACCs {
		for j, tg := range grid.TerminalGrowths {
			row := sensitivityCSVRow{WACC: wacc, TerminalGrowth: tg}
			if i < len(grid.Values) && j < len(grid.Values[i]) {
				v := grid.Values[i][j]
				if v == v { // not NaN
					row.ValuePerShare = fmt.Sprintf("%.4f", v)
				}
			}
			rows = append(rows, row)
		}
	}

	out, err := gocsv.MarshalString(&rows)
	if err != nil {
		return nil, fmt.Errorf("sensitivity csv: %w", err)
	}
	return []byte(out), nil
}
