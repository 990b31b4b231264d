package valuation

import (
	"encoding/json"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
)

// SensitivityOptions parameterizes the WACC × terminal-growth grid. All
// other assumptions are taken from the named scenario.
type SensitivityOptions struct {
	Scenario  string  `json:"scenario"`
	WACCMin   float64 `json:"wacc_min"`
	WACCMax   float64 `json:"wacc_max"`
	GrowthMin float64 `json:"growth_min"`
	GrowthMax float64 `json:"growth_max"`
	Steps     int     `json:"steps"`
}

// DefaultSensitivityOptions is the standard 7×7 grid: WACC 8-14%, terminal
// growth 1-4%, around the base scenario.
func DefaultSensitivityOptions() SensitivityOptions {
	return SensitivityOptions{
		Scenario:  ScenarioBase,
		WACCMin:   0.08,
		WACCMax:   0.14,
		GrowthMin: 0.01,
		GrowthMax: 0.04,
		Steps:     7,
	}
}

// SensitivityGrid holds per-share values over the WACC × terminal-growth
// plane. Rows follow WACCs, columns follow TerminalGrowths. A cell whose
// rate pair fails hard validation (custom ranges can cross the minimum
// spread) is NaN and a note records how many cells were skipped.
type SensitivityGrid struct {
	Ticker          string      `json:"ticker"`
	Scenario        string      `json:"scenario"`
	WACCs           []float64   `json:"waccs"`
	TerminalGrowths []float64   `json:"terminal_growths"`
	Values          [][]float64 `json:"values"`
	Notes           []string    `json:"notes,omitempty"`
}

// MarshalJSON renders NaN cells as null so the grid stays valid JSON.
func (g *SensitivityGrid) MarshalJSON() ([]byte, error) {
	values := make([][]*float64, len(g.Values))
	for i, row := range g.Values {
		values[i] = make([]*float64, len(row))
		for j := range row {
			if !math.IsNaN(row[j]) {
				v := row[j]
				values[i][j] = &v
			}
		}
	}
	type alias struct {
		Ticker          string       `json:"ticker"`
		Scenario        string       `json:"scenario"`
		WACCs           []float64    `json:"waccs"`
		TerminalGrowths []float64    `json:"terminal_growths"`
		Values          [][]*float64 `json:"values"`
		Notes           []string     `json:"notes,omitempty"`
	}
	return json.Marshal(alias{g.Ticker, g.Scenario, g.WACCs, g.TerminalGrowths, values, g.Notes})
}

// SensitivityAnalysis re-runs the DCF once per grid cell. Every cell is an
// independent pure evaluation over the engine's immutable base metrics, so
// rows are computed in parallel.
func (e *Engine) SensitivityAnalysis(opts SensitivityOptions) (*SensitivityGrid, error) {
	if opts.Steps < 2 {
		return nil, fmt.Errorf("sensitivity grid needs at least 2 steps, got %d", opts.Steps)
	}
	if opts.WACCMax <= opts.WACCMin || opts.GrowthMax <= opts.GrowthMin {
		return nil, fmt.Errorf("sensitivity ranges must be increasing")
	}
	scenario, ok := e.Scenario(opts.Scenario)
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q", opts.Scenario)
	}

	grid := &SensitivityGrid{
		Ticker:          e.ticker,
		Scenario:        opts.Scenario,
		WACCs:           linspace(opts.WACCMin, opts.WACCMax, opts.Steps),
		TerminalGrowths: linspace(opts.GrowthMin, opts.GrowthMax, opts.Steps),
		Values:          make([][]float64, opts.Steps),
	}

	skipped := make([]int, opts.Steps)

	var g errgroup.Group
	for i := range grid.WACCs {
		row := make([]float64, opts.Steps)
		grid.Values[i] = row
		wacc := grid.WACCs[i]
		i := i
		g.Go(func() error {
			for j, tg := range grid.TerminalGrowths {
				a := scenario
				a.DiscountRate = wacc
				a.TerminalGrowth = tg
				if !a.Validate().OK() {
					row[j] = math.NaN()
					skipped[i]++
					continue
				}
				row[j] = runDCF(e.base, a, e.base.OperatingMargin).ValuePerShare
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int
	for _, n := range skipped {
		total += n
	}
	if total > 0 {
		grid.Notes = append(grid.Notes,
			fmt.Sprintf("%d cells skipped: WACC/terminal-growth pair under the %.0f-point minimum spread", total, MinRateSpread*100))
	}

	return grid, nil
}

// linspace returns n evenly spaced values from lo to hi inclusive.
func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
