package quant

import (
	"math"
	"testing"
	"time"

	"github.com/equitylens/equitylens/pkg/models"
)

func approx(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v (±%v)", name, got, want, tol)
	}
}

// syntheticSeries builds candles whose daily log returns are given, starting
// at the given price.
func syntheticSeries(start float64, logReturns []float64) []models.OHLCV {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	candles := []models.OHLCV{{Timestamp: day, Close: start}}
	price := start
	for _, r := range logReturns {
		day = day.AddDate(0, 0, 1)
		price *= math.Exp(r)
		candles = append(candles, models.OHLCV{Timestamp: day, Close: price})
	}
	return candles
}

// alternating returns ±step, n entries.
func alternating(step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = step
		} else {
			out[i] = -step
		}
	}
	return out
}

func TestLogReturns(t *testing.T) {
	candles := syntheticSeries(100, []float64{0.01, -0.02, 0.005})
	returns := LogReturns(candles)
	if len(returns) != 3 {
		t.Fatalf("got %d returns, want 3", len(returns))
	}
	approx(t, "returns[0]", returns[0], 0.01, 1e-12)
	approx(t, "returns[1]", returns[1], -0.02, 1e-12)
	approx(t, "returns[2]", returns[2], 0.005, 1e-12)
}

func TestLogReturnsPrefersAdjClose(t *testing.T) {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	candles := []models.OHLCV{
		{Timestamp: day, Close: 200, AdjClose: 100},
		{Timestamp: day.AddDate(0, 0, 1), Close: 220, AdjClose: 110},
	}
	returns := LogReturns(candles)
	if len(returns) != 1 {
		t.Fatalf("got %d returns, want 1", len(returns))
	}
	approx(t, "return", returns[0], math.Log(1.1), 1e-12)
}

func TestLogReturnsSkipsNonPositive(t *testing.T) {
	candles := syntheticSeries(100, alternating(0.01, 4))
	candles[2].Close = 0
	returns := LogReturns(candles)
	// Returns into and out of the zero-price candle are dropped.
	if len(returns) != 2 {
		t.Errorf("got %d returns, want 2", len(returns))
	}
}

func TestMarketModelExactFit(t *testing.T) {
	benchReturns := alternating(0.01, 40)
	assetReturns := make([]float64, len(benchReturns))
	for i, r := range benchReturns {
		assetReturns[i] = 1.5*r + 0.001 // beta 1.5, daily alpha 0.1%
	}

	result, err := MarketModel(
		syntheticSeries(50, assetReturns),
		syntheticSeries(4000, benchReturns),
	)
	if err != nil {
		t.Fatalf("MarketModel: %v", err)
	}

	approx(t, "Beta", result.Beta, 1.5, 1e-9)
	approx(t, "Alpha", result.Alpha, 0.001*252, 1e-9)
	approx(t, "R2", result.R2, 1.0, 1e-9)
	if result.Observations != 40 {
		t.Errorf("Observations = %d, want 40", result.Observations)
	}
}

func TestMarketModelMinObservations(t *testing.T) {
	short := alternating(0.01, 10)
	_, err := MarketModel(syntheticSeries(50, short), syntheticSeries(4000, short))
	if err == nil {
		t.Error("expected error with too few observations")
	}
}

func TestMarketModelZeroVarianceBenchmark(t *testing.T) {
	flat := make([]float64, 40)
	_, err := MarketModel(
		syntheticSeries(50, alternating(0.01, 40)),
		syntheticSeries(4000, flat),
	)
	if err == nil {
		t.Error("expected error for flat benchmark")
	}
}

func TestMarketModelAlignsByDate(t *testing.T) {
	benchReturns := alternating(0.01, 40)
	assetReturns := make([]float64, len(benchReturns))
	for i, r := range benchReturns {
		assetReturns[i] = 2 * r
	}
	asset := syntheticSeries(50, assetReturns)
	bench := syntheticSeries(4000, benchReturns)

	// Drop one interior asset day; the model should pair the remaining
	// shared dates rather than misalign the series.
	asset = append(asset[:20], asset[21:]...)

	result, err := MarketModel(asset, bench)
	if err != nil {
		t.Fatalf("MarketModel: %v", err)
	}
	if result.Observations >= 40 {
		t.Errorf("Observations = %d, want fewer after dropping a day", result.Observations)
	}
	approx(t, "Beta", result.Beta, 2.0, 1e-9)
}
