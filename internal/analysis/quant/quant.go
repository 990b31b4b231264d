// Package quant computes return-series statistics: daily log returns and an
// OLS market model (beta, alpha, R²) against a benchmark index.
package quant

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/equitylens/equitylens/pkg/models"
)

// minObservations is the fewest paired daily returns the market model
// accepts before the estimates are considered meaningless.
const minObservations = 30

// tradingDaysPerYear annualizes the daily alpha intercept.
const tradingDaysPerYear = 252

// FactorResult is the OLS market-model fit of an asset against a benchmark.
type FactorResult struct {
	Beta         float64 `json:"beta"`
	Alpha        float64 `json:"alpha"` // annualized intercept
	R2           float64 `json:"r2"`
	Observations int     `json:"observations"`
}

// LogReturns computes daily log returns from a candle series, preferring the
// adjusted close. Non-positive prices break the chain and are skipped.
func LogReturns(candles []models.OHLCV) []float64 {
	if len(candles) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(candles)-1)
	prev := candlePrice(candles[0])
	for _, c := range candles[1:] {
		price := candlePrice(c)
		if prev > 0 && price > 0 {
			returns = append(returns, math.Log(price/prev))
		}
		prev = price
	}
	return returns
}

// MarketModel regresses the asset's daily log returns on the benchmark's.
// Candles are paired by calendar date, so the two series may have gaps in
// different places.
func MarketModel(asset, benchmark []models.OHLCV) (*FactorResult, error) {
	assetRet, benchRet := pairedReturns(asset, benchmark)
	n := len(assetRet)
	if n < minObservations {
		return nil, fmt.Errorf("market model: %d paired observations, need at least %d", n, minObservations)
	}

	meanX := mean(benchRet)
	meanY := mean(assetRet)

	var covXY, varX, varY float64
	for i := 0; i < n; i++ {
		dx := benchRet[i] - meanX
		dy := assetRet[i] - meanY
		covXY += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 {
		return nil, fmt.Errorf("market model: benchmark returns have zero variance")
	}

	beta := covXY / varX
	alphaDaily := meanY - beta*meanX

	r2 := 0.0
	if varY > 0 {
		corr := covXY / math.Sqrt(varX*varY)
		r2 = corr * corr
	}

	return &FactorResult{
		Beta:         beta,
		Alpha:        alphaDaily * tradingDaysPerYear,
		R2:           r2,
		Observations: n,
	}, nil
}

// --- helpers ---

func candlePrice(c models.OHLCV) float64 {
	if c.AdjClose > 0 {
		return c.AdjClose
	}
	return c.Close
}

// pairedReturns aligns the two candle series by calendar date and returns
// log returns over consecutive shared dates.
func pairedReturns(asset, benchmark []models.OHLCV) (assetRet, benchRet []float64) {
	assetByDay := pricesByDay(asset)
	benchByDay := pricesByDay(benchmark)

	days := make([]string, 0, len(assetByDay))
	for day := range assetByDay {
		if _, ok := benchByDay[day]; ok {
			days = append(days, day)
		}
	}
	sort.Strings(days)

	for i := 1; i < len(days); i++ {
		a0, a1 := assetByDay[days[i-1]], assetByDay[days[i]]
		b0, b1 := benchByDay[days[i-1]], benchByDay[days[i]]
		if a0 > 0 && a1 > 0 && b0 > 0 && b1 > 0 {
			assetRet = append(assetRet, math.Log(a1/a0))
			benchRet = append(benchRet, math.Log(b1/b0))
		}
	}
	return assetRet, benchRet
}

func pricesByDay(candles []models.OHLCV) map[string]float64 {
	out := make(map[string]float64, len(candles))
	for _, c := range candles {
		out[c.Timestamp.Format(time.DateOnly)] = candlePrice(c)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
