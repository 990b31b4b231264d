// Package fundamental derives ratios, growth rates, health scores and a
// Piotroski F-score from a fundamentals bundle. Everything reads statement
// rows through the models alias tables, so it works the same regardless of
// which provider filled the bundle.
package fundamental

import (
	"math"

	"github.com/equitylens/equitylens/pkg/models"
)

// ComputeRatios derives valuation and quality ratios from a bundle. Missing
// line items leave the corresponding ratio at zero; nothing here errors.
func ComputeRatios(b *models.FundamentalsBundle) models.FinancialRatios {
	var r models.FinancialRatios
	if b == nil {
		return r
	}

	price := b.Facts.SharePrice
	shares := b.Facts.SharesOutstanding
	if shares == 0 && price > 0 && b.Facts.MarketCap > 0 {
		shares = b.Facts.MarketCap / price
	}
	marketCap := b.Facts.MarketCap
	if marketCap == 0 {
		marketCap = price * shares
	}

	revenue, _ := b.Income.Latest(models.AliasRevenue...)
	opIncome, _ := b.Income.Latest(models.AliasOperatingIncome...)
	netIncome, _ := b.Income.Latest(models.AliasNetIncome...)
	pretax, _ := b.Income.Latest(models.AliasPretaxIncome...)
	tax, _ := b.Income.Latest(models.AliasTaxProvision...)
	interest, _ := b.Income.Latest(models.AliasInterestExpense...)

	equity, _ := b.Balance.Latest(models.AliasTotalEquity...)
	totalAssets, _ := b.Balance.Latest(models.AliasTotalAssets...)
	currentAssets, _ := b.Balance.Latest(models.AliasCurrentAssets...)
	currentLiabilities, _ := b.Balance.Latest(models.AliasCurrentLiabilities...)
	cash, _ := b.Balance.Latest(models.AliasCash...)
	debt := totalDebt(b)

	if shares > 0 {
		r.EPS = netIncome / shares
		if equity > 0 {
			r.BookValue = equity / shares
		}
	}
	if r.EPS > 0 && price > 0 {
		r.PE = price / r.EPS
	}
	if r.BookValue > 0 && price > 0 {
		r.PB = price / r.BookValue
	}

	if ebitda := latestEBITDA(b); ebitda > 0 && marketCap > 0 {
		ev := marketCap + debt - cash
		r.EVEBITDA = ev / ebitda
	}

	if revenue > 0 {
		r.OperatingMargin = opIncome / revenue * 100
		r.NetMargin = netIncome / revenue * 100
	}

	if equity > 0 {
		r.ROE = netIncome / equity * 100
		r.DebtEquity = debt / equity
	}
	if totalAssets > 0 {
		r.ROA = netIncome / totalAssets * 100
	}
	if invested := debt + equity; invested > 0 {
		nopat := opIncome * (1 - effectiveTaxRate(pretax, tax))
		r.ROIC = nopat / invested * 100
	}

	if currentLiabilities > 0 {
		r.CurrentRatio = currentAssets / currentLiabilities
	}
	if interest > 0 {
		r.InterestCoverage = opIncome / interest
	}

	if fcf := latestFCF(b); marketCap > 0 {
		r.FCFYield = fcf / marketCap * 100
	}
	r.DividendYield = b.Facts.DividendYield * 100
	if dividends, ok := b.CashFlow.Latest(models.AliasDividendsPaid...); ok && netIncome > 0 {
		r.PayoutRatio = math.Abs(dividends) / netIncome * 100
	}

	if r.EPS > 0 && r.BookValue > 0 {
		r.GrahamNumber = math.Sqrt(22.5 * r.EPS * r.BookValue)
	}

	growth := ComputeGrowth(b)
	if r.PE > 0 && growth.NetIncomeGrowthYoY > 0 {
		r.PEGRatio = r.PE / growth.NetIncomeGrowthYoY
	}

	return r
}

// ComputeGrowth calculates YoY and multi-year CAGR growth rates, in percent.
func ComputeGrowth(b *models.FundamentalsBundle) models.GrowthRates {
	var g models.GrowthRates
	if b == nil {
		return g
	}

	revenue, _ := b.Income.Series(models.AliasRevenue...)
	netIncome, _ := b.Income.Series(models.AliasNetIncome...)
	fcf := fcfSeries(b)

	g.RevenueGrowthYoY = yoy(revenue)
	g.RevenueCAGR3Y = seriesCAGR(revenue, 3)
	g.RevenueCAGR5Y = seriesCAGR(revenue, 5)
	g.NetIncomeGrowthYoY = yoy(netIncome)
	g.NetIncomeCAGR3Y = seriesCAGR(netIncome, 3)
	g.FCFGrowthYoY = yoy(fcf)
	g.FCFCAGR3Y = seriesCAGR(fcf, 3)

	return g
}

// --- helpers ---

// totalDebt resolves total debt: company facts first, then the Total Debt
// row, then long-term plus short-term.
func totalDebt(b *models.FundamentalsBundle) float64 {
	if b.Facts.TotalDebt > 0 {
		return b.Facts.TotalDebt
	}
	if debt, ok := b.Balance.Latest(models.AliasTotalDebt...); ok && debt > 0 {
		return debt
	}
	lt, _ := b.Balance.Latest(models.AliasLongTermDebt...)
	st, _ := b.Balance.Latest(models.AliasShortTermDebt...)
	return lt + st
}

// latestEBITDA uses the reported EBITDA row when present, otherwise
// operating income plus depreciation.
func latestEBITDA(b *models.FundamentalsBundle) float64 {
	if ebitda, ok := b.Income.Latest(models.AliasEBITDA...); ok && ebitda != 0 {
		return ebitda
	}
	opIncome, _ := b.Income.Latest(models.AliasOperatingIncome...)
	depn, _ := b.CashFlow.Latest(models.AliasDepreciation...)
	return opIncome + depn
}

// latestFCF uses the reported free cash flow row when present, otherwise
// operating cash flow plus capex (capex is stored negative).
func latestFCF(b *models.FundamentalsBundle) float64 {
	if fcf, ok := b.CashFlow.Latest(models.AliasFreeCashFlow...); ok && fcf != 0 {
		return fcf
	}
	ocf, _ := b.CashFlow.Latest(models.AliasOperatingCashFlow...)
	capex, _ := b.CashFlow.Latest(models.AliasCapEx...)
	return ocf + capex
}

// fcfSeries builds a free-cash-flow history, falling back to OCF + capex
// period by period.
func fcfSeries(b *models.FundamentalsBundle) []float64 {
	if series, ok := b.CashFlow.Series(models.AliasFreeCashFlow...); ok {
		return series
	}
	ocf, ok := b.CashFlow.Series(models.AliasOperatingCashFlow...)
	if !ok {
		return nil
	}
	capex, _ := b.CashFlow.Series(models.AliasCapEx...)
	out := make([]float64, len(ocf))
	for i := range ocf {
		out[i] = ocf[i]
		if i < len(capex) {
			out[i] += capex[i]
		}
	}
	return out
}

// effectiveTaxRate clamps tax/pretax to [0, 0.5]; 0.25 when unavailable.
func effectiveTaxRate(pretax, tax float64) float64 {
	if pretax <= 0 {
		return 0.25
	}
	rate := tax / pretax
	if rate < 0 {
		return 0.25
	}
	if rate > 0.5 {
		return 0.5
	}
	return rate
}

// yoy returns percent change between the two most recent periods.
func yoy(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	return pctChange(series[1], series[0])
}

// seriesCAGR returns the compound annual growth rate over the given number
// of years, most-recent-first series.
func seriesCAGR(series []float64, years int) float64 {
	if len(series) <= years {
		return 0
	}
	return cagr(series[years], series[0], float64(years))
}

func pctChange(old, current float64) float64 {
	if old == 0 {
		return 0
	}
	return (current - old) / math.Abs(old) * 100
}

func cagr(start, end float64, years float64) float64 {
	if start <= 0 || end <= 0 || years <= 0 {
		return 0
	}
	return (math.Pow(end/start, 1/years) - 1) * 100
}
