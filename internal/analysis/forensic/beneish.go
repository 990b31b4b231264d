// Package forensic implements earnings-quality screens: the Beneish M-score
// for manipulation risk and the Altman Z-score for bankruptcy risk.
package forensic

import (
	"fmt"

	"github.com/equitylens/equitylens/pkg/models"
)

// BeneishResult holds the eight Beneish indices and the composite M-score.
type BeneishResult struct {
	DSRI float64 `json:"dsri"` // days sales in receivables index
	GMI  float64 `json:"gmi"`  // gross margin index
	AQI  float64 `json:"aqi"`  // asset quality index
	SGI  float64 `json:"sgi"`  // sales growth index
	DEPI float64 `json:"depi"` // depreciation index
	SGAI float64 `json:"sgai"` // SG&A index
	LVGI float64 `json:"lvgi"` // leverage index
	TATA float64 `json:"tata"` // total accruals to total assets

	MScore  float64 `json:"m_score"`
	Flagged bool    `json:"flagged"` // M > -1.78 suggests manipulation
}

// beneishFlagThreshold is the conventional cut-off above which earnings
// manipulation is considered likely.
const beneishFlagThreshold = -1.78

// BeneishMScore computes the eight-variable Beneish model from the two most
// recent annual periods. Indices whose inputs are missing stay at their
// neutral value of 1 (TATA at 0) so one absent row never dominates the score.
func BeneishMScore(b *models.FundamentalsBundle) (*BeneishResult, error) {
	if b == nil || len(b.Income.Periods) < 2 || len(b.Balance.Periods) < 2 {
		return nil, fmt.Errorf("beneish: need two annual periods, have %d income / %d balance",
			incomePeriods(b), balancePeriods(b))
	}

	sales, _ := b.Income.Latest(models.AliasRevenue...)
	prevSales, _ := b.Income.Value(1, models.AliasRevenue...)
	if sales <= 0 || prevSales <= 0 {
		return nil, fmt.Errorf("beneish: revenue missing or non-positive")
	}

	r := &BeneishResult{DSRI: 1, GMI: 1, AQI: 1, SGI: 1, DEPI: 1, SGAI: 1, LVGI: 1}

	// DSRI: receivables relative to sales, year over year.
	recv, okRecv := b.Balance.Latest(models.AliasReceivables...)
	prevRecv, _ := b.Balance.Value(1, models.AliasReceivables...)
	if okRecv && prevRecv > 0 {
		r.DSRI = (recv / sales) / (prevRecv / prevSales)
	}

	// GMI: prior gross margin over current; >1 means margins deteriorated.
	cogs, okCOGS := b.Income.Latest(models.AliasCostOfRevenue...)
	prevCOGS, _ := b.Income.Value(1, models.AliasCostOfRevenue...)
	if okCOGS {
		gm := (sales - cogs) / sales
		prevGM := (prevSales - prevCOGS) / prevSales
		if gm > 0 {
			r.GMI = prevGM / gm
		}
	}

	// AQI: share of "soft" assets (neither current nor PPE).
	assets, okAssets := b.Balance.Latest(models.AliasTotalAssets...)
	prevAssets, _ := b.Balance.Value(1, models.AliasTotalAssets...)
	ca, _ := b.Balance.Latest(models.AliasCurrentAssets...)
	prevCA, _ := b.Balance.Value(1, models.AliasCurrentAssets...)
	ppe, _ := b.Balance.Latest(models.AliasNetPPE...)
	prevPPE, _ := b.Balance.Value(1, models.AliasNetPPE...)
	if okAssets && assets > 0 && prevAssets > 0 {
		soft := 1 - (ca+ppe)/assets
		prevSoft := 1 - (prevCA+prevPPE)/prevAssets
		if prevSoft > 0 {
			r.AQI = soft / prevSoft
		}
	}

	// SGI: raw sales growth.
	r.SGI = sales / prevSales

	// DEPI: prior depreciation rate over current; >1 means the company
	// slowed depreciation.
	depn, okDepn := b.CashFlow.Latest(models.AliasDepreciation...)
	prevDepn, _ := b.CashFlow.Value(1, models.AliasDepreciation...)
	if okDepn && ppe > 0 && prevPPE > 0 {
		rate := depn / (depn + ppe)
		prevRate := prevDepn / (prevDepn + prevPPE)
		if rate > 0 {
			r.DEPI = prevRate / rate
		}
	}

	// SGAI: SG&A relative to sales, year over year.
	sga, okSGA := b.Income.Latest(models.AliasSGA...)
	prevSGA, _ := b.Income.Value(1, models.AliasSGA...)
	if okSGA && prevSGA > 0 {
		r.SGAI = (sga / sales) / (prevSGA / prevSales)
	}

	// LVGI: leverage (LTD + current liabilities over assets), year over year.
	ltd, _ := b.Balance.Latest(models.AliasLongTermDebt...)
	prevLTD, _ := b.Balance.Value(1, models.AliasLongTermDebt...)
	cl, _ := b.Balance.Latest(models.AliasCurrentLiabilities...)
	prevCL, _ := b.Balance.Value(1, models.AliasCurrentLiabilities...)
	if okAssets && assets > 0 && prevAssets > 0 {
		lev := (ltd + cl) / assets
		prevLev := (prevLTD + prevCL) / prevAssets
		if prevLev > 0 {
			r.LVGI = lev / prevLev
		}
	}

	// TATA: accruals — earnings not backed by operating cash.
	netIncome, _ := b.Income.Latest(models.AliasNetIncome...)
	ocf, okOCF := b.CashFlow.Latest(models.AliasOperatingCashFlow...)
	if okOCF && assets > 0 {
		r.TATA = (netIncome - ocf) / assets
	}

	r.MScore = -4.84 +
		0.920*r.DSRI +
		0.528*r.GMI +
		0.404*r.AQI +
		0.892*r.SGI +
		0.115*r.DEPI -
		0.172*r.SGAI +
		4.679*r.TATA -
		0.327*r.LVGI
	r.Flagged = r.MScore > beneishFlagThreshold

	return r, nil
}

func incomePeriods(b *models.FundamentalsBundle) int {
	if b == nil {
		return 0
	}
	return len(b.Income.Periods)
}

func balancePeriods(b *models.FundamentalsBundle) int {
	if b == nil {
		return 0
	}
	return len(b.Balance.Periods)
}
