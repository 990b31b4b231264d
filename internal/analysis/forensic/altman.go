package forensic

import (
	"fmt"

	"github.com/equitylens/equitylens/pkg/models"
)

// AltmanResult holds the five Z-score components and the classification band.
type AltmanResult struct {
	WorkingCapitalTA   float64 `json:"working_capital_ta"`
	RetainedEarningsTA float64 `json:"retained_earnings_ta"`
	EBITTA             float64 `json:"ebit_ta"`
	MarketEquityTL     float64 `json:"market_equity_tl"`
	SalesTA            float64 `json:"sales_ta"`

	ZScore float64 `json:"z_score"`
	Band   string  `json:"band"` // "distress", "grey", "safe"
}

// Z-score classification bands (original 1968 public-company model).
const (
	altmanDistressBelow = 1.81
	altmanSafeAbove     = 2.99
)

// AltmanZScore computes the original Altman Z from the latest period plus
// the market capitalization carried in the bundle facts.
func AltmanZScore(b *models.FundamentalsBundle) (*AltmanResult, error) {
	if b == nil {
		return nil, fmt.Errorf("altman: nil bundle")
	}

	assets, ok := b.Balance.Latest(models.AliasTotalAssets...)
	if !ok || assets <= 0 {
		return nil, fmt.Errorf("altman: total assets missing or non-positive")
	}

	ca, _ := b.Balance.Latest(models.AliasCurrentAssets...)
	cl, _ := b.Balance.Latest(models.AliasCurrentLiabilities...)
	retained, _ := b.Balance.Latest(models.AliasRetainedEarnings...)
	equity, _ := b.Balance.Latest(models.AliasTotalEquity...)
	ebit, _ := b.Income.Latest(models.AliasOperatingIncome...)
	sales, _ := b.Income.Latest(models.AliasRevenue...)

	marketCap := b.Facts.MarketCap
	if marketCap == 0 {
		marketCap = b.Facts.SharePrice * b.Facts.SharesOutstanding
	}

	r := &AltmanResult{
		WorkingCapitalTA:   (ca - cl) / assets,
		RetainedEarningsTA: retained / assets,
		EBITTA:             ebit / assets,
		SalesTA:            sales / assets,
	}
	if liabilities := assets - equity; liabilities > 0 {
		r.MarketEquityTL = marketCap / liabilities
	}

	r.ZScore = 1.2*r.WorkingCapitalTA +
		1.4*r.RetainedEarningsTA +
		3.3*r.EBITTA +
		0.6*r.MarketEquityTL +
		1.0*r.SalesTA

	switch {
	case r.ZScore < altmanDistressBelow:
		r.Band = "distress"
	case r.ZScore > altmanSafeAbove:
		r.Band = "safe"
	default:
		r.Band = "grey"
	}

	return r, nil
}
