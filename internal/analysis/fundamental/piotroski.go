package fundamental

import "github.com/equitylens/equitylens/pkg/models"

// QualityScore is the result of a Piotroski F-score screen.
type QualityScore struct {
	Score  int      `json:"score"` // 0-9
	Checks []string `json:"checks"`
}

// PiotroskiFScore computes the nine-check Piotroski F-score from the two
// most recent annual periods. Needs at least two income and two balance
// periods; returns a zero score otherwise.
func PiotroskiFScore(b *models.FundamentalsBundle) QualityScore {
	var qs QualityScore
	if b == nil || len(b.Income.Periods) < 2 || len(b.Balance.Periods) < 2 {
		return qs
	}

	check := func(pass bool, passMsg, failMsg string) {
		if pass {
			qs.Score++
			qs.Checks = append(qs.Checks, "✓ "+passMsg)
		} else {
			qs.Checks = append(qs.Checks, "✗ "+failMsg)
		}
	}

	netIncome, _ := b.Income.Latest(models.AliasNetIncome...)
	prevNetIncome, _ := b.Income.Value(1, models.AliasNetIncome...)
	revenue, _ := b.Income.Latest(models.AliasRevenue...)
	prevRevenue, _ := b.Income.Value(1, models.AliasRevenue...)
	ocf, _ := b.CashFlow.Latest(models.AliasOperatingCashFlow...)

	assets, _ := b.Balance.Latest(models.AliasTotalAssets...)
	prevAssets, _ := b.Balance.Value(1, models.AliasTotalAssets...)

	// 1. Positive net income.
	check(netIncome > 0, "Positive net income", "Negative net income")

	// 2. Positive operating cash flow.
	check(ocf > 0, "Positive operating cash flow", "Negative operating cash flow")

	// 3. Improving return on assets.
	if assets > 0 && prevAssets > 0 {
		check(netIncome/assets > prevNetIncome/prevAssets,
			"Improving ROA", "Declining ROA")
	}

	// 4. Cash flow exceeds earnings (accrual quality).
	check(ocf > netIncome, "Cash flow > net income (quality earnings)", "Cash flow < net income")

	// 5. Declining long-term leverage.
	ltDebt, _ := b.Balance.Latest(models.AliasLongTermDebt...)
	prevLTDebt, _ := b.Balance.Value(1, models.AliasLongTermDebt...)
	if assets > 0 && prevAssets > 0 {
		check(ltDebt/assets < prevLTDebt/prevAssets,
			"Declining leverage", "Increasing leverage")
	}

	// 6. Improving current ratio.
	ca, _ := b.Balance.Latest(models.AliasCurrentAssets...)
	cl, _ := b.Balance.Latest(models.AliasCurrentLiabilities...)
	prevCA, _ := b.Balance.Value(1, models.AliasCurrentAssets...)
	prevCL, _ := b.Balance.Value(1, models.AliasCurrentLiabilities...)
	if cl > 0 && prevCL > 0 {
		check(ca/cl > prevCA/prevCL, "Improving current ratio", "Declining current ratio")
	}

	// 7. No equity dilution. Share history is not in the bundle, so paid-in
	// capital (equity minus retained earnings) serves as the proxy.
	equity, _ := b.Balance.Latest(models.AliasTotalEquity...)
	prevEquity, _ := b.Balance.Value(1, models.AliasTotalEquity...)
	retained, okRetained := b.Balance.Latest(models.AliasRetainedEarnings...)
	prevRetained, _ := b.Balance.Value(1, models.AliasRetainedEarnings...)
	if okRetained && equity > 0 && prevEquity > 0 {
		check(equity-retained <= prevEquity-prevRetained,
			"No equity dilution", "Equity diluted")
	}

	// 8. Improving gross margin, operating margin when gross profit is
	// not reported.
	gross, okGross := b.Income.Latest(models.AliasGrossProfit...)
	prevGross, _ := b.Income.Value(1, models.AliasGrossProfit...)
	if !okGross {
		gross, _ = b.Income.Latest(models.AliasOperatingIncome...)
		prevGross, _ = b.Income.Value(1, models.AliasOperatingIncome...)
	}
	if revenue > 0 && prevRevenue > 0 {
		check(gross/revenue > prevGross/prevRevenue,
			"Improving margin", "Declining margin")
	}

	// 9. Improving asset turnover.
	if assets > 0 && prevAssets > 0 {
		check(revenue/assets > prevRevenue/prevAssets,
			"Improving asset turnover", "Declining asset turnover")
	}

	return qs
}
