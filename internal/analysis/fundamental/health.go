package fundamental

import (
	"fmt"

	"github.com/equitylens/equitylens/pkg/models"
)

// Health scores the overall financial robustness of a company.
type Health struct {
	Score      float64            `json:"score"` // 0-100 composite
	Grade      string             `json:"grade"` // "A+" .. "D"
	Strengths  []string           `json:"strengths"`
	Weaknesses []string           `json:"weaknesses"`
	Components map[string]float64 `json:"components"`
}

// AssessHealth evaluates financial health from ratios and growth rates.
// Weights: profitability 30, solvency 25, liquidity 15, growth 20,
// cash flow 10.
func AssessHealth(ratios models.FinancialRatios, growth models.GrowthRates) Health {
	h := Health{
		Components: make(map[string]float64),
	}

	totalScore := 0.0
	totalWeight := 0.0

	// Profitability (30 points).
	profScore := 0.0
	if ratios.ROE > 20 {
		profScore += 10
		h.Strengths = append(h.Strengths, fmt.Sprintf("High ROE: %.1f%%", ratios.ROE))
	} else if ratios.ROE > 12 {
		profScore += 6
	} else if ratios.ROE > 0 {
		profScore += 3
	} else {
		h.Weaknesses = append(h.Weaknesses, "Negative or zero ROE")
	}

	if ratios.ROIC > 15 {
		profScore += 10
		h.Strengths = append(h.Strengths, fmt.Sprintf("High ROIC: %.1f%%", ratios.ROIC))
	} else if ratios.ROIC > 8 {
		profScore += 6
	} else if ratios.ROIC > 0 {
		profScore += 3
	}

	if ratios.OperatingMargin > 20 {
		profScore += 10
		h.Strengths = append(h.Strengths, fmt.Sprintf("Strong operating margin: %.1f%%", ratios.OperatingMargin))
	} else if ratios.OperatingMargin > 10 {
		profScore += 6
	} else if ratios.OperatingMargin > 0 {
		profScore += 3
	} else {
		h.Weaknesses = append(h.Weaknesses, "Negative operating margin")
	}

	h.Components["profitability"] = profScore
	totalScore += profScore
	totalWeight += 30

	// Solvency (25 points).
	solvScore := 0.0
	if ratios.DebtEquity < 0.5 {
		solvScore += 12.5
		h.Strengths = append(h.Strengths, "Low debt-to-equity ratio")
	} else if ratios.DebtEquity < 1 {
		solvScore += 8
	} else if ratios.DebtEquity < 2 {
		solvScore += 4
	} else {
		h.Weaknesses = append(h.Weaknesses, fmt.Sprintf("High D/E ratio: %.2f", ratios.DebtEquity))
	}

	if ratios.InterestCoverage > 5 {
		solvScore += 12.5
	} else if ratios.InterestCoverage > 2 {
		solvScore += 8
	} else if ratios.InterestCoverage > 1 {
		solvScore += 4
	} else if ratios.InterestCoverage > 0 {
		solvScore += 2
		h.Weaknesses = append(h.Weaknesses, "Low interest coverage")
	} else {
		// No interest expense reported; neutral rather than penalizing.
		solvScore += 8
	}

	h.Components["solvency"] = solvScore
	totalScore += solvScore
	totalWeight += 25

	// Liquidity (15 points).
	liqScore := 0.0
	if ratios.CurrentRatio > 2 {
		liqScore += 15
		h.Strengths = append(h.Strengths, "Strong current ratio")
	} else if ratios.CurrentRatio > 1.5 {
		liqScore += 12
	} else if ratios.CurrentRatio > 1 {
		liqScore += 7
	} else {
		h.Weaknesses = append(h.Weaknesses, fmt.Sprintf("Weak current ratio: %.2f", ratios.CurrentRatio))
	}

	h.Components["liquidity"] = liqScore
	totalScore += liqScore
	totalWeight += 15

	// Growth (20 points).
	growthScore := 0.0
	if growth.RevenueGrowthYoY > 20 {
		growthScore += 10
		h.Strengths = append(h.Strengths, fmt.Sprintf("Strong revenue growth: %.1f%% YoY", growth.RevenueGrowthYoY))
	} else if growth.RevenueGrowthYoY > 10 {
		growthScore += 6
	} else if growth.RevenueGrowthYoY > 0 {
		growthScore += 3
	} else {
		h.Weaknesses = append(h.Weaknesses, "Declining revenue")
	}

	if growth.NetIncomeGrowthYoY > 20 {
		growthScore += 10
	} else if growth.NetIncomeGrowthYoY > 10 {
		growthScore += 6
	} else if growth.NetIncomeGrowthYoY > 0 {
		growthScore += 3
	} else {
		h.Weaknesses = append(h.Weaknesses, "Declining earnings")
	}

	h.Components["growth"] = growthScore
	totalScore += growthScore
	totalWeight += 20

	// Cash flow (10 points).
	cfScore := 0.0
	if ratios.FCFYield > 0 {
		cfScore += 10
		h.Strengths = append(h.Strengths, "Positive free cash flow")
	} else {
		h.Weaknesses = append(h.Weaknesses, "Negative free cash flow")
	}

	h.Components["cash_flow"] = cfScore
	totalScore += cfScore
	totalWeight += 10

	if totalWeight > 0 {
		h.Score = totalScore / totalWeight * 100
	}

	switch {
	case h.Score >= 85:
		h.Grade = "A+"
	case h.Score >= 70:
		h.Grade = "A"
	case h.Score >= 55:
		h.Grade = "B+"
	case h.Score >= 40:
		h.Grade = "B"
	case h.Score >= 25:
		h.Grade = "C"
	default:
		h.Grade = "D"
	}

	return h
}
