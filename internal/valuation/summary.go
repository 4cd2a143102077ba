package valuation

import "github.com/whizrock/ledger/internal/model"

// Summarize adds up investment, value and P&L over holdings.
// AvgAnnualReturn is not computed and stays 0.
func Summarize(holdings []model.CalculatedStock) model.PortfolioSummary {
	var s model.PortfolioSummary
	for _, h := range holdings {
		s.TotalInvestment += h.Investment
		s.CurrentValue += h.CurrentValue
		s.TotalPandL += h.PAndL
	}
	return s
}
