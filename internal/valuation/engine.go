// Package valuation turns a transaction history and a set of current prices
// into per-stock holdings and portfolio totals using weighted-average cost.
//
// Every function here is pure: inputs are never modified and nothing is
// remembered between calls, so the package is safe for concurrent use.
package valuation

import "github.com/whizrock/ledger/internal/model"

// Calculate filters txs by owner and date, accumulates each stock's position,
// prices it from prices (missing symbols are priced at 0), drops divested
// stocks, applies the free-text search and summarizes the result.
//
// Holdings are returned in order of each stock's first appearance in txs.
func Calculate(txs []model.Transaction, prices model.Prices, f model.Filter) ([]model.CalculatedStock, model.PortfolioSummary) {
	holdings := Search(Holdings(txs, prices, f), f.Search)
	return holdings, Summarize(holdings)
}

// Holdings is Calculate without the search and the summary.
func Holdings(txs []model.Transaction, prices model.Prices, f model.Filter) []model.CalculatedStock {
	groups := GroupByStock(txs, f)
	res := make([]model.CalculatedStock, 0, len(groups))

	for _, g := range groups {
		pos := Accumulate(g.Transactions)
		if pos.Divested() {
			continue
		}
		res = append(res, calculateStock(g, pos, prices.Get(g.StockID)))
	}

	return res
}

func calculateStock(g Group, pos Position, price float64) model.CalculatedStock {
	first := g.Transactions[0]

	companyName := first.CompanyName
	if companyName == "" {
		companyName = g.StockID
	}

	investment, currentValue, pAndL := pos.Value(price)

	return model.CalculatedStock{
		Stock: model.Stock{
			ID:           g.StockID,
			CompanyName:  companyName,
			CurrentPrice: price,
		},
		Transactions:         g.Transactions,
		Quantity:             pos.Quantity,
		Investment:           investment,
		CurrentValue:         currentValue,
		PAndL:                pAndL,
		FirstTransactionDate: first.TransactionDate,
		Recommendation:       model.RecommendationHold,
	}
}
