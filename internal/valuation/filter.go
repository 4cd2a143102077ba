package valuation

import (
	"sort"
	"strings"

	"github.com/whizrock/ledger/internal/model"
)

// Group holds the transactions of one stock that passed a filter, oldest first.
type Group struct {
	StockID      string
	Transactions []model.Transaction
}

// Match reports whether tx passes the owner and date range of f.
// Both date bounds are inclusive.
func Match(f model.Filter, tx model.Transaction) bool {
	if !f.AnyOwner() && tx.Owner != f.Owner {
		return false
	}
	if f.StartDate != nil && tx.TransactionDate.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && tx.TransactionDate.After(*f.EndDate) {
		return false
	}
	return true
}

// GroupByStock partitions the transactions passing f by stock, in order of
// first appearance. Each group is sorted ascending by date; transactions on the
// same date keep their relative input order. txs is not modified.
func GroupByStock(txs []model.Transaction, f model.Filter) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)

	for _, tx := range txs {
		if !Match(f, tx) {
			continue
		}
		i, ok := index[tx.StockID]
		if !ok {
			i = len(groups)
			index[tx.StockID] = i
			groups = append(groups, Group{StockID: tx.StockID})
		}
		groups[i].Transactions = append(groups[i].Transactions, tx)
	}

	for _, g := range groups {
		sort.SliceStable(g.Transactions, func(a, b int) bool {
			return g.Transactions[a].TransactionDate.Before(g.Transactions[b].TransactionDate)
		})
	}

	return groups
}

// Search keeps the holdings whose company name or symbol contains query,
// ignoring case. An empty query keeps everything.
func Search(holdings []model.CalculatedStock, query string) []model.CalculatedStock {
	if query == "" {
		return holdings
	}

	q := strings.ToLower(query)
	res := make([]model.CalculatedStock, 0, len(holdings))
	for _, h := range holdings {
		if strings.Contains(strings.ToLower(h.Stock.CompanyName), q) || strings.Contains(strings.ToLower(h.Stock.ID), q) {
			res = append(res, h)
		}
	}
	return res
}
