package valuation

import (
	"time"

	"github.com/whizrock/ledger/internal/model"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func dayPtr(s string) *time.Time {
	d := day(s)
	return &d
}

func buy(stock string, qty, price, charges float64, date string) model.Transaction {
	return model.Transaction{
		StockID:          stock,
		CompanyName:      stock + " Corp",
		Owner:            "Family",
		Action:           model.Buy,
		Quantity:         qty,
		TransactionPrice: price,
		Brokerage:        charges,
		TransactionDate:  day(date),
	}
}

func sell(stock string, qty, price, charges float64, date string) model.Transaction {
	tx := buy(stock, qty, price, charges, date)
	tx.Action = model.Sell
	return tx
}

func owned(tx model.Transaction, owner string) model.Transaction {
	tx.Owner = owner
	return tx
}

func byStock(holdings []model.CalculatedStock) map[string]model.CalculatedStock {
	res := make(map[string]model.CalculatedStock, len(holdings))
	for _, h := range holdings {
		res[h.Stock.ID] = h
	}
	return res
}
