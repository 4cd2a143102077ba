package model

import "time"

type Action string

const (
	Buy  Action = "Buy"
	Sell Action = "Sell"
)

type Transaction struct {
	ID                 string
	StockID            string
	CompanyName        string
	ISINCode           string
	Exchange           string
	Broker             string
	Owner              string
	Action             Action
	Quantity           float64
	TransactionPrice   float64
	Brokerage          float64
	StampDuty          float64
	TransactionCharges float64
	TransactionDate    time.Time
	UserEmail          string
}

// TotalCharges is the sum of all cost add-ons of the transaction.
func (t Transaction) TotalCharges() float64 {
	return t.Brokerage + t.StampDuty + t.TransactionCharges
}
