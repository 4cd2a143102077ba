package model

import "time"

// TransactionInput is a transaction as typed by a user, before validation.
type TransactionInput struct {
	StockID            string    `label:"Stock Symbol" validate:"required"`
	CompanyName        string    `label:"Company Name" validate:"required"`
	ISINCode           string    `label:"ISIN Code" validate:"required"`
	Owner              string    `label:"Owner" validate:"required"`
	Action             Action    `label:"Action" validate:"oneof=Buy Sell"`
	Quantity           float64   `label:"Quantity" validate:"gt=0"`
	TransactionPrice   float64   `label:"Transaction Price" validate:"gte=0"`
	Brokerage          float64   `label:"Brokerage" validate:"gte=0"`
	StampDuty          float64   `label:"Stamp Duty" validate:"gte=0"`
	TransactionCharges float64   `label:"Transaction Charges" validate:"gte=0"`
	Broker             string    `label:"Broker" validate:"required"`
	Exchange           string    `label:"Exchange" validate:"required"`
	TransactionDate    time.Time `label:"Transaction Date"`
	UserEmail          string    `label:"User Email" validate:"omitempty,email"`
}
