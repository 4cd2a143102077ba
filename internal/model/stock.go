package model

import "time"

type Recommendation string

const RecommendationHold Recommendation = "Hold"

type Stock struct {
	ID           string
	CompanyName  string
	CurrentPrice float64
}

// PriceSet reports whether a market price is known. Zero means "NOT SET".
func (s Stock) PriceSet() bool {
	return s.CurrentPrice != 0
}

type CalculatedStock struct {
	Stock                Stock
	Transactions         []Transaction
	Quantity             float64
	Investment           float64
	CurrentValue         float64
	PAndL                float64
	AvgAnnualReturn      float64
	FirstTransactionDate time.Time
	Recommendation       Recommendation
}

type PortfolioSummary struct {
	TotalInvestment float64
	CurrentValue    float64
	TotalPandL      float64
	AvgAnnualReturn float64
}

// Prices maps an uppercase stock symbol to its current price.
type Prices map[string]float64

// Get returns the price of symbol or 0 when it is not set.
func (p Prices) Get(symbol string) float64 {
	return p[symbol]
}
