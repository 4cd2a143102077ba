package model

import "time"

type PortfolioView struct {
	Holdings        []CalculatedStock
	Summary         PortfolioSummary
	Filter          Filter
	PricesUpdatedAt time.Time
}

type Owner struct {
	Name      string
	CreatedAt time.Time
}

type ExportFile struct {
	Name string
	Data []byte
	Link string
}
