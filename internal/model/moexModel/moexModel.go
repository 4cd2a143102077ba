package moexModel

import "time"

// RawSecurities is the ISS table pair answered by the securities endpoint.
type RawSecurities struct {
	Securities Table `json:"securities"`
	Marketdata Table `json:"marketdata"`
}

type Table struct {
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}

// Quote is a fetched market price. Price is 0 when the exchange has none.
type Quote struct {
	Symbol    string    `json:"symbol"`
	ShortName string    `json:"shortName"`
	Currency  string    `json:"currency"`
	Price     float64   `json:"price"`
	FetchedAt time.Time `json:"fetchedAt"`
}
