package model

type State int

const (
	DefaultState State = iota
	ExpectingTransactionForm
	ExpectingImportFile
)

type Session struct {
	State  State  `json:"state"`
	Filter Filter `json:"filter"`
	Page   int    `json:"page"`
	// EditingID is the transaction being replaced by the next submitted form.
	EditingID string `json:"editingId,omitempty"`
}
