package tgCallback

// Inline button uniques. The button payload carries the argument.
const (
	Page      string = "page"     // payload: page number
	Stock     string = "stock"    // payload: stock symbol, optionally ":page"
	Owner     string = "owner"    // payload: owner position in the list or "all"
	SyncPrice string = "sync"     // payload: stock symbol
	Analysis  string = "analysis" // payload: stock symbol, empty for the portfolio
	Back      string = "back"     // back to the portfolio page
	Cancel    string = "cancel"   // drop pending input
)
