package valuation

import "github.com/whizrock/ledger/internal/model"

// Epsilon is the net holding at or below which a stock counts as fully divested.
const Epsilon = 0.0001

// Position is the running state of the weighted-average cost accumulation
// for a single stock.
type Position struct {
	Quantity  float64
	CostBasis float64
}

// Accumulate replays txs, which must share one stock and be sorted ascending
// by date, and returns the resulting position.
//
// A buy capitalizes its charges into the cost basis. A sell removes cost at the
// current average cost per share; its own charges are not recorded anywhere.
// Sells larger than the holding are not rejected and drive the quantity negative.
func Accumulate(txs []model.Transaction) Position {
	var pos Position
	for _, tx := range txs {
		pos = pos.Apply(tx)
	}
	return pos
}

// Apply returns the position after tx.
func (p Position) Apply(tx model.Transaction) Position {
	if tx.Action == model.Buy {
		p.CostBasis += tx.Quantity*tx.TransactionPrice + tx.TotalCharges()
		p.Quantity += tx.Quantity
		return p
	}

	avgCost := 0.0
	if p.Quantity > 0 {
		avgCost = p.CostBasis / p.Quantity
	}
	p.CostBasis -= avgCost * tx.Quantity
	p.Quantity -= tx.Quantity
	return p
}

// AvgCost is the cost basis per held share, 0 when nothing is held.
func (p Position) AvgCost() float64 {
	if p.Quantity <= 0 {
		return 0
	}
	return p.CostBasis / p.Quantity
}

// Value prices the position. Investment and P&L are zero unless shares are held.
func (p Position) Value(price float64) (investment, currentValue, pAndL float64) {
	currentValue = p.Quantity * price
	if p.Quantity > 0 {
		investment = p.CostBasis
		pAndL = currentValue - p.CostBasis
	}
	return investment, currentValue, pAndL
}

// Divested reports whether the holding is at or below Epsilon.
func (p Position) Divested() bool {
	return !(p.Quantity > Epsilon)
}
