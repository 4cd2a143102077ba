package dbModel

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction mirrors a stock_transactions row. Every column except the id is
// nullable so that partially filled rows (and CSV imports) can be scanned
// before sanitization.
type Transaction struct {
	ID                 string              `db:"id"`
	StockSymbol        sql.NullString      `db:"stock_symbol"`
	CompanyName        sql.NullString      `db:"company_name"`
	ISINCode           sql.NullString      `db:"isin_code"`
	Owner              sql.NullString      `db:"owner"`
	Action             sql.NullString      `db:"action"`
	Quantity           decimal.NullDecimal `db:"quantity"`
	TransactionPrice   decimal.NullDecimal `db:"transaction_price"`
	Brokerage          decimal.NullDecimal `db:"brokerage"`
	StampDuty          decimal.NullDecimal `db:"stamp_duty"`
	TransactionCharges decimal.NullDecimal `db:"transaction_charges"`
	Exchange           sql.NullString      `db:"exchange"`
	Broker             sql.NullString      `db:"broker"`
	TransactionDate    sql.NullTime        `db:"transaction_date"`
	UserEmail          sql.NullString      `db:"user_email"`
	CreatedAt          time.Time           `db:"created_at"`
}
