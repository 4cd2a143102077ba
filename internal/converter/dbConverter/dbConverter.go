package dbConverter

import (
	"database/sql"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/whizrock/ledger/internal/model"
	"github.com/whizrock/ledger/internal/model/dbModel"
)

const unknown = "Unknown"

// ConvertTransaction sanitizes a stored row into a domain transaction.
// Missing or invalid numbers become 0, the symbol is upper-cased and trimmed,
// and any action mentioning "sell" is a Sell while everything else is a Buy.
func ConvertTransaction(dbTx dbModel.Transaction) model.Transaction {
	stockID := strings.ToUpper(strings.TrimSpace(dbTx.StockSymbol.String))

	companyName := dbTx.CompanyName.String
	if companyName == "" {
		companyName = dbTx.StockSymbol.String
	}
	if companyName == "" {
		companyName = unknown
	}

	owner := dbTx.Owner.String
	if owner == "" {
		owner = unknown
	}

	return model.Transaction{
		ID:                 dbTx.ID,
		StockID:            stockID,
		CompanyName:        companyName,
		ISINCode:           dbTx.ISINCode.String,
		Exchange:           dbTx.Exchange.String,
		Broker:             dbTx.Broker.String,
		Owner:              owner,
		Action:             ConvertAction(dbTx.Action.String),
		Quantity:           math.Abs(toFloat(dbTx.Quantity)),
		TransactionPrice:   toFloat(dbTx.TransactionPrice),
		Brokerage:          toFloat(dbTx.Brokerage),
		StampDuty:          toFloat(dbTx.StampDuty),
		TransactionCharges: toFloat(dbTx.TransactionCharges),
		TransactionDate:    dbTx.TransactionDate.Time,
		UserEmail:          dbTx.UserEmail.String,
	}
}

func ConvertAction(raw string) model.Action {
	if strings.Contains(strings.ToLower(raw), "sell") {
		return model.Sell
	}
	return model.Buy
}

// ConvertToDBTransaction is the reverse mapping used for inserts.
func ConvertToDBTransaction(tx model.Transaction) dbModel.Transaction {
	return dbModel.Transaction{
		ID:                 tx.ID,
		StockSymbol:        nullString(tx.StockID),
		CompanyName:        nullString(tx.CompanyName),
		ISINCode:           nullString(tx.ISINCode),
		Owner:              nullString(tx.Owner),
		Action:             nullString(strings.TrimSpace(string(tx.Action))),
		Quantity:           fromFloat(tx.Quantity),
		TransactionPrice:   fromFloat(tx.TransactionPrice),
		Brokerage:          fromFloat(tx.Brokerage),
		StampDuty:          fromFloat(tx.StampDuty),
		TransactionCharges: fromFloat(tx.TransactionCharges),
		Exchange:           nullString(tx.Exchange),
		Broker:             nullString(tx.Broker),
		TransactionDate:    sql.NullTime{Time: tx.TransactionDate, Valid: !tx.TransactionDate.IsZero()},
		UserEmail:          nullString(tx.UserEmail),
	}
}

func ConvertOwner(dbOwner dbModel.Owner) model.Owner {
	return model.Owner{
		Name:      dbOwner.Name,
		CreatedAt: dbOwner.CreatedAt,
	}
}

func toFloat(d decimal.NullDecimal) float64 {
	if !d.Valid {
		return 0
	}
	return d.Decimal.InexactFloat64()
}

func fromFloat(f float64) decimal.NullDecimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(f))
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
