package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/whizrock/ledger/data/repository"
	"github.com/whizrock/ledger/internal/converter/dbConverter"
	"github.com/whizrock/ledger/internal/model"
	"github.com/whizrock/ledger/internal/model/dbModel"
	"github.com/whizrock/ledger/utils"
)

const (
	transactionColumns = `id, stock_symbol, company_name, isin_code, owner, action, quantity,
		transaction_price, brokerage, stamp_duty, transaction_charges, exchange, broker,
		transaction_date, user_email`
	transactionColumnsCount = 15

	// keeps a bulk insert under the Postgres bind parameter limit
	insertChunkSize = 1000
)

func transactionArgs(row dbModel.Transaction) []any {
	return []any{
		row.ID,
		row.StockSymbol,
		row.CompanyName,
		row.ISINCode,
		row.Owner,
		row.Action,
		row.Quantity,
		row.TransactionPrice,
		row.Brokerage,
		row.StampDuty,
		row.TransactionCharges,
		row.Exchange,
		row.Broker,
		row.TransactionDate,
		row.UserEmail,
	}
}

// ListTransactions returns every recorded transaction by date, same-date rows
// in the order they were inserted.
func (r *Postgres) ListTransactions(ctx context.Context) (txs []model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.ListTransactions"
	query := `SELECT ` + transactionColumns + `, created_at
		FROM stock_transactions
		ORDER BY transaction_date ASC NULLS FIRST, seq ASC`

	slog.Debug("ListTransactions start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("ListTransactions failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("ListTransactions completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(txs)))
		}
	}()

	var rows []dbModel.Transaction
	if err = r.txOrDb(ctx).SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	txs = make([]model.Transaction, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, dbConverter.ConvertTransaction(row))
	}

	return txs, nil
}

func (r *Postgres) GetTransaction(ctx context.Context, id string) (tx model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetTransaction"
	query := `SELECT ` + transactionColumns + `, created_at FROM stock_transactions WHERE id = $1`

	slog.Debug("GetTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("id", id))
	defer func() {
		if err != nil {
			slog.Error("GetTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if _, err = uuid.Parse(id); err != nil {
		return model.Transaction{}, fmt.Errorf("parse id %q: %w", id, repository.ErrNotFound)
	}

	var row dbModel.Transaction
	if err = r.txOrDb(ctx).GetContext(ctx, &row, query, id); err != nil {
		return model.Transaction{}, mapError(err)
	}

	return dbConverter.ConvertTransaction(row), nil
}

// UpsertTransaction inserts tx when it has no ID and updates the stored row otherwise.
// The stored ID is returned.
func (r *Postgres) UpsertTransaction(ctx context.Context, tx model.Transaction) (id string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpsertTransaction"

	slog.Debug("UpsertTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("id", tx.ID))
	defer func() {
		if err != nil {
			slog.Error("UpsertTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertTransaction completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("id", id))
		}
	}()

	if tx.ID == "" {
		tx.ID = uuid.NewString()
		query := `INSERT INTO stock_transactions(` + transactionColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

		if _, err = r.txOrDb(ctx).ExecContext(ctx, query, transactionArgs(dbConverter.ConvertToDBTransaction(tx))...); err != nil {
			return "", mapError(err)
		}
		return tx.ID, nil
	}

	if _, err = uuid.Parse(tx.ID); err != nil {
		return "", fmt.Errorf("parse id %q: %w", tx.ID, repository.ErrNotFound)
	}

	query := `UPDATE stock_transactions SET
			stock_symbol = $2,
			company_name = $3,
			isin_code = $4,
			owner = $5,
			action = $6,
			quantity = $7,
			transaction_price = $8,
			brokerage = $9,
			stamp_duty = $10,
			transaction_charges = $11,
			exchange = $12,
			broker = $13,
			transaction_date = $14,
			user_email = $15
		WHERE id = $1`

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, transactionArgs(dbConverter.ConvertToDBTransaction(tx))...)
	if err != nil {
		return "", mapError(err)
	}
	if err = expectAffected(res); err != nil {
		return "", err
	}

	return tx.ID, nil
}

func (r *Postgres) DeleteTransaction(ctx context.Context, id string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteTransaction"
	query := `DELETE FROM stock_transactions WHERE id = $1`

	slog.Debug("DeleteTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("id", id))
	defer func() {
		if err != nil {
			slog.Error("DeleteTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if _, err = uuid.Parse(id); err != nil {
		return fmt.Errorf("parse id %q: %w", id, repository.ErrNotFound)
	}

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return expectAffected(res)
}

// ReassignOwner moves every transaction of stockID to owner.
func (r *Postgres) ReassignOwner(ctx context.Context, stockID, owner string) (affected int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.ReassignOwner"
	query := `UPDATE stock_transactions SET owner = $2 WHERE upper(trim(stock_symbol)) = $1`

	slog.Debug(
		"ReassignOwner start",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.String("stockID", stockID),
		slog.String("owner", owner),
	)
	defer func() {
		if err != nil {
			slog.Error("ReassignOwner failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("ReassignOwner completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("affected", affected))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, strings.ToUpper(strings.TrimSpace(stockID)), owner)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// ReplaceTransactions wipes the ledger and stores txs instead, atomically.
func (r *Postgres) ReplaceTransactions(ctx context.Context, txs []model.Transaction) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.ReplaceTransactions"

	slog.Debug("ReplaceTransactions start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(txs)))
	defer func() {
		if err != nil {
			slog.Error("ReplaceTransactions failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("ReplaceTransactions completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	return r.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := r.txOrDb(ctx).ExecContext(ctx, `DELETE FROM stock_transactions`); err != nil {
			return fmt.Errorf("delete transactions: %w", err)
		}

		for start := 0; start < len(txs); start += insertChunkSize {
			end := min(start+insertChunkSize, len(txs))
			if err := r.insertTransactions(ctx, txs[start:end]); err != nil {
				return fmt.Errorf("insert transactions [%d:%d]: %w", start, end, err)
			}
		}

		return nil
	})
}

func (r *Postgres) insertTransactions(ctx context.Context, txs []model.Transaction) error {
	sb := strings.Builder{}
	args := make([]any, 0, len(txs)*transactionColumnsCount)

	sb.WriteString(`INSERT INTO stock_transactions (` + transactionColumns + `) VALUES `)

	for i, tx := range txs {
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		args = append(args, transactionArgs(dbConverter.ConvertToDBTransaction(tx))...)

		placeholders := make([]string, transactionColumnsCount)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", i*transactionColumnsCount+j+1)
		}
		sb.WriteString("(" + strings.Join(placeholders, ", ") + ")")

		if i < len(txs)-1 {
			sb.WriteString(",")
		}
	}

	_, err := r.txOrDb(ctx).ExecContext(ctx, sb.String(), args...)
	return mapError(err)
}
