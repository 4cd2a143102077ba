package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/whizrock/ledger/data/repository"
	"github.com/whizrock/ledger/internal/converter/dbConverter"
	"github.com/whizrock/ledger/internal/model"
	"github.com/whizrock/ledger/internal/model/dbModel"
	"github.com/whizrock/ledger/utils"
)

func (r *Postgres) ListOwners(ctx context.Context) (owners []model.Owner, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.ListOwners"
	query := `SELECT name, created_at FROM owners ORDER BY lower(name)`

	slog.Debug("ListOwners start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("ListOwners failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	var rows []dbModel.Owner
	if err = r.txOrDb(ctx).SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	owners = make([]model.Owner, 0, len(rows))
	for _, row := range rows {
		owners = append(owners, dbConverter.ConvertOwner(row))
	}

	return owners, nil
}

// GetOwner looks an owner up case-insensitively and returns the stored spelling.
func (r *Postgres) GetOwner(ctx context.Context, name string) (owner model.Owner, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetOwner"
	query := `SELECT name, created_at FROM owners WHERE lower(name) = lower($1)`

	defer func() {
		if err != nil {
			slog.Debug("GetOwner failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	var row dbModel.Owner
	if err = r.txOrDb(ctx).GetContext(ctx, &row, query, name); err != nil {
		return model.Owner{}, mapError(err)
	}

	return dbConverter.ConvertOwner(row), nil
}

func (r *Postgres) InsertOwner(ctx context.Context, name string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertOwner"
	query := `INSERT INTO owners(name) VALUES($1)`

	slog.Debug("InsertOwner start", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", name))
	defer func() {
		if err != nil {
			slog.Error("InsertOwner failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, name)
	return mapError(err)
}

// RenameOwner renames the owner and every transaction attributed to it.
func (r *Postgres) RenameOwner(ctx context.Context, oldName, newName string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.RenameOwner"

	slog.Debug(
		"RenameOwner start",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.String("old", oldName),
		slog.String("new", newName),
	)
	defer func() {
		if err != nil {
			slog.Error("RenameOwner failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("RenameOwner completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	return r.WithinTransaction(ctx, func(ctx context.Context) error {
		res, err := r.txOrDb(ctx).ExecContext(ctx, `UPDATE owners SET name = $2 WHERE name = $1`, oldName, newName)
		if err != nil {
			return mapError(err)
		}
		if err = expectAffected(res); err != nil {
			return err
		}

		_, err = r.txOrDb(ctx).ExecContext(ctx, `UPDATE stock_transactions SET owner = $2 WHERE owner = $1`, oldName, newName)
		if err != nil {
			return fmt.Errorf("cascade owner rename: %w", err)
		}

		return nil
	})
}

// DeleteOwner removes an owner nobody's transactions refer to.
func (r *Postgres) DeleteOwner(ctx context.Context, name string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteOwner"

	slog.Debug("DeleteOwner start", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", name))
	defer func() {
		if err != nil {
			slog.Error("DeleteOwner failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	return r.WithinTransaction(ctx, func(ctx context.Context) error {
		var inUse bool
		query := `SELECT EXISTS(SELECT 1 FROM stock_transactions WHERE owner = $1)`
		if err := r.txOrDb(ctx).GetContext(ctx, &inUse, query, name); err != nil {
			return err
		}
		if inUse {
			return repository.ErrOwnerInUse
		}

		res, err := r.txOrDb(ctx).ExecContext(ctx, `DELETE FROM owners WHERE name = $1`, name)
		if err != nil {
			return err
		}

		return expectAffected(res)
	})
}
