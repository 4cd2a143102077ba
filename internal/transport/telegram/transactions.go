package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/whizrock/ledger/internal/converter/telebotConverter"
	"github.com/whizrock/ledger/internal/model"
	"github.com/whizrock/ledger/internal/service"
	"github.com/whizrock/ledger/utils"
)

// replyErr turns a service error into a message for the user. Unexpected
// errors are logged and answered with internalErrMsg.
func replyErr(ctx context.Context, c tele.Context, op string, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, telebotConverter.ErrForm):
		return c.Send(err.Error())
	case errors.Is(err, service.ErrUnknownOwner):
		return c.Send("Unknown owner. /owners lists them, /addowner NAME adds one.")
	case errors.Is(err, service.ErrOwnerExists):
		return c.Send("An owner with this name already exists.")
	case errors.Is(err, service.ErrOwnerInUse):
		return c.Send("This owner still has transactions. Reassign them first.")
	case errors.Is(err, service.ErrNotFound):
		return c.Send("Nothing found.")
	case errors.Is(err, service.ErrPriceUnavailable):
		return c.Send("No market price is available for this stock.")
	}

	slog.Error(
		"got error from ledgerService",
		slog.String("rqID", utils.GetRequestIDFromCtx(ctx)),
		slog.String("op", op),
		slog.String("err", err.Error()),
	)
	return c.Send(internalErrMsg)
}

// askForForm puts the chat into form mode. editingID is empty for new transactions.
func (ctrl *Controller) askForForm(ctx context.Context, c tele.Context, editingID, prefill string) error {
	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	chatSession.State = model.ExpectingTransactionForm
	chatSession.EditingID = editingID
	if err = ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}

	text := telebotConverter.FormTemplate()
	if prefill != "" {
		text += "\n\nCurrent values:\n" + prefill
	}
	return c.Send(text + "\n\n/cancel to abort.")
}

func (ctrl *Controller) Add(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	if form := strings.TrimSpace(c.Message().Payload); form != "" {
		return ctrl.saveForm(ctx, c, form, "")
	}

	return ctrl.askForForm(ctx, c, "", "")
}

func (ctrl *Controller) Edit(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	id, form, _ := strings.Cut(strings.TrimSpace(c.Message().Payload), " ")
	if id == "" {
		return c.Send("Usage: /edit ID")
	}

	if form = strings.TrimSpace(form); form != "" {
		return ctrl.saveForm(ctx, c, form, id)
	}

	tx, err := ctrl.ledgerService.GetTransaction(ctx, id)
	if err != nil {
		return replyErr(ctx, c, "GetTransaction", err)
	}

	return ctrl.askForForm(ctx, c, tx.ID, telebotConverter.FormatTransactionForm(tx))
}

// ProcessTransactionForm handles a form sent after /add or /edit.
func (ctrl *Controller) ProcessTransactionForm(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	return ctrl.saveForm(ctx, c, c.Text(), chatSession.EditingID)
}

// saveForm parses and stores a form. The pending state is kept on invalid
// input so the user can resend a corrected line.
func (ctrl *Controller) saveForm(ctx context.Context, c tele.Context, form, id string) error {
	input, err := telebotConverter.ParseTransactionForm(form)
	if err != nil {
		return c.Send(err.Error() + "\n\n" + telebotConverter.FormTemplate())
	}

	savedID, err := ctrl.ledgerService.SaveTransaction(ctx, input, id)
	if err != nil {
		return replyErr(ctx, c, "SaveTransaction", err)
	}

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err == nil {
		chatSession.State = model.DefaultState
		chatSession.EditingID = ""
		_ = ctrl.saveSession(ctx, c, chatSession)
	}

	if id != "" {
		return c.Send(fmt.Sprintf("Transaction %s updated.", savedID))
	}
	return c.Send(fmt.Sprintf("Transaction %s recorded.", savedID))
}

func (ctrl *Controller) Delete(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	id := strings.TrimSpace(c.Message().Payload)
	if id == "" {
		return c.Send("Usage: /delete ID")
	}

	if err := ctrl.ledgerService.DeleteTransaction(ctx, id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Send(fmt.Sprintf("Transaction %s not found.", id))
		}
		return replyErr(ctx, c, "DeleteTransaction", err)
	}

	return c.Send(fmt.Sprintf("Transaction %s deleted.", id))
}

// Reassign takes the symbol and then the owner name, which may contain spaces.
func (ctrl *Controller) Reassign(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	stockID, owner, _ := strings.Cut(strings.TrimSpace(c.Message().Payload), " ")
	owner = strings.TrimSpace(owner)
	if stockID == "" || owner == "" {
		return c.Send("Usage: /reassign SYMBOL OWNER")
	}

	affected, err := ctrl.ledgerService.ReassignOwner(ctx, stockID, owner)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Send(fmt.Sprintf("No transactions of %s.", strings.ToUpper(stockID)))
		}
		return replyErr(ctx, c, "ReassignOwner", err)
	}

	return c.Send(fmt.Sprintf("%d transactions of %s now belong to %s.", affected, strings.ToUpper(stockID), owner))
}
