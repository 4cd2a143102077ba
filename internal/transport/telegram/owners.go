package telegram

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/whizrock/ledger/internal/converter/telebotConverter"
	"github.com/whizrock/ledger/utils"
)

func (ctrl *Controller) Owners(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	owners, err := ctrl.ledgerService.ListOwners(ctx)
	if err != nil {
		return replyErr(ctx, c, "ListOwners", err)
	}

	text, markup := telebotConverter.OwnersResponse(owners, chatSession.Filter)
	return c.Send(text, markup)
}

func (ctrl *Controller) AddOwner(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	name, err := ctrl.ledgerService.AddOwner(ctx, c.Message().Payload)
	if err != nil {
		return replyErr(ctx, c, "AddOwner", err)
	}

	return c.Send(fmt.Sprintf("Owner %s added.", name))
}

func (ctrl *Controller) RenameOwner(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	oldName, newName, ok := strings.Cut(c.Message().Payload, ";")
	if !ok {
		return c.Send("Usage: /renameowner OLD;NEW")
	}

	if err := ctrl.ledgerService.RenameOwner(ctx, oldName, newName); err != nil {
		return replyErr(ctx, c, "RenameOwner", err)
	}

	// the filter follows the owner it pointed to
	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err == nil && strings.EqualFold(chatSession.Filter.Owner, strings.TrimSpace(oldName)) {
		chatSession.Filter.Owner = strings.TrimSpace(newName)
		_ = ctrl.saveSession(ctx, c, chatSession)
	}

	return c.Send(fmt.Sprintf("Owner %s renamed to %s.", strings.TrimSpace(oldName), strings.TrimSpace(newName)))
}

func (ctrl *Controller) DelOwner(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	name := strings.TrimSpace(c.Message().Payload)
	if name == "" {
		return c.Send("Usage: /delowner NAME")
	}

	if err := ctrl.ledgerService.DeleteOwner(ctx, name); err != nil {
		return replyErr(ctx, c, "DeleteOwner", err)
	}

	return c.Send(fmt.Sprintf("Owner %s deleted.", name))
}
