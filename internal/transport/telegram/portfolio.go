package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/whizrock/ledger/internal/converter/telebotConverter"
	"github.com/whizrock/ledger/internal/model"
	"github.com/whizrock/ledger/internal/service"
	"github.com/whizrock/ledger/utils"
)

// renderPortfolio shows the given page under the session filter. The session
// is only stored after the view was computed, so a failed refresh leaves the
// previous state untouched.
func (ctrl *Controller) renderPortfolio(ctx context.Context, c tele.Context, chatSession model.Session, edit bool) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	view, err := ctrl.ledgerService.GetPortfolio(ctx, chatSession.Filter)
	if err != nil {
		slog.Error("got error from ledgerService.GetPortfolio", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	text, markup, page := telebotConverter.PortfolioResponse(view, chatSession.Page, ctrl.cfg.Ledger.HoldingsPerPage, ctrl.cfg.Ledger.Currency)

	chatSession.Page = page
	_ = ctrl.saveSession(ctx, c, chatSession)

	if edit {
		return c.Edit(text, markup)
	}
	return c.Send(text, markup)
}

func (ctrl *Controller) Portfolio(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	return ctrl.renderPortfolio(ctx, c, chatSession, false)
}

func (ctrl *Controller) PageCallback(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	defer func() { _ = c.Respond() }()

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	page, err := strconv.Atoi(c.Callback().Data)
	if err != nil {
		page = 0
	}
	chatSession.Page = page

	return ctrl.renderPortfolio(ctx, c, chatSession, true)
}

func (ctrl *Controller) BackCallback(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	defer func() { _ = c.Respond() }()

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	return ctrl.renderPortfolio(ctx, c, chatSession, true)
}

func (ctrl *Controller) showStock(c tele.Context, stockID string, page int, edit bool) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	if stockID == "" {
		return c.Send("Usage: /stock SYMBOL")
	}

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	stock, err := ctrl.ledgerService.GetStock(ctx, stockID, chatSession.Filter)
	if errors.Is(err, service.ErrNotFound) {
		return c.Send(fmt.Sprintf("No holding of %s under the current filters.", strings.ToUpper(stockID)))
	}
	if err != nil {
		slog.Error("got error from ledgerService.GetStock", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	text, markup, _ := telebotConverter.StockDetailsResponse(stock, page, ctrl.cfg.Ledger.Currency)
	if edit {
		return c.Edit(text, markup)
	}
	return c.Send(text, markup)
}

func (ctrl *Controller) Stock(c tele.Context) error {
	return ctrl.showStock(c, strings.TrimSpace(c.Message().Payload), 0, false)
}

func (ctrl *Controller) StockCallback(c tele.Context) error {
	defer func() { _ = c.Respond() }()
	stockID, page := telebotConverter.ParseStockPayload(c.Callback().Data)
	return ctrl.showStock(c, stockID, page, true)
}

// updateFilter applies change to the session filter, resets paging and shows
// the portfolio under the new filter.
func (ctrl *Controller) updateFilter(c tele.Context, change func(f *model.Filter)) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	change(&chatSession.Filter)
	chatSession.Page = 0

	return ctrl.renderPortfolio(ctx, c, chatSession, false)
}

func (ctrl *Controller) selectOwner(c tele.Context, name string) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	if strings.EqualFold(name, "all") || strings.EqualFold(name, model.AllOwners) {
		return ctrl.updateFilter(c, func(f *model.Filter) { f.Owner = model.AllOwners })
	}

	owners, err := ctrl.ledgerService.ListOwners(ctx)
	if err != nil {
		slog.Error("got error from ledgerService.ListOwners", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	for _, owner := range owners {
		if strings.EqualFold(owner.Name, name) {
			return ctrl.updateFilter(c, func(f *model.Filter) { f.Owner = owner.Name })
		}
	}

	return c.Send(fmt.Sprintf("Unknown owner %q. /owners lists them.", name))
}

func (ctrl *Controller) Owner(c tele.Context) error {
	name := strings.TrimSpace(c.Message().Payload)
	if name == "" {
		return ctrl.Owners(c)
	}
	return ctrl.selectOwner(c, name)
}

// OwnerCallback resolves the tapped button against the current owners list.
func (ctrl *Controller) OwnerCallback(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)
	defer func() { _ = c.Respond() }()

	data := c.Callback().Data
	if data == telebotConverter.AllOwnersPayload {
		return ctrl.selectOwner(c, model.AllOwners)
	}

	owners, err := ctrl.ledgerService.ListOwners(ctx)
	if err != nil {
		slog.Error("got error from ledgerService.ListOwners", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	i, err := strconv.Atoi(data)
	if err != nil || i < 0 || i >= len(owners) {
		return c.Send("The owners list has changed. /owners shows it again.")
	}

	return ctrl.selectOwner(c, owners[i].Name)
}

func (ctrl *Controller) Period(c tele.Context) error {
	args := c.Args()
	if len(args) != 2 {
		return c.Send("Usage: /period FROM TO, dates as YYYY-MM-DD, - leaves a side open.")
	}

	start, err := parseDateArg(args[0])
	if err != nil {
		return c.Send(fmt.Sprintf("Cannot read start date %q, expected YYYY-MM-DD.", args[0]))
	}
	end, err := parseDateArg(args[1])
	if err != nil {
		return c.Send(fmt.Sprintf("Cannot read end date %q, expected YYYY-MM-DD.", args[1]))
	}
	if start != nil && end != nil && end.Before(*start) {
		return c.Send("The end date is before the start date.")
	}

	return ctrl.updateFilter(c, func(f *model.Filter) {
		f.StartDate = start
		f.EndDate = end
	})
}

func (ctrl *Controller) Search(c tele.Context) error {
	query := strings.TrimSpace(c.Message().Payload)
	return ctrl.updateFilter(c, func(f *model.Filter) { f.Search = query })
}

func (ctrl *Controller) Reset(c tele.Context) error {
	return ctrl.updateFilter(c, func(f *model.Filter) { *f = model.Filter{Owner: model.AllOwners} })
}

func (ctrl *Controller) Analysis(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	if stockID := strings.TrimSpace(c.Message().Payload); stockID != "" {
		return c.Send(ctrl.ledgerService.StockAnalysis(ctx, stockID))
	}

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send(ctrl.ledgerService.PortfolioAnalysis(ctx, chatSession.Filter))
}

func (ctrl *Controller) AnalysisCallback(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	defer func() { _ = c.Respond() }()

	if stockID := c.Callback().Data; stockID != "" {
		return c.Send(ctrl.ledgerService.StockAnalysis(ctx, stockID))
	}

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send(ctrl.ledgerService.PortfolioAnalysis(ctx, chatSession.Filter))
}
