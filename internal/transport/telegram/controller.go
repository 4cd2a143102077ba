package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/whizrock/ledger/config"
	"github.com/whizrock/ledger/data/session"
	"github.com/whizrock/ledger/internal/model"
	"github.com/whizrock/ledger/utils"
)

const (
	internalErrMsg = "Something went wrong, please try again later."
	dateLayout     = "2006-01-02"
)

type LedgerService interface {
	GetPortfolio(ctx context.Context, filter model.Filter) (model.PortfolioView, error)
	GetStock(ctx context.Context, stockID string, filter model.Filter) (model.CalculatedStock, error)
	GetTransaction(ctx context.Context, id string) (model.Transaction, error)
	SaveTransaction(ctx context.Context, input model.TransactionInput, id string) (string, error)
	DeleteTransaction(ctx context.Context, id string) error
	ReassignOwner(ctx context.Context, stockID, owner string) (int64, error)
	ListOwners(ctx context.Context) ([]model.Owner, error)
	AddOwner(ctx context.Context, name string) (string, error)
	RenameOwner(ctx context.Context, oldName, newName string) error
	DeleteOwner(ctx context.Context, name string) error
	SetPrice(ctx context.Context, stockID string, price float64) error
	SyncPrice(ctx context.Context, stockID string) (float64, error)
	ImportCSV(ctx context.Context, r io.Reader) (int, error)
	ExportCSV(ctx context.Context) (model.ExportFile, error)
	ExportReport(ctx context.Context, filter model.Filter) (model.ExportFile, error)
	PortfolioAnalysis(ctx context.Context, filter model.Filter) string
	StockAnalysis(ctx context.Context, stockID string) string
}

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, session model.Session) error
}

type Controller struct {
	cfg           *config.Config
	ledgerService LedgerService
	session       Session
}

func NewController(cfg *config.Config, ledgerService LedgerService, session Session) *Controller {
	return &Controller{
		cfg:           cfg,
		ledgerService: ledgerService,
		session:       session,
	}
}

func sessionKey(c tele.Context) string {
	return strconv.FormatInt(c.Chat().ID, 10)
}

func defaultSession() model.Session {
	return model.Session{Filter: model.Filter{Owner: model.AllOwners}}
}

// getSessionFromTeleCtxOrStorage returns the chat session, a fresh one for new chats.
func (ctrl *Controller) getSessionFromTeleCtxOrStorage(ctx context.Context, c tele.Context) (model.Session, error) {
	chatSession, ok := c.Get("session").(model.Session)
	if ok {
		return chatSession, nil
	}

	rqID := utils.GetRequestIDFromCtx(ctx)
	chatSession, err := ctrl.session.GetSession(ctx, sessionKey(c))
	if errors.Is(err, session.ErrNotFound) {
		return defaultSession(), nil
	}
	if err != nil {
		slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.Session{}, err
	}

	return chatSession, nil
}

func (ctrl *Controller) saveSession(ctx context.Context, c tele.Context, chatSession model.Session) error {
	c.Set("session", chatSession)
	err := ctrl.session.SetSession(ctx, sessionKey(c), chatSession)
	if err != nil {
		slog.Error(
			"got error from session.SetSession",
			slog.String("rqID", utils.GetRequestIDFromCtx(ctx)),
			slog.String("err", err.Error()),
		)
	}
	return err
}

func (ctrl *Controller) Start(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	if err := ctrl.saveSession(ctx, c, defaultSession()); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send("Hello! I keep the shared investment ledger.\n\n" + helpText)
}

func (ctrl *Controller) Help(c tele.Context) error {
	return c.Send(helpText)
}

// Cancel drops any pending form or upload.
func (ctrl *Controller) Cancel(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	chatSession.State = model.DefaultState
	chatSession.EditingID = ""
	if err = ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}

	if c.Callback() != nil {
		_ = c.Respond()
	}
	return c.Send("Cancelled.")
}

// OnText routes plain messages by what the chat was asked for last.
func (ctrl *Controller) OnText(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}
	c.Set("session", chatSession)

	switch chatSession.State {
	case model.ExpectingTransactionForm:
		return ctrl.ProcessTransactionForm(c)
	case model.ExpectingImportFile:
		return c.Send("Please send the CSV file as a document, or /cancel.")
	default:
		slog.Debug("text without pending input", slog.String("rqID", rqID))
		return c.Send("Send one of the commands first. /help lists them.")
	}
}

func parseDateArg(arg string) (*time.Time, error) {
	if arg == "-" || arg == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, arg)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const helpText = `Commands:
/portfolio - holdings and totals under the current filters
/stock SYMBOL - one holding with its transactions
/owner NAME|all - filter by owner (no argument shows the list)
/period FROM TO - filter by date, YYYY-MM-DD or - for open
/search TEXT - filter by company or symbol (no argument clears)
/reset - clear all filters

/add - record a transaction
/edit ID - change a transaction
/delete ID - remove a transaction
/reassign SYMBOL OWNER - move a stock to another owner

/price SYMBOL PRICE - set a manual price (0 clears)
/sync SYMBOL - fetch the market price

/owners - list owners
/addowner NAME
/renameowner OLD;NEW
/delowner NAME

/export - spreadsheet report
/exportcsv - full ledger as CSV
/import - replace the ledger from a CSV file
/sample - sample CSV file
/analysis - portfolio analysis
/cancel - drop pending input`
