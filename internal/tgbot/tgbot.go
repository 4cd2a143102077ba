package tgbot

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/middleware"

	"github.com/whizrock/ledger/config"
	"github.com/whizrock/ledger/internal/model/tg/tgCallback"
	"github.com/whizrock/ledger/internal/transport/telegram"
	customMW "github.com/whizrock/ledger/internal/transport/telegram/middleware"
)

type TGBot struct {
	bot  *tele.Bot
	ctrl *telegram.Controller
	cfg  *config.Config
}

func New(cfg *config.Config, ctrl *telegram.Controller) *TGBot {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		panic(err)
	}

	return &TGBot{bot: b, ctrl: ctrl, cfg: cfg}
}

func (b *TGBot) Start() {
	b.bot.Use(middleware.Recover(), customMW.Logger())

	if len(b.cfg.Telegram.AllowedChatIDs) > 0 {
		b.bot.Use(middleware.Whitelist(b.cfg.Telegram.AllowedChatIDs...))
	}

	b.setupRoutes()

	go b.bot.Start()
	slog.Info("tgbot started!")
}

func (b *TGBot) Stop() {
	slog.Info("start stopping tgbot")
	b.bot.Stop()
	slog.Info("tgbot stopped")
}

func (b *TGBot) setupRoutes() {
	b.bot.Handle(tele.OnText, b.ctrl.OnText)
	b.bot.Handle(tele.OnDocument, b.ctrl.OnDocument)

	b.bot.Handle("/start", b.ctrl.Start)
	b.bot.Handle("/help", b.ctrl.Help)
	b.bot.Handle("/cancel", b.ctrl.Cancel)

	b.bot.Handle("/portfolio", b.ctrl.Portfolio)
	b.bot.Handle("/stock", b.ctrl.Stock)
	b.bot.Handle("/owner", b.ctrl.Owner)
	b.bot.Handle("/period", b.ctrl.Period)
	b.bot.Handle("/search", b.ctrl.Search)
	b.bot.Handle("/reset", b.ctrl.Reset)

	b.bot.Handle("/add", b.ctrl.Add)
	b.bot.Handle("/edit", b.ctrl.Edit)
	b.bot.Handle("/delete", b.ctrl.Delete)
	b.bot.Handle("/reassign", b.ctrl.Reassign)

	b.bot.Handle("/price", b.ctrl.Price)
	b.bot.Handle("/sync", b.ctrl.Sync)

	b.bot.Handle("/owners", b.ctrl.Owners)
	b.bot.Handle("/addowner", b.ctrl.AddOwner)
	b.bot.Handle("/renameowner", b.ctrl.RenameOwner)
	b.bot.Handle("/delowner", b.ctrl.DelOwner)

	b.bot.Handle("/export", b.ctrl.Export)
	b.bot.Handle("/exportcsv", b.ctrl.ExportCSV)
	b.bot.Handle("/import", b.ctrl.Import)
	b.bot.Handle("/sample", b.ctrl.Sample)
	b.bot.Handle("/analysis", b.ctrl.Analysis)

	b.bot.Handle(&tele.Btn{Unique: tgCallback.Page}, b.ctrl.PageCallback)
	b.bot.Handle(&tele.Btn{Unique: tgCallback.Stock}, b.ctrl.StockCallback)
	b.bot.Handle(&tele.Btn{Unique: tgCallback.Owner}, b.ctrl.OwnerCallback)
	b.bot.Handle(&tele.Btn{Unique: tgCallback.SyncPrice}, b.ctrl.SyncCallback)
	b.bot.Handle(&tele.Btn{Unique: tgCallback.Analysis}, b.ctrl.AnalysisCallback)
	b.bot.Handle(&tele.Btn{Unique: tgCallback.Back}, b.ctrl.BackCallback)
	b.bot.Handle(&tele.Btn{Unique: tgCallback.Cancel}, b.ctrl.Cancel)
}
