package telegram

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/whizrock/ledger/internal/model"
	"github.com/whizrock/ledger/internal/reportGenerator/csvCodec"
	"github.com/whizrock/ledger/utils"
)

func (ctrl *Controller) Price(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	args := c.Args()
	if len(args) != 2 {
		return c.Send("Usage: /price SYMBOL PRICE")
	}

	price, err := strconv.ParseFloat(strings.ReplaceAll(args[1], ",", ""), 64)
	if err != nil {
		return c.Send(fmt.Sprintf("Cannot read price %q.", args[1]))
	}

	if err = ctrl.ledgerService.SetPrice(ctx, args[0], price); err != nil {
		return replyErr(ctx, c, "SetPrice", err)
	}

	if price == 0 {
		return c.Send(fmt.Sprintf("Price of %s cleared.", strings.ToUpper(args[0])))
	}
	return c.Send(fmt.Sprintf("Price of %s set to %s.", strings.ToUpper(args[0]), args[1]))
}

func (ctrl *Controller) syncPrice(c tele.Context, stockID string) error {
	ctx := utils.CreateCtxWithRqID(c)

	if stockID == "" {
		return c.Send("Usage: /sync SYMBOL")
	}

	price, err := ctrl.ledgerService.SyncPrice(ctx, stockID)
	if err != nil {
		return replyErr(ctx, c, "SyncPrice", err)
	}

	return c.Send(fmt.Sprintf("Price of %s synced: %s.", strings.ToUpper(stockID), strconv.FormatFloat(price, 'f', -1, 64)))
}

func (ctrl *Controller) Sync(c tele.Context) error {
	return ctrl.syncPrice(c, strings.TrimSpace(c.Message().Payload))
}

func (ctrl *Controller) SyncCallback(c tele.Context) error {
	defer func() { _ = c.Respond() }()
	return ctrl.syncPrice(c, c.Callback().Data)
}

// Export sends the report link, or the workbook itself when no upload happened.
func (ctrl *Controller) Export(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	_ = c.Notify(tele.UploadingDocument)

	file, err := ctrl.ledgerService.ExportReport(ctx, chatSession.Filter)
	if err != nil {
		return replyErr(ctx, c, "ExportReport", err)
	}

	if file.Link != "" {
		return c.Send("Report is ready: " + file.Link)
	}
	return c.Send(document(file))
}

func (ctrl *Controller) ExportCSV(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	file, err := ctrl.ledgerService.ExportCSV(ctx)
	if err != nil {
		return replyErr(ctx, c, "ExportCSV", err)
	}

	return c.Send(document(file))
}

func (ctrl *Controller) Sample(c tele.Context) error {
	return c.Send(document(model.ExportFile{Name: "sample.csv", Data: csvCodec.Sample()}))
}

func (ctrl *Controller) Import(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}

	chatSession.State = model.ExpectingImportFile
	if err = ctrl.saveSession(ctx, c, chatSession); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send("Send the CSV file. It replaces the whole ledger. /sample shows the format, /cancel aborts.")
}

// OnDocument imports an uploaded CSV when the chat asked for it.
func (ctrl *Controller) OnDocument(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		return c.Send(internalErrMsg)
	}
	if chatSession.State != model.ExpectingImportFile {
		return c.Send("Use /import before sending a file.")
	}

	doc := c.Message().Document
	if doc.FileSize > int64(ctrl.cfg.Telegram.FileLimitInBytes) {
		return c.Send(fmt.Sprintf("The file is too large, the limit is %d bytes.", ctrl.cfg.Telegram.FileLimitInBytes))
	}
	if !strings.EqualFold(filepath.Ext(doc.FileName), ".csv") {
		return c.Send("Only .csv files can be imported.")
	}

	reader, err := c.Bot().File(&doc.File)
	if err != nil {
		slog.Error("failed to download document", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}
	defer reader.Close()

	imported, err := ctrl.ledgerService.ImportCSV(ctx, reader)
	if err != nil {
		return replyErr(ctx, c, "ImportCSV", err)
	}

	chatSession.State = model.DefaultState
	chatSession.Page = 0
	_ = ctrl.saveSession(ctx, c, chatSession)

	return c.Send(fmt.Sprintf("Imported %d transactions.", imported))
}

func document(file model.ExportFile) *tele.Document {
	return &tele.Document{
		File:     tele.FromReader(bytes.NewReader(file.Data)),
		FileName: file.Name,
	}
}
