package xslsxGenerator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/whizrock/ledger/internal/model"
	"github.com/whizrock/ledger/utils"
)

const (
	HoldingsSheet     = "Holdings"
	TransactionsSheet = "Transactions"

	notSet     = "NOT SET"
	dateLayout = "2006-01-02"
)

type XSLSXGenerator struct{}

func New() *XSLSXGenerator {
	return &XSLSXGenerator{}
}

// Generate renders the portfolio view as a workbook with a holdings sheet and
// a sheet of the transactions behind those holdings.
func (g *XSLSXGenerator) Generate(ctx context.Context, view model.PortfolioView, currency string) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("holdings", len(view.Holdings)))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err = f.SetSheetName("Sheet1", HoldingsSheet); err != nil {
		return nil, "", err
	}
	if err = g.fillHoldings(f, view, currency); err != nil {
		return nil, "", fmt.Errorf("fill holdings: %w", err)
	}

	if _, err = f.NewSheet(TransactionsSheet); err != nil {
		return nil, "", err
	}
	if err = g.fillTransactions(f, view.Holdings); err != nil {
		return nil, "", fmt.Errorf("fill transactions: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

func writeHeader(f *excelize.File, sheet string, row int, color string, titles ...string) error {
	styleID, err := headerStyle(f, color)
	if err != nil {
		return err
	}

	for i, title := range titles {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err = f.SetCellStr(sheet, cell, title); err != nil {
			return err
		}
	}

	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(titles), row)

	return f.SetCellStyle(sheet, first, last, styleID)
}

func (g *XSLSXGenerator) fillHoldings(f *excelize.File, view model.PortfolioView, currency string) error {
	sheet := HoldingsSheet

	err := writeHeader(f, sheet, 1, "#cfe2f3",
		"Company", "Symbol", "Quantity", "Total Cost", "Current Price", "Current Value", "P&L",
	)
	if err != nil {
		return err
	}

	for i, stock := range view.Holdings {
		row := i + 2
		_ = f.SetCellStr(sheet, fmt.Sprintf("A%d", row), stock.Stock.CompanyName)
		_ = f.SetCellStr(sheet, fmt.Sprintf("B%d", row), stock.Stock.ID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), stock.Quantity)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), stock.Investment)
		if stock.Stock.PriceSet() {
			_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), stock.Stock.CurrentPrice)
		} else {
			_ = f.SetCellStr(sheet, fmt.Sprintf("E%d", row), notSet)
		}
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), stock.CurrentValue)
		_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), stock.PAndL)
	}

	// summary
	row := len(view.Holdings) + 4
	if err = f.MergeCell(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row)); err != nil {
		return err
	}
	styleID, err := headerStyle(f, "#d9ead3")
	if err != nil {
		return err
	}
	_ = f.SetCellStr(sheet, fmt.Sprintf("A%d", row), "Summary ("+currency+")")
	if err = f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), styleID); err != nil {
		return err
	}

	summary := []struct {
		title string
		value float64
	}{
		{"Total Investment", view.Summary.TotalInvestment},
		{"Current Value", view.Summary.CurrentValue},
		{"Total P&L", view.Summary.TotalPandL},
	}
	for _, s := range summary {
		row++
		_ = f.SetCellStr(sheet, fmt.Sprintf("A%d", row), s.title)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), s.value)
	}

	row++
	_ = f.SetCellStr(sheet, fmt.Sprintf("A%d", row), "Owner")
	owner := view.Filter.Owner
	if view.Filter.AnyOwner() {
		owner = model.AllOwners
	}
	_ = f.SetCellStr(sheet, fmt.Sprintf("B%d", row), owner)

	return f.SetColWidth(sheet, "A", "A", 32)
}

func (g *XSLSXGenerator) fillTransactions(f *excelize.File, holdings []model.CalculatedStock) error {
	sheet := TransactionsSheet

	err := writeHeader(f, sheet, 1, "#cccccc",
		"Date", "Symbol", "Company", "Owner", "Action", "Quantity", "Price", "Charges", "Broker", "Exchange", "ID",
	)
	if err != nil {
		return err
	}

	var txs []model.Transaction
	for _, stock := range holdings {
		txs = append(txs, stock.Transactions...)
	}
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].TransactionDate.Before(txs[j].TransactionDate)
	})

	for i, tx := range txs {
		row := i + 2
		_ = f.SetCellStr(sheet, fmt.Sprintf("A%d", row), tx.TransactionDate.Format(dateLayout))
		_ = f.SetCellStr(sheet, fmt.Sprintf("B%d", row), tx.StockID)
		_ = f.SetCellStr(sheet, fmt.Sprintf("C%d", row), tx.CompanyName)
		_ = f.SetCellStr(sheet, fmt.Sprintf("D%d", row), tx.Owner)
		_ = f.SetCellStr(sheet, fmt.Sprintf("E%d", row), string(tx.Action))
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), tx.Quantity)
		_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), tx.TransactionPrice)
		_ = f.SetCellValue(sheet, fmt.Sprintf("H%d", row), tx.TotalCharges())
		_ = f.SetCellStr(sheet, fmt.Sprintf("I%d", row), tx.Broker)
		_ = f.SetCellStr(sheet, fmt.Sprintf("J%d", row), tx.Exchange)
		_ = f.SetCellStr(sheet, fmt.Sprintf("K%d", row), tx.ID)
	}

	return nil
}
