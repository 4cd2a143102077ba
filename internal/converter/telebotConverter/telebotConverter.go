package telebotConverter

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	tele "gopkg.in/telebot.v4"

	"github.com/whizrock/ledger/internal/model"
	"github.com/whizrock/ledger/internal/model/tg/tgCallback"
)

const (
	dateLayout = "2006-01-02"
	notSet     = "NOT SET"
)

var printer = message.NewPrinter(language.English)

// Money formats v with thousands separators and two decimals.
func Money(currency string, v float64) string {
	return printer.Sprintf("%s %.2f", currency, v)
}

// Quantity drops trailing zeros so whole share counts print without decimals.
func Quantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func signed(currency string, v float64) string {
	if v > 0 {
		return "+" + Money(currency, v)
	}
	return Money(currency, v)
}

// PageBounds clamps page into the valid range and returns the slice bounds of
// the holdings shown on it.
func PageBounds(total, page, perPage int) (clamped, from, to int) {
	if perPage <= 0 {
		perPage = total
	}
	if perPage == 0 {
		return 0, 0, 0
	}

	lastPage := (total - 1) / perPage
	if lastPage < 0 {
		lastPage = 0
	}
	clamped = min(max(page, 0), lastPage)

	from = clamped * perPage
	to = min(from+perPage, total)

	return clamped, from, to
}

func FilterDescription(f model.Filter) string {
	var parts []string

	if f.AnyOwner() {
		parts = append(parts, "👥 "+model.AllOwners)
	} else {
		parts = append(parts, "👤 "+f.Owner)
	}

	if f.StartDate != nil || f.EndDate != nil {
		from, to := "…", "…"
		if f.StartDate != nil {
			from = f.StartDate.Format(dateLayout)
		}
		if f.EndDate != nil {
			to = f.EndDate.Format(dateLayout)
		}
		parts = append(parts, fmt.Sprintf("📅 %s – %s", from, to))
	}

	if f.Search != "" {
		parts = append(parts, fmt.Sprintf("🔎 %q", f.Search))
	}

	return strings.Join(parts, "  ")
}

func PortfolioResponse(view model.PortfolioView, page, perPage int, currency string) (text string, markup *tele.ReplyMarkup, shownPage int) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	sb.WriteString("📊 Portfolio\n")
	sb.WriteString(FilterDescription(view.Filter) + "\n\n")

	sb.WriteString(fmt.Sprintf("💰 Invested: %s\n", Money(currency, view.Summary.TotalInvestment)))
	sb.WriteString(fmt.Sprintf("📈 Current value: %s\n", Money(currency, view.Summary.CurrentValue)))
	sb.WriteString(fmt.Sprintf("⚖️ P&L: %s\n", signed(currency, view.Summary.TotalPandL)))
	if !view.PricesUpdatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("🕒 Prices updated %s\n", view.PricesUpdatedAt.UTC().Format("2006-01-02 15:04 UTC")))
	}

	if len(view.Holdings) == 0 {
		sb.WriteString("\nNo holdings match the current filters.")
		return sb.String(), markup, 0
	}

	shownPage, from, to := PageBounds(len(view.Holdings), page, perPage)
	sb.WriteString(fmt.Sprintf("\n📋 Holdings %d–%d of %d:\n\n", from+1, to, len(view.Holdings)))

	rows := make([]tele.Row, 0, to-from+1)
	for i, stock := range view.Holdings[from:to] {
		sb.WriteString(fmt.Sprintf("%d. %s (%s)\n", from+i+1, stock.Stock.ID, stock.Stock.CompanyName))
		sb.WriteString(fmt.Sprintf("   ▸ Qty: %s\n", Quantity(stock.Quantity)))
		sb.WriteString(fmt.Sprintf("   ▸ Cost: %s\n", Money(currency, stock.Investment)))
		if stock.Stock.PriceSet() {
			sb.WriteString(fmt.Sprintf("   ▸ Price: %s\n", Money(currency, stock.Stock.CurrentPrice)))
		} else {
			sb.WriteString("   ▸ Price: " + notSet + "\n")
		}
		sb.WriteString(fmt.Sprintf("   ▸ Value: %s\n", Money(currency, stock.CurrentValue)))
		sb.WriteString(fmt.Sprintf("   ▸ P&L: %s\n\n", signed(currency, stock.PAndL)))

		rows = append(rows, markup.Row(markup.Data(stock.Stock.ID, tgCallback.Stock, stock.Stock.ID)))
	}

	paginationBtns := make([]tele.Btn, 0, 2)
	if shownPage > 0 {
		paginationBtns = append(paginationBtns, markup.Data("◀️ previous", tgCallback.Page, strconv.Itoa(shownPage-1)))
	}
	if to < len(view.Holdings) {
		paginationBtns = append(paginationBtns, markup.Data("next ▶️", tgCallback.Page, strconv.Itoa(shownPage+1)))
	}
	if len(paginationBtns) > 0 {
		rows = append(rows, markup.Row(paginationBtns...))
	}

	markup.Inline(rows...)

	return sb.String(), markup, shownPage
}

// TransactionsPerPage keeps a stock details message well under the Telegram
// message size limit.
const TransactionsPerPage = 10

// StockDetailsResponse renders a holding with one page of its transactions.
func StockDetailsResponse(stock model.CalculatedStock, page int, currency string) (text string, markup *tele.ReplyMarkup, shownPage int) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("🏷 %s (%s)\n\n", stock.Stock.ID, stock.Stock.CompanyName))
	sb.WriteString(fmt.Sprintf("Quantity: %s\n", Quantity(stock.Quantity)))
	sb.WriteString(fmt.Sprintf("Total cost: %s\n", Money(currency, stock.Investment)))
	if stock.Quantity > 0 {
		sb.WriteString(fmt.Sprintf("Average cost: %s\n", Money(currency, stock.Investment/stock.Quantity)))
	}
	if stock.Stock.PriceSet() {
		sb.WriteString(fmt.Sprintf("Current price: %s\n", Money(currency, stock.Stock.CurrentPrice)))
	} else {
		sb.WriteString("Current price: " + notSet + "\n")
	}
	sb.WriteString(fmt.Sprintf("Current value: %s\n", Money(currency, stock.CurrentValue)))
	sb.WriteString(fmt.Sprintf("P&L: %s\n", signed(currency, stock.PAndL)))
	sb.WriteString(fmt.Sprintf("Held since: %s\n", stock.FirstTransactionDate.Format(dateLayout)))
	sb.WriteString(fmt.Sprintf("Recommendation: %s\n", stock.Recommendation))

	shownPage, from, to := PageBounds(len(stock.Transactions), page, TransactionsPerPage)
	if len(stock.Transactions) > TransactionsPerPage {
		sb.WriteString(fmt.Sprintf("\n🧾 Transactions %d–%d of %d:\n", from+1, to, len(stock.Transactions)))
	} else {
		sb.WriteString(fmt.Sprintf("\n🧾 Transactions (%d):\n", len(stock.Transactions)))
	}
	for _, tx := range stock.Transactions[from:to] {
		sb.WriteString(TransactionLine(tx, currency) + "\n")
	}

	rows := []tele.Row{
		markup.Row(
			markup.Data("🔄 Sync price", tgCallback.SyncPrice, stock.Stock.ID),
			markup.Data("🤖 Analysis", tgCallback.Analysis, stock.Stock.ID),
		),
	}

	paginationBtns := make([]tele.Btn, 0, 2)
	if shownPage > 0 {
		paginationBtns = append(paginationBtns, markup.Data("◀️ newer", tgCallback.Stock, StockPagePayload(stock.Stock.ID, shownPage-1)))
	}
	if to < len(stock.Transactions) {
		paginationBtns = append(paginationBtns, markup.Data("older ▶️", tgCallback.Stock, StockPagePayload(stock.Stock.ID, shownPage+1)))
	}
	if len(paginationBtns) > 0 {
		rows = append(rows, markup.Row(paginationBtns...))
	}

	rows = append(rows, markup.Row(markup.Data("⬅️ Back", tgCallback.Back)))
	markup.Inline(rows...)

	return sb.String(), markup, shownPage
}

// StockPagePayload encodes a stock and a transactions page into a button payload.
func StockPagePayload(stockID string, page int) string {
	return stockID + ":" + strconv.Itoa(page)
}

// ParseStockPayload is the inverse of StockPagePayload. A bare symbol means the first page.
func ParseStockPayload(payload string) (stockID string, page int) {
	stockID, rawPage, ok := strings.Cut(payload, ":")
	if !ok {
		return stockID, 0
	}
	page, err := strconv.Atoi(rawPage)
	if err != nil {
		return stockID, 0
	}
	return stockID, page
}

func TransactionLine(tx model.Transaction, currency string) string {
	icon := "🟢"
	if tx.Action == model.Sell {
		icon = "🔴"
	}

	line := fmt.Sprintf("%s %s %s %s × %s [%s]",
		icon,
		tx.TransactionDate.Format(dateLayout),
		tx.Action,
		Quantity(tx.Quantity),
		Money(currency, tx.TransactionPrice),
		tx.Owner,
	)
	if charges := tx.TotalCharges(); charges != 0 {
		line += " + " + Money(currency, charges)
	}

	return line + "\n   id: " + tx.ID
}

// AllOwnersPayload is the owner button payload clearing the owner filter.
// Other owner buttons carry the owner's position in the list, as names can
// exceed the callback data limit.
const AllOwnersPayload = "all"

func OwnersResponse(owners []model.Owner, filter model.Filter) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	if len(owners) == 0 {
		sb.WriteString("No owners yet. Add one with /addowner NAME")
		return sb.String(), markup
	}

	sb.WriteString("👥 Owners:\n")
	rows := make([]tele.Row, 0, len(owners)+1)
	rows = append(rows, markup.Row(markup.Data(model.AllOwners, tgCallback.Owner, AllOwnersPayload)))
	for i, owner := range owners {
		mark := ""
		if !filter.AnyOwner() && strings.EqualFold(filter.Owner, owner.Name) {
			mark = " ✅"
		}
		sb.WriteString(fmt.Sprintf("• %s%s\n", owner.Name, mark))
		rows = append(rows, markup.Row(markup.Data(owner.Name, tgCallback.Owner, strconv.Itoa(i))))
	}
	sb.WriteString("\nTap an owner to filter the portfolio.")

	markup.Inline(rows...)

	return sb.String(), markup
}
