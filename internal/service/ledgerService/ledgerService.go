package ledgerService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/whizrock/ledger/config"
	"github.com/whizrock/ledger/data/cache"
	"github.com/whizrock/ledger/data/repository"
	"github.com/whizrock/ledger/internal/converter/dbConverter"
	"github.com/whizrock/ledger/internal/externalApi"
	"github.com/whizrock/ledger/internal/model"
	"github.com/whizrock/ledger/internal/model/moexModel"
	"github.com/whizrock/ledger/internal/reportGenerator/csvCodec"
	"github.com/whizrock/ledger/internal/service"
	"github.com/whizrock/ledger/internal/valuation"
	"github.com/whizrock/ledger/utils"
)

const (
	PortfolioAnalysisDisabled = "AI Analysis is currently disabled to prevent usage charges."
	StockAnalysisDisabled     = "AI Intelligence features are disconnected."
)

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
	ListTransactions(ctx context.Context) ([]model.Transaction, error)
	GetTransaction(ctx context.Context, id string) (model.Transaction, error)
	UpsertTransaction(ctx context.Context, tx model.Transaction) (string, error)
	DeleteTransaction(ctx context.Context, id string) error
	ReassignOwner(ctx context.Context, stockID, owner string) (int64, error)
	ReplaceTransactions(ctx context.Context, txs []model.Transaction) error
	ListOwners(ctx context.Context) ([]model.Owner, error)
	GetOwner(ctx context.Context, name string) (model.Owner, error)
	InsertOwner(ctx context.Context, name string) error
	RenameOwner(ctx context.Context, oldName, newName string) error
	DeleteOwner(ctx context.Context, name string) error
}

type PriceStore interface {
	GetPrices(ctx context.Context) (model.Prices, time.Time, error)
	SetPrice(ctx context.Context, symbol string, price float64) error
	SetPrices(ctx context.Context, prices model.Prices) error
	GetQuote(ctx context.Context, symbol string) (moexModel.Quote, error)
	SetQuotes(ctx context.Context, quotes map[string]moexModel.Quote) error
}

type MarketApi interface {
	GetQuote(ctx context.Context, symbol string) (moexModel.Quote, error)
	GetQuotes(ctx context.Context, symbols []string) (map[string]moexModel.Quote, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, view model.PortfolioView, currency string) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
	DeleteOldFiles(ctx context.Context) error
}

type LedgerService struct {
	cfg       *config.Config
	repo      Repository
	prices    PriceStore
	market    MarketApi
	generator ReportGenerator
	storage   CloudStorage
	validate  *validator.Validate
	now       func() time.Time
}

// New builds the service. storage may be nil, then reports are returned as files.
func New(
	cfg *config.Config,
	repo Repository,
	prices PriceStore,
	market MarketApi,
	generator ReportGenerator,
	storage CloudStorage,
) *LedgerService {
	return &LedgerService{
		cfg:       cfg,
		repo:      repo,
		prices:    prices,
		market:    market,
		generator: generator,
		storage:   storage,
		validate:  newValidator(),
		now:       time.Now,
	}
}

// snapshot loads every transaction and the prices as they are at this moment.
func (s *LedgerService) snapshot(ctx context.Context) ([]model.Transaction, model.Prices, time.Time, error) {
	txs, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return nil, nil, time.Time{}, fmt.Errorf("list transactions: %w", err)
	}

	prices, updated, err := s.prices.GetPrices(ctx)
	if err != nil {
		return nil, nil, time.Time{}, fmt.Errorf("get prices: %w", err)
	}

	return txs, prices, updated, nil
}

// GetPortfolio values the ledger under filter. Holdings are sorted by symbol.
func (s *LedgerService) GetPortfolio(ctx context.Context, filter model.Filter) (view model.PortfolioView, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.GetPortfolio"

	slog.Debug("GetPortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.Any("filter", filter))
	defer func() {
		if err != nil {
			slog.Error("GetPortfolio failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPortfolio completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("holdings", len(view.Holdings)))
		}
	}()

	txs, prices, updated, err := s.snapshot(ctx)
	if err != nil {
		return model.PortfolioView{}, err
	}

	holdings, summary := valuation.Calculate(txs, prices, filter)
	sort.SliceStable(holdings, func(i, j int) bool {
		return holdings[i].Stock.ID < holdings[j].Stock.ID
	})

	return model.PortfolioView{
		Holdings:        holdings,
		Summary:         summary,
		Filter:          filter,
		PricesUpdatedAt: updated,
	}, nil
}

// GetStock returns one holding under filter with its transactions newest first.
// The search part of the filter does not apply.
func (s *LedgerService) GetStock(ctx context.Context, stockID string, filter model.Filter) (model.CalculatedStock, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.GetStock"
	stockID = normalizeSymbol(stockID)

	txs, prices, _, err := s.snapshot(ctx)
	if err != nil {
		slog.Error("snapshot failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.CalculatedStock{}, err
	}

	for _, stock := range valuation.Holdings(txs, prices, filter) {
		if stock.Stock.ID != stockID {
			continue
		}
		newestFirst := slices.Clone(stock.Transactions)
		slices.Reverse(newestFirst)
		stock.Transactions = newestFirst
		return stock, nil
	}

	return model.CalculatedStock{}, service.ErrNotFound
}

func (s *LedgerService) GetTransaction(ctx context.Context, id string) (model.Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Transaction{}, service.ErrNotFound
	}
	return tx, err
}

// SaveTransaction validates input and stores it as a new transaction, or as a
// replacement of transaction id when id is not empty.
func (s *LedgerService) SaveTransaction(ctx context.Context, input model.TransactionInput, id string) (savedID string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.SaveTransaction"

	slog.Debug("SaveTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("id", id))
	defer func() {
		if err != nil {
			slog.Warn("SaveTransaction rejected", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Info("transaction saved", slog.String("rqID", rqID), slog.String("op", op), slog.String("id", savedID))
		}
	}()

	input.StockID = normalizeSymbol(input.StockID)
	input.CompanyName = strings.TrimSpace(input.CompanyName)
	input.Owner = strings.TrimSpace(input.Owner)

	if err = s.validateInput(input); err != nil {
		return "", err
	}

	owner, err := s.repo.GetOwner(ctx, input.Owner)
	if errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", service.ErrUnknownOwner, input.Owner)
	}
	if err != nil {
		return "", err
	}

	tx := model.Transaction{
		ID:                 id,
		StockID:            input.StockID,
		CompanyName:        input.CompanyName,
		ISINCode:           strings.TrimSpace(input.ISINCode),
		Exchange:           strings.TrimSpace(input.Exchange),
		Broker:             strings.TrimSpace(input.Broker),
		Owner:              owner.Name,
		Action:             input.Action,
		Quantity:           input.Quantity,
		TransactionPrice:   input.TransactionPrice,
		Brokerage:          input.Brokerage,
		StampDuty:          input.StampDuty,
		TransactionCharges: input.TransactionCharges,
		TransactionDate:    input.TransactionDate,
		UserEmail:          input.UserEmail,
	}

	savedID, err = s.repo.UpsertTransaction(ctx, tx)
	if errors.Is(err, repository.ErrNotFound) {
		return "", service.ErrNotFound
	}

	return savedID, err
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	err := s.repo.DeleteTransaction(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return service.ErrNotFound
	}
	return err
}

// ReassignOwner attributes every transaction of stockID to owner.
func (s *LedgerService) ReassignOwner(ctx context.Context, stockID, ownerName string) (int64, error) {
	owner, err := s.repo.GetOwner(ctx, strings.TrimSpace(ownerName))
	if errors.Is(err, repository.ErrNotFound) {
		return 0, fmt.Errorf("%w: %s", service.ErrUnknownOwner, ownerName)
	}
	if err != nil {
		return 0, err
	}

	affected, err := s.repo.ReassignOwner(ctx, normalizeSymbol(stockID), owner.Name)
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, service.ErrNotFound
	}

	return affected, nil
}

func (s *LedgerService) ListOwners(ctx context.Context) ([]model.Owner, error) {
	return s.repo.ListOwners(ctx)
}

func (s *LedgerService) AddOwner(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, model.AllOwners) {
		return "", fmt.Errorf("%w: owner name is required", service.ErrValidation)
	}

	err := s.repo.InsertOwner(ctx, name)
	if errors.Is(err, repository.ErrAlreadyExists) {
		return "", service.ErrOwnerExists
	}
	if err != nil {
		return "", err
	}

	return name, nil
}

func (s *LedgerService) RenameOwner(ctx context.Context, oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" || strings.EqualFold(newName, model.AllOwners) {
		return fmt.Errorf("%w: new owner name is required", service.ErrValidation)
	}

	owner, err := s.repo.GetOwner(ctx, strings.TrimSpace(oldName))
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", service.ErrUnknownOwner, oldName)
	}
	if err != nil {
		return err
	}

	err = s.repo.RenameOwner(ctx, owner.Name, newName)
	switch {
	case errors.Is(err, repository.ErrAlreadyExists):
		return service.ErrOwnerExists
	case errors.Is(err, repository.ErrNotFound):
		return service.ErrUnknownOwner
	}

	return err
}

func (s *LedgerService) DeleteOwner(ctx context.Context, name string) error {
	owner, err := s.repo.GetOwner(ctx, strings.TrimSpace(name))
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", service.ErrUnknownOwner, name)
	}
	if err != nil {
		return err
	}

	err = s.repo.DeleteOwner(ctx, owner.Name)
	switch {
	case errors.Is(err, repository.ErrOwnerInUse):
		return service.ErrOwnerInUse
	case errors.Is(err, repository.ErrNotFound):
		return service.ErrUnknownOwner
	}

	return err
}

// SetPrice records a manual price. Zero clears it back to "not set".
func (s *LedgerService) SetPrice(ctx context.Context, stockID string, price float64) error {
	stockID = normalizeSymbol(stockID)
	if stockID == "" {
		return fmt.Errorf("%w: stock symbol is required", service.ErrValidation)
	}
	if !validPrice(price) {
		return fmt.Errorf("%w: price must be a non-negative number", service.ErrValidation)
	}

	return s.prices.SetPrice(ctx, stockID, price)
}

// SyncPrice fetches the market price of stockID and stores it as the manual price.
func (s *LedgerService) SyncPrice(ctx context.Context, stockID string) (price float64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.SyncPrice"
	stockID = normalizeSymbol(stockID)

	defer func() {
		if err != nil {
			slog.Warn("SyncPrice failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("stockID", stockID), slog.String("err", err.Error()))
		}
	}()

	quote, err := s.prices.GetQuote(ctx, stockID)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			slog.Error("got error from prices.GetQuote", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}

		quote, err = s.market.GetQuote(ctx, stockID)
		if errors.Is(err, externalApi.ErrNotFound) {
			return 0, service.ErrPriceUnavailable
		}
		if err != nil {
			return 0, fmt.Errorf("%w: %s", service.ErrPriceUnavailable, err.Error())
		}

		if cacheErr := s.prices.SetQuotes(ctx, map[string]moexModel.Quote{stockID: quote}); cacheErr != nil {
			slog.Error("got error from prices.SetQuotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", cacheErr.Error()))
		}
	}

	if !(quote.Price > 0) || !validPrice(quote.Price) {
		return 0, service.ErrPriceUnavailable
	}

	if err = s.prices.SetPrice(ctx, stockID, quote.Price); err != nil {
		return 0, err
	}

	return quote.Price, nil
}

// RefreshHeldPrices fetches market prices for every currently held stock and
// stores those the market knows. It returns how many prices were updated.
func (s *LedgerService) RefreshHeldPrices(ctx context.Context) (updated int, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.RefreshHeldPrices"

	txs, prices, _, err := s.snapshot(ctx)
	if err != nil {
		return 0, err
	}

	holdings := valuation.Holdings(txs, prices, model.Filter{})
	if len(holdings) == 0 {
		return 0, nil
	}

	symbols := make([]string, 0, len(holdings))
	for _, stock := range holdings {
		symbols = append(symbols, stock.Stock.ID)
	}

	quotes, err := s.market.GetQuotes(ctx, symbols)
	if err != nil {
		return 0, fmt.Errorf("get quotes: %w", err)
	}

	if err = s.prices.SetQuotes(ctx, quotes); err != nil {
		slog.Error("got error from prices.SetQuotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	fresh := make(model.Prices, len(quotes))
	for symbol, quote := range quotes {
		if quote.Price > 0 && validPrice(quote.Price) {
			fresh[symbol] = quote.Price
		}
	}

	if err = s.prices.SetPrices(ctx, fresh); err != nil {
		return 0, err
	}

	slog.Info("held prices refreshed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("updated", len(fresh)), slog.Int("held", len(symbols)))

	return len(fresh), nil
}

// ImportCSV replaces the whole ledger with the transactions in r. Owners the
// file mentions that are not registered yet are registered.
func (s *LedgerService) ImportCSV(ctx context.Context, r io.Reader) (imported int, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.ImportCSV"

	defer func() {
		if err != nil {
			slog.Error("ImportCSV failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Info("ledger imported", slog.String("rqID", rqID), slog.String("op", op), slog.Int("transactions", imported))
		}
	}()

	rows, err := csvCodec.Read(r)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", service.ErrValidation, err.Error())
	}

	txs := make([]model.Transaction, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, dbConverter.ConvertTransaction(row))
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.registerOwners(ctx, txs); err != nil {
			return err
		}
		return s.repo.ReplaceTransactions(ctx, txs)
	})
	if err != nil {
		return 0, err
	}

	return len(txs), nil
}

// registerOwners registers the owners txs mention and rewrites each
// transaction's owner to the registered spelling, so that differently cased
// names in a file end up under one owner.
func (s *LedgerService) registerOwners(ctx context.Context, txs []model.Transaction) error {
	owners, err := s.repo.ListOwners(ctx)
	if err != nil {
		return err
	}

	known := make(map[string]string, len(owners))
	for _, owner := range owners {
		known[strings.ToLower(owner.Name)] = owner.Name
	}

	for i := range txs {
		key := strings.ToLower(txs[i].Owner)
		if name, ok := known[key]; ok {
			txs[i].Owner = name
			continue
		}

		err = s.repo.InsertOwner(ctx, txs[i].Owner)
		if errors.Is(err, repository.ErrAlreadyExists) {
			owner, getErr := s.repo.GetOwner(ctx, txs[i].Owner)
			if getErr != nil {
				return fmt.Errorf("register owner %q: %w", txs[i].Owner, getErr)
			}
			txs[i].Owner = owner.Name
		} else if err != nil {
			return fmt.Errorf("register owner %q: %w", txs[i].Owner, err)
		}
		known[key] = txs[i].Owner
	}

	return nil
}

// ExportCSV renders the whole ledger in the import format.
func (s *LedgerService) ExportCSV(ctx context.Context) (model.ExportFile, error) {
	txs, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return model.ExportFile{}, err
	}

	data, err := csvCodec.Bytes(txs)
	if err != nil {
		return model.ExportFile{}, err
	}

	return model.ExportFile{
		Name: fmt.Sprintf("ledger-%s.csv", s.now().Format(csvCodec.DateLayout)),
		Data: data,
	}, nil
}

// ExportReport builds a workbook of the portfolio under filter. When cloud
// storage is configured the file is uploaded and Link is set; the bytes are
// always returned so a failed upload can fall back to sending the file.
func (s *LedgerService) ExportReport(ctx context.Context, filter model.Filter) (file model.ExportFile, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.ExportReport"

	view, err := s.GetPortfolio(ctx, filter)
	if err != nil {
		return model.ExportFile{}, err
	}

	data, ext, err := s.generator.Generate(ctx, view, s.cfg.Ledger.Currency)
	if err != nil {
		return model.ExportFile{}, fmt.Errorf("generate report: %w", err)
	}

	file = model.ExportFile{
		Name: fmt.Sprintf("portfolio-%s%s", s.now().Format("2006-01-02-150405"), ext),
		Data: data,
	}

	if s.storage == nil {
		return file, nil
	}

	link, err := s.storage.UploadFile(ctx, bytes.NewReader(data), file.Name)
	if err != nil {
		slog.Error("upload failed, sending file instead", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return file, nil
	}
	file.Link = link

	return file, nil
}

// CleanupExports removes uploaded reports older than their TTL.
func (s *LedgerService) CleanupExports(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}
	return s.storage.DeleteOldFiles(ctx)
}

func (s *LedgerService) PortfolioAnalysis(_ context.Context, _ model.Filter) string {
	return PortfolioAnalysisDisabled
}

func (s *LedgerService) StockAnalysis(_ context.Context, _ string) string {
	return StockAnalysisDisabled
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
