package ledgerService

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whizrock/ledger/config"
	"github.com/whizrock/ledger/internal/model"
	"github.com/whizrock/ledger/internal/model/moexModel"
	"github.com/whizrock/ledger/internal/reportGenerator/csvCodec"
	"github.com/whizrock/ledger/internal/service"
)

type fixture struct {
	svc     *LedgerService
	repo    *fakeRepo
	prices  *fakePrices
	market  *fakeMarket
	gen     *fakeGenerator
	storage *fakeStorage
}

func newFixture(t *testing.T, withStorage bool) fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.Ledger.Currency = "INR"

	f := fixture{
		repo:    &fakeRepo{owners: []model.Owner{{Name: "Alice"}, {Name: "Bob"}}},
		prices:  newFakePrices(),
		market:  &fakeMarket{quotes: map[string]moexModel.Quote{}},
		gen:     &fakeGenerator{},
		storage: &fakeStorage{},
	}

	var storage CloudStorage
	if withStorage {
		storage = f.storage
	}

	f.svc = New(cfg, f.repo, f.prices, f.market, f.gen, storage)
	f.svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	return f
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func validInput() model.TransactionInput {
	return model.TransactionInput{
		StockID:          " aapl ",
		CompanyName:      "Apple Inc",
		ISINCode:         "US0378331005",
		Owner:            "alice",
		Action:           model.Buy,
		Quantity:         10,
		TransactionPrice: 150,
		Brokerage:        10,
		StampDuty:        2,
		Broker:           "Zerodha",
		Exchange:         "NASDAQ",
		TransactionDate:  day(10),
	}
}

func TestSaveTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes and stores", func(t *testing.T) {
		f := newFixture(t, false)

		id, err := f.svc.SaveTransaction(ctx, validInput(), "")
		require.NoError(t, err)
		require.Len(t, f.repo.txs, 1)

		stored := f.repo.txs[0]
		assert.Equal(t, id, stored.ID)
		assert.Equal(t, "AAPL", stored.StockID)
		assert.Equal(t, "Alice", stored.Owner, "owner takes the registered spelling")
		assert.InDelta(t, 12, stored.TotalCharges(), 1e-9)
	})

	t.Run("edit replaces", func(t *testing.T) {
		f := newFixture(t, false)
		id, err := f.svc.SaveTransaction(ctx, validInput(), "")
		require.NoError(t, err)

		edited := validInput()
		edited.Quantity = 4
		_, err = f.svc.SaveTransaction(ctx, edited, id)
		require.NoError(t, err)
		require.Len(t, f.repo.txs, 1)
		assert.InDelta(t, 4, f.repo.txs[0].Quantity, 1e-9)

		_, err = f.svc.SaveTransaction(ctx, edited, "missing")
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		f := newFixture(t, false)
		cases := map[string]func(in *model.TransactionInput){
			"zero quantity":  func(in *model.TransactionInput) { in.Quantity = 0 },
			"negative price": func(in *model.TransactionInput) { in.TransactionPrice = -1 },
			"negative fee":   func(in *model.TransactionInput) { in.StampDuty = -0.5 },
			"no company":     func(in *model.TransactionInput) { in.CompanyName = " " },
			"no isin":        func(in *model.TransactionInput) { in.ISINCode = "" },
			"no broker":      func(in *model.TransactionInput) { in.Broker = "" },
			"no exchange":    func(in *model.TransactionInput) { in.Exchange = "" },
			"no date":        func(in *model.TransactionInput) { in.TransactionDate = time.Time{} },
			"bad action":     func(in *model.TransactionInput) { in.Action = "Hold" },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				in := validInput()
				mutate(&in)

				_, err := f.svc.SaveTransaction(ctx, in, "")
				assert.ErrorIs(t, err, service.ErrValidation)
			})
		}
		assert.Empty(t, f.repo.txs)
	})

	t.Run("lists every problem", func(t *testing.T) {
		f := newFixture(t, false)
		in := validInput()
		in.Quantity = 0
		in.Broker = ""

		_, err := f.svc.SaveTransaction(ctx, in, "")
		require.ErrorIs(t, err, service.ErrValidation)
		assert.Contains(t, err.Error(), "Quantity must be greater than 0")
		assert.Contains(t, err.Error(), "Broker is required")
	})

	t.Run("unknown owner", func(t *testing.T) {
		f := newFixture(t, false)
		in := validInput()
		in.Owner = "Carol"

		_, err := f.svc.SaveTransaction(ctx, in, "")
		assert.ErrorIs(t, err, service.ErrUnknownOwner)
	})
}

func seedAAPL(f fixture) {
	f.repo.txs = []model.Transaction{
		{ID: "1", StockID: "AAPL", CompanyName: "Apple Inc", Owner: "Alice", Action: model.Buy, Quantity: 10, TransactionPrice: 150, Brokerage: 5, StampDuty: 1, TransactionCharges: 0.5, TransactionDate: day(15)},
		{ID: "2", StockID: "AAPL", CompanyName: "Apple Inc", Owner: "Alice", Action: model.Buy, Quantity: 5, TransactionPrice: 100, Brokerage: 4.5, StampDuty: 0.9, TransactionCharges: 0.5, TransactionDate: day(20)},
		{ID: "3", StockID: "INFY", CompanyName: "Infosys", Owner: "Bob", Action: model.Buy, Quantity: 2, TransactionPrice: 1500, TransactionDate: day(5)},
	}
	f.prices.prices["AAPL"] = 160
}

func TestGetPortfolio(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	seedAAPL(f)

	view, err := f.svc.GetPortfolio(ctx, model.Filter{Owner: model.AllOwners})
	require.NoError(t, err)
	require.Len(t, view.Holdings, 2)
	assert.Equal(t, "AAPL", view.Holdings[0].Stock.ID)
	assert.Equal(t, "INFY", view.Holdings[1].Stock.ID)
	assert.InDelta(t, 2012.4, view.Holdings[0].Investment, 1e-9)
	assert.InDelta(t, 2012.4+3000, view.Summary.TotalInvestment, 1e-9)
	assert.InDelta(t, 2400, view.Summary.CurrentValue, 1e-9)

	view, err = f.svc.GetPortfolio(ctx, model.Filter{Owner: "Bob"})
	require.NoError(t, err)
	require.Len(t, view.Holdings, 1)
	assert.Equal(t, "INFY", view.Holdings[0].Stock.ID)
	assert.False(t, view.Holdings[0].Stock.PriceSet())

	f.repo.failList = errors.New("db down")
	_, err = f.svc.GetPortfolio(ctx, model.Filter{})
	assert.Error(t, err)
}

func TestGetStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	seedAAPL(f)

	stock, err := f.svc.GetStock(ctx, "aapl", model.Filter{Search: "infosys"})
	require.NoError(t, err)
	assert.InDelta(t, 15, stock.Quantity, 1e-9)
	assert.InDelta(t, 387.6, stock.PAndL, 1e-9)
	require.Len(t, stock.Transactions, 2)
	assert.Equal(t, "2", stock.Transactions[0].ID, "newest first")
	assert.Equal(t, "1", f.repo.txs[0].ID)

	_, err = f.svc.GetStock(ctx, "MSFT", model.Filter{})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestOwners(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	seedAAPL(f)

	_, err := f.svc.AddOwner(ctx, "  ")
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = f.svc.AddOwner(ctx, "ALICE")
	assert.ErrorIs(t, err, service.ErrOwnerExists)

	name, err := f.svc.AddOwner(ctx, " Carol ")
	require.NoError(t, err)
	assert.Equal(t, "Carol", name)

	require.NoError(t, f.svc.RenameOwner(ctx, "alice", "Alicia"))
	assert.Equal(t, "Alicia", f.repo.txs[0].Owner, "rename cascades")

	assert.ErrorIs(t, f.svc.RenameOwner(ctx, "Alicia", "bob"), service.ErrOwnerExists)
	assert.ErrorIs(t, f.svc.RenameOwner(ctx, "Zed", "Zoe"), service.ErrUnknownOwner)

	assert.ErrorIs(t, f.svc.DeleteOwner(ctx, "Bob"), service.ErrOwnerInUse)
	require.NoError(t, f.svc.DeleteOwner(ctx, "carol"))
	assert.ErrorIs(t, f.svc.DeleteOwner(ctx, "carol"), service.ErrUnknownOwner)

	n, err := f.svc.ReassignOwner(ctx, "infy", "alicia")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, "Alicia", f.repo.txs[2].Owner)

	_, err = f.svc.ReassignOwner(ctx, "MSFT", "Alicia")
	assert.ErrorIs(t, err, service.ErrNotFound)
	_, err = f.svc.ReassignOwner(ctx, "INFY", "Nobody")
	assert.ErrorIs(t, err, service.ErrUnknownOwner)
}

func TestDeleteTransaction(t *testing.T) {
	f := newFixture(t, false)
	seedAAPL(f)

	require.NoError(t, f.svc.DeleteTransaction(context.Background(), "3"))
	assert.Len(t, f.repo.txs, 2)
	assert.ErrorIs(t, f.svc.DeleteTransaction(context.Background(), "3"), service.ErrNotFound)
}

func TestPrices(t *testing.T) {
	ctx := context.Background()

	t.Run("manual", func(t *testing.T) {
		f := newFixture(t, false)
		require.NoError(t, f.svc.SetPrice(ctx, " infy", 1600))
		assert.InDelta(t, 1600, f.prices.prices["INFY"], 1e-9)

		assert.ErrorIs(t, f.svc.SetPrice(ctx, "INFY", -1), service.ErrValidation)
		assert.ErrorIs(t, f.svc.SetPrice(ctx, "", 1), service.ErrValidation)
	})

	t.Run("sync uses the quote cache", func(t *testing.T) {
		f := newFixture(t, false)
		f.market.quotes["SBER"] = moexModel.Quote{Symbol: "SBER", Price: 301.5}

		price, err := f.svc.SyncPrice(ctx, "sber")
		require.NoError(t, err)
		assert.InDelta(t, 301.5, price, 1e-9)
		assert.InDelta(t, 301.5, f.prices.prices["SBER"], 1e-9)

		_, err = f.svc.SyncPrice(ctx, "SBER")
		require.NoError(t, err)
		assert.Equal(t, 1, f.market.calls)
	})

	t.Run("sync without a price", func(t *testing.T) {
		f := newFixture(t, false)
		f.market.quotes["GAZP"] = moexModel.Quote{Symbol: "GAZP"}

		_, err := f.svc.SyncPrice(ctx, "GAZP")
		assert.ErrorIs(t, err, service.ErrPriceUnavailable)
		_, err = f.svc.SyncPrice(ctx, "NOPE")
		assert.ErrorIs(t, err, service.ErrPriceUnavailable)
		assert.Empty(t, f.prices.prices)
	})

	t.Run("refresh held", func(t *testing.T) {
		f := newFixture(t, false)
		seedAAPL(f)
		f.market.quotes["INFY"] = moexModel.Quote{Symbol: "INFY", Price: 1550}

		n, err := f.svc.RefreshHeldPrices(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.InDelta(t, 1550, f.prices.prices["INFY"], 1e-9)
		assert.InDelta(t, 160, f.prices.prices["AAPL"], 1e-9, "unknown to the market, kept")
	})
}

func TestImportExportCSV(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	seedAAPL(f)

	n, err := f.svc.ImportCSV(ctx, strings.NewReader(string(csvCodec.Sample())))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, f.repo.txs, 2)
	assert.Equal(t, "GOOGL", f.repo.txs[1].StockID)

	_, err = f.repo.GetOwner(ctx, "Family")
	assert.NoError(t, err, "owners from the file get registered")

	file, err := f.svc.ExportCSV(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ledger-2024-06-01.csv", file.Name)

	n, err = f.svc.ImportCSV(ctx, strings.NewReader(string(file.Data)))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = f.svc.ImportCSV(ctx, strings.NewReader("Symbol,Qty\n"))
	assert.ErrorIs(t, err, service.ErrValidation)
	assert.Len(t, f.repo.txs, 2, "a rejected file leaves the ledger untouched")
}

func TestImportCSV_OwnerSpellingFollowsRegistered(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	seedAAPL(f)

	file := "Stock Symbol,Company Name,ISIN Code,Owner,Action,Quantity,Transaction Price,Brokerage,Stamp Duty,Transaction Charges,Broker,Exchange,Transaction Date\n" +
		"AAPL,Apple Inc.,US0378331005,alice,Buy,10,150,0,0,0,Fidelity,NASDAQ,2023-01-15\n" +
		"TCS,Tata Consultancy,INE467B01029,carol,Buy,1,3500,0,0,0,Zerodha,NSE,2023-01-16\n" +
		"INFY,Infosys,INE009A01021,CAROL,Buy,2,1500,0,0,0,Zerodha,NSE,2023-01-17\n"

	n, err := f.svc.ImportCSV(ctx, strings.NewReader(file))
	require.NoError(t, err)
	require.Equal(t, 3, n)

	assert.Equal(t, "Alice", f.repo.txs[0].Owner)
	assert.Equal(t, "carol", f.repo.txs[1].Owner)
	assert.Equal(t, "carol", f.repo.txs[2].Owner)

	_, err = f.repo.GetOwner(ctx, "CAROL")
	require.NoError(t, err)
	assert.Len(t, f.repo.owners, 3, "one owner per case-insensitive name")

	view, err := f.svc.GetPortfolio(ctx, model.Filter{Owner: "Alice"})
	require.NoError(t, err)
	require.Len(t, view.Holdings, 1)
	assert.Equal(t, "AAPL", view.Holdings[0].Stock.ID)
}

func TestExportReport(t *testing.T) {
	ctx := context.Background()

	t.Run("without storage", func(t *testing.T) {
		f := newFixture(t, false)
		seedAAPL(f)

		file, err := f.svc.ExportReport(ctx, model.Filter{Owner: "Alice"})
		require.NoError(t, err)
		assert.Equal(t, "portfolio-2024-06-01-120000.xlsx", file.Name)
		assert.Empty(t, file.Link)
		assert.Equal(t, []byte("xlsx"), file.Data)
		require.Len(t, f.gen.view.Holdings, 1)
		require.NoError(t, f.svc.CleanupExports(ctx))
	})

	t.Run("uploads", func(t *testing.T) {
		f := newFixture(t, true)
		seedAAPL(f)

		file, err := f.svc.ExportReport(ctx, model.Filter{})
		require.NoError(t, err)
		assert.Equal(t, "https://drive.example/"+file.Name, file.Link)

		require.NoError(t, f.svc.CleanupExports(ctx))
		assert.Equal(t, 1, f.storage.cleaned)
	})

	t.Run("falls back to the file", func(t *testing.T) {
		f := newFixture(t, true)
		f.storage.uploadErr = errors.New("quota")

		file, err := f.svc.ExportReport(ctx, model.Filter{})
		require.NoError(t, err)
		assert.Empty(t, file.Link)
		assert.NotEmpty(t, file.Data)
	})
}

func TestAnalysisDisabled(t *testing.T) {
	f := newFixture(t, false)
	assert.Equal(t, "AI Analysis is currently disabled to prevent usage charges.", f.svc.PortfolioAnalysis(context.Background(), model.Filter{}))
	assert.Equal(t, "AI Intelligence features are disconnected.", f.svc.StockAnalysis(context.Background(), "AAPL"))
}
