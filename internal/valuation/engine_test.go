package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whizrock/ledger/internal/model"
)

func TestCalculate_EndToEnd(t *testing.T) {
	txs := []model.Transaction{
		buy("AAPL", 10, 150, 6.5, "2023-01-15"),
		buy("AAPL", 5, 100, 5.9, "2023-02-20"),
	}

	holdings, summary := Calculate(txs, model.Prices{"AAPL": 160}, model.Filter{Owner: model.AllOwners})

	require.Len(t, holdings, 1)
	h := holdings[0]
	assert.Equal(t, "AAPL", h.Stock.ID)
	assert.Equal(t, "AAPL Corp", h.Stock.CompanyName)
	assert.Equal(t, 160.0, h.Stock.CurrentPrice)
	assert.InDelta(t, 15, h.Quantity, 1e-9)
	assert.InDelta(t, 2012.4, h.Investment, 1e-9)
	assert.InDelta(t, 2400, h.CurrentValue, 1e-9)
	assert.InDelta(t, 387.6, h.PAndL, 1e-9)
	assert.Equal(t, day("2023-01-15"), h.FirstTransactionDate)
	assert.Equal(t, model.RecommendationHold, h.Recommendation)
	assert.Zero(t, h.AvgAnnualReturn)

	assert.InDelta(t, 2012.4, summary.TotalInvestment, 1e-9)
	assert.InDelta(t, 2400, summary.CurrentValue, 1e-9)
	assert.InDelta(t, 387.6, summary.TotalPandL, 1e-9)
	assert.Zero(t, summary.AvgAnnualReturn)
}

func TestCalculate_SortsEachStockChronologically(t *testing.T) {
	// Given newest first, as the store lists them.
	txs := []model.Transaction{
		sell("TCS", 5, 0, 0, "2023-01-03"),
		buy("TCS", 10, 200, 0, "2023-01-02"),
		buy("TCS", 10, 100, 10, "2023-01-01"),
	}

	holdings, _ := Calculate(txs, nil, model.Filter{})

	require.Len(t, holdings, 1)
	assert.InDelta(t, 15, holdings[0].Quantity, 1e-9)
	assert.InDelta(t, 2257.5, holdings[0].Investment, 1e-9)
	assert.Equal(t, day("2023-01-01"), holdings[0].Transactions[0].TransactionDate)
	assert.Equal(t, day("2023-01-03"), holdings[0].Transactions[2].TransactionDate)
	assert.Equal(t, day("2023-01-03"), txs[0].TransactionDate, "input must not be reordered")
}

func TestCalculate_SameDayKeepsInputOrder(t *testing.T) {
	first := buy("SBIN", 10, 100, 0, "2023-05-05")
	second := sell("SBIN", 10, 120, 0, "2023-05-05")
	third := buy("SBIN", 10, 300, 0, "2023-05-05")

	holdings, _ := Calculate([]model.Transaction{first, second, third}, nil, model.Filter{})
	require.Len(t, holdings, 1)
	assert.InDelta(t, 3000, holdings[0].Investment, 1e-9)

	holdings, _ = Calculate([]model.Transaction{third, second, first}, nil, model.Filter{})
	require.Len(t, holdings, 1)
	assert.InDelta(t, 1000, holdings[0].Investment, 1e-9)
}

func TestCalculate_UnsetPrice(t *testing.T) {
	txs := []model.Transaction{buy("RELI", 4, 2500, 20, "2023-04-01")}

	holdings, summary := Calculate(txs, model.Prices{"OTHER": 10}, model.Filter{})

	require.Len(t, holdings, 1)
	h := holdings[0]
	assert.False(t, h.Stock.PriceSet())
	assert.Equal(t, 0.0, h.CurrentValue)
	assert.Equal(t, -h.Investment, h.PAndL)
	assert.Equal(t, -10020.0, summary.TotalPandL)
}

func TestCalculate_AllOwnersEqualsNoFilter(t *testing.T) {
	txs := []model.Transaction{
		owned(buy("AAPL", 10, 150, 6.5, "2023-01-15"), "Alice"),
		owned(buy("MSFT", 3, 300, 1, "2023-01-20"), "Bob"),
		owned(sell("AAPL", 2, 170, 1, "2023-03-01"), "Bob"),
	}
	prices := model.Prices{"AAPL": 160, "MSFT": 310}

	allHoldings, allSummary := Calculate(txs, prices, model.Filter{Owner: model.AllOwners})
	noHoldings, noSummary := Calculate(txs, prices, model.Filter{})

	assert.Equal(t, noHoldings, allHoldings)
	assert.Equal(t, noSummary, allSummary)
}

func TestCalculate_OwnerFilter(t *testing.T) {
	txs := []model.Transaction{
		owned(buy("AAPL", 10, 150, 0, "2023-01-15"), "Alice"),
		owned(buy("AAPL", 5, 100, 0, "2023-01-16"), "Bob"),
		owned(buy("MSFT", 3, 300, 0, "2023-01-20"), "Bob"),
	}

	holdings, summary := Calculate(txs, nil, model.Filter{Owner: "Alice"})

	require.Len(t, holdings, 1)
	assert.Equal(t, "AAPL", holdings[0].Stock.ID)
	assert.Equal(t, 10.0, holdings[0].Quantity)
	assert.Equal(t, 1500.0, summary.TotalInvestment)
}

func TestCalculate_DateRangeIsInclusive(t *testing.T) {
	txs := []model.Transaction{
		buy("AAPL", 1, 100, 0, "2023-01-01"),
		buy("AAPL", 2, 100, 0, "2023-02-01"),
		buy("AAPL", 4, 100, 0, "2023-03-01"),
		buy("AAPL", 8, 100, 0, "2023-04-01"),
	}

	tests := []struct {
		name   string
		filter model.Filter
		want   float64
	}{
		{name: "no bounds", filter: model.Filter{}, want: 15},
		{name: "start only", filter: model.Filter{StartDate: dayPtr("2023-02-01")}, want: 14},
		{name: "end only", filter: model.Filter{EndDate: dayPtr("2023-03-01")}, want: 7},
		{name: "both", filter: model.Filter{StartDate: dayPtr("2023-02-01"), EndDate: dayPtr("2023-03-01")}, want: 6},
		{name: "same day", filter: model.Filter{StartDate: dayPtr("2023-04-01"), EndDate: dayPtr("2023-04-01")}, want: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			holdings, _ := Calculate(txs, nil, tt.filter)
			require.Len(t, holdings, 1)
			assert.Equal(t, tt.want, holdings[0].Quantity)
		})
	}
}

func TestCalculate_DateRangeCanHideTheBuys(t *testing.T) {
	txs := []model.Transaction{
		buy("AAPL", 10, 100, 0, "2023-01-01"),
		sell("AAPL", 4, 100, 0, "2023-06-01"),
	}

	holdings, summary := Calculate(txs, model.Prices{"AAPL": 100}, model.Filter{StartDate: dayPtr("2023-02-01")})

	assert.Empty(t, holdings)
	assert.Equal(t, model.PortfolioSummary{}, summary)
}

func TestCalculate_ExcludesDivested(t *testing.T) {
	txs := []model.Transaction{
		buy("GONE", 10, 100, 5, "2023-01-01"),
		sell("GONE", 10, 130, 5, "2023-02-01"),
		buy("DUST", 1, 100, 0, "2023-01-01"),
		sell("DUST", 0.99995, 100, 0, "2023-02-01"),
		buy("KEEP", 1, 100, 0, "2023-01-01"),
	}

	holdings, summary := Calculate(txs, model.Prices{"GONE": 200, "DUST": 100, "KEEP": 120}, model.Filter{})

	require.Len(t, holdings, 1)
	assert.Equal(t, "KEEP", holdings[0].Stock.ID)
	assert.Equal(t, 100.0, summary.TotalInvestment)
	assert.Equal(t, 20.0, summary.TotalPandL)
}

func TestCalculate_SearchOnlyRemoves(t *testing.T) {
	txs := []model.Transaction{
		buy("AAPL", 10, 150, 0, "2023-01-15"),
		buy("MSFT", 3, 300, 0, "2023-01-20"),
		buy("GOOGL", 2, 100, 0, "2023-01-21"),
		buy("SOLD", 2, 100, 0, "2023-01-21"),
		sell("SOLD", 2, 100, 0, "2023-01-22"),
	}
	txs[0].CompanyName = "Apple Inc."
	txs[2].CompanyName = "Alphabet Inc."

	base, _ := Calculate(txs, nil, model.Filter{})
	baseIDs := byStock(base)

	for _, query := range []string{"", "inc", "APPLE", "msft", "sold", "zzz"} {
		t.Run("query "+query, func(t *testing.T) {
			holdings, summary := Calculate(txs, nil, model.Filter{Search: query})
			for _, h := range holdings {
				assert.Contains(t, baseIDs, h.Stock.ID)
			}
			assert.Equal(t, Summarize(holdings), summary)
		})
	}

	holdings, _ := Calculate(txs, nil, model.Filter{Search: "inc"})
	assert.ElementsMatch(t, []string{"AAPL", "GOOGL"}, []string{holdings[0].Stock.ID, holdings[1].Stock.ID})

	holdings, _ = Calculate(txs, nil, model.Filter{Search: "sold"})
	assert.Empty(t, holdings)
}

func TestCalculate_SearchMatchesStockNotTransactions(t *testing.T) {
	txs := []model.Transaction{
		buy("AAPL", 10, 150, 0, "2023-01-15"),
		buy("AAPL", 5, 100, 0, "2023-02-20"),
	}
	txs[0].CompanyName = "Apple Inc."
	txs[1].CompanyName = "Something else"

	holdings, _ := Calculate(txs, nil, model.Filter{Search: "apple"})

	require.Len(t, holdings, 1)
	assert.Equal(t, 15.0, holdings[0].Quantity)
}

func TestCalculate_CompanyNameFallsBackToSymbol(t *testing.T) {
	tx := buy("NONAME", 1, 1, 0, "2023-01-01")
	tx.CompanyName = ""

	holdings, _ := Calculate([]model.Transaction{tx}, nil, model.Filter{})

	require.Len(t, holdings, 1)
	assert.Equal(t, "NONAME", holdings[0].Stock.CompanyName)
}

func TestCalculate_GroupsInFirstAppearanceOrder(t *testing.T) {
	txs := []model.Transaction{
		buy("MSFT", 1, 1, 0, "2023-03-01"),
		buy("AAPL", 1, 1, 0, "2023-01-01"),
		buy("MSFT", 1, 1, 0, "2023-01-01"),
		buy("GOOGL", 1, 1, 0, "2023-02-01"),
	}

	holdings, _ := Calculate(txs, nil, model.Filter{})

	require.Len(t, holdings, 3)
	assert.Equal(t, "MSFT", holdings[0].Stock.ID)
	assert.Equal(t, "AAPL", holdings[1].Stock.ID)
	assert.Equal(t, "GOOGL", holdings[2].Stock.ID)
}

func TestSummarize_IsAdditive(t *testing.T) {
	holdings := []model.CalculatedStock{
		{Investment: 100.1, CurrentValue: 120.2, PAndL: 20.1},
		{Investment: 0.3, CurrentValue: 0, PAndL: -0.3},
		{Investment: 2500, CurrentValue: 2400.55, PAndL: -99.45},
	}

	s := Summarize(holdings)

	assert.InDelta(t, 100.1+0.3+2500, s.TotalInvestment, 1e-9)
	assert.InDelta(t, 120.2+0+2400.55, s.CurrentValue, 1e-9)
	assert.InDelta(t, 20.1-0.3-99.45, s.TotalPandL, 1e-9)
	assert.Zero(t, s.AvgAnnualReturn)
	assert.Equal(t, model.PortfolioSummary{}, Summarize(nil))
}
