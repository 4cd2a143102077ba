package ledgerService

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/whizrock/ledger/data/cache"
	"github.com/whizrock/ledger/data/repository"
	"github.com/whizrock/ledger/internal/externalApi"
	"github.com/whizrock/ledger/internal/model"
	"github.com/whizrock/ledger/internal/model/moexModel"
)

type fakeRepo struct {
	txs      []model.Transaction
	owners   []model.Owner
	failList error
}

func (r *fakeRepo) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	txsBefore := append([]model.Transaction(nil), r.txs...)
	ownersBefore := append([]model.Owner(nil), r.owners...)
	if err := tFunc(ctx); err != nil {
		r.txs, r.owners = txsBefore, ownersBefore
		return err
	}
	return nil
}

func (r *fakeRepo) ListTransactions(context.Context) ([]model.Transaction, error) {
	if r.failList != nil {
		return nil, r.failList
	}
	return append([]model.Transaction(nil), r.txs...), nil
}

func (r *fakeRepo) GetTransaction(_ context.Context, id string) (model.Transaction, error) {
	for _, tx := range r.txs {
		if tx.ID == id {
			return tx, nil
		}
	}
	return model.Transaction{}, repository.ErrNotFound
}

func (r *fakeRepo) UpsertTransaction(_ context.Context, tx model.Transaction) (string, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
		r.txs = append(r.txs, tx)
		return tx.ID, nil
	}
	for i := range r.txs {
		if r.txs[i].ID == tx.ID {
			r.txs[i] = tx
			return tx.ID, nil
		}
	}
	return "", repository.ErrNotFound
}

func (r *fakeRepo) DeleteTransaction(_ context.Context, id string) error {
	for i := range r.txs {
		if r.txs[i].ID == id {
			r.txs = append(r.txs[:i], r.txs[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeRepo) ReassignOwner(_ context.Context, stockID, owner string) (int64, error) {
	var n int64
	for i := range r.txs {
		if r.txs[i].StockID == stockID {
			r.txs[i].Owner = owner
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) ReplaceTransactions(_ context.Context, txs []model.Transaction) error {
	r.txs = append([]model.Transaction(nil), txs...)
	return nil
}

func (r *fakeRepo) ListOwners(context.Context) ([]model.Owner, error) {
	return append([]model.Owner(nil), r.owners...), nil
}

func (r *fakeRepo) GetOwner(_ context.Context, name string) (model.Owner, error) {
	for _, o := range r.owners {
		if strings.EqualFold(o.Name, name) {
			return o, nil
		}
	}
	return model.Owner{}, repository.ErrNotFound
}

func (r *fakeRepo) InsertOwner(ctx context.Context, name string) error {
	if _, err := r.GetOwner(ctx, name); err == nil {
		return repository.ErrAlreadyExists
	}
	r.owners = append(r.owners, model.Owner{Name: name})
	return nil
}

func (r *fakeRepo) RenameOwner(ctx context.Context, oldName, newName string) error {
	if existing, err := r.GetOwner(ctx, newName); err == nil && existing.Name != oldName {
		return repository.ErrAlreadyExists
	}
	found := false
	for i := range r.owners {
		if r.owners[i].Name == oldName {
			r.owners[i].Name = newName
			found = true
		}
	}
	if !found {
		return repository.ErrNotFound
	}
	for i := range r.txs {
		if r.txs[i].Owner == oldName {
			r.txs[i].Owner = newName
		}
	}
	return nil
}

func (r *fakeRepo) DeleteOwner(_ context.Context, name string) error {
	for _, tx := range r.txs {
		if tx.Owner == name {
			return repository.ErrOwnerInUse
		}
	}
	for i := range r.owners {
		if r.owners[i].Name == name {
			r.owners = append(r.owners[:i], r.owners[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakePrices struct {
	prices  model.Prices
	updated time.Time
	quotes  map[string]moexModel.Quote
}

func newFakePrices() *fakePrices {
	return &fakePrices{prices: model.Prices{}, quotes: map[string]moexModel.Quote{}}
}

func (p *fakePrices) GetPrices(context.Context) (model.Prices, time.Time, error) {
	return p.prices, p.updated, nil
}

func (p *fakePrices) SetPrice(ctx context.Context, symbol string, price float64) error {
	return p.SetPrices(ctx, model.Prices{symbol: price})
}

func (p *fakePrices) SetPrices(_ context.Context, prices model.Prices) error {
	for symbol, price := range prices {
		p.prices[symbol] = price
	}
	p.updated = time.Now()
	return nil
}

func (p *fakePrices) GetQuote(_ context.Context, symbol string) (moexModel.Quote, error) {
	q, ok := p.quotes[symbol]
	if !ok {
		return moexModel.Quote{}, cache.ErrNotFound
	}
	return q, nil
}

func (p *fakePrices) SetQuotes(_ context.Context, quotes map[string]moexModel.Quote) error {
	for symbol, q := range quotes {
		p.quotes[symbol] = q
	}
	return nil
}

type fakeMarket struct {
	quotes map[string]moexModel.Quote
	calls  int
}

func (m *fakeMarket) GetQuote(ctx context.Context, symbol string) (moexModel.Quote, error) {
	quotes, _ := m.GetQuotes(ctx, []string{symbol})
	q, ok := quotes[symbol]
	if !ok {
		return moexModel.Quote{}, externalApi.ErrNotFound
	}
	return q, nil
}

func (m *fakeMarket) GetQuotes(_ context.Context, symbols []string) (map[string]moexModel.Quote, error) {
	m.calls++
	res := map[string]moexModel.Quote{}
	for _, s := range symbols {
		if q, ok := m.quotes[s]; ok {
			res[s] = q
		}
	}
	return res, nil
}

type fakeGenerator struct {
	view model.PortfolioView
}

func (g *fakeGenerator) Generate(_ context.Context, view model.PortfolioView, _ string) ([]byte, string, error) {
	g.view = view
	return []byte("xlsx"), ".xlsx", nil
}

type fakeStorage struct {
	uploaded  []string
	uploadErr error
	cleaned   int
}

func (s *fakeStorage) UploadFile(_ context.Context, r io.Reader, filename string) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	_, _ = io.ReadAll(r)
	s.uploaded = append(s.uploaded, filename)
	return "https://drive.example/" + filename, nil
}

func (s *fakeStorage) DeleteOldFiles(context.Context) error {
	s.cleaned++
	return nil
}
