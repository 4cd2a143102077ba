package moexApi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/whizrock/ledger/config"
	"github.com/whizrock/ledger/internal/externalApi"
	"github.com/whizrock/ledger/internal/model/moexModel"
	"github.com/whizrock/ledger/utils"
)

type MoexApi struct {
	client *resty.Client
	board  string
}

func New(cfg *config.Config) *MoexApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.MoexApi.Url)
	return &MoexApi{client: client, board: cfg.API.MoexApi.Board}
}

// GetQuote fetches the market price of one symbol.
func (a *MoexApi) GetQuote(ctx context.Context, symbol string) (moexModel.Quote, error) {
	quotes, err := a.GetQuotes(ctx, []string{symbol})
	if err != nil {
		return moexModel.Quote{}, err
	}

	quote, ok := quotes[strings.ToUpper(symbol)]
	if !ok {
		return moexModel.Quote{}, externalApi.ErrNotFound
	}

	return quote, nil
}

// GetQuotes fetches market prices keyed by upper-case symbol. Unknown symbols are absent.
func (a *MoexApi) GetQuotes(ctx context.Context, symbols []string) (quotes map[string]moexModel.Quote, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MoexApi.GetQuotes"
	url := fmt.Sprintf("/iss/engines/stock/markets/shares/boards/%s/securities.json", a.board)

	upper := make([]string, 0, len(symbols))
	for _, s := range symbols {
		upper = append(upper, strings.ToUpper(strings.TrimSpace(s)))
	}

	params := map[string]string{
		"iss.meta":           "off",
		"iss.only":           "securities,marketdata",
		"securities.columns": "SECID,SHORTNAME,CURRENCYID",
		"marketdata.columns": "SECID,MARKETPRICE,LAST",
		"securities":         strings.Join(upper, ","),
	}

	slog.Debug("MoexApi.GetQuotes start", slog.String("rqID", rqID), slog.String("op", op), slog.Any("symbols", upper))
	defer func() {
		if err != nil {
			slog.Error("MoexApi.GetQuotes failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("MoexApi.GetQuotes completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("found", len(quotes)))
		}
	}()

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("dial moex: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("moex responded %s", resp.Status())
	}

	raw := moexModel.RawSecurities{}
	if err = json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal moex response: %w", err)
	}

	return parseQuotes(raw, time.Now())
}

func parseQuotes(raw moexModel.RawSecurities, fetchedAt time.Time) (map[string]moexModel.Quote, error) {
	quotes := make(map[string]moexModel.Quote, len(raw.Marketdata.Data))

	for _, row := range raw.Marketdata.Data {
		if len(row) != len(raw.Marketdata.Columns) {
			return nil, errors.New("invalid marketdata")
		}

		quote := moexModel.Quote{FetchedAt: fetchedAt}
		var last float64
		for j, column := range raw.Marketdata.Columns {
			ok := true
			switch column {
			case "SECID":
				quote.Symbol, ok = row[j].(string)
			case "MARKETPRICE":
				quote.Price, ok = optionalFloat(row[j])
			case "LAST":
				last, ok = optionalFloat(row[j])
			default:
				return nil, fmt.Errorf("unknown column %s", column)
			}

			if !ok {
				return nil, fmt.Errorf("invalid type %s = %v", column, row[j])
			}
		}

		if quote.Price <= 0 {
			quote.Price = last
		}
		quotes[quote.Symbol] = quote
	}

	for _, row := range raw.Securities.Data {
		if len(row) != len(raw.Securities.Columns) {
			return nil, errors.New("invalid securities")
		}

		var symbol, shortName, currency string
		for j, column := range raw.Securities.Columns {
			ok := true
			switch column {
			case "SECID":
				symbol, ok = row[j].(string)
			case "SHORTNAME":
				shortName, ok = row[j].(string)
			case "CURRENCYID":
				currency, ok = row[j].(string)
				if ok && currency == "SUR" {
					currency = "RUB"
				}
			default:
				return nil, fmt.Errorf("unknown column %s", column)
			}

			if !ok {
				return nil, fmt.Errorf("invalid type %s = %v", column, row[j])
			}
		}

		quote, found := quotes[symbol]
		if !found {
			continue
		}
		quote.ShortName = shortName
		quote.Currency = currency
		quotes[symbol] = quote
	}

	return quotes, nil
}

// optionalFloat treats a JSON null as a missing price.
func optionalFloat(v any) (float64, bool) {
	if v == nil {
		return 0, true
	}
	f, ok := v.(float64)
	return f, ok
}
