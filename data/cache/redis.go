package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/whizrock/ledger/config"
	"github.com/whizrock/ledger/internal/model"
	"github.com/whizrock/ledger/internal/model/moexModel"
	"github.com/whizrock/ledger/utils"
)

var ErrNotFound = errors.New("not found in cache")

const quoteKeyPrefix = "quote:"

// RedisCache keeps manual prices in a hash and fetched quotes under expiring keys.
type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func (r *RedisCache) updatedKey() string {
	return r.cfg.Prices.Key + ":updated_at"
}

// GetPrices returns every stored price and when any of them last changed.
// lastUpdated is zero when nothing was ever stored.
func (r *RedisCache) GetPrices(ctx context.Context) (prices model.Prices, lastUpdated time.Time, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisCache.GetPrices"

	slog.Debug("GetPrices start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("GetPrices failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	raw, err := r.redis.HGetAll(ctx, r.cfg.Prices.Key).Result()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("hgetall: %w", err)
	}

	prices = make(model.Prices, len(raw))
	for symbol, value := range raw {
		price, parseErr := strconv.ParseFloat(value, 64)
		if parseErr != nil {
			slog.Warn(
				"skip unparsable price",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("symbol", symbol),
				slog.String("value", value),
			)
			continue
		}
		prices[symbol] = price
	}

	updated, err := r.redis.Get(ctx, r.updatedKey()).Result()
	if errors.Is(err, redis.Nil) {
		return prices, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("get updated_at: %w", err)
	}

	lastUpdated, err = time.Parse(time.RFC3339, updated)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return prices, lastUpdated, nil
}

func (r *RedisCache) SetPrice(ctx context.Context, symbol string, price float64) error {
	return r.SetPrices(ctx, model.Prices{symbol: price})
}

// SetPrices stores prices under upper-case symbols and bumps the update timestamp.
func (r *RedisCache) SetPrices(ctx context.Context, prices model.Prices) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisCache.SetPrices"

	slog.Debug("SetPrices start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(prices)))
	defer func() {
		if err != nil {
			slog.Error("SetPrices failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if len(prices) == 0 {
		return nil
	}

	values := make(map[string]any, len(prices))
	for symbol, price := range prices {
		values[strings.ToUpper(strings.TrimSpace(symbol))] = strconv.FormatFloat(price, 'f', -1, 64)
	}

	pipe := r.redis.TxPipeline()
	pipe.HSet(ctx, r.cfg.Prices.Key, values)
	pipe.Set(ctx, r.updatedKey(), time.Now().UTC().Format(time.RFC3339), 0)

	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipe.Exec: %w", err)
	}

	return nil
}

func (r *RedisCache) SetQuotes(ctx context.Context, quotes map[string]moexModel.Quote) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start SetQuotes", slog.String("rqID", rqID), slog.Int("count", len(quotes)))

	pipe := r.redis.Pipeline()
	for symbol, quote := range quotes {
		quoteJson, err := json.Marshal(quote)
		if err != nil {
			slog.Error(
				"can't marshall quote in SetQuotes",
				slog.String("rqID", rqID),
				slog.String("err", err.Error()),
				slog.Any("quote", quote),
			)
			return errors.New("can't marshall quote")
		}

		pipe.Set(ctx, quoteKeyPrefix+strings.ToUpper(symbol), quoteJson, r.cfg.Prices.QuoteExpiration)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("failed on pipe.Exec", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetQuotes completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetQuote(ctx context.Context, symbol string) (moexModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	key := quoteKeyPrefix + strings.ToUpper(symbol)

	res, err := r.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return moexModel.Quote{}, ErrNotFound
	}
	if err != nil {
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return moexModel.Quote{}, err
	}

	quote := moexModel.Quote{}
	if err = json.Unmarshal([]byte(res), &quote); err != nil {
		slog.Error(
			"can't unmarshall quote in GetQuote",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return moexModel.Quote{}, errors.New("can't unmarshall quote")
	}

	return quote, nil
}
