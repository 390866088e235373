package marketdata

import (
	"context"
	"fmt"
	"sort"

	"evergreen/src/connectors"
	"evergreen/src/model"
	"evergreen/src/strategy"
	"evergreen/src/utils"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// Source is the public market data part of the Upbit client.
type Source interface {
	GetDayCandles(ctx context.Context, market string, count int) ([]connectors.UpbitDayCandle, error)
	GetTickers(ctx context.Context, markets ...string) ([]connectors.UpbitTicker, error)
}

// PriceCache is a push fed last-price cache, such as the websocket ticker stream.
type PriceCache interface {
	LastPrice(market string) (float64, bool)
}

// Service turns raw Upbit daily candles into the strategy's candle series.
type Service struct {
	source   Source
	registry *strategy.Registry
	params   *strategy.ParamResolver
	config   Config
	prices   PriceCache
}

// NewService builds the normalizer. prices may be nil when the websocket feed is off.
func NewService(source Source, registry *strategy.Registry, params *strategy.ParamResolver, config Config, prices PriceCache) *Service {
	return &Service{source: source, registry: registry, params: params, config: config, prices: prices}
}

// RequiredCandles is max(CANDLE_COUNT, warmup+2) for the active strategy.
func (s *Service) RequiredCandles() (int, error) {
	warmup, err := s.registry.RequiredWarmupCandles(s.params.ActiveVersion(), s.params.Active())
	if err != nil {
		return 0, err
	}
	required := warmup + 2
	if s.config.CandleCount > required {
		required = s.config.CandleCount
	}
	return required, nil
}

// FetchDailyCandles returns valid candles for market in ascending time order.
func (s *Service) FetchDailyCandles(ctx context.Context, market string) ([]strategy.Candle, error) {
	required, err := s.RequiredCandles()
	if err != nil {
		return nil, err
	}

	rows, err := s.source.GetDayCandles(ctx, market, required)
	if err != nil {
		return nil, fmt.Errorf("fetch day candles %s: %w", market, err)
	}
	if len(rows) == 0 {
		logger.WithFields(map[string]interface{}{
			"market":         market,
			"required_count": required,
		}).Warn("No daily candles received from exchange")

		return []strategy.Candle{}, nil
	}

	candles := NormalizeCandles(market, rows)
	if len(candles) == 0 {
		logger.WithFields(map[string]interface{}{
			"market":    market,
			"raw_count": len(rows),
		}).Warn("No valid daily candles after normalization")
	}
	return candles, nil
}

// NormalizeCandles drops incomplete or unparsable rows, defaults a missing volume to
// zero and sorts ascending by timestamp.
func NormalizeCandles(market string, rows []connectors.UpbitDayCandle) []strategy.Candle {
	candles := make([]strategy.Candle, 0, len(rows))
	for _, row := range rows {
		if row.CandleDateTimeUTC == "" || !row.OpeningPrice.Valid || !row.HighPrice.Valid ||
			!row.LowPrice.Valid || !row.TradePrice.Valid {
			continue
		}
		ts, err := utils.ParseUTCLocal(row.CandleDateTimeUTC)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"market":               market,
				"candle_date_time_utc": row.CandleDateTimeUTC,
			}).WithError(err).Warn("Failed to parse day candle row")
			continue
		}

		volume := 0.0
		if row.CandleAccTradeVolume.Valid {
			volume = row.CandleAccTradeVolume.Decimal.InexactFloat64()
		}
		candles = append(candles, strategy.Candle{
			Timestamp: ts,
			Open:      row.OpeningPrice.Decimal.InexactFloat64(),
			High:      row.HighPrice.Decimal.InexactFloat64(),
			Low:       row.LowPrice.Decimal.InexactFloat64(),
			Close:     row.TradePrice.Decimal.InexactFloat64(),
			Volume:    volume,
		})
	}

	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
	return candles
}

// ToCandle1d maps exchange rows to storage rows, skipping rows NormalizeCandles would drop.
func ToCandle1d(market string, rows []connectors.UpbitDayCandle) []model.Candle1d {
	out := make([]model.Candle1d, 0, len(rows))
	for _, row := range rows {
		if !row.OpeningPrice.Valid || !row.HighPrice.Valid || !row.LowPrice.Valid || !row.TradePrice.Valid {
			continue
		}
		ts, err := utils.ParseUTCLocal(row.CandleDateTimeUTC)
		if err != nil {
			continue
		}
		volume := decimal.Zero
		if row.CandleAccTradeVolume.Valid {
			volume = row.CandleAccTradeVolume.Decimal
		}
		out = append(out, model.Candle1d{
			Symbol:     market,
			CandleDate: utils.UTCDate(ts),
			Open:       row.OpeningPrice.Decimal,
			High:       row.HighPrice.Decimal,
			Low:        row.LowPrice.Decimal,
			Close:      row.TradePrice.Decimal,
			Volume:     volume,
		})
	}
	return out
}

// ResolveSignalIndex picks the candle to evaluate. With closed-candle-only the
// still-forming last candle is skipped. Never below -1.
func (s *Service) ResolveSignalIndex(size int) int {
	idx := size - 1
	if s.config.ClosedCandleOnly {
		idx--
	}
	if idx < -1 {
		return -1
	}
	return idx
}

// ResolveLivePrice prefers a fresh websocket price, then the REST ticker, then
// fallbackClose when it is positive. Lookup errors are not returned.
func (s *Service) ResolveLivePrice(ctx context.Context, market string, fallbackClose float64) strategy.Value {
	fallback := strategy.None()
	if fallbackClose > 0 {
		fallback = strategy.Some(fallbackClose)
	}

	if s.prices != nil {
		if price, ok := s.prices.LastPrice(market); ok && price > 0 {
			return strategy.Some(price)
		}
	}

	tickers, err := s.source.GetTickers(ctx, market)
	if err != nil {
		logger.WithField("market", market).WithError(err).Debug("Failed to resolve live price")
		return fallback
	}
	if len(tickers) == 0 || !tickers[0].TradePrice.Valid {
		return fallback
	}
	price := tickers[0].TradePrice.Decimal.InexactFloat64()
	if price <= 0 {
		return fallback
	}
	return strategy.Some(price)
}

// NormalizeMarket trims and upper-cases a market code.
func NormalizeMarket(market string) string {
	return utils.NormalizeMarket(market)
}
