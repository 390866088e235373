package candles

import (
	"context"
	"errors"
	"time"

	"evergreen/src/connectors"
	"evergreen/src/marketdata"
	"evergreen/src/repository"
	"evergreen/src/utils"

	logger "github.com/sirupsen/logrus"
)

// Source is the candle endpoint of the Upbit client.
type Source interface {
	GetDayCandles(ctx context.Context, market string, count int) ([]connectors.UpbitDayCandle, error)
}

// Backfill copies daily candles from Upbit into candles_1d. Re-running it refreshes
// rows that already exist, so the still-open day converges to its close.
type Backfill struct {
	Log     *logger.Entry
	Source  Source
	Candles *repository.CandleRepository
	Config  *Config
}

func (b *Backfill) Start(ctx context.Context) error {
	if b.Config == nil {
		b.Config = GetConfig()
	}
	if b.Config.Count <= 0 {
		return errors.New("BACKFILL_COUNT must be positive")
	}

	markets := utils.NormalizeMarkets(b.Config.Markets)
	if len(markets) == 0 {
		return errors.New("no markets to backfill")
	}

	var failed []error
	for _, market := range markets {
		stored, err := b.backfillMarket(ctx, market)
		if err != nil {
			b.Log.WithError(err).WithField("market", market).Error("backfillMarket, ")
			failed = append(failed, err)
			continue
		}

		b.Log.WithFields(logger.Fields{
			"market":    market,
			"stored":    stored,
			"Timestamp": time.Now().UTC(),
		}).Info("Daily candles inserted or updated in database")
	}
	return errors.Join(failed...)
}

func (b *Backfill) backfillMarket(ctx context.Context, market string) (int, error) {
	rows, err := b.Source.GetDayCandles(ctx, market, b.Config.Count)
	if err != nil {
		return 0, err
	}
	candles := marketdata.ToCandle1d(market, rows)
	if err := b.Candles.Upsert(ctx, candles); err != nil {
		return 0, err
	}
	return len(candles), nil
}
