package candles

import (
	"context"
	"errors"
	"testing"

	"evergreen/src/connectors"
	"evergreen/src/database"
	"evergreen/src/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	rows  map[string][]connectors.UpbitDayCandle
	errs  map[string]error
	count int
}

func (f *fakeSource) GetDayCandles(ctx context.Context, market string, count int) ([]connectors.UpbitDayCandle, error) {
	f.count = count
	return f.rows[market], f.errs[market]
}

func num(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func row(market, ts, closePrice string) connectors.UpbitDayCandle {
	return connectors.UpbitDayCandle{
		Market:               market,
		CandleDateTimeUTC:    ts,
		OpeningPrice:         num("100"),
		HighPrice:            num("120"),
		LowPrice:             num("90"),
		TradePrice:           num(closePrice),
		CandleAccTradeVolume: num("3.5"),
	}
}

func setupRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	db, err := database.Open(database.Config{
		DatabaseDriver:  database.DriverSQLite,
		DatabaseURLMain: ":memory:",
		GormLogLevel:    1,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return repository.NewRepositoriesWithDB(db)
}

func TestBackfillStoresAndRefreshesCandles(t *testing.T) {
	repos := setupRepos(t)
	src := &fakeSource{rows: map[string][]connectors.UpbitDayCandle{
		"KRW-BTC": {
			row("KRW-BTC", "2024-01-02T00:00:00", "105"),
			row("KRW-BTC", "2024-01-01T00:00:00", "101"),
			{Market: "KRW-BTC", CandleDateTimeUTC: "2023-12-31T00:00:00"},
		},
	}}
	b := &Backfill{
		Log:     logrus.WithField("cmd", "candles"),
		Source:  src,
		Candles: repos.Candles,
		Config:  &Config{Markets: []string{" krw-btc "}, Count: 3},
	}

	require.NoError(t, b.Start(context.Background()))
	assert.Equal(t, 3, src.count)

	stored, err := repos.Candles.FindRecent(context.Background(), "KRW-BTC", 10)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "2024-01-01", stored[0].CandleDate.Format("2006-01-02"))
	assert.True(t, stored[1].Close.Equal(decimal.NewFromInt(105)))

	// The open day moves; a second run updates it in place.
	src.rows["KRW-BTC"][0] = row("KRW-BTC", "2024-01-02T00:00:00", "110")
	require.NoError(t, b.Start(context.Background()))

	stored, err = repos.Candles.FindRecent(context.Background(), "KRW-BTC", 10)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.True(t, stored[1].Close.Equal(decimal.NewFromInt(110)))
}

func TestBackfillContinuesAfterMarketFailure(t *testing.T) {
	repos := setupRepos(t)
	src := &fakeSource{
		rows: map[string][]connectors.UpbitDayCandle{
			"KRW-ETH": {row("KRW-ETH", "2024-01-01T00:00:00", "101")},
		},
		errs: map[string]error{"KRW-BTC": errors.New("upbit down")},
	}
	b := &Backfill{
		Log:     logrus.WithField("cmd", "candles"),
		Source:  src,
		Candles: repos.Candles,
		Config:  &Config{Markets: []string{"KRW-BTC", "KRW-ETH"}, Count: 1},
	}

	err := b.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upbit down")

	stored, err := repos.Candles.FindRecent(context.Background(), "KRW-ETH", 10)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestBackfillRejectsBadConfig(t *testing.T) {
	b := &Backfill{Log: logrus.WithField("cmd", "candles"), Source: &fakeSource{}, Config: &Config{Markets: []string{"KRW-BTC"}}}
	require.Error(t, b.Start(context.Background()))

	b.Config = &Config{Markets: []string{" "}, Count: 1}
	require.Error(t, b.Start(context.Background()))
}
