package signal

import (
	"context"
	"sync"
	"testing"
	"time"

	"evergreen/src/database"
	"evergreen/src/metrics"
	"evergreen/src/model"
	"evergreen/src/repository"
	"evergreen/src/strategy"
	"evergreen/src/trading"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(n int) time.Time { return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC) }

func newTestRepos(t *testing.T) *repository.Repositories {
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

// fakeTrader records signal requests and answers with a filled order.
type fakeTrader struct {
	mu         sync.Mutex
	requests   []trading.SignalExecuteRequest
	refreshed  []string
	execErr    error
	refreshErr error
	avgPrice   decimal.Decimal
}

func (f *fakeTrader) ExecuteSignal(ctx context.Context, req trading.SignalExecuteRequest) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.execErr != nil {
		return nil, f.execErr
	}
	return &model.Order{
		ClientOrderID:    "cid-" + req.SignalTimestamp,
		Symbol:           req.Market,
		Side:             req.Side,
		Mode:             req.Mode,
		Status:           model.OrderStatusFilled,
		ExecutedVolume:   decimal.Zero,
		AvgExecutedPrice: f.avgPrice,
		FeeAmount:        decimal.Zero,
	}, nil
}

func (f *fakeTrader) RefreshActiveOrders(ctx context.Context, market string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed = append(f.refreshed, market)
	return 0, f.refreshErr
}

type fakeSyncer struct {
	calls [][]string
	err   error
}

func (f *fakeSyncer) Sync(ctx context.Context, markets []string) error {
	f.calls = append(f.calls, markets)
	return f.err
}

// fakeMarketData serves canned candles per market.
type fakeMarketData struct {
	candles   map[string][]strategy.Candle
	errs      map[string]error
	livePrice strategy.Value
	fetched   []string
}

func (f *fakeMarketData) FetchDailyCandles(ctx context.Context, market string) ([]strategy.Candle, error) {
	f.fetched = append(f.fetched, market)
	if err := f.errs[market]; err != nil {
		return nil, err
	}
	return f.candles[market], nil
}

func (f *fakeMarketData) ResolveSignalIndex(size int) int {
	if size-2 < -1 {
		return -1
	}
	return size - 2
}

func (f *fakeMarketData) ResolveLivePrice(ctx context.Context, market string, fallbackClose float64) strategy.Value {
	if f.livePrice.OK {
		return f.livePrice
	}
	return strategy.Some(fallbackClose)
}

type stubParams struct{}

func (stubParams) Version() string { return "stub" }
func (stubParams) Validate() error { return nil }

// stubEngine returns a fixed decision and keeps every input it saw.
type stubEngine struct {
	decision strategy.Decision
	inputs   []strategy.Input
}

func (e *stubEngine) Version() string { return "stub" }

func (e *stubEngine) RequiredWarmupCandles(params strategy.Params) (int, error) { return 1, nil }

func (e *stubEngine) Evaluate(input strategy.Input) (strategy.Evaluation, error) {
	e.inputs = append(e.inputs, input)
	return strategy.Evaluation{
		Decision:      e.decision,
		PrevRegime:    strategy.RegimeBear,
		CurrentRegime: strategy.RegimeBull,
		Diagnostics: []strategy.Diagnostic{
			strategy.NumberDiagnostic("atr.value", "ATR", strategy.None()),
		},
	}, nil
}

func candlesWithCloses(closes ...float64) []strategy.Candle {
	out := make([]strategy.Candle, len(closes))
	for i, c := range closes {
		out[i] = strategy.Candle{Timestamp: day(i + 1), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return out
}

func counterValue(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	total := 0.0
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}
