package signal

import (
	"testing"

	"evergreen/src/model"
	"evergreen/src/strategy"

	"github.com/stretchr/testify/assert"
)

func filled(side model.OrderSide, qty, price, fee string) model.Order {
	return model.Order{
		Side:             side,
		Status:           model.OrderStatusFilled,
		ExecutedVolume:   d(qty),
		AvgExecutedPrice: d(price),
		FeeAmount:        d(fee),
	}
}

func TestResolveExecutionMetricsEmpty(t *testing.T) {
	m := ResolveExecutionMetrics(nil)
	assert.Equal(t, 0, m.TradeCount)
	assert.False(t, m.RealizedPnlKrw.OK)
	assert.False(t, m.WinRatePct.OK)
	assert.False(t, m.MaxDrawdownPct.OK)
}

func TestResolveExecutionMetricsRoundTrips(t *testing.T) {
	m := ResolveExecutionMetrics([]model.Order{
		filled(model.OrderSideBuy, "1", "100", "0"),
		filled(model.OrderSideSell, "1", "110", "0"),
		filled(model.OrderSideBuy, "2", "100", "0"),
		filled(model.OrderSideSell, "2", "95", "0"),
	})

	assert.Equal(t, 2, m.TradeCount)
	assert.InDelta(t, 0.0, m.RealizedPnlKrw.V, 1e-9)
	assert.InDelta(t, 0.0, m.RealizedReturnPct.V, 1e-9)
	assert.InDelta(t, 50.0, m.WinRatePct.V, 1e-9)
	assert.InDelta(t, 10.0, m.AvgWinPct.V, 1e-9)
	assert.InDelta(t, 5.0, m.AvgLossPct.V, 1e-9)
	assert.InDelta(t, 2.0, m.RRRatio.V, 1e-9)
	assert.InDelta(t, 2.5, m.ExpectancyPct.V, 1e-9)
	assert.InDelta(t, -5.0, m.MaxDrawdownPct.V, 1e-9)
}

func TestResolveExecutionMetricsFeesAndOversell(t *testing.T) {
	// buy fee raises the cost basis to 101
	m := ResolveExecutionMetrics([]model.Order{
		filled(model.OrderSideBuy, "1", "100", "1"),
		filled(model.OrderSideSell, "1", "101", "0"),
	})
	assert.Equal(t, 1, m.TradeCount)
	assert.InDelta(t, 0.0, m.RealizedPnlKrw.V, 1e-9)
	assert.False(t, m.AvgWinPct.OK)
	assert.False(t, m.AvgLossPct.OK)
	assert.False(t, m.RRRatio.OK)

	// selling 2 against a position of 1 pays half the fee
	m = ResolveExecutionMetrics([]model.Order{
		filled(model.OrderSideBuy, "1", "100", "0"),
		filled(model.OrderSideSell, "2", "110", "2"),
	})
	assert.InDelta(t, 9.0, m.RealizedPnlKrw.V, 1e-9)
	assert.InDelta(t, 9.0, m.RealizedReturnPct.V, 1e-9)
}

func TestResolveExecutionMetricsOpenPositionOnly(t *testing.T) {
	m := ResolveExecutionMetrics([]model.Order{
		filled(model.OrderSideSell, "1", "100", "0"),
		filled(model.OrderSideBuy, "1", "100", "0"),
		filled(model.OrderSideBuy, "0", "100", "0"),
	})
	assert.Equal(t, 0, m.TradeCount)
	assert.True(t, m.RealizedPnlKrw.OK)
	assert.Equal(t, 0.0, m.RealizedPnlKrw.V)
	assert.False(t, m.RealizedReturnPct.OK)
}

func TestUnrealizedAndSlippage(t *testing.T) {
	assert.InDelta(t, 10.0, UnrealizedReturnPct(true, strategy.Some(110), 100).V, 1e-9)
	assert.False(t, UnrealizedReturnPct(false, strategy.Some(110), 100).OK)
	assert.False(t, UnrealizedReturnPct(true, strategy.None(), 100).OK)
	assert.False(t, UnrealizedReturnPct(true, strategy.Some(110), 0).OK)

	assert.InDelta(t, -1.0, SlippagePct(100, 99).V, 1e-9)
	assert.False(t, SlippagePct(0, 99).OK)
	assert.False(t, SlippagePct(100, 0).OK)
}
