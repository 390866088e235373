package trading

import (
	"context"
	"errors"
	"testing"
	"time"

	"evergreen/src/connectors"
	"evergreen/src/metrics"
	"evergreen/src/model"
	"evergreen/src/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test index
// - balances and order chance mapping
// - paper market buy: unit price, fill, fee, position, audit
// - paper cancel of a filled order conflicts
// - live market buy sized from spendable KRW
// - live order blocked by the guard creates nothing
// - live submission failure marks the order FAILED
// - live market sell reference price priority
// - live cancel/get paths
// - signal reason stamping
// - active order refresh

func newTestService(t *testing.T, ex *fakeExchange, mode model.ExecutionMode) (*ExecutionService, *repository.Repositories) {
	t.Helper()
	repos := newTestRepos(t)
	m := metrics.New()
	guard := NewGuardService(repos, ex, mode, m)
	return NewExecutionService(repos, ex, guard, NewReconciler(repos, m), d("0.0005"), m), repos
}

func requireTradingError(t *testing.T, err error, kind Kind, code string) *Error {
	t.Helper()
	var te *Error
	require.True(t, errors.As(err, &te), "expected *Error, got %v", err)
	assert.Equal(t, kind, te.Kind)
	assert.Equal(t, code, te.Code)
	return te
}

func TestGetBalancesAndChance(t *testing.T) {
	ex := &fakeExchange{
		accounts: []connectors.UpbitAccount{
			{Currency: "KRW", Balance: "1000.5", Locked: "0", UnitCurrency: "KRW"},
			{Currency: "BTC", Balance: "0.1", Locked: "0.02", AvgBuyPrice: "50000000", UnitCurrency: "KRW"},
		},
		chance: &connectors.UpbitOrderChance{
			BidFee:     "0.0005",
			AskFee:     "0.0005",
			BidAccount: &connectors.UpbitAccount{Balance: "1000"},
			Market:     &connectors.UpbitChanceMarket{MaxTotal: []byte(`"1000000000"`)},
		},
	}
	svc, _ := newTestService(t, ex, model.ExecutionModeLive)
	ctx := context.Background()

	all, err := svc.GetBalances(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	btc, err := svc.GetBalances(ctx, "btc")
	require.NoError(t, err)
	require.Len(t, btc, 1)
	assert.True(t, btc[0].Locked.Equal(d("0.02")))

	chance, err := svc.GetOrderChance(ctx, "KRW-BTC")
	require.NoError(t, err)
	assert.True(t, chance.BidBalance.Equal(d("1000")))
	assert.True(t, chance.AskBalance.IsZero())
	assert.True(t, chance.MaxTotal.Equal(d("1000000000")))

	ex.accountsErr = &connectors.UpbitAPIError{StatusCode: 401, Body: "unauthorized"}
	_, err = svc.GetBalances(ctx, "")
	te := requireTradingError(t, err, KindUpstream, CodeUpbitError)
	assert.Equal(t, 401, te.Status)
	assert.Equal(t, 401, te.UpstreamStatus)
	assert.Equal(t, "unauthorized", te.Message)
}

func TestCreatePaperMarketBuy(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExchange{}
	svc, repos := newTestService(t, ex, model.ExecutionModePaper)

	order, err := svc.CreateOrder(ctx, CreateOrderRequest{
		Market: "krw-btc", Side: model.OrderSideBuy, OrderType: model.OrderTypeMarketBuy,
		Mode: model.ExecutionModePaper, Quantity: nd("0.002"), Price: nd("100000"),
	})
	require.NoError(t, err)

	assert.Equal(t, "KRW-BTC", order.Symbol)
	assert.Equal(t, model.OrderStatusFilled, order.Status)
	assert.True(t, order.Price.Decimal.Equal(d("50000000")), "unit price %s", order.Price.Decimal)
	assert.True(t, order.ExecutedVolume.Equal(d("0.002")))
	assert.True(t, order.FeeAmount.Equal(d("50")), "fee %s", order.FeeAmount)
	assert.Empty(t, ex.created)

	fills, err := repos.Fills.FindByClientOrderID(ctx, order.ClientOrderID)
	require.NoError(t, err)
	assert.Len(t, fills, 1)

	pos, err := repos.Positions.FindBySymbol(ctx, "KRW-BTC")
	require.NoError(t, err)
	assert.True(t, pos.Qty.Equal(d("0.002")))
	assert.Equal(t, model.PositionStateLong, pos.State)

	events, err := repos.Audit.FindByType(ctx, model.AuditPaperOrderExecuted)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "clientOrderId="+order.ClientOrderID, events[0].Payload)

	_, err = svc.CancelOrder(ctx, order.ClientOrderID)
	requireTradingError(t, err, KindConflict, CodeCannotCancel)
}

func TestCreatePaperSellFloorsPosition(t *testing.T) {
	ctx := context.Background()
	svc, repos := newTestService(t, &fakeExchange{}, model.ExecutionModePaper)

	_, err := svc.CreateOrder(ctx, CreateOrderRequest{
		Market: "KRW-ETH", Side: model.OrderSideBuy, OrderType: model.OrderTypeLimit,
		Mode: model.ExecutionModePaper, Quantity: nd("1"), Price: nd("100"),
	})
	require.NoError(t, err)
	_, err = svc.CreateOrder(ctx, CreateOrderRequest{
		Market: "KRW-ETH", Side: model.OrderSideSell, OrderType: model.OrderTypeMarketSell,
		Mode: model.ExecutionModePaper, Quantity: nd("3"), Price: nd("120"),
	})
	require.NoError(t, err)

	pos, err := repos.Positions.FindBySymbol(ctx, "KRW-ETH")
	require.NoError(t, err)
	assert.True(t, pos.Qty.IsZero())
	assert.True(t, pos.AvgPrice.IsZero())
}

func TestCreateLiveMarketBuySizedFromBalance(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExchange{
		chance:     &connectors.UpbitOrderChance{BidAccount: &connectors.UpbitAccount{Balance: "10000.9"}},
		createResp: &connectors.UpbitOrder{UUID: "ex-1", State: "wait", ExecutedVolume: "0"},
	}
	svc, repos := newTestService(t, ex, model.ExecutionModeLive)

	order, err := svc.CreateOrder(ctx, CreateOrderRequest{
		Market: "KRW-BTC", Side: model.OrderSideBuy, OrderType: model.OrderTypeMarketBuy, Mode: model.ExecutionModeLive,
	})
	require.NoError(t, err)

	// 10000.9 * 0.9995 = 9995.89955 -> 9995
	assert.True(t, order.RequestedNotional.Equal(d("9995")), "notional %s", order.RequestedNotional)
	assert.Equal(t, model.OrderStatusSubmitted, order.Status)
	assert.Equal(t, "ex-1", order.ExchangeOrderID)

	require.Len(t, ex.created, 1)
	assert.Equal(t, connectors.UpbitOrderRequest{
		Market: "KRW-BTC", Side: "bid", OrdType: "price", Price: "9995", Identifier: order.ClientOrderID,
	}, ex.created[0])

	events, err := repos.Audit.FindByType(ctx, model.AuditLiveOrderSubmitted)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	// the submitted order now blocks the market
	_, err = svc.CreateOrder(ctx, CreateOrderRequest{
		Market: "KRW-BTC", Side: model.OrderSideBuy, OrderType: model.OrderTypeMarketBuy, Mode: model.ExecutionModeLive,
	})
	te := requireTradingError(t, err, KindConflict, CodeOrderBlocked)
	assert.Contains(t, te.Message, GuardReasonLocalActiveOrder)
}

func TestCreateLiveBlockedByExternalOrder(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExchange{openOrders: []connectors.UpbitOrder{{UUID: "manual"}}}
	svc, repos := newTestService(t, ex, model.ExecutionModeLive)

	_, err := svc.CreateOrder(ctx, CreateOrderRequest{
		Market: "KRW-BTC", Side: model.OrderSideSell, OrderType: model.OrderTypeMarketSell,
		Mode: model.ExecutionModeLive, Quantity: nd("1"),
	})
	te := requireTradingError(t, err, KindConflict, CodeOrderBlocked)
	assert.Equal(t, 409, te.Status)

	orders, err := repos.Orders.FindBySymbolAndMode(ctx, "KRW-BTC", model.ExecutionModeLive)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, ex.created)
}

func TestCreateLiveSubmissionFailureMarksFailed(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExchange{
		chance:    &connectors.UpbitOrderChance{AskAccount: &connectors.UpbitAccount{Balance: "2", AvgBuyPrice: "100"}},
		createErr: &connectors.UpbitAPIError{StatusCode: 400, Body: `{"error":{"name":"under_min_total_ask"}}`},
	}
	svc, repos := newTestService(t, ex, model.ExecutionModeLive)

	_, err := svc.CreateOrder(ctx, CreateOrderRequest{
		Market: "KRW-BTC", Side: model.OrderSideSell, OrderType: model.OrderTypeMarketSell,
		Mode: model.ExecutionModeLive, Quantity: nd("1.50"),
	})
	te := requireTradingError(t, err, KindUpstream, CodeUpbitError)
	assert.Equal(t, 400, te.Status)

	require.Len(t, ex.created, 1)
	assert.Equal(t, "market", ex.created[0].OrdType)
	assert.Equal(t, "1.5", ex.created[0].Volume)
	assert.Empty(t, ex.created[0].Price)

	orders, err := repos.Orders.FindBySymbolAndMode(ctx, "KRW-BTC", model.ExecutionModeLive)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, model.OrderStatusFailed, orders[0].Status)
	assert.True(t, orders[0].RequestedNotional.Equal(d("150")))
}

func TestLiveMarketSellReferencePrice(t *testing.T) {
	ctx := context.Background()
	req := CreateOrderRequest{
		Market: "KRW-BTC", Side: model.OrderSideSell, OrderType: model.OrderTypeMarketSell,
		Mode: model.ExecutionModeLive, Quantity: nd("2"),
	}

	t.Run("ticker price when no average buy price", func(t *testing.T) {
		ex := &fakeExchange{
			chance:     &connectors.UpbitOrderChance{AskAccount: &connectors.UpbitAccount{Balance: "2"}},
			tickers:    []connectors.UpbitTicker{{Market: "KRW-BTC", TradePrice: decimal.NewNullDecimal(d("300"))}},
			createResp: &connectors.UpbitOrder{UUID: "ex", State: "wait"},
		}
		svc, _ := newTestService(t, ex, model.ExecutionModeLive)
		order, err := svc.CreateOrder(ctx, req)
		require.NoError(t, err)
		assert.True(t, order.RequestedNotional.Equal(d("600")))
		assert.Equal(t, 1, ex.tickersCalls)
	})

	t.Run("no reference price at all", func(t *testing.T) {
		ex := &fakeExchange{chance: &connectors.UpbitOrderChance{AskAccount: &connectors.UpbitAccount{Balance: "2"}}}
		svc, _ := newTestService(t, ex, model.ExecutionModeLive)
		_, err := svc.CreateOrder(ctx, req)
		requireTradingError(t, err, KindConstraintViolation, CodeMissingReferencePrice)
		assert.Empty(t, ex.created)
	})

	t.Run("insufficient asset balance", func(t *testing.T) {
		ex := &fakeExchange{chance: &connectors.UpbitOrderChance{AskAccount: &connectors.UpbitAccount{Balance: "1", AvgBuyPrice: "10"}}}
		svc, _ := newTestService(t, ex, model.ExecutionModeLive)
		_, err := svc.CreateOrder(ctx, req)
		requireTradingError(t, err, KindConstraintViolation, CodeInsufficientBalance)
	})

	t.Run("empty KRW balance cannot buy", func(t *testing.T) {
		ex := &fakeExchange{chance: &connectors.UpbitOrderChance{BidAccount: &connectors.UpbitAccount{Balance: "0.5"}}}
		svc, _ := newTestService(t, ex, model.ExecutionModeLive)
		_, err := svc.CreateOrder(ctx, CreateOrderRequest{
			Market: "KRW-BTC", Side: model.OrderSideBuy, OrderType: model.OrderTypeMarketBuy, Mode: model.ExecutionModeLive,
		})
		requireTradingError(t, err, KindConstraintViolation, CodeInsufficientBalance)
	})
}

func TestCancelAndGetLiveOrder(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExchange{
		cancelResp: &connectors.UpbitOrder{UUID: "ex-9", State: "cancel", ExecutedVolume: "0"},
		orders: map[string]*connectors.UpbitOrder{
			"ex-9": {UUID: "ex-9", State: "cancel", ExecutedVolume: "0"},
		},
	}
	svc, repos := newTestService(t, ex, model.ExecutionModeLive)

	noID := &model.Order{ClientOrderID: "no-id", Symbol: "KRW-BTC", Side: model.OrderSideBuy, OrderType: model.OrderTypeLimit,
		Mode: model.ExecutionModeLive, Status: model.OrderStatusCreated, CreatedAt: time.Now().UTC()}
	require.NoError(t, repos.Orders.Create(ctx, noID))
	_, err := svc.CancelOrder(ctx, "no-id")
	requireTradingError(t, err, KindConflict, CodeMissingExchangeID)

	withID := &model.Order{ClientOrderID: "with-id", ExchangeOrderID: "ex-9", Symbol: "KRW-BTC", Side: model.OrderSideBuy,
		OrderType: model.OrderTypeLimit, Mode: model.ExecutionModeLive, Status: model.OrderStatusSubmitted, CreatedAt: time.Now().UTC()}
	require.NoError(t, repos.Orders.Create(ctx, withID))

	canceled, err := svc.CancelOrder(ctx, "with-id")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCanceled, canceled.Status)
	assert.Equal(t, []string{"ex-9"}, ex.cancelCalls)

	got, err := svc.GetOrder(ctx, "with-id")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCanceled, got.Status)
	assert.Equal(t, []string{"ex-9"}, ex.getCalls)

	_, err = svc.GetOrder(ctx, "missing")
	te := requireTradingError(t, err, KindNotFound, CodeOrderNotFound)
	assert.Equal(t, 404, te.Status)
}

func TestPaperCancelAndGet(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExchange{}
	svc, repos := newTestService(t, ex, model.ExecutionModePaper)

	o := &model.Order{ClientOrderID: "p1", Symbol: "KRW-BTC", Side: model.OrderSideBuy, OrderType: model.OrderTypeLimit,
		Mode: model.ExecutionModePaper, Status: model.OrderStatusCreated, CreatedAt: time.Now().UTC()}
	require.NoError(t, repos.Orders.Create(ctx, o))

	got, err := svc.GetOrder(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCreated, got.Status)

	canceled, err := svc.CancelOrder(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCanceled, canceled.Status)
	assert.Empty(t, ex.getCalls)
}

func TestExecuteSignalStampsReason(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeExchange{}, model.ExecutionModePaper)

	base := SignalExecuteRequest{
		Market: "KRW-BTC", Side: model.OrderSideBuy, OrderType: model.OrderTypeMarketBuy,
		Mode: model.ExecutionModePaper, Quantity: nd("1"), Price: nd("100"),
	}

	plainSignal, err := svc.ExecuteSignal(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, "signal", plainSignal.Reason)

	base.SignalTimestamp = "2024-01-01T00:00:00Z"
	stamped, err := svc.ExecuteSignal(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, "signal:2024-01-01T00:00:00Z", stamped.Reason)
}

func TestRefreshActiveOrders(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExchange{orders: map[string]*connectors.UpbitOrder{
		"ex-1": {UUID: "ex-1", State: "done", ExecutedVolume: "1", Trades: []connectors.UpbitTrade{
			{UUID: "t", Price: "10", Volume: "1", Funds: "10", CreatedAt: "2024-01-01T00:00:00Z"},
		}},
	}}
	svc, repos := newTestService(t, ex, model.ExecutionModeLive)

	require.NoError(t, repos.Orders.Create(ctx, &model.Order{ClientOrderID: "r1", ExchangeOrderID: "ex-1", Symbol: "KRW-BTC",
		Side: model.OrderSideBuy, OrderType: model.OrderTypeMarketBuy, Mode: model.ExecutionModeLive,
		Status: model.OrderStatusSubmitted, CreatedAt: time.Now().UTC()}))

	n, err := svc.RefreshActiveOrders(ctx, "KRW-BTC")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	active, err := repos.Orders.ExistsActive(ctx, model.ExecutionModeLive, "KRW-BTC")
	require.NoError(t, err)
	assert.False(t, active)
}
