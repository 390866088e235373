package signal

import (
	"context"
	"fmt"
	"time"

	"evergreen/src/metrics"
	"evergreen/src/model"
	"evergreen/src/strategy"
	"evergreen/src/trading"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// paperQtyScale is the precision of a paper buy quantity derived from the notional.
const paperQtyScale = 12

// SignalExecutor is the part of the execution service the submitter drives.
type SignalExecutor interface {
	ExecuteSignal(ctx context.Context, req trading.SignalExecuteRequest) (*model.Order, error)
}

// Submitter turns strategy decisions into signal orders, at most once per
// market, side and candle.
type Submitter struct {
	executor SignalExecutor
	store    Store
	mode     model.ExecutionMode
	notional decimal.Decimal
	minQty   decimal.Decimal
	metrics  *metrics.Metrics
}

func NewSubmitter(executor SignalExecutor, store Store, mode model.ExecutionMode, config Config, m *metrics.Metrics) *Submitter {
	return &Submitter{
		executor: executor,
		store:    store,
		mode:     mode,
		notional: config.SignalOrderNotional,
		minQty:   config.MinPositionQty,
		metrics:  m,
	}
}

// SubmitBuy sends a MARKET_BUY for the signal candle. A nil order with a nil error
// means the signal was skipped.
func (s *Submitter) SubmitBuy(ctx context.Context, market string, candle strategy.Candle) (*model.Order, error) {
	duplicate, err := s.isDuplicate(ctx, market, model.OrderSideBuy, candle.Timestamp)
	if err != nil || duplicate {
		return nil, err
	}

	req := trading.SignalExecuteRequest{
		Market:          market,
		Side:            model.OrderSideBuy,
		OrderType:       model.OrderTypeMarketBuy,
		Mode:            s.mode,
		SignalTimestamp: formatSignalTime(candle.Timestamp),
	}

	if s.mode == model.ExecutionModePaper {
		closePrice := decimal.NewFromFloat(candle.Close)
		if !closePrice.IsPositive() {
			logger.WithFields(map[string]interface{}{
				"market": market,
				"close":  candle.Close,
			}).Warn("Skipping buy signal due to non-positive close price")
			return nil, nil
		}
		qty := s.notional.DivRound(closePrice, paperQtyScale+4).RoundDown(paperQtyScale)
		if !qty.IsPositive() {
			logger.WithFields(map[string]interface{}{
				"market":   market,
				"notional": s.notional.String(),
				"close":    candle.Close,
			}).Warn("Skipping buy signal due to non-positive paper quantity")
			return nil, nil
		}
		req.Quantity = decimal.NewNullDecimal(qty)
		req.Price = decimal.NewNullDecimal(s.notional)
	}

	return s.submit(ctx, candle, req)
}

// SubmitSell sends a MARKET_SELL for the whole position.
func (s *Submitter) SubmitSell(ctx context.Context, market string, candle strategy.Candle, positionQty decimal.Decimal) (*model.Order, error) {
	duplicate, err := s.isDuplicate(ctx, market, model.OrderSideSell, candle.Timestamp)
	if err != nil || duplicate {
		return nil, err
	}
	if !positionQty.GreaterThan(s.minQty) {
		return nil, nil
	}

	req := trading.SignalExecuteRequest{
		Market:          market,
		Side:            model.OrderSideSell,
		OrderType:       model.OrderTypeMarketSell,
		Quantity:        decimal.NewNullDecimal(positionQty),
		Mode:            s.mode,
		SignalTimestamp: formatSignalTime(candle.Timestamp),
	}
	if s.mode == model.ExecutionModePaper {
		req.Price = decimal.NewNullDecimal(decimal.NewFromFloat(candle.Close))
	}

	return s.submit(ctx, candle, req)
}

func (s *Submitter) isDuplicate(ctx context.Context, market string, side model.OrderSide, ts time.Time) (bool, error) {
	last, ok, err := s.store.LastSubmitted(ctx, market, side)
	if err != nil {
		return false, fmt.Errorf("load last %s signal for %s: %w", side, market, err)
	}
	return ok && last.Equal(ts), nil
}

func (s *Submitter) submit(ctx context.Context, candle strategy.Candle, req trading.SignalExecuteRequest) (*model.Order, error) {
	order, err := s.executor.ExecuteSignal(ctx, req)
	if err != nil {
		return nil, err
	}
	s.metrics.SignalSubmitted(string(req.Side))

	executed := strategy.None()
	if order.AvgExecutedPrice.IsPositive() {
		executed = strategy.Some(order.AvgExecutedPrice.InexactFloat64())
	}
	slippage := SlippagePct(candle.Close, executed.Or(0))

	logger.WithFields(map[string]interface{}{
		"event":           "trade_execution",
		"market":          req.Market,
		"side":            req.Side,
		"signal_ts":       req.SignalTimestamp,
		"signal_close":    candle.Close,
		"client_order_id": order.ClientOrderID,
		"order_status":    order.Status,
		"mode":            order.Mode,
		"executed_price":  logValue(executed),
		"executed_volume": order.ExecutedVolume.String(),
		"fee_amount":      order.FeeAmount.String(),
		"slippage_pct":    logValue(slippage),
		"slippage_bps":    logValue(slippage.Mul(100)),
	}).Info("Signal order submitted")

	if err := s.store.RecordSubmitted(ctx, req.Market, req.Side, candle.Timestamp); err != nil {
		logger.WithFields(map[string]interface{}{
			"market": req.Market,
			"side":   req.Side,
		}).WithError(err).Warn("Failed to record submitted signal")
	}
	return order, nil
}

func formatSignalTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}
