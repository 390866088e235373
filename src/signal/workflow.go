package signal

import (
	"context"
	"fmt"
	"time"

	"evergreen/src/metrics"
	"evergreen/src/model"
	"evergreen/src/repository"
	"evergreen/src/strategy"
	"evergreen/src/trading"
	"evergreen/src/utils"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const (
	TickOutcomeOK          = "ok"
	TickOutcomeNoMarkets   = "no_markets"
	TickOutcomeSyncFailed  = "sync_failed"
	TickOutcomeMarketError = "market_error"
)

// MarketData is what a tick needs from the candle normalizer.
type MarketData interface {
	FetchDailyCandles(ctx context.Context, market string) ([]strategy.Candle, error)
	ResolveSignalIndex(size int) int
	ResolveLivePrice(ctx context.Context, market string, fallbackClose float64) strategy.Value
}

// Trader executes signal orders and refreshes in-flight live orders.
type Trader interface {
	SignalExecutor
	RefreshActiveOrders(ctx context.Context, market string) (int, error)
}

// PositionSyncer overwrites local positions with exchange balances.
type PositionSyncer interface {
	Sync(ctx context.Context, markets []string) error
}

// Workflow is one orchestrator tick over the configured markets.
type Workflow struct {
	config     Config
	mode       model.ExecutionMode
	repos      *repository.Repositories
	marketData MarketData
	registry   *strategy.Registry
	params     *strategy.ParamResolver
	trader     Trader
	positions  PositionSyncer
	submitter  *Submitter
	exceptions *repository.ExceptionRepository
	metrics    *metrics.Metrics
	throttle   *logThrottle
}

type WorkflowDeps struct {
	Config     Config
	Mode       model.ExecutionMode
	Repos      *repository.Repositories
	MarketData MarketData
	Registry   *strategy.Registry
	Params     *strategy.ParamResolver
	Trader     Trader
	Positions  PositionSyncer
	Store      Store
	Exceptions *repository.ExceptionRepository
	Metrics    *metrics.Metrics
}

func NewWorkflow(deps WorkflowDeps) *Workflow {
	store := deps.Store
	if store == nil {
		store = NewMemoryStore()
	}
	return &Workflow{
		config:     deps.Config,
		mode:       deps.Mode,
		repos:      deps.Repos,
		marketData: deps.MarketData,
		registry:   deps.Registry,
		params:     deps.Params,
		trader:     deps.Trader,
		positions:  deps.Positions,
		submitter:  NewSubmitter(deps.Trader, store, deps.Mode, deps.Config, deps.Metrics),
		exceptions: deps.Exceptions,
		metrics:    deps.Metrics,
		throttle:   newLogThrottle(candleLogInterval),
	}
}

// RunOnce evaluates every configured market once. A failed position sync aborts the
// tick; a failing market is captured and the remaining markets still run.
func (w *Workflow) RunOnce(ctx context.Context) error {
	start := time.Now()

	markets := utils.NormalizeMarkets(w.config.Markets)
	if len(markets) == 0 {
		w.metrics.TickFinished(TickOutcomeNoMarkets, time.Since(start))
		return nil
	}

	if err := w.positions.Sync(ctx, markets); err != nil {
		logger.WithError(err).Error("Failed to sync exchange positions. Skipping signal evaluation for this cycle.")
		Capture(ctx, w.exceptions, "signal", "workflow", "positions.Sync", "error", err, map[string]interface{}{
			"markets": markets,
		})
		w.metrics.TickFinished(TickOutcomeSyncFailed, time.Since(start))
		return fmt.Errorf("position sync: %w", err)
	}

	outcome := TickOutcomeOK
	for _, market := range markets {
		if ctx.Err() != nil {
			break
		}
		if err := w.evaluateMarket(ctx, market); err != nil {
			outcome = TickOutcomeMarketError
			w.metrics.MarketFailed(market)
			logger.WithField("market", market).WithError(err).Error("Failed to evaluate market")
			Capture(ctx, w.exceptions, "signal", "workflow", "evaluateMarket", "error", err, map[string]interface{}{
				"market": market,
				"mode":   w.mode,
			})
		}
	}

	w.metrics.TickFinished(outcome, time.Since(start))
	return ctx.Err()
}

func (w *Workflow) evaluateMarket(ctx context.Context, market string) error {
	if w.mode == model.ExecutionModeLive {
		if _, err := w.trader.RefreshActiveOrders(ctx, market); err != nil {
			return fmt.Errorf("refresh active orders: %w", err)
		}
	}

	candles, err := w.marketData.FetchDailyCandles(ctx, market)
	if err != nil {
		return err
	}
	signalIndex := w.marketData.ResolveSignalIndex(len(candles))
	if signalIndex < 1 {
		logger.WithFields(map[string]interface{}{
			"market":  market,
			"candles": len(candles),
		}).Debug("Not enough candles to evaluate")
		return nil
	}

	active, err := w.repos.Orders.ExistsActive(ctx, w.mode, market)
	if err != nil {
		return fmt.Errorf("check active orders: %w", err)
	}
	if active {
		logger.WithField("market", market).Debug("Active order in flight, skipping evaluation")
		return nil
	}

	position, err := w.repos.Positions.FindBySymbol(ctx, market)
	if err != nil {
		return fmt.Errorf("load position: %w", err)
	}
	positionQty, avgPrice := decimal.Zero, decimal.Zero
	snapshot := strategy.PositionSnapshot{}
	if position != nil {
		positionQty, avgPrice = position.Qty, position.AvgPrice
		snapshot.UpdatedAt = position.UpdatedAt
	}
	hasPosition := positionQty.GreaterThan(w.config.MinPositionQty)
	if hasPosition {
		snapshot.Qty = positionQty.InexactFloat64()
		snapshot.AvgPrice = avgPrice.InexactFloat64()
	}

	version := w.params.ActiveVersion()
	evaluation, err := w.registry.Evaluate(version, strategy.Input{
		Candles:     candles,
		SignalIndex: signalIndex,
		Position:    snapshot,
		Params:      w.params.Active(),
	})
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", version, err)
	}

	signalCandle := candles[signalIndex]
	filled, err := w.repos.Orders.FindBySymbolModeAndStatus(ctx, market, w.mode, model.OrderStatusFilled)
	if err != nil {
		return fmt.Errorf("load filled orders: %w", err)
	}
	execution := ResolveExecutionMetrics(filled)
	livePrice := w.marketData.ResolveLivePrice(ctx, market, signalCandle.Close)

	w.logCandleSignal(candleSignal{
		market:      market,
		version:     version,
		candle:      signalCandle,
		livePrice:   livePrice,
		hasPosition: hasPosition,
		positionQty: positionQty,
		avgPrice:    avgPrice,
		execution:   execution,
		evaluation:  evaluation,
	})

	decision := evaluation.Decision
	switch {
	case decision.BuySignal:
		_, err = w.submitter.SubmitBuy(ctx, market, signalCandle)
	case decision.SellSignal:
		_, err = w.submitter.SubmitSell(ctx, market, signalCandle, positionQty)
	}
	if err != nil {
		return fmt.Errorf("submit signal: %w", err)
	}
	return nil
}

type candleSignal struct {
	market      string
	version     string
	candle      strategy.Candle
	livePrice   strategy.Value
	hasPosition bool
	positionQty decimal.Decimal
	avgPrice    decimal.Decimal
	execution   ExecutionMetrics
	evaluation  strategy.Evaluation
}

func (w *Workflow) logCandleSignal(s candleSignal) {
	decision := s.evaluation.Decision
	digest := fmt.Sprintf("%s|%s|%s|%t|%t|%s|%t|%s",
		s.version,
		formatSignalTime(s.candle.Timestamp),
		s.evaluation.CurrentRegime,
		decision.BuySignal,
		decision.SellSignal,
		decision.Reason,
		s.hasPosition,
		s.positionQty.String(),
	)
	if !w.throttle.ShouldEmit(s.market, digest) {
		return
	}

	unrealized := UnrealizedReturnPct(s.hasPosition, s.livePrice, s.avgPrice.InexactFloat64())
	logger.WithFields(map[string]interface{}{
		"event":                 "candle_signal",
		"market":                s.market,
		"strategy_version":      s.version,
		"ts":                    formatSignalTime(s.candle.Timestamp),
		"close":                 s.candle.Close,
		"live_price":            logValue(s.livePrice),
		"regime":                s.evaluation.CurrentRegime,
		"prev_regime":           s.evaluation.PrevRegime,
		"has_position":          s.hasPosition,
		"position_qty":          s.positionQty.String(),
		"position_avg_price":    s.avgPrice.String(),
		"unrealized_return_pct": logValue(unrealized),
		"realized_pnl_krw":      logValue(s.execution.RealizedPnlKrw),
		"realized_return_pct":   logValue(s.execution.RealizedReturnPct),
		"max_drawdown_pct":      logValue(s.execution.MaxDrawdownPct),
		"trade_count":           s.execution.TradeCount,
		"trade_win_rate_pct":    logValue(s.execution.WinRatePct),
		"trade_avg_win_pct":     logValue(s.execution.AvgWinPct),
		"trade_avg_loss_pct":    logValue(s.execution.AvgLossPct),
		"trade_rr_ratio":        logValue(s.execution.RRRatio),
		"trade_expectancy_pct":  logValue(s.execution.ExpectancyPct),
		"buy_signal":            decision.BuySignal,
		"sell_signal":           decision.SellSignal,
		"signal_reason":         decision.Reason,
	}).Info("Candle signal evaluated")

	for _, d := range s.evaluation.Diagnostics {
		logger.WithFields(map[string]interface{}{
			"event":  "strategy_diagnostic",
			"market": s.market,
			"key":    d.Key,
			"label":  d.Label,
			"type":   d.Type,
			"value":  d.LogValue(),
		}).Debug("Strategy diagnostic")
	}
}

var _ Trader = (*trading.ExecutionService)(nil)
