package signal

import (
	"math"

	"evergreen/src/model"
	"evergreen/src/strategy"
)

// ExecutionMetrics summarizes the round trips closed by FILLED orders. A round trip
// ends when the running position returns to zero.
type ExecutionMetrics struct {
	RealizedPnlKrw    strategy.Value
	RealizedReturnPct strategy.Value
	MaxDrawdownPct    strategy.Value
	TradeCount        int
	WinRatePct        strategy.Value
	AvgWinPct         strategy.Value
	AvgLossPct        strategy.Value
	RRRatio           strategy.Value
	ExpectancyPct     strategy.Value
}

// ResolveExecutionMetrics replays filled orders in the given order (oldest first).
// Buys fold their fee into the average cost; sells are clamped to the running
// position and pay a proportional share of the fee when clamped.
func ResolveExecutionMetrics(orders []model.Order) ExecutionMetrics {
	if len(orders) == 0 {
		return ExecutionMetrics{}
	}

	var positionQty, avgCost float64
	var realizedPnl, realizedCost float64
	var roundTripPnl, roundTripCost float64
	var tradeCount, winCount, losses int
	var winSum, lossSum, returnSum float64
	equity, peak, maxDrawdownPct := 1.0, 1.0, 0.0

	for _, order := range orders {
		qty := order.ExecutedVolume.InexactFloat64()
		price := order.AvgExecutedPrice.InexactFloat64()
		fee := math.Max(order.FeeAmount.InexactFloat64(), 0)
		if qty <= 0 || price <= 0 {
			continue
		}

		if order.Side == model.OrderSideBuy {
			newQty := positionQty + qty
			avgCost = (avgCost*positionQty + price*qty + fee) / newQty
			positionQty = newQty
			continue
		}

		sellQty := math.Min(positionQty, qty)
		if sellQty <= 0 || avgCost <= 0 {
			continue
		}
		if sellQty < qty {
			fee *= sellQty / qty
		}
		cost := avgCost * sellQty
		pnl := price*sellQty - fee - cost
		realizedPnl += pnl
		realizedCost += cost
		roundTripPnl += pnl
		roundTripCost += cost

		positionQty = math.Max(0, positionQty-sellQty)
		if positionQty > 0 {
			continue
		}

		if roundTripCost > 0 {
			tradeReturn := roundTripPnl / roundTripCost * 100
			tradeCount++
			returnSum += tradeReturn
			switch {
			case tradeReturn > 0:
				winCount++
				winSum += tradeReturn
			case tradeReturn < 0:
				losses++
				lossSum += math.Abs(tradeReturn)
			}

			equity *= 1 + tradeReturn/100
			if equity > peak {
				peak = equity
			}
			if peak > 0 {
				if dd := (equity/peak - 1) * 100; dd < maxDrawdownPct {
					maxDrawdownPct = dd
				}
			}
		}
		avgCost, roundTripPnl, roundTripCost = 0, 0, 0
	}

	m := ExecutionMetrics{
		RealizedPnlKrw: strategy.Some(realizedPnl),
		TradeCount:     tradeCount,
	}
	if realizedCost > 0 {
		m.RealizedReturnPct = strategy.Some(realizedPnl / realizedCost * 100)
	}
	if tradeCount > 0 {
		m.MaxDrawdownPct = strategy.Some(maxDrawdownPct)
		m.WinRatePct = strategy.Some(float64(winCount) * 100 / float64(tradeCount))
		m.ExpectancyPct = strategy.Some(returnSum / float64(tradeCount))
	}
	if winCount > 0 {
		m.AvgWinPct = strategy.Some(winSum / float64(winCount))
	}
	if losses > 0 {
		m.AvgLossPct = strategy.Some(lossSum / float64(losses))
	}
	if m.AvgWinPct.OK && m.AvgLossPct.OK && m.AvgLossPct.V > 0 {
		m.RRRatio = strategy.Some(m.AvgWinPct.V / m.AvgLossPct.V)
	}
	return m
}

// UnrealizedReturnPct is (price/avg - 1) in percent for an open position.
func UnrealizedReturnPct(hasPosition bool, price strategy.Value, avgPrice float64) strategy.Value {
	if !hasPosition || !price.OK || avgPrice <= 0 {
		return strategy.None()
	}
	return strategy.Some((price.V/avgPrice - 1) * 100)
}

// SlippagePct compares the executed price against the signal close.
func SlippagePct(signalClose, executedPrice float64) strategy.Value {
	if signalClose <= 0 || executedPrice <= 0 {
		return strategy.None()
	}
	return strategy.Some((executedPrice/signalClose - 1) * 100)
}

// logValue renders v for structured logs; undefined values log as nil.
func logValue(v strategy.Value) interface{} {
	if !v.OK {
		return nil
	}
	if v.V == 0 {
		return 0.0
	}
	return v.V
}
