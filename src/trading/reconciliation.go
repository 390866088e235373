package trading

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"evergreen/src/connectors"
	"evergreen/src/metrics"
	"evergreen/src/model"
	"evergreen/src/repository"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// Reconciler merges an exchange order answer into the local order, its fills and the
// market position. Repeating a call with the same or overlapping data changes nothing.
type Reconciler struct {
	repos   *repository.Repositories
	metrics *metrics.Metrics
}

func NewReconciler(repos *repository.Repositories, m *metrics.Metrics) *Reconciler {
	return &Reconciler{repos: repos, metrics: m}
}

// Reconcile returns the updated order. The caller's order is not modified.
func (r *Reconciler) Reconcile(ctx context.Context, order *model.Order, resp *connectors.UpbitOrder) (*model.Order, error) {
	if resp == nil {
		return nil, fmt.Errorf("reconcile %s: empty exchange response", order.ClientOrderID)
	}

	var (
		updated  *model.Order
		newFills int
	)
	err := r.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		updated, newFills, err = reconcileTx(ctx, tx, order, resp)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", order.ClientOrderID, err)
	}

	r.metrics.FillsRecorded(newFills)
	logger.WithFields(map[string]interface{}{
		"event":           "order_reconciled",
		"client_order_id": updated.ClientOrderID,
		"exchange_uuid":   updated.ExchangeOrderID,
		"state":           resp.State,
		"status":          updated.Status,
		"executed_volume": updated.ExecutedVolume.String(),
		"new_fills":       newFills,
	}).Info("Order reconciled")

	return updated, nil
}

func reconcileTx(ctx context.Context, tx *repository.Repositories, order *model.Order, resp *connectors.UpbitOrder) (*model.Order, int, error) {
	// the stored row is the baseline, so a stale caller copy cannot re-apply a delta
	stored, err := tx.Orders.FindByClientOrderID(ctx, order.ClientOrderID)
	if err != nil {
		return nil, 0, err
	}
	updated := *order
	if stored != nil {
		updated = *stored
	}

	previous := updated.ExecutedVolume
	latest := model.ParseDecimal(resp.ExecutedVolume)

	if resp.UUID != "" {
		updated.ExchangeOrderID = resp.UUID
	}
	updated.ExecutedVolume = latest
	updated.FeeAmount = model.ParseDecimal(resp.PaidFee)
	updated.AvgExecutedPrice = averagePrice(resp)
	updated.Status = mapStatus(resp.State, latest)
	if err := tx.Orders.Save(ctx, &updated); err != nil {
		return nil, 0, err
	}

	deltaQty := decimal.Zero
	deltaFunds := decimal.Zero
	newFills := 0
	for i, trade := range resp.Trades {
		qty := model.ParseDecimal(trade.Volume)
		price := model.ParseDecimal(trade.Price)
		fill := &model.Fill{
			ClientOrderID: updated.ClientOrderID,
			FilledAt:      parseTradeTime(trade.CreatedAt),
			TradeUUID:     tradeID(updated.ClientOrderID, trade, i),
			FillQty:       qty,
			FillPrice:     price,
			Fee:           decimal.Zero,
		}
		inserted, err := tx.Fills.InsertIfAbsent(ctx, fill)
		if err != nil {
			return nil, 0, err
		}
		if !inserted {
			continue
		}
		newFills++

		funds := model.ParseDecimal(trade.Funds)
		if funds.Sign() <= 0 {
			funds = price.Mul(qty)
		}
		deltaQty = deltaQty.Add(qty)
		deltaFunds = deltaFunds.Add(funds)
	}

	delta := latest.Sub(previous)
	if delta.Sign() > 0 {
		// A positive delta with no new trades is a venue inconsistency; the order
		// average stands in for the delta price.
		deltaPrice := updated.AvgExecutedPrice
		if deltaQty.Sign() > 0 {
			deltaPrice = deltaFunds.DivRound(deltaQty, model.DivisionScale)
		}
		if err := applyPositionDelta(ctx, tx, &updated, delta, deltaPrice); err != nil {
			return nil, 0, err
		}
	}

	return &updated, newFills, nil
}

func applyPositionDelta(ctx context.Context, tx *repository.Repositories, order *model.Order, qty, price decimal.Decimal) error {
	pos, err := tx.Positions.FindOrNew(ctx, order.Symbol)
	if err != nil {
		return err
	}
	if order.Side == model.OrderSideBuy {
		pos.ApplyBuy(qty, price)
	} else {
		pos.ApplySell(qty)
	}
	return tx.Positions.Save(ctx, pos)
}

func mapStatus(state string, executed decimal.Decimal) model.OrderStatus {
	switch {
	case strings.EqualFold(state, connectors.UpbitStateDone):
		return model.OrderStatusFilled
	case strings.EqualFold(state, connectors.UpbitStateCancel):
		return model.OrderStatusCanceled
	case executed.Sign() > 0:
		return model.OrderStatusPartiallyFilled
	default:
		return model.OrderStatusSubmitted
	}
}

// averagePrice is Σfunds/Σvolume over the trades, or the quoted price without trades.
func averagePrice(resp *connectors.UpbitOrder) decimal.Decimal {
	if len(resp.Trades) == 0 {
		return model.ParseDecimal(resp.Price)
	}

	funds := decimal.Zero
	volume := decimal.Zero
	for _, t := range resp.Trades {
		qty := model.ParseDecimal(t.Volume)
		f := model.ParseDecimal(t.Funds)
		if f.Sign() <= 0 {
			f = model.ParseDecimal(t.Price).Mul(qty)
		}
		funds = funds.Add(f)
		volume = volume.Add(qty)
	}
	if volume.Sign() <= 0 {
		return model.ParseDecimal(resp.Price)
	}
	return funds.DivRound(volume, model.DivisionScale)
}

// parseTradeTime falls back to the unix epoch on a blank or unparsable value.
func parseTradeTime(value string) time.Time {
	if value == "" {
		return time.Unix(0, 0).UTC()
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return t.UTC()
}

func tradeID(clientOrderID string, trade connectors.UpbitTrade, index int) string {
	if trade.UUID != "" {
		return trade.UUID
	}
	return strings.Join([]string{clientOrderID, trade.CreatedAt, trade.Price, trade.Volume, strconv.Itoa(index)}, ":")
}
