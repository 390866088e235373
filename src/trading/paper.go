package trading

import (
	"context"
	"time"

	"evergreen/src/model"
	"evergreen/src/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// PaperExecutor fills paper orders immediately at their own price.
type PaperExecutor struct {
	feeRate decimal.Decimal
	now     func() time.Time
}

func NewPaperExecutor(feeRate decimal.Decimal) *PaperExecutor {
	return &PaperExecutor{feeRate: feeRate, now: time.Now}
}

// Execute fills order inside tx: order FILLED, one fill, position updated.
func (p *PaperExecutor) Execute(ctx context.Context, tx *repository.Repositories, order *model.Order) error {
	price := orZero(order.Price)
	qty := orZero(order.Quantity)
	if !order.Quantity.Valid && order.RequestedNotional.Sign() > 0 && price.Sign() > 0 {
		qty = order.RequestedNotional.Div(price).RoundDown(model.DivisionScale)
	}
	fee := price.Mul(qty).Mul(p.feeRate)

	order.ExecutedVolume = qty
	order.AvgExecutedPrice = price
	order.FeeAmount = fee
	order.Status = model.OrderStatusFilled
	if err := tx.Orders.Save(ctx, order); err != nil {
		return err
	}

	fill := &model.Fill{
		ClientOrderID: order.ClientOrderID,
		FilledAt:      p.now().UTC(),
		TradeUUID:     uuid.NewString(),
		FillQty:       qty,
		FillPrice:     price,
		Fee:           fee,
	}
	if _, err := tx.Fills.InsertIfAbsent(ctx, fill); err != nil {
		return err
	}

	pos, err := tx.Positions.FindOrNew(ctx, order.Symbol)
	if err != nil {
		return err
	}
	if order.Side == model.OrderSideBuy {
		pos.ApplyBuy(qty, price)
	} else {
		pos.ApplySell(qty)
	}
	if err := tx.Positions.Save(ctx, pos); err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"event":           "paper_execution",
		"client_order_id": order.ClientOrderID,
		"market":          order.Symbol,
		"side":            order.Side,
		"executed_qty":    qty.String(),
		"executed_price":  price.String(),
		"fee":             fee.String(),
		"position_qty":    pos.Qty.String(),
		"position_avg":    pos.AvgPrice.String(),
		"position_state":  pos.State,
	}).Info("Paper execution completed")

	return nil
}
