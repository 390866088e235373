package trading

import (
	"evergreen/src/model"
	"evergreen/src/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// newOrder builds the CREATED order for req with a fresh client order id.
func newOrder(req CreateOrderRequest) *model.Order {
	var notional decimal.Decimal
	if req.OrderType == model.OrderTypeMarketBuy {
		notional = orZero(req.Price)
	} else {
		notional = orZero(req.Quantity).Mul(orZero(req.Price))
	}

	return &model.Order{
		ClientOrderID:     uuid.NewString(),
		Symbol:            utils.NormalizeMarket(req.Market),
		Side:              req.Side,
		OrderType:         req.OrderType,
		Mode:              req.Mode,
		Quantity:          req.Quantity,
		Price:             req.Price,
		RequestedNotional: notional,
		ExecutedVolume:    decimal.Zero,
		AvgExecutedPrice:  decimal.Zero,
		FeeAmount:         decimal.Zero,
		Status:            model.OrderStatusCreated,
		Reason:            req.Reason,
	}
}
