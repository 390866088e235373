package trading

import (
	"evergreen/src/model"

	"github.com/shopspring/decimal"
)

// ValidateOrderRequest rejects contradictory requests before any side effect.
func ValidateOrderRequest(req CreateOrderRequest) error {
	if req.Side == model.OrderSideBuy && req.OrderType == model.OrderTypeMarketSell {
		return invalidOrder("BUY side cannot use MARKET_SELL")
	}
	if req.Side == model.OrderSideSell && req.OrderType == model.OrderTypeMarketBuy {
		return invalidOrder("SELL side cannot use MARKET_BUY")
	}

	switch req.OrderType {
	case model.OrderTypeLimit:
		if !req.Quantity.Valid || !req.Price.Valid {
			return invalidOrder("LIMIT order requires quantity and price")
		}
		return nil

	case model.OrderTypeMarketBuy:
		if req.Mode == model.ExecutionModePaper && !positive(req.Quantity) {
			return invalidOrder("PAPER MARKET_BUY requires quantity to simulate execution price")
		}
		if req.Mode == model.ExecutionModePaper && !positive(req.Price) {
			return invalidOrder("MARKET_BUY requires price(notional)")
		}
		if req.Mode == model.ExecutionModeLive && req.Price.Valid && req.Price.Decimal.Sign() <= 0 {
			return invalidOrder("MARKET_BUY price must be greater than zero")
		}
		return nil

	case model.OrderTypeMarketSell:
		if !positive(req.Quantity) {
			return invalidOrder("MARKET_SELL requires quantity")
		}
		if req.Mode == model.ExecutionModePaper && !positive(req.Price) {
			return invalidOrder("PAPER MARKET_SELL requires price")
		}
		return nil
	}

	return invalidOrder("Unsupported order type")
}

// CheckRequestShape reports missing or malformed fields. An empty result means the
// request can go to ValidateOrderRequest.
func CheckRequestShape(req CreateOrderRequest) []string {
	var details []string
	if req.Market == "" {
		details = append(details, "market: must not be blank")
	}
	if req.Side != model.OrderSideBuy && req.Side != model.OrderSideSell {
		details = append(details, "side: must be BUY or SELL")
	}
	switch req.OrderType {
	case model.OrderTypeLimit, model.OrderTypeMarketBuy, model.OrderTypeMarketSell:
	default:
		details = append(details, "order_type: must be LIMIT, MARKET_BUY or MARKET_SELL")
	}
	if req.Mode != model.ExecutionModeLive && req.Mode != model.ExecutionModePaper {
		details = append(details, "mode: must be LIVE or PAPER")
	}
	if req.Quantity.Valid && req.Quantity.Decimal.Sign() <= 0 {
		details = append(details, "quantity: must be greater than 0")
	}
	if req.Price.Valid && req.Price.Decimal.Sign() <= 0 {
		details = append(details, "price: must be greater than 0")
	}
	return details
}

func positive(v decimal.NullDecimal) bool {
	return v.Valid && v.Decimal.Sign() > 0
}
