package trading

import (
	"time"

	"evergreen/src/model"

	"github.com/shopspring/decimal"
)

// CreateOrderRequest is an externally or machine originated order.
// Quantity and Price are optional; what each means depends on OrderType.
type CreateOrderRequest struct {
	Market    string              `json:"market"`
	Side      model.OrderSide     `json:"side"`
	OrderType model.OrderType     `json:"order_type"`
	Quantity  decimal.NullDecimal `json:"quantity"`
	Price     decimal.NullDecimal `json:"price"`
	Mode      model.ExecutionMode `json:"mode"`
	Reason    string              `json:"reason,omitempty"`
}

type SignalExecuteRequest struct {
	Market          string              `json:"market"`
	Side            model.OrderSide     `json:"side"`
	OrderType       model.OrderType     `json:"order_type"`
	Quantity        decimal.NullDecimal `json:"quantity"`
	Price           decimal.NullDecimal `json:"price"`
	Mode            model.ExecutionMode `json:"mode"`
	SignalTimestamp string              `json:"signal_timestamp,omitempty"`
}

type Balance struct {
	Currency     string          `json:"currency"`
	Balance      decimal.Decimal `json:"balance"`
	Locked       decimal.Decimal `json:"locked"`
	AvgBuyPrice  decimal.Decimal `json:"avg_buy_price"`
	UnitCurrency string          `json:"unit_currency"`
}

type OrderChance struct {
	Market     string          `json:"market"`
	BidFee     decimal.Decimal `json:"bid_fee"`
	AskFee     decimal.Decimal `json:"ask_fee"`
	BidBalance decimal.Decimal `json:"bid_balance"`
	AskBalance decimal.Decimal `json:"ask_balance"`
	MaxTotal   decimal.Decimal `json:"max_total"`
}

type CoexistenceStatus struct {
	Market                 string          `json:"market"`
	TotalQty               decimal.Decimal `json:"total_qty"`
	HasExternalOpenOrder   bool            `json:"has_external_open_order"`
	Blocked                bool            `json:"blocked"`
	BlockReason            string          `json:"block_reason,omitempty"`
	ExternalOpenOrderCount int             `json:"external_open_order_count"`
	PositionUpdatedAt      *time.Time      `json:"position_updated_at,omitempty"`
}

func orZero(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}
