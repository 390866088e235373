package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

type OrderType string

const (
	OrderTypeLimit      OrderType = "LIMIT"
	OrderTypeMarketBuy  OrderType = "MARKET_BUY"
	OrderTypeMarketSell OrderType = "MARKET_SELL"
)

type ExecutionMode string

const (
	ExecutionModeLive  ExecutionMode = "LIVE"
	ExecutionModePaper ExecutionMode = "PAPER"
)

type OrderStatus string

const (
	OrderStatusCreated         OrderStatus = "CREATED"
	OrderStatusSubmitted       OrderStatus = "SUBMITTED"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusFailed          OrderStatus = "FAILED"
)

// ActiveOrderStatuses are the statuses that still occupy a market.
var ActiveOrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusSubmitted,
	OrderStatusPartiallyFilled,
}

// Order is one attempted trade. Rows are never deleted; they are the audit trail
// of everything the agent asked the exchange (or the paper simulator) to do.
type Order struct {
	ClientOrderID     string              `gorm:"primaryKey;size:64;column:client_order_id" json:"client_order_id"`
	ExchangeOrderID   string              `gorm:"size:64;index" json:"exchange_order_id,omitempty"`
	Symbol            string              `gorm:"size:30;not null;index:idx_trading_orders_symbol_mode_status,priority:1" json:"symbol"`
	Side              OrderSide           `gorm:"size:10;not null" json:"side"`
	OrderType         OrderType           `gorm:"size:20;not null" json:"order_type"`
	Mode              ExecutionMode       `gorm:"size:10;not null;index:idx_trading_orders_symbol_mode_status,priority:2" json:"mode"`
	Quantity          decimal.NullDecimal `gorm:"type:numeric(38,12)" json:"quantity"`
	Price             decimal.NullDecimal `gorm:"type:numeric(38,12)" json:"price"`
	RequestedNotional decimal.Decimal     `gorm:"type:numeric(38,12)" json:"requested_notional"`
	ExecutedVolume    decimal.Decimal     `gorm:"type:numeric(38,12)" json:"executed_volume"`
	AvgExecutedPrice  decimal.Decimal     `gorm:"type:numeric(38,12)" json:"avg_executed_price"`
	FeeAmount         decimal.Decimal     `gorm:"type:numeric(38,12)" json:"fee_amount"`
	Status            OrderStatus         `gorm:"size:20;not null;index:idx_trading_orders_symbol_mode_status,priority:3" json:"status"`
	Reason            string              `gorm:"size:255" json:"reason,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func (Order) TableName() string {
	return "trading_orders"
}

// IsActive reports whether the order still blocks new submissions for its market.
func (o *Order) IsActive() bool {
	for _, s := range ActiveOrderStatuses {
		if o.Status == s {
			return true
		}
	}
	return false
}
