package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fill is one matched trade of an Order. The composite key is the idempotency
// boundary for reconciliation: a venue trade is stored at most once.
type Fill struct {
	ClientOrderID string          `gorm:"primaryKey;size:64;column:client_order_id" json:"client_order_id"`
	FilledAt      time.Time       `gorm:"primaryKey;column:filled_at" json:"filled_at"`
	TradeUUID     string          `gorm:"primaryKey;size:255;column:trade_uuid" json:"trade_uuid"`
	FillQty       decimal.Decimal `gorm:"type:numeric(38,12);not null" json:"fill_qty"`
	FillPrice     decimal.Decimal `gorm:"type:numeric(38,12);not null" json:"fill_price"`
	Fee           decimal.Decimal `gorm:"type:numeric(38,12);not null" json:"fee"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (Fill) TableName() string {
	return "fills"
}
