package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle1d is a stored daily candle, kept for audit and offline research.
type Candle1d struct {
	ID         uint            `gorm:"primaryKey"`
	Symbol     string          `json:"symbol"      gorm:"type:varchar(30);not null;uniqueIndex:ux_candles_1d_symbol_date,priority:1"`
	CandleDate time.Time       `json:"candle_date" gorm:"not null;uniqueIndex:ux_candles_1d_symbol_date,priority:2"`
	Open       decimal.Decimal `json:"open"        gorm:"type:numeric(38,12);not null"`
	High       decimal.Decimal `json:"high"        gorm:"type:numeric(38,12);not null"`
	Low        decimal.Decimal `json:"low"         gorm:"type:numeric(38,12);not null"`
	Close      decimal.Decimal `json:"close"       gorm:"type:numeric(38,12);not null"`
	Volume     decimal.Decimal `json:"volume"      gorm:"type:numeric(38,12);not null"`
}

func (Candle1d) TableName() string {
	return "candles_1d"
}
