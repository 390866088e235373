package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PositionState string

const (
	PositionStateFlat PositionState = "FLAT"
	PositionStateLong PositionState = "LONG"
)

// Position is the single per-market holding. UpdatedAt doubles as the entry time
// proxy used by the trailing stop.
type Position struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Symbol    string          `gorm:"size:30;not null;uniqueIndex:ux_positions_symbol" json:"symbol"`
	Qty       decimal.Decimal `gorm:"type:numeric(38,12);not null" json:"qty"`
	AvgPrice  decimal.Decimal `gorm:"type:numeric(38,12);not null" json:"avg_price"`
	State     PositionState   `gorm:"size:10;not null;default:FLAT" json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Position) TableName() string {
	return "positions"
}

// NewFlatPosition returns an empty position for symbol.
func NewFlatPosition(symbol string) *Position {
	return &Position{
		Symbol:   symbol,
		Qty:      decimal.Zero,
		AvgPrice: decimal.Zero,
		State:    PositionStateFlat,
	}
}

// ApplyBuy adds qty at price and recomputes the volume weighted average.
func (p *Position) ApplyBuy(qty, price decimal.Decimal) {
	if qty.Sign() <= 0 {
		return
	}
	newQty := p.Qty.Add(qty)
	if newQty.Sign() > 0 {
		weighted := p.AvgPrice.Mul(p.Qty).Add(price.Mul(qty))
		p.AvgPrice = weighted.DivRound(newQty, DivisionScale)
	}
	p.Qty = newQty
	p.refreshState()
}

// ApplySell removes qty, flooring at zero. A full exit resets the average price.
func (p *Position) ApplySell(qty decimal.Decimal) {
	if qty.Sign() <= 0 {
		return
	}
	newQty := p.Qty.Sub(qty)
	if newQty.Sign() <= 0 {
		p.Qty = decimal.Zero
		p.AvgPrice = decimal.Zero
		p.State = PositionStateFlat
		return
	}
	p.Qty = newQty
	p.State = PositionStateLong
}

// Overwrite replaces the holding with an exchange-reported total.
func (p *Position) Overwrite(qty, avgPrice decimal.Decimal) {
	if qty.Sign() <= 0 {
		p.Qty = decimal.Zero
		p.AvgPrice = decimal.Zero
		p.State = PositionStateFlat
		return
	}
	p.Qty = qty
	p.AvgPrice = avgPrice
	p.State = PositionStateLong
}

func (p *Position) refreshState() {
	if p.Qty.Sign() > 0 {
		p.State = PositionStateLong
		return
	}
	p.Qty = decimal.Zero
	p.AvgPrice = decimal.Zero
	p.State = PositionStateFlat
}
