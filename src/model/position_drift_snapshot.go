package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionDriftSnapshot compares the exchange total holding with the quantity the
// bot itself accumulated. Append-only.
type PositionDriftSnapshot struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Symbol        string          `gorm:"size:30;not null;index:idx_drift_symbol_captured,priority:1" json:"symbol"`
	TotalQty      decimal.Decimal `gorm:"type:numeric(38,12);not null" json:"total_qty"`
	ManagedQty    decimal.Decimal `gorm:"type:numeric(38,12);not null" json:"managed_qty"`
	ExternalQty   decimal.Decimal `gorm:"type:numeric(38,12);not null" json:"external_qty"`
	DriftQty      decimal.Decimal `gorm:"type:numeric(38,12);not null" json:"drift_qty"`
	DriftDetected bool            `gorm:"not null" json:"drift_detected"`
	CapturedAt    time.Time       `gorm:"not null;index:idx_drift_symbol_captured,priority:2" json:"captured_at"`
}

func (PositionDriftSnapshot) TableName() string {
	return "position_drift_snapshots"
}
