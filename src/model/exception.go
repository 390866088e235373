package model

import "time"

// Exception is a captured system error, persisted so failed ticks can be
// inspected after the fact.
type Exception struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Service string `gorm:"size:100;index" json:"service"` // e.g. "signal"
	Module  string `gorm:"size:100;index" json:"module"`  // e.g. "workflow"
	Method  string `gorm:"size:100" json:"method"`        // e.g. "evaluateMarket"

	Message string `gorm:"type:text" json:"message"`
	Stack   string `gorm:"type:text" json:"stack"`

	Level string `gorm:"size:20;index" json:"level"` // warn | error

	// JSON encoded extra fields, e.g. {"market":"KRW-BTC"}
	Context string `gorm:"type:text" json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
