package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	AuditPaperOrderExecuted = "PAPER_ORDER_EXECUTED"
	AuditLiveOrderSubmitted = "LIVE_ORDER_SUBMITTED"
	AuditLiveOrderCanceled  = "LIVE_ORDER_CANCELED"
)

type AuditEvent struct {
	EventID   uuid.UUID `gorm:"primaryKey;type:uuid;column:event_id" json:"event_id"`
	Type      string    `gorm:"size:50;not null;index" json:"type"`
	Payload   string    `gorm:"type:text" json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
