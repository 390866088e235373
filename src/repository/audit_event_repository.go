package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"evergreen/src/model"
)

type AuditEventRepository struct {
	db *gorm.DB
}

func (r *AuditEventRepository) WithDB(db *gorm.DB) *AuditEventRepository {
	return &AuditEventRepository{db: db}
}

// Record appends an audit event with a fresh id.
func (r *AuditEventRepository) Record(ctx context.Context, eventType, payload string) error {
	return r.db.WithContext(ctx).Create(&model.AuditEvent{
		EventID: uuid.New(),
		Type:    eventType,
		Payload: payload,
	}).Error
}

func (r *AuditEventRepository) FindByType(ctx context.Context, eventType string) ([]model.AuditEvent, error) {
	var events []model.AuditEvent
	err := r.db.WithContext(ctx).
		Where("type = ?", eventType).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}
