package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"evergreen/src/model"
)

type PositionDriftRepository struct {
	db *gorm.DB
}

func (r *PositionDriftRepository) WithDB(db *gorm.DB) *PositionDriftRepository {
	return &PositionDriftRepository{db: db}
}

func (r *PositionDriftRepository) Create(ctx context.Context, snap *model.PositionDriftSnapshot) error {
	return r.db.WithContext(ctx).Create(snap).Error
}

// FindLatestBySymbol returns the most recent snapshot, or (nil, nil).
func (r *PositionDriftRepository) FindLatestBySymbol(ctx context.Context, symbol string) (*model.PositionDriftSnapshot, error) {
	var snap model.PositionDriftSnapshot
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("captured_at DESC").
		Order("id DESC").
		First(&snap).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snap, nil
}
