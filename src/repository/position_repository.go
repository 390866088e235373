package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"evergreen/src/model"
)

// PositionRepository keeps the one-row-per-market holdings.
type PositionRepository struct {
	db *gorm.DB
}

func (r *PositionRepository) WithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// FindBySymbol returns (nil, nil) when the market has no row yet.
func (r *PositionRepository) FindBySymbol(ctx context.Context, symbol string) (*model.Position, error) {
	var pos model.Position
	err := r.db.WithContext(ctx).Where("symbol = ?", symbol).First(&pos).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo":   "PositionRepository",
			"op":     "FindBySymbol",
			"symbol": symbol,
		}).WithError(err).Error("Failed to fetch position")

		return nil, err
	}
	return &pos, nil
}

// FindOrNew returns the stored position or an unsaved flat one.
func (r *PositionRepository) FindOrNew(ctx context.Context, symbol string) (*model.Position, error) {
	pos, err := r.FindBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return model.NewFlatPosition(symbol), nil
	}
	return pos, nil
}

func (r *PositionRepository) Save(ctx context.Context, pos *model.Position) error {
	if err := r.db.WithContext(ctx).Save(pos).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "PositionRepository",
			"op":     "Save",
			"symbol": pos.Symbol,
			"qty":    pos.Qty.String(),
		}).WithError(err).Error("Failed to save position")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":   "PositionRepository",
		"op":     "Save",
		"symbol": pos.Symbol,
		"qty":    pos.Qty.String(),
		"state":  pos.State,
	}).Debug("Position saved")

	return nil
}
