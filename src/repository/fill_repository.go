package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"evergreen/src/model"
)

// FillRepository stores immutable trade fills.
type FillRepository struct {
	db *gorm.DB
}

func (r *FillRepository) WithDB(db *gorm.DB) *FillRepository {
	return &FillRepository{db: db}
}

// InsertIfAbsent stores fill unless its (client_order_id, filled_at, trade_uuid) key
// already exists. It reports whether a row was written.
func (r *FillRepository) InsertIfAbsent(ctx context.Context, fill *model.Fill) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(fill)
	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":            "FillRepository",
			"op":              "InsertIfAbsent",
			"client_order_id": fill.ClientOrderID,
			"trade_uuid":      fill.TradeUUID,
		}).WithError(res.Error).Error("Failed to insert fill")

		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FindByClientOrderID lists the fills of an order, oldest first.
func (r *FillRepository) FindByClientOrderID(ctx context.Context, clientOrderID string) ([]model.Fill, error) {
	var fills []model.Fill
	err := r.db.WithContext(ctx).
		Where("client_order_id = ?", clientOrderID).
		Order("filled_at ASC").
		Find(&fills).Error
	return fills, err
}
