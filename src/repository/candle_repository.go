package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"evergreen/src/model"
)

// CandleRepository stores daily candles fetched from the exchange.
type CandleRepository struct {
	db *gorm.DB
}

func (r *CandleRepository) WithDB(db *gorm.DB) *CandleRepository {
	return &CandleRepository{db: db}
}

// Upsert writes candles, refreshing OHLCV when (symbol, candle_date) already exists.
// The most recent daily candle keeps changing until the day closes.
func (r *CandleRepository) Upsert(ctx context.Context, candles []model.Candle1d) error {
	if len(candles) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "candle_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
		}).
		CreateInBatches(candles, 200).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "CandleRepository",
			"op":    "Upsert",
			"count": len(candles),
		}).WithError(err).Error("Failed to upsert candles")

		return err
	}
	return nil
}

// FindRecent returns up to limit candles of symbol in ascending date order.
func (r *CandleRepository) FindRecent(ctx context.Context, symbol string, limit int) ([]model.Candle1d, error) {
	if limit <= 0 {
		limit = 200
	}

	var rows []model.Candle1d
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("candle_date DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	// reverse to ascending chronological order for easier logic
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}
