package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"evergreen/src/database"
	"evergreen/src/model"
)

// OrderRepository handles read/write operations for trading orders.
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new repository instance using the main read/write database.
func NewOrderRepository() *OrderRepository {
	logger.WithField("component", "OrderRepository").
		Info("Creating new OrderRepository with MainDB")

	return &OrderRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *OrderRepository) WithDB(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts a new order.
func (r *OrderRepository) Create(ctx context.Context, order *model.Order) error {
	logger.WithFields(map[string]interface{}{
		"repo":            "OrderRepository",
		"op":              "Create",
		"client_order_id": order.ClientOrderID,
		"symbol":          order.Symbol,
		"side":            order.Side,
		"mode":            order.Mode,
	}).Debug("Creating new order")

	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":            "OrderRepository",
			"op":              "Create",
			"client_order_id": order.ClientOrderID,
		}).WithError(err).Error("Failed to create order")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":            "OrderRepository",
		"op":              "Create",
		"client_order_id": order.ClientOrderID,
	}).Info("Order created successfully")

	return nil
}

// Save writes every column of order, inserting it when missing.
func (r *OrderRepository) Save(ctx context.Context, order *model.Order) error {
	if err := r.db.WithContext(ctx).Save(order).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":            "OrderRepository",
			"op":              "Save",
			"client_order_id": order.ClientOrderID,
			"status":          order.Status,
		}).WithError(err).Error("Failed to save order")

		return err
	}
	return nil
}

// FindByClientOrderID returns (nil, nil) if the order is not found.
func (r *OrderRepository) FindByClientOrderID(ctx context.Context, clientOrderID string) (*model.Order, error) {
	var order model.Order

	err := r.db.WithContext(ctx).
		Where("client_order_id = ?", clientOrderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{
				"repo":            "OrderRepository",
				"op":              "FindByClientOrderID",
				"client_order_id": clientOrderID,
			}).Info("Order not found")

			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":            "OrderRepository",
			"op":              "FindByClientOrderID",
			"client_order_id": clientOrderID,
		}).WithError(err).Error("Failed to fetch order")

		return nil, err
	}

	return &order, nil
}

// ExistsActive reports whether mode/symbol has an order in an active status.
func (r *OrderRepository) ExistsActive(ctx context.Context, mode model.ExecutionMode, symbol string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("mode = ? AND symbol = ? AND status IN ?", mode, symbol, model.ActiveOrderStatuses).
		Count(&count).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "OrderRepository",
			"op":     "ExistsActive",
			"mode":   mode,
			"symbol": symbol,
		}).WithError(err).Error("Failed to check active orders")

		return false, err
	}
	return count > 0, nil
}

// FindBySymbolAndMode returns every order of symbol/mode, oldest first.
func (r *OrderRepository) FindBySymbolAndMode(ctx context.Context, symbol string, mode model.ExecutionMode) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND mode = ?", symbol, mode).
		Order("created_at ASC").
		Order("client_order_id ASC").
		Find(&orders).Error
	return orders, err
}

// FindBySymbolModeAndStatus returns orders of symbol/mode in status, oldest first.
func (r *OrderRepository) FindBySymbolModeAndStatus(
	ctx context.Context,
	symbol string,
	mode model.ExecutionMode,
	status model.OrderStatus,
) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND mode = ? AND status = ?", symbol, mode, status).
		Order("created_at ASC").
		Order("client_order_id ASC").
		Find(&orders).Error
	return orders, err
}

// FindActiveWithExchangeID lists active orders that the exchange already knows about.
func (r *OrderRepository) FindActiveWithExchangeID(ctx context.Context, symbol string, mode model.ExecutionMode) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND mode = ? AND status IN ? AND exchange_order_id <> ''", symbol, mode, model.ActiveOrderStatuses).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}
