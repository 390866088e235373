package trading

import (
	"context"
	"time"

	"evergreen/src/model"
	"evergreen/src/repository"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// DriftMonitor records how far the exchange holding is from what the bot bought
// itself, and warns when that gap first appears or moves.
type DriftMonitor struct {
	now func() time.Time
}

func NewDriftMonitor() *DriftMonitor {
	return &DriftMonitor{now: time.Now}
}

func (d *DriftMonitor) CaptureSnapshot(ctx context.Context, tx *repository.Repositories, market string, total, managed decimal.Decimal) (*model.PositionDriftSnapshot, error) {
	external := total.Sub(managed)
	if external.Sign() < 0 {
		external = decimal.Zero
	}
	drift := total.Sub(managed).Abs()

	previous, err := tx.Drift.FindLatestBySymbol(ctx, market)
	if err != nil {
		return nil, err
	}

	snap := &model.PositionDriftSnapshot{
		Symbol:        market,
		TotalQty:      total,
		ManagedQty:    managed,
		ExternalQty:   external,
		DriftQty:      drift,
		DriftDetected: drift.Sign() > 0,
		CapturedAt:    d.now().UTC(),
	}
	if err := tx.Drift.Create(ctx, snap); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"market":       market,
		"total_qty":    total.String(),
		"managed_qty":  managed.String(),
		"external_qty": external.String(),
		"drift_qty":    drift.String(),
	}
	logger.WithFields(fields).
		WithField("event", "position_snapshot").
		WithField("drift_detected", snap.DriftDetected).
		Info("Position snapshot captured")

	if shouldWarnDrift(previous, snap) {
		logger.WithFields(fields).
			WithField("event", "external_position_drift").
			Warn("External position drift detected")
	}
	return snap, nil
}

func shouldWarnDrift(previous, current *model.PositionDriftSnapshot) bool {
	if current == nil || !current.DriftDetected {
		return false
	}
	if previous == nil || !previous.DriftDetected {
		return true
	}
	return !previous.DriftQty.Equal(current.DriftQty) ||
		!previous.TotalQty.Equal(current.TotalQty) ||
		!previous.ManagedQty.Equal(current.ManagedQty)
}
