package trading

import (
	"context"
	"fmt"
	"strings"

	"evergreen/src/connectors"
	"evergreen/src/model"
	"evergreen/src/repository"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// PositionSync overwrites local positions with the total Upbit holding.
type PositionSync struct {
	repos    *repository.Repositories
	exchange Exchange
	mode     model.ExecutionMode
	drift    *DriftMonitor
}

func NewPositionSync(repos *repository.Repositories, exchange Exchange, mode model.ExecutionMode, drift *DriftMonitor) *PositionSync {
	return &PositionSync{repos: repos, exchange: exchange, mode: mode, drift: drift}
}

// Sync refreshes every market in one transaction. Any failure is returned so the
// caller can skip trading on stale positions.
func (p *PositionSync) Sync(ctx context.Context, markets []string) error {
	if p.mode != model.ExecutionModeLive || len(markets) == 0 {
		return nil
	}

	accounts, err := p.exchange.GetAccounts(ctx)
	if err != nil {
		return fmt.Errorf("position sync: fetch accounts: %w", err)
	}
	byCurrency := make(map[string]connectors.UpbitAccount, len(accounts))
	for _, a := range accounts {
		key := strings.ToUpper(strings.TrimSpace(a.Currency))
		if key == "" {
			continue
		}
		if _, dup := byCurrency[key]; !dup {
			byCurrency[key] = a
		}
	}

	err = p.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		for _, market := range markets {
			if err := p.syncMarket(ctx, tx, market, byCurrency); err != nil {
				return fmt.Errorf("%s: %w", market, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("position sync: %w", err)
	}
	return nil
}

func (p *PositionSync) syncMarket(ctx context.Context, tx *repository.Repositories, market string, accounts map[string]connectors.UpbitAccount) error {
	asset, ok := connectors.AssetCurrency(strings.ToUpper(strings.TrimSpace(market)))
	if !ok {
		return nil
	}

	total := decimal.Zero
	avg := decimal.Zero
	if account, found := accounts[asset]; found {
		total = model.ParseDecimal(account.Balance).Add(model.ParseDecimal(account.Locked))
		avg = model.ParseDecimal(account.AvgBuyPrice)
	}

	managed, err := p.managedQty(ctx, tx, market)
	if err != nil {
		return err
	}

	pos, err := tx.Positions.FindOrNew(ctx, market)
	if err != nil {
		return err
	}
	pos.Overwrite(total, avg)
	if err := tx.Positions.Save(ctx, pos); err != nil {
		return err
	}

	if _, err := p.drift.CaptureSnapshot(ctx, tx, market, total, managed); err != nil {
		return err
	}

	logger.WithFields(map[string]interface{}{
		"event":       "position_sync",
		"market":      market,
		"asset":       asset,
		"qty":         pos.Qty.String(),
		"managed_qty": managed.String(),
		"avg_price":   pos.AvgPrice.String(),
		"state":       pos.State,
	}).Info("Position synced")

	return nil
}

// managedQty is what the bot itself bought minus what it sold, floored at zero
// after every sell.
func (p *PositionSync) managedQty(ctx context.Context, tx *repository.Repositories, market string) (decimal.Decimal, error) {
	orders, err := tx.Orders.FindBySymbolAndMode(ctx, market, p.mode)
	if err != nil {
		return decimal.Zero, err
	}
	return ManagedQty(orders), nil
}

// ManagedQty folds executed volumes of orders given oldest first.
func ManagedQty(orders []model.Order) decimal.Decimal {
	managed := decimal.Zero
	for _, o := range orders {
		if o.ExecutedVolume.Sign() <= 0 {
			continue
		}
		switch o.Side {
		case model.OrderSideBuy:
			managed = managed.Add(o.ExecutedVolume)
		case model.OrderSideSell:
			managed = managed.Sub(o.ExecutedVolume)
			if managed.Sign() < 0 {
				managed = decimal.Zero
			}
		}
	}
	return managed
}
