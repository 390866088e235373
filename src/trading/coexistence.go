package trading

import (
	"context"

	"evergreen/src/repository"
	"evergreen/src/utils"

	"github.com/shopspring/decimal"
)

// CoexistenceService reports how the bot and manual trading share a market.
type CoexistenceService struct {
	repos *repository.Repositories
	guard *GuardService
}

func NewCoexistenceService(repos *repository.Repositories, guard *GuardService) *CoexistenceService {
	return &CoexistenceService{repos: repos, guard: guard}
}

func (c *CoexistenceService) ResolveStatus(ctx context.Context, market string) (*CoexistenceStatus, error) {
	market = utils.NormalizeMarket(market)

	pos, err := c.repos.Positions.FindBySymbol(ctx, market)
	if err != nil {
		return nil, internal(err)
	}

	decision := c.guard.Evaluate(ctx, market)
	status := &CoexistenceStatus{
		Market:                 market,
		TotalQty:               decimal.Zero,
		HasExternalOpenOrder:   decision.HasExternalOpenOrder,
		Blocked:                decision.Blocked,
		ExternalOpenOrderCount: decision.ExternalOpenOrderCount,
	}
	if decision.Blocked {
		status.BlockReason = decision.Reason
	}
	if pos != nil {
		status.TotalQty = pos.Qty
		updatedAt := pos.UpdatedAt
		status.PositionUpdatedAt = &updatedAt
	}
	return status, nil
}
