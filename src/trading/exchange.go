package trading

import (
	"context"

	"evergreen/src/connectors"
)

// Exchange is the part of the Upbit client the trading services need.
// *connectors.UpbitClient satisfies it.
type Exchange interface {
	GetAccounts(ctx context.Context) ([]connectors.UpbitAccount, error)
	GetOrderChance(ctx context.Context, market string) (*connectors.UpbitOrderChance, error)
	GetTickers(ctx context.Context, markets ...string) ([]connectors.UpbitTicker, error)
	CreateOrder(ctx context.Context, req connectors.UpbitOrderRequest) (*connectors.UpbitOrder, error)
	GetOrder(ctx context.Context, uuid string) (*connectors.UpbitOrder, error)
	CancelOrder(ctx context.Context, uuid string) (*connectors.UpbitOrder, error)
	GetOpenOrders(ctx context.Context, market, state string) ([]connectors.UpbitOrder, error)
}

var _ Exchange = (*connectors.UpbitClient)(nil)
