package trading

import (
	"context"
	"sync"
	"testing"

	"evergreen/src/connectors"
	"evergreen/src/database"
	"evergreen/src/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nd(s string) decimal.NullDecimal { return decimal.NewNullDecimal(d(s)) }

// fakeExchange answers from canned data and records what it was asked.
type fakeExchange struct {
	mu sync.Mutex

	accounts    []connectors.UpbitAccount
	accountsErr error
	chance      *connectors.UpbitOrderChance
	chanceErr   error
	tickers     []connectors.UpbitTicker
	openOrders  []connectors.UpbitOrder
	openErr     error
	createResp  *connectors.UpbitOrder
	createErr   error
	orders      map[string]*connectors.UpbitOrder
	cancelResp  *connectors.UpbitOrder

	created      []connectors.UpbitOrderRequest
	openCalls    int
	getCalls     []string
	cancelCalls  []string
	tickersCalls int
}

func (f *fakeExchange) GetAccounts(ctx context.Context) ([]connectors.UpbitAccount, error) {
	return f.accounts, f.accountsErr
}

func (f *fakeExchange) GetOrderChance(ctx context.Context, market string) (*connectors.UpbitOrderChance, error) {
	if f.chanceErr != nil {
		return nil, f.chanceErr
	}
	if f.chance == nil {
		return &connectors.UpbitOrderChance{}, nil
	}
	return f.chance, nil
}

func (f *fakeExchange) GetTickers(ctx context.Context, markets ...string) ([]connectors.UpbitTicker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickersCalls++
	return f.tickers, nil
}

func (f *fakeExchange) CreateOrder(ctx context.Context, req connectors.UpbitOrderRequest) (*connectors.UpbitOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	return f.createResp, f.createErr
}

func (f *fakeExchange) GetOrder(ctx context.Context, uuid string) (*connectors.UpbitOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls = append(f.getCalls, uuid)
	if o, ok := f.orders[uuid]; ok {
		return o, nil
	}
	return nil, &connectors.UpbitAPIError{StatusCode: 404, Body: `{"error":{"name":"order_not_found"}}`, Name: connectors.UpbitErrOrderNotFound}
}

func (f *fakeExchange) CancelOrder(ctx context.Context, uuid string) (*connectors.UpbitOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls = append(f.cancelCalls, uuid)
	return f.cancelResp, nil
}

func (f *fakeExchange) GetOpenOrders(ctx context.Context, market, state string) ([]connectors.UpbitOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openCalls++
	return f.openOrders, f.openErr
}

func newTestRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	db, err := database.Open(database.Config{
		DatabaseDriver:  database.DriverSQLite,
		DatabaseURLMain: ":memory:",
		GormLogLevel:    1,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return repository.NewRepositoriesWithDB(db)
}
