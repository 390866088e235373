package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"evergreen/src/metrics"
	"evergreen/src/model"
	"evergreen/src/trading"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubTrading struct {
	lastOrderID string
}

func (s *stubTrading) GetBalances(ctx context.Context, currency string) ([]trading.Balance, error) {
	return []trading.Balance{{Currency: "KRW"}}, nil
}

func (s *stubTrading) GetOrderChance(ctx context.Context, market string) (*trading.OrderChance, error) {
	return &trading.OrderChance{Market: market}, nil
}

func (s *stubTrading) CreateOrder(ctx context.Context, req trading.CreateOrderRequest) (*model.Order, error) {
	return &model.Order{ClientOrderID: "created", Symbol: req.Market}, nil
}

func (s *stubTrading) GetOrder(ctx context.Context, clientOrderID string) (*model.Order, error) {
	s.lastOrderID = clientOrderID
	return &model.Order{ClientOrderID: clientOrderID}, nil
}

func (s *stubTrading) CancelOrder(ctx context.Context, clientOrderID string) (*model.Order, error) {
	s.lastOrderID = clientOrderID
	return &model.Order{ClientOrderID: clientOrderID, Status: model.OrderStatusCanceled}, nil
}

func (s *stubTrading) ExecuteSignal(ctx context.Context, req trading.SignalExecuteRequest) (*model.Order, error) {
	return &model.Order{ClientOrderID: "signal", Reason: "signal:" + req.SignalTimestamp}, nil
}

type stubCoexistence struct{}

func (stubCoexistence) ResolveStatus(ctx context.Context, market string) (*trading.CoexistenceStatus, error) {
	return &trading.CoexistenceStatus{Market: market}, nil
}

func newTestRouter(t *testing.T, tokenHash string) (http.Handler, *stubTrading, *metrics.Metrics) {
	t.Helper()
	svc := &stubTrading{}
	m := metrics.New()
	return NewRouter(RouterDeps{
		Trading:        svc,
		Coexistence:    stubCoexistence{},
		Metrics:        m.Handler(),
		APITokenHash:   tokenHash,
		RequestTimeout: 5 * time.Second,
	}), svc, m
}

func TestHealthcheckAndMetricsArePublic(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	router, _, m := newTestRouter(t, string(hash))
	m.GuardBlocked("EXTERNAL_OPEN_ORDER")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "evergreen_guard_blocks_total")
}

func TestTradingRoutesRequireToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	router, _, _ := newTestRouter(t, string(hash))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/trading/balances", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodGet, "/api/trading/balances", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestTradingRoutes(t *testing.T) {
	router, svc, _ := newTestRouter(t, "")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		want   string
	}{
		{"balances", http.MethodGet, "/api/trading/balances", "", http.StatusOK, `"currency":"KRW"`},
		{"chance", http.MethodGet, "/api/trading/orders/chance?market=KRW-ETH", "", http.StatusOK, `"market":"KRW-ETH"`},
		{"chance without market", http.MethodGet, "/api/trading/orders/chance", "", http.StatusBadRequest, "validation_error"},
		{"create", http.MethodPost, "/api/trading/orders", `{"market":"KRW-BTC","side":"BUY","order_type":"MARKET_BUY","price":5000,"mode":"LIVE"}`, http.StatusCreated, `"client_order_id":"created"`},
		{"get", http.MethodGet, "/api/trading/orders/abc", "", http.StatusOK, `"client_order_id":"abc"`},
		{"cancel", http.MethodPost, "/api/trading/orders/abc/cancel", "", http.StatusOK, `"status":"CANCELED"`},
		{"signal", http.MethodPost, "/api/trading/signal-execute", `{"market":"KRW-BTC","side":"BUY","order_type":"MARKET_BUY","mode":"LIVE","signal_timestamp":"t1"}`, http.StatusCreated, `"reason":"signal:t1"`},
		{"coexistence", http.MethodGet, "/api/trading/coexistence?market=KRW-BTC", "", http.StatusOK, `"market":"KRW-BTC"`},
		{"unknown", http.MethodGet, "/api/trading/nope", "", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))

			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
			if tt.want != "" {
				assert.Contains(t, rr.Body.String(), tt.want)
			}
		})
	}
	assert.Equal(t, "abc", svc.lastOrderID)
}

func TestStartServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- StartServer(ctx, "0", http.NotFoundHandler(), time.Second)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestGetConfigDefaults(t *testing.T) {
	config := GetConfig()
	assert.Equal(t, 5*time.Second, config.ShutdownTimeout)
	assert.Equal(t, 60*time.Second, config.RequestTimeout)
}
