package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

const (
	defaultRetryAttempts   = 5
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second

	defaultUpbitBaseURL = "https://api.upbit.com"
	upbitCandlePageSize = 200
	upbitCandleToLayout = "2006-01-02T15:04:05"
)

var ErrMissingCredentials = errors.New("upbit access and secret keys are required")

// UpbitClient is the REST client for the Upbit exchange.
type UpbitClient struct {
	accessKey string
	secretKey string
	baseURL   string
	http      *resty.Client
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}

	code := r.StatusCode()
	if code >= 500 && code <= 599 {
		return true
	}
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

func NewUpbitClient(accessKey, secretKey, baseURL string) *UpbitClient {
	retryCount := defaultRetryAttempts - 1

	if baseURL == "" {
		baseURL = defaultUpbitBaseURL
		logger.Warnf("No base URL provided, using default: %s", baseURL)
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(retryCount).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "evergreen/1.0").
		AddRetryCondition(isRetryableResp)

	return &UpbitClient{
		accessKey: accessKey,
		secretKey: secretKey,
		baseURL:   baseURL,
		http:      httpClient,
	}
}

// NewUpbitClientFromConfig builds the client from UPBIT_* settings.
func NewUpbitClientFromConfig(cfg Config) *UpbitClient {
	return NewUpbitClient(cfg.UpbitAccessKey, cfg.UpbitSecretKey, cfg.UpbitBaseURL)
}

// doRequest sends one call. Private calls are signed; GET/DELETE params go to the
// query string and POST params to a JSON body.
func (c *UpbitClient) doRequest(ctx context.Context, method, path string, params map[string]string, private bool, out interface{}) error {
	req := c.http.R().SetContext(ctx)

	if private {
		if c.accessKey == "" || c.secretKey == "" {
			return ErrMissingCredentials
		}
		token, err := signToken(c.accessKey, c.secretKey, canonicalQuery(params))
		if err != nil {
			return fmt.Errorf("sign upbit request: %w", err)
		}
		req.SetAuthToken(token)
	}

	if method == http.MethodPost {
		req.SetHeader("Content-Type", "application/json").SetBody(params)
	} else if len(params) > 0 {
		req.SetQueryParams(params)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("upbit %s %s: %w", method, path, err)
	}

	logger.WithFields(map[string]interface{}{
		"connector": "upbit",
		"method":    method,
		"path":      path,
		"status":    resp.StatusCode(),
	}).Debug("Upbit HTTP response")

	if resp.IsError() {
		return newUpbitAPIError(resp.StatusCode(), resp.Body())
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode upbit %s: %w", path, err)
	}
	return nil
}

func (c *UpbitClient) GetAccounts(ctx context.Context) ([]UpbitAccount, error) {
	var out []UpbitAccount
	if err := c.doRequest(ctx, http.MethodGet, "/v1/accounts", nil, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *UpbitClient) GetOrderChance(ctx context.Context, market string) (*UpbitOrderChance, error) {
	var out UpbitOrderChance
	if err := c.doRequest(ctx, http.MethodGet, "/v1/orders/chance", map[string]string{"market": market}, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *UpbitClient) GetTickers(ctx context.Context, markets ...string) ([]UpbitTicker, error) {
	var out []UpbitTicker
	params := map[string]string{"markets": strings.Join(markets, ",")}
	if err := c.doRequest(ctx, http.MethodGet, "/v1/ticker", params, false, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDayCandles returns up to count daily candles, newest first as Upbit sends them.
// Requests above the page size walk backwards with the "to" cursor.
func (c *UpbitClient) GetDayCandles(ctx context.Context, market string, count int) ([]UpbitDayCandle, error) {
	var all []UpbitDayCandle
	to := ""
	for remaining := count; remaining > 0; {
		page := remaining
		if page > upbitCandlePageSize {
			page = upbitCandlePageSize
		}
		params := map[string]string{"market": market, "count": strconv.Itoa(page)}
		if to != "" {
			params["to"] = to
		}

		var batch []UpbitDayCandle
		if err := c.doRequest(ctx, http.MethodGet, "/v1/candles/days", params, false, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		remaining -= len(batch)
		if len(batch) < page {
			break
		}

		oldest := batch[len(batch)-1].CandleDateTimeUTC
		ts, err := time.ParseInLocation(upbitCandleToLayout, oldest, time.UTC)
		if err != nil {
			break
		}
		to = ts.Format(upbitCandleToLayout)
	}
	return all, nil
}

func (c *UpbitClient) CreateOrder(ctx context.Context, req UpbitOrderRequest) (*UpbitOrder, error) {
	var out UpbitOrder
	if err := c.doRequest(ctx, http.MethodPost, "/v1/orders", req.params(), true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *UpbitClient) GetOrder(ctx context.Context, uuid string) (*UpbitOrder, error) {
	var out UpbitOrder
	if err := c.doRequest(ctx, http.MethodGet, "/v1/order", map[string]string{"uuid": uuid}, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *UpbitClient) CancelOrder(ctx context.Context, uuid string) (*UpbitOrder, error) {
	var out UpbitOrder
	if err := c.doRequest(ctx, http.MethodDelete, "/v1/order", map[string]string{"uuid": uuid}, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *UpbitClient) GetOpenOrders(ctx context.Context, market, state string) ([]UpbitOrder, error) {
	var out []UpbitOrder
	params := map[string]string{"market": market, "state": state}
	if err := c.doRequest(ctx, http.MethodGet, "/v1/orders", params, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}
