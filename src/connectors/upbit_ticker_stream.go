package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"
)

const (
	tickerReconnectMin = 1 * time.Second
	tickerReconnectMax = 30 * time.Second
)

type tickerQuote struct {
	price float64
	at    time.Time
}

// UpbitTickerStream keeps the latest trade price per market from the public
// websocket feed.
type UpbitTickerStream struct {
	url     string
	markets []string
	maxAge  time.Duration
	dialer  *websocket.Dialer
	now     func() time.Time

	mu     sync.RWMutex
	quotes map[string]tickerQuote
}

func NewUpbitTickerStream(url string, markets []string, maxAge time.Duration) *UpbitTickerStream {
	return &UpbitTickerStream{
		url:     url,
		markets: markets,
		maxAge:  maxAge,
		dialer: &websocket.Dialer{
			HandshakeTimeout:  15 * time.Second,
			EnableCompression: true,
			Proxy:             http.ProxyFromEnvironment,
		},
		now:    time.Now,
		quotes: make(map[string]tickerQuote),
	}
}

// LastPrice returns the cached price when it is younger than maxAge.
func (s *UpbitTickerStream) LastPrice(market string) (float64, bool) {
	s.mu.RLock()
	q, ok := s.quotes[market]
	s.mu.RUnlock()
	if !ok || q.price <= 0 {
		return 0, false
	}
	if s.maxAge > 0 && s.now().Sub(q.at) > s.maxAge {
		return 0, false
	}
	return q.price, true
}

// Run consumes the feed until ctx is done, reconnecting with backoff.
func (s *UpbitTickerStream) Run(ctx context.Context) {
	backoff := tickerReconnectMin
	for {
		err := s.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		logger.WithFields(map[string]interface{}{
			"connector": "upbit_ws",
			"backoff":   backoff.String(),
		}).WithError(err).Warn("ticker stream disconnected")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > tickerReconnectMax {
			backoff = tickerReconnectMax
		}
	}
}

func (s *UpbitTickerStream) consume(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("ws dial failed: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	subscribe := []map[string]interface{}{
		{"ticket": uuid.NewString()},
		{"type": "ticker", "codes": s.markets},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		return fmt.Errorf("ws subscribe failed: %w", err)
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("ws read failed: %w", err)
		}
		s.handle(msg)
	}
}

func (s *UpbitTickerStream) handle(msg []byte) {
	var frame struct {
		Type       string  `json:"type"`
		Code       string  `json:"code"`
		TradePrice float64 `json:"trade_price"`
	}
	if err := json.Unmarshal(msg, &frame); err != nil || frame.Code == "" {
		return
	}
	if frame.TradePrice <= 0 {
		return
	}
	s.mu.Lock()
	s.quotes[frame.Code] = tickerQuote{price: frame.TradePrice, at: s.now()}
	s.mu.Unlock()
}
