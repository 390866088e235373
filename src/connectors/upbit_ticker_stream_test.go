package connectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickerStreamCachesPrices(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subscribed := make(chan []map[string]interface{}, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub []map[string]interface{}
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		subscribed <- sub

		_ = conn.WriteMessage(websocket.BinaryMessage, []byte(`{"type":"ticker","code":"KRW-BTC","trade_price":51000000}`))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte(`not json`))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte(`{"type":"ticker","code":"KRW-ETH","trade_price":0}`))
		// hold the connection until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	stream := NewUpbitTickerStream(wsURL, []string{"KRW-BTC", "KRW-ETH"}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		stream.Run(ctx)
		close(done)
	}()

	select {
	case sub := <-subscribed:
		require.Len(t, sub, 2)
		assert.Equal(t, "ticker", sub[1]["type"])
	case <-time.After(5 * time.Second):
		t.Fatal("no subscription received")
	}

	require.Eventually(t, func() bool {
		_, ok := stream.LastPrice("KRW-BTC")
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	price, _ := stream.LastPrice("KRW-BTC")
	assert.Equal(t, 51000000.0, price)
	_, ok := stream.LastPrice("KRW-ETH")
	assert.False(t, ok, "zero prices are not cached")

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop after cancel")
	}
}

func TestTickerStreamStalePrice(t *testing.T) {
	stream := NewUpbitTickerStream("ws://unused", []string{"KRW-BTC"}, time.Second)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stream.now = func() time.Time { return now }

	stream.handle([]byte(`{"type":"ticker","code":"KRW-BTC","trade_price":100}`))
	price, ok := stream.LastPrice("KRW-BTC")
	require.True(t, ok)
	assert.Equal(t, 100.0, price)

	now = now.Add(2 * time.Second)
	_, ok = stream.LastPrice("KRW-BTC")
	assert.False(t, ok)
}
