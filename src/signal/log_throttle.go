package signal

import (
	"sync"
	"time"
)

// candleLogInterval is the minimum gap between identical candle_signal lines.
const candleLogInterval = time.Minute

type logState struct {
	loggedAt time.Time
	digest   string
}

// logThrottle suppresses repeated candle_signal logs until the digest changes or
// the interval passes.
type logThrottle struct {
	mu       sync.Mutex
	interval time.Duration
	now      func() time.Time
	last     map[string]logState
}

func newLogThrottle(interval time.Duration) *logThrottle {
	return &logThrottle{interval: interval, now: time.Now, last: make(map[string]logState)}
}

func (t *logThrottle) ShouldEmit(market, digest string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	prev, ok := t.last[market]
	if ok && prev.digest == digest && now.Sub(prev.loggedAt) < t.interval {
		return false
	}
	t.last[market] = logState{loggedAt: now, digest: digest}
	return true
}
