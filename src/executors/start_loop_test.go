package executors

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type countingRunner struct {
	mu    sync.Mutex
	calls int
	err   error
	onRun func(n int)
}

func (r *countingRunner) RunOnce(ctx context.Context) error {
	r.mu.Lock()
	r.calls++
	n := r.calls
	r.mu.Unlock()
	if r.onRun != nil {
		r.onRun(n)
	}
	return r.err
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Runs the first tick immediately and keeps ticking after errors until canceled.
func TestRunLoopKeepsTickingAfterErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &countingRunner{err: errors.New("sync failed")}
	runner.onRun = func(n int) {
		if n == 3 {
			cancel()
		}
	}

	done := make(chan error, 1)
	go func() { done <- runLoop(ctx, runner, Config{LoopPeriod: 5 * time.Millisecond, RunOnStart: true}) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on cancel, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("loop did not stop after cancel")
	}
	if got := runner.count(); got < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", got)
	}
}

// Without RUN_ON_START nothing happens before the first period.
func TestRunLoopWaitsForFirstPeriod(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &countingRunner{}

	done := make(chan error, 1)
	go func() { done <- runLoop(ctx, runner, Config{LoopPeriod: time.Hour}) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	if got := runner.count(); got != 0 {
		t.Fatalf("expected no tick before the first period, got %d", got)
	}
}

// Agent construction errors stop StartLoop before any tick.
func TestStartLoopAgentError(t *testing.T) {
	old := newAgent
	t.Cleanup(func() { newAgent = old })

	newAgent = func() (*Agent, error) {
		return nil, errors.New("unknown strategy version")
	}

	if err := StartLoop(context.Background()); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestGetConfigDefaults(t *testing.T) {
	cfg := GetConfig()
	if cfg.LoopPeriod != 30*time.Second || !cfg.RunOnStart {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
