package executors

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
)

// Runner is one orchestrator tick.
type Runner interface {
	RunOnce(ctx context.Context) error
}

var newAgent = NewAgent

// StartLoop builds the agent and runs its orchestrator tick every LOOP_PERIOD until
// ctx is canceled.
func StartLoop(ctx context.Context) error {
	agent, err := newAgent()
	if err != nil {
		logger.WithError(err).Error("Failed to build trading agent")
		return err
	}
	agent.StartFeeds(ctx)

	return agent.RunLoop(ctx)
}

// RunLoop runs the orchestrator of an already built agent, for callers that share
// the agent with the HTTP API.
func (a *Agent) RunLoop(ctx context.Context) error {
	return runLoop(ctx, a.Workflow, GetConfig())
}

// runLoop never overlaps ticks: a tick that outlasts the period delays the next one.
// Tick errors are logged; only ctx cancellation stops the loop.
func runLoop(ctx context.Context, runner Runner, config Config) error {
	ticker := time.NewTicker(config.LoopPeriod) // Set up a ticker that fires periodically
	defer ticker.Stop()

	if config.RunOnStart {
		runTick(ctx, runner)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Println("loop stopped")
			return nil

		case <-ticker.C:
			runTick(ctx, runner)
		}
	}
}

func runTick(ctx context.Context, runner Runner) {
	logger.Debug("loop tick")
	start := time.Now()
	if err := runner.RunOnce(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Error("Orchestrator tick failed")
		return
	}
	logger.WithField("elapsed", time.Since(start).String()).Debug("loop tick done")
}
