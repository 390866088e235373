package executor

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"evergreen/src/database"
	"evergreen/src/executors"
	"evergreen/src/security"
	"evergreen/src/server"

	"github.com/sirupsen/logrus"
)

// Executor runs the trading agent. With ServeAPI the HTTP API shares the agent
// with the orchestrator loop; with SkipLoop only the API runs.
type Executor struct {
	ServeAPI bool
	SkipLoop bool
}

func (t *Executor) Start() error {
	if !t.ServeAPI && t.SkipLoop {
		return errors.New("nothing to run: enable the API or the loop")
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to main database")
		return err
	}

	agent, err := executors.NewAgent()
	if err != nil {
		logrus.WithError(err).Error("Failed to build trading agent")
		return err
	}
	agent.StartFeeds(ctx)

	errCh := make(chan error, 2)
	running := 0

	if t.ServeAPI {
		serverConfig := server.GetConfig()
		router := server.NewRouter(server.RouterDeps{
			Trading:        agent.Execution,
			Coexistence:    agent.Coexistence,
			Metrics:        agent.Metrics.Handler(),
			APITokenHash:   security.GetConfig().APITokenHash,
			RequestTimeout: serverConfig.RequestTimeout,
		})
		running++
		go func() {
			errCh <- server.StartServer(ctx, serverConfig.Port, router, serverConfig.ShutdownTimeout)
		}()
	}

	if !t.SkipLoop {
		logrus.Info("Starting orchestrator loop")
		running++
		go func() {
			errCh <- agent.RunLoop(ctx)
		}()
	}

	// The first failure stops everything else.
	var firstErr error
	for i := 0; i < running; i++ {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
			stop()
		}
	}
	if firstErr != nil {
		logrus.WithError(firstErr).Error("Executor stopped with error")
	}
	return firstErr
}
