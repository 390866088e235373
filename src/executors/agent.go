package executors

import (
	"context"
	"fmt"

	"evergreen/src/connectors"
	"evergreen/src/marketdata"
	"evergreen/src/metrics"
	"evergreen/src/repository"
	"evergreen/src/signal"
	"evergreen/src/strategy"
	v5 "evergreen/src/strategy/v5"
	"evergreen/src/trading"
	"evergreen/src/utils"

	logger "github.com/sirupsen/logrus"
)

// Agent is every long lived service of the trading agent, wired from env config.
// The HTTP API and the orchestrator loop share one Agent.
type Agent struct {
	Repos       *repository.Repositories
	Client      *connectors.UpbitClient
	Ticker      *connectors.UpbitTickerStream
	Metrics     *metrics.Metrics
	Guard       *trading.GuardService
	Execution   *trading.ExecutionService
	Coexistence *trading.CoexistenceService
	MarketData  *marketdata.Service
	Workflow    *signal.Workflow
}

// NewAgent builds the agent on database.MainDB. Unknown strategy versions and
// invalid params fail here, before the first tick.
func NewAgent() (*Agent, error) {
	return NewAgentWithRepos(repository.NewRepositories())
}

func NewAgentWithRepos(repos *repository.Repositories) (*Agent, error) {
	upbitConfig := connectors.GetConfig()
	tradingConfig := trading.GetConfig()
	signalConfig := signal.GetConfig()
	marketConfig := marketdata.GetConfig()
	strategyConfig := strategy.GetConfig()

	registry, err := strategy.NewRegistry(v5.NewEngine())
	if err != nil {
		return nil, err
	}
	if _, err := registry.Require(strategyConfig.ActiveStrategyVersion); err != nil {
		return nil, err
	}
	params, err := strategy.NewParamResolver(strategyConfig.ActiveStrategyVersion, v5.GetParams())
	if err != nil {
		return nil, fmt.Errorf("resolve strategy params: %w", err)
	}

	m := metrics.New()
	client := connectors.NewUpbitClientFromConfig(upbitConfig)
	markets := utils.NormalizeMarkets(signalConfig.Markets)

	var prices marketdata.PriceCache
	var ticker *connectors.UpbitTickerStream
	if upbitConfig.UpbitWSEnabled {
		ticker = connectors.NewUpbitTickerStream(upbitConfig.UpbitWSURL, markets, upbitConfig.UpbitWSMaxAge)
		prices = ticker
	}

	mode := tradingConfig.ExecutionMode
	guard := trading.NewGuardService(repos, client, mode, m)
	reconciler := trading.NewReconciler(repos, m)
	execution := trading.NewExecutionService(repos, client, guard, reconciler, tradingConfig.FeeRate, m)
	positions := trading.NewPositionSync(repos, client, mode, trading.NewDriftMonitor())
	marketData := marketdata.NewService(client, registry, params, marketConfig, prices)

	workflow := signal.NewWorkflow(signal.WorkflowDeps{
		Config:     signalConfig,
		Mode:       mode,
		Repos:      repos,
		MarketData: marketData,
		Registry:   registry,
		Params:     params,
		Trader:     execution,
		Positions:  positions,
		Store:      signal.NewStore(signalConfig),
		Exceptions: repos.Exceptions,
		Metrics:    m,
	})

	logger.WithFields(map[string]interface{}{
		"mode":             mode,
		"markets":          markets,
		"strategy_version": params.ActiveVersion(),
		"signal_store":     signalConfig.SignalStore,
		"ws_enabled":       upbitConfig.UpbitWSEnabled,
	}).Info("Trading agent configured")

	return &Agent{
		Repos:       repos,
		Client:      client,
		Ticker:      ticker,
		Metrics:     m,
		Guard:       guard,
		Execution:   execution,
		Coexistence: trading.NewCoexistenceService(repos, guard),
		MarketData:  marketData,
		Workflow:    workflow,
	}, nil
}

// StartFeeds runs the websocket ticker stream, when enabled, until ctx is done.
func (a *Agent) StartFeeds(ctx context.Context) {
	if a.Ticker == nil {
		return
	}
	go a.Ticker.Run(ctx)
}
