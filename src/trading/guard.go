package trading

import (
	"context"

	"evergreen/src/connectors"
	"evergreen/src/metrics"
	"evergreen/src/model"
	"evergreen/src/repository"

	logger "github.com/sirupsen/logrus"
)

const (
	GuardReasonNone              = "NONE"
	GuardReasonLocalActiveOrder  = "LOCAL_ACTIVE_ORDER"
	GuardReasonExternalOpenOrder = "EXTERNAL_OPEN_ORDER"
	GuardReasonQueryFailed       = "GUARD_QUERY_FAILED"
)

type GuardDecision struct {
	Blocked                bool   `json:"blocked"`
	Reason                 string `json:"reason"`
	HasExternalOpenOrder   bool   `json:"has_external_open_order"`
	ExternalOpenOrderCount int    `json:"external_open_order_count"`
}

// GuardService decides whether a new order may be sent for a market. It is the only
// protection against overlapping orders, so any uncertainty blocks.
type GuardService struct {
	repos    *repository.Repositories
	exchange Exchange
	mode     model.ExecutionMode
	metrics  *metrics.Metrics
}

func NewGuardService(repos *repository.Repositories, exchange Exchange, mode model.ExecutionMode, m *metrics.Metrics) *GuardService {
	return &GuardService{repos: repos, exchange: exchange, mode: mode, metrics: m}
}

// Evaluate checks market against the configured execution mode.
func (g *GuardService) Evaluate(ctx context.Context, market string) GuardDecision {
	return g.EvaluateMode(ctx, g.mode, market)
}

// EvaluateMode checks market for an explicit execution mode.
func (g *GuardService) EvaluateMode(ctx context.Context, mode model.ExecutionMode, market string) GuardDecision {
	decision := g.evaluate(ctx, mode, market)
	if decision.Blocked {
		g.metrics.GuardBlocked(decision.Reason)
	}
	return decision
}

func (g *GuardService) evaluate(ctx context.Context, mode model.ExecutionMode, market string) GuardDecision {
	active, err := g.repos.Orders.ExistsActive(ctx, mode, market)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"event":   "external_order_guard",
			"market":  market,
			"blocked": true,
			"reason":  "local_query_failed",
		}).WithError(err).Warn("Guard could not read local orders")

		return GuardDecision{Blocked: true, Reason: GuardReasonQueryFailed}
	}
	if active {
		return GuardDecision{Blocked: true, Reason: GuardReasonLocalActiveOrder}
	}

	if mode != model.ExecutionModeLive {
		return GuardDecision{Reason: GuardReasonNone}
	}

	open, err := g.exchange.GetOpenOrders(ctx, market, connectors.UpbitStateWait)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"event":   "external_order_guard",
			"market":  market,
			"blocked": true,
			"reason":  "guard_query_failed",
		}).WithError(err).Warn("Guard could not list open orders")

		return GuardDecision{Blocked: true, Reason: GuardReasonQueryFailed}
	}

	if len(open) > 0 {
		logger.WithFields(map[string]interface{}{
			"event":            "external_order_guard",
			"market":           market,
			"blocked":          true,
			"reason":           "open_order_detected",
			"open_order_count": len(open),
		}).Warn("External open order detected")

		return GuardDecision{
			Blocked:                true,
			Reason:                 GuardReasonExternalOpenOrder,
			HasExternalOpenOrder:   true,
			ExternalOpenOrderCount: len(open),
		}
	}

	return GuardDecision{Reason: GuardReasonNone}
}
