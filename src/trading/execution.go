package trading

import (
	"context"
	"strings"

	"evergreen/src/connectors"
	"evergreen/src/metrics"
	"evergreen/src/model"
	"evergreen/src/repository"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// ExecutionService is the single entry point for creating, canceling and reading
// orders, whether they come from the HTTP API or from the strategy loop.
type ExecutionService struct {
	repos      *repository.Repositories
	exchange   Exchange
	guard      *GuardService
	reconciler *Reconciler
	paper      *PaperExecutor
	feeRate    decimal.Decimal
	metrics    *metrics.Metrics
}

func NewExecutionService(
	repos *repository.Repositories,
	exchange Exchange,
	guard *GuardService,
	reconciler *Reconciler,
	feeRate decimal.Decimal,
	m *metrics.Metrics,
) *ExecutionService {
	return &ExecutionService{
		repos:      repos,
		exchange:   exchange,
		guard:      guard,
		reconciler: reconciler,
		paper:      NewPaperExecutor(feeRate),
		feeRate:    feeRate,
		metrics:    m,
	}
}

// GetBalances lists exchange accounts, optionally only the one for currency.
func (s *ExecutionService) GetBalances(ctx context.Context, currency string) ([]Balance, error) {
	accounts, err := s.exchange.GetAccounts(ctx)
	if err != nil {
		return nil, upstream(err)
	}

	currency = strings.TrimSpace(currency)
	out := make([]Balance, 0, len(accounts))
	for _, a := range accounts {
		if currency != "" && !strings.EqualFold(currency, a.Currency) {
			continue
		}
		out = append(out, Balance{
			Currency:     a.Currency,
			Balance:      model.ParseDecimal(a.Balance),
			Locked:       model.ParseDecimal(a.Locked),
			AvgBuyPrice:  model.ParseDecimal(a.AvgBuyPrice),
			UnitCurrency: a.UnitCurrency,
		})
	}
	return out, nil
}

func (s *ExecutionService) GetOrderChance(ctx context.Context, market string) (*OrderChance, error) {
	chance, err := s.exchange.GetOrderChance(ctx, market)
	if err != nil {
		return nil, upstream(err)
	}
	return &OrderChance{
		Market:     market,
		BidFee:     model.ParseDecimal(chance.BidFee),
		AskFee:     model.ParseDecimal(chance.AskFee),
		BidBalance: accountBalance(chance.BidAccount),
		AskBalance: accountBalance(chance.AskAccount),
		MaxTotal:   model.ParseDecimal(chance.Market.MaxTotalValue()),
	}, nil
}

// CreateOrder validates req, then fills it on paper or sends it to Upbit.
func (s *ExecutionService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*model.Order, error) {
	if err := ValidateOrderRequest(req); err != nil {
		return nil, err
	}

	order := newOrder(req)
	if order.Mode == model.ExecutionModePaper {
		return s.createPaperOrder(ctx, order)
	}
	return s.createLiveOrder(ctx, order)
}

func (s *ExecutionService) createPaperOrder(ctx context.Context, order *model.Order) (*model.Order, error) {
	if order.OrderType == model.OrderTypeMarketBuy {
		qty := orZero(order.Quantity)
		if qty.Sign() <= 0 {
			return nil, invalidOrder("PAPER MARKET_BUY requires quantity")
		}
		order.Price = decimal.NewNullDecimal(order.RequestedNotional.DivRound(qty, model.DivisionScale))
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Orders.Create(ctx, order); err != nil {
			return err
		}
		if err := s.paper.Execute(ctx, tx, order); err != nil {
			return err
		}
		return tx.Audit.Record(ctx, model.AuditPaperOrderExecuted, "clientOrderId="+order.ClientOrderID)
	})
	if err != nil {
		return nil, internal(err)
	}

	s.metrics.OrderCreated(string(order.Mode), string(order.Side))
	return order, nil
}

func (s *ExecutionService) createLiveOrder(ctx context.Context, order *model.Order) (*model.Order, error) {
	decision := s.guard.EvaluateMode(ctx, model.ExecutionModeLive, order.Symbol)
	if decision.Blocked {
		return nil, conflict(CodeOrderBlocked, "Order blocked by guard: "+decision.Reason)
	}

	chance, err := s.exchange.GetOrderChance(ctx, order.Symbol)
	if err != nil {
		return nil, upstream(err)
	}

	notional, err := s.estimateNotional(ctx, order, chance)
	if err != nil {
		return nil, err
	}
	order.RequestedNotional = notional
	if order.OrderType == model.OrderTypeMarketBuy && orZero(order.Price).Sign() <= 0 {
		order.Price = decimal.NewNullDecimal(notional)
	}
	if err := checkBalance(order, chance, notional); err != nil {
		return nil, err
	}

	if err := s.repos.Orders.Create(ctx, order); err != nil {
		return nil, internal(err)
	}

	created, err := s.exchange.CreateOrder(ctx, toUpbitRequest(order))
	if err != nil {
		order.Status = model.OrderStatusFailed
		if saveErr := s.repos.Orders.Save(ctx, order); saveErr != nil {
			logger.WithFields(map[string]interface{}{
				"client_order_id": order.ClientOrderID,
				"market":          order.Symbol,
			}).WithError(saveErr).Error("Failed to mark order FAILED")
		}
		return nil, upstream(err)
	}

	reconciled, err := s.reconciler.Reconcile(ctx, order, created)
	if err != nil {
		return nil, internal(err)
	}
	s.audit(ctx, model.AuditLiveOrderSubmitted, reconciled.ClientOrderID)
	s.metrics.OrderCreated(string(order.Mode), string(order.Side))

	return reconciled, nil
}

// CancelOrder cancels a paper order locally or asks Upbit to cancel a live one.
func (s *ExecutionService) CancelOrder(ctx context.Context, clientOrderID string) (*model.Order, error) {
	order, err := s.findOrder(ctx, clientOrderID)
	if err != nil {
		return nil, err
	}

	if order.Mode == model.ExecutionModePaper {
		if order.Status == model.OrderStatusFilled {
			return nil, conflict(CodeCannotCancel, "Filled PAPER order cannot be canceled")
		}
		order.Status = model.OrderStatusCanceled
		if err := s.repos.Orders.Save(ctx, order); err != nil {
			return nil, internal(err)
		}
		return order, nil
	}

	if order.ExchangeOrderID == "" {
		return nil, conflict(CodeMissingExchangeID, "Order exchange uuid is missing")
	}

	canceled, err := s.exchange.CancelOrder(ctx, order.ExchangeOrderID)
	if err != nil {
		return nil, upstream(err)
	}
	reconciled, err := s.reconciler.Reconcile(ctx, order, canceled)
	if err != nil {
		return nil, internal(err)
	}
	s.audit(ctx, model.AuditLiveOrderCanceled, reconciled.ClientOrderID)
	return reconciled, nil
}

// GetOrder returns the order, refreshed from Upbit when it is a known live order.
func (s *ExecutionService) GetOrder(ctx context.Context, clientOrderID string) (*model.Order, error) {
	order, err := s.findOrder(ctx, clientOrderID)
	if err != nil {
		return nil, err
	}
	if order.Mode != model.ExecutionModeLive || order.ExchangeOrderID == "" {
		return order, nil
	}
	return s.refresh(ctx, order)
}

// ExecuteSignal sends a machine generated order through CreateOrder.
func (s *ExecutionService) ExecuteSignal(ctx context.Context, req SignalExecuteRequest) (*model.Order, error) {
	reason := "signal"
	if ts := strings.TrimSpace(req.SignalTimestamp); ts != "" {
		reason = "signal:" + ts
	}
	return s.CreateOrder(ctx, CreateOrderRequest{
		Market:    req.Market,
		Side:      req.Side,
		OrderType: req.OrderType,
		Quantity:  req.Quantity,
		Price:     req.Price,
		Mode:      req.Mode,
		Reason:    reason,
	})
}

// RefreshActiveOrders polls Upbit for every active live order of market that already
// has an exchange id. It returns how many orders were refreshed.
func (s *ExecutionService) RefreshActiveOrders(ctx context.Context, market string) (int, error) {
	orders, err := s.repos.Orders.FindActiveWithExchangeID(ctx, market, model.ExecutionModeLive)
	if err != nil {
		return 0, internal(err)
	}
	refreshed := 0
	for i := range orders {
		if _, err := s.refresh(ctx, &orders[i]); err != nil {
			return refreshed, err
		}
		refreshed++
	}
	return refreshed, nil
}

func (s *ExecutionService) refresh(ctx context.Context, order *model.Order) (*model.Order, error) {
	resp, err := s.exchange.GetOrder(ctx, order.ExchangeOrderID)
	if err != nil {
		return nil, upstream(err)
	}
	reconciled, err := s.reconciler.Reconcile(ctx, order, resp)
	if err != nil {
		return nil, internal(err)
	}
	return reconciled, nil
}

func (s *ExecutionService) findOrder(ctx context.Context, clientOrderID string) (*model.Order, error) {
	order, err := s.repos.Orders.FindByClientOrderID(ctx, clientOrderID)
	if err != nil {
		return nil, internal(err)
	}
	if order == nil {
		return nil, orderNotFound()
	}
	return order, nil
}

func (s *ExecutionService) audit(ctx context.Context, eventType, clientOrderID string) {
	if err := s.repos.Audit.Record(ctx, eventType, "clientOrderId="+clientOrderID); err != nil {
		logger.WithFields(map[string]interface{}{
			"type":            eventType,
			"client_order_id": clientOrderID,
		}).WithError(err).Error("Failed to write audit event")
	}
}

// estimateNotional keeps a positive requested notional, otherwise sizes MARKET_BUY
// from the spendable KRW balance and MARKET_SELL from a reference price.
func (s *ExecutionService) estimateNotional(ctx context.Context, order *model.Order, chance *connectors.UpbitOrderChance) (decimal.Decimal, error) {
	if order.RequestedNotional.Sign() > 0 {
		return order.RequestedNotional, nil
	}

	switch order.OrderType {
	case model.OrderTypeMarketBuy:
		spendable := s.spendableKRW(accountBalance(chance.BidAccount))
		if spendable.Sign() <= 0 {
			return decimal.Zero, insufficientBalance("Insufficient KRW balance for buy order")
		}
		return spendable, nil

	case model.OrderTypeMarketSell:
		ref := orZero(order.Price)
		if ref.Sign() <= 0 && chance.AskAccount != nil {
			ref = model.ParseDecimal(chance.AskAccount.AvgBuyPrice)
		}
		if ref.Sign() <= 0 {
			ref = s.latestTradePrice(ctx, order.Symbol)
		}
		if ref.Sign() <= 0 {
			return decimal.Zero, missingReferencePrice()
		}
		return orZero(order.Quantity).Mul(ref), nil
	}

	return order.RequestedNotional, nil
}

// spendableKRW is balance·(1-feeRate) floored to a whole won.
func (s *ExecutionService) spendableKRW(balance decimal.Decimal) decimal.Decimal {
	multiplier := decimal.NewFromInt(1).Sub(s.feeRate)
	if multiplier.Sign() <= 0 || multiplier.GreaterThan(decimal.NewFromInt(1)) {
		multiplier = decimal.NewFromInt(1)
	}
	return balance.Mul(multiplier).RoundDown(0)
}

func (s *ExecutionService) latestTradePrice(ctx context.Context, market string) decimal.Decimal {
	tickers, err := s.exchange.GetTickers(ctx, market)
	if err != nil {
		logger.WithField("market", market).WithError(err).Debug("Ticker lookup failed")
		return decimal.Zero
	}
	if len(tickers) == 0 || !tickers[0].TradePrice.Valid || tickers[0].TradePrice.Decimal.Sign() <= 0 {
		return decimal.Zero
	}
	return tickers[0].TradePrice.Decimal
}

func checkBalance(order *model.Order, chance *connectors.UpbitOrderChance, notional decimal.Decimal) error {
	if order.Side == model.OrderSideBuy {
		if accountBalance(chance.BidAccount).LessThan(notional) {
			return insufficientBalance("Insufficient KRW balance for buy order")
		}
		return nil
	}
	if accountBalance(chance.AskAccount).LessThan(orZero(order.Quantity)) {
		return insufficientBalance("Insufficient asset balance for sell order")
	}
	return nil
}

func accountBalance(a *connectors.UpbitAccount) decimal.Decimal {
	if a == nil {
		return decimal.Zero
	}
	return model.ParseDecimal(a.Balance)
}

func toUpbitRequest(order *model.Order) connectors.UpbitOrderRequest {
	side := connectors.UpbitSideAsk
	if order.Side == model.OrderSideBuy {
		side = connectors.UpbitSideBid
	}

	req := connectors.UpbitOrderRequest{
		Market:     order.Symbol,
		Side:       side,
		Identifier: order.ClientOrderID,
	}
	switch order.OrderType {
	case model.OrderTypeLimit:
		req.OrdType = connectors.UpbitOrdTypeLimit
		req.Volume = plain(order.Quantity)
		req.Price = plain(order.Price)
	case model.OrderTypeMarketBuy:
		req.OrdType = connectors.UpbitOrdTypePrice
		req.Price = plain(order.Price)
	case model.OrderTypeMarketSell:
		req.OrdType = connectors.UpbitOrdTypeMarket
		req.Volume = plain(order.Quantity)
	}
	return req
}

func plain(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return model.PlainString(v.Decimal)
}
