package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"evergreen/src/model"
	"evergreen/src/trading"

	"github.com/go-chi/chi/v5"
)

// TradingService is the execution surface the HTTP API exposes.
type TradingService interface {
	GetBalances(ctx context.Context, currency string) ([]trading.Balance, error)
	GetOrderChance(ctx context.Context, market string) (*trading.OrderChance, error)
	CreateOrder(ctx context.Context, req trading.CreateOrderRequest) (*model.Order, error)
	GetOrder(ctx context.Context, clientOrderID string) (*model.Order, error)
	CancelOrder(ctx context.Context, clientOrderID string) (*model.Order, error)
	ExecuteSignal(ctx context.Context, req trading.SignalExecuteRequest) (*model.Order, error)
}

type CoexistenceResolver interface {
	ResolveStatus(ctx context.Context, market string) (*trading.CoexistenceStatus, error)
}

// GetBalancesHandler lists Upbit balances, optionally filtered by ?currency=.
func GetBalancesHandler(svc TradingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		balances, err := svc.GetBalances(r.Context(), r.URL.Query().Get("currency"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, balances)
	}
}

// GetOrderChanceHandler returns fees and balances for ?market=.
func GetOrderChanceHandler(svc TradingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		market, ok := requiredQuery(w, r, "market")
		if !ok {
			return
		}
		chance, err := svc.GetOrderChance(r.Context(), market)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, chance)
	}
}

func CreateOrderHandler(svc TradingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req trading.CreateOrderRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if details := trading.CheckRequestShape(req); len(details) > 0 {
			WriteError(w, r, trading.ValidationFailed(details...))
			return
		}

		order, err := svc.CreateOrder(r.Context(), req)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, order)
	}
}

func GetOrderHandler(svc TradingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.GetOrder(r.Context(), chi.URLParam(r, "clientOrderId"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, order)
	}
}

func CancelOrderHandler(svc TradingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.CancelOrder(r.Context(), chi.URLParam(r, "clientOrderId"))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, order)
	}
}

// SignalExecuteHandler accepts a machine generated order and stamps its reason.
func SignalExecuteHandler(svc TradingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req trading.SignalExecuteRequest
		if !decodeBody(w, r, &req) {
			return
		}
		shape := trading.CreateOrderRequest{
			Market:    req.Market,
			Side:      req.Side,
			OrderType: req.OrderType,
			Quantity:  req.Quantity,
			Price:     req.Price,
			Mode:      req.Mode,
		}
		if details := trading.CheckRequestShape(shape); len(details) > 0 {
			WriteError(w, r, trading.ValidationFailed(details...))
			return
		}

		order, err := svc.ExecuteSignal(r.Context(), req)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, order)
	}
}

func CoexistenceHandler(resolver CoexistenceResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		market, ok := requiredQuery(w, r, "market")
		if !ok {
			return
		}
		status, err := resolver.ResolveStatus(r.Context(), market)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func requiredQuery(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		WriteError(w, r, trading.ValidationFailed(name+": must not be blank"))
		return "", false
	}
	return value, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		WriteError(w, r, trading.ValidationFailed(fmt.Sprintf("body: %v", err)))
		return false
	}
	return true
}
