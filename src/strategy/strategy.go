package strategy

import (
	"errors"
	"time"
)

type Regime string

const (
	RegimeBull    Regime = "BULL"
	RegimeBear    Regime = "BEAR"
	RegimeUnknown Regime = "UNKNOWN"
)

const (
	ReasonBuyRegimeTransition    = "BUY_REGIME_TRANSITION"
	ReasonSellRegimeAndTrailStop = "SELL_REGIME_AND_TRAIL_STOP"
	ReasonSellTrailStop          = "SELL_TRAIL_STOP"
	ReasonSellRegimeTransition   = "SELL_REGIME_TRANSITION"
	ReasonSetupBuy               = "SETUP_BUY"
	ReasonSetupSell              = "SETUP_SELL"
	ReasonNone                   = "NONE"
)

var (
	ErrSignalIndexOutOfRange = errors.New("signal index out of range")
	ErrInvalidParams         = errors.New("invalid strategy params")
	ErrUnknownVersion        = errors.New("no strategy engine registered for version")
	ErrDuplicateVersion      = errors.New("duplicate strategy engine registered for version")
	ErrVersionRequired       = errors.New("strategy version is required")
)

// Candle is the analytical view of one daily bar.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// PositionSnapshot is what the engine knows about the current holding.
// A zero UpdatedAt means the entry time is unknown.
type PositionSnapshot struct {
	Qty       float64
	AvgPrice  float64
	UpdatedAt time.Time
}

func (p PositionSnapshot) HasPosition() bool {
	return p.Qty > 0
}

// Params is implemented by every versioned parameter bundle.
type Params interface {
	Version() string
	Validate() error
}

type Input struct {
	Candles     []Candle
	SignalIndex int
	Position    PositionSnapshot
	Params      Params
}

type Decision struct {
	BuySignal  bool
	SellSignal bool
	Reason     string
}

type Evaluation struct {
	Decision      Decision
	PrevRegime    Regime
	CurrentRegime Regime
	Diagnostics   []Diagnostic
}

// Diagnostic returns the entry stored under key.
func (e Evaluation) Diagnostic(key string) (Diagnostic, bool) {
	for _, d := range e.Diagnostics {
		if d.Key == key {
			return d, true
		}
	}
	return Diagnostic{}, false
}

// Engine is one versioned strategy. Implementations must be pure.
type Engine interface {
	Version() string
	RequiredWarmupCandles(params Params) (int, error)
	Evaluate(input Input) (Evaluation, error)
}

// ResolveReason picks the reason code by priority.
func ResolveReason(buySignal, sellSignal, baseBuy, baseSell, trailTriggered bool) string {
	switch {
	case buySignal:
		return ReasonBuyRegimeTransition
	case sellSignal && baseSell && trailTriggered:
		return ReasonSellRegimeAndTrailStop
	case sellSignal && trailTriggered:
		return ReasonSellTrailStop
	case sellSignal && baseSell:
		return ReasonSellRegimeTransition
	case baseBuy:
		return ReasonSetupBuy
	case baseSell:
		return ReasonSetupSell
	default:
		return ReasonNone
	}
}
