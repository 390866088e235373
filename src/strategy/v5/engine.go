package v5

import (
	"fmt"

	"evergreen/src/strategy"
)

// Engine is the regime/ATR strategy: buy on a BEAR to BULL flip of the EMA regime,
// sell on the opposite flip or when the ATR trailing stop is hit.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) Version() string {
	return Version
}

func (e *Engine) RequiredWarmupCandles(params strategy.Params) (int, error) {
	p, err := asParams(params)
	if err != nil {
		return 0, err
	}
	return max(p.RegimeEmaLen, p.AtrPeriod, p.VolRegimeLookback), nil
}

func (e *Engine) Evaluate(input strategy.Input) (strategy.Evaluation, error) {
	p, err := asParams(input.Params)
	if err != nil {
		return strategy.Evaluation{}, err
	}
	n := len(input.Candles)
	i := input.SignalIndex
	if i < 1 || i >= n {
		return strategy.Evaluation{}, fmt.Errorf("%w: %d not in [1, %d]", strategy.ErrSignalIndexOutOfRange, i, n-1)
	}

	closes := strategy.Closes(input.Candles)
	anchor := strategy.EMA(closes, p.RegimeEmaLen)
	atr := strategy.WilderATR(strategy.Highs(input.Candles), strategy.Lows(input.Candles), closes, p.AtrPeriod)
	regimes := strategy.ResolveRegimes(closes, anchor, p.RegimeBand)
	vol := strategy.ResolveVolatility(atr, closes, p.VolRegimeLookback, p.VolRegimeThreshold)

	prev, curr := regimes[i-1], regimes[i]
	hasPosition := input.Position.HasPosition()

	baseBuy := prev == strategy.RegimeBear && curr == strategy.RegimeBull
	baseSell := hasPosition && prev == strategy.RegimeBull && curr == strategy.RegimeBear

	multiplier := p.AtrMultLowVol
	if vol.IsHigh[i] {
		multiplier = p.AtrMultHighVol
	}
	trail := strategy.EvaluateTrailStop(input.Candles, i, atr[i], multiplier, input.Position, hasPosition)

	buySignal := !hasPosition && baseBuy
	sellSignal := hasPosition && (baseSell || trail.Triggered)

	upper, lower := strategy.None(), strategy.None()
	if anchor[i].OK {
		upper = anchor[i].Mul(1 + p.RegimeBand)
		lower = anchor[i].Mul(1 - p.RegimeBand)
	}
	quality := strategy.ResolveSignalQuality(closes, regimes, i)

	return strategy.Evaluation{
		Decision: strategy.Decision{
			BuySignal:  buySignal,
			SellSignal: sellSignal,
			Reason:     strategy.ResolveReason(buySignal, sellSignal, baseBuy, baseSell, trail.Triggered),
		},
		PrevRegime:    prev,
		CurrentRegime: curr,
		Diagnostics: []strategy.Diagnostic{
			strategy.TextDiagnostic("regime.previous", "Previous Regime", string(prev)),
			strategy.TextDiagnostic("regime.current", "Current Regime", string(curr)),
			strategy.NumberDiagnostic("regime.anchor", "Regime Anchor", anchor[i]),
			strategy.NumberDiagnostic("regime.upper", "Regime Upper Band", upper),
			strategy.NumberDiagnostic("regime.lower", "Regime Lower Band", lower),
			strategy.NumberDiagnostic("atr.value", "ATR", atr[i]),
			strategy.NumberDiagnostic("atr.multiplier", "ATR Multiplier", strategy.Some(multiplier)),
			strategy.NumberDiagnostic("atr.trail_stop", "ATR Trail Stop", trail.Stop),
			strategy.BoolDiagnostic("trail_stop.triggered", "Trail Stop Triggered", trail.Triggered),
			strategy.BoolDiagnostic("volatility.is_high", "High Volatility", vol.IsHigh[i]),
			strategy.NumberDiagnostic("volatility.atr_price_ratio", "ATR/Price Ratio", vol.Ratio[i]),
			strategy.NumberDiagnostic("volatility.percentile", "Volatility Percentile", vol.Percentile[i]),
			strategy.NumberDiagnostic("signal_quality.avg_1d_pct", "Signal Quality 1D", quality.Avg1dPct),
			strategy.NumberDiagnostic("signal_quality.avg_3d_pct", "Signal Quality 3D", quality.Avg3dPct),
			strategy.NumberDiagnostic("signal_quality.avg_7d_pct", "Signal Quality 7D", quality.Avg7dPct),
		},
	}, nil
}

func asParams(params strategy.Params) (Params, error) {
	switch p := params.(type) {
	case Params:
		return p, nil
	case *Params:
		if p != nil {
			return *p, nil
		}
	}
	return Params{}, fmt.Errorf("%w: v5 engine needs v5.Params, got %T", strategy.ErrInvalidParams, params)
}
