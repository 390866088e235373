package strategy

import (
	"math"
	"time"

	"evergreen/src/utils"
)

// EMA returns the exponential moving average of values. The first defined point is
// the simple mean of the first length values, placed at index length-1.
func EMA(values []float64, length int) []Value {
	n := len(values)
	out := make([]Value, n)
	if length <= 0 || n < length {
		return out
	}

	seed := 0.0
	for i := 0; i < length; i++ {
		seed += values[i]
	}
	out[length-1] = Some(seed / float64(length))

	alpha := 2.0 / (float64(length) + 1.0)
	for i := length; i < n; i++ {
		out[i] = Some(alpha*values[i] + (1.0-alpha)*out[i-1].V)
	}
	return out
}

// WilderATR returns the average true range with Wilder smoothing.
func WilderATR(high, low, close []float64, period int) []Value {
	n := len(close)
	out := make([]Value, n)
	if period <= 0 || n < period {
		return out
	}

	tr := make([]float64, n)
	tr[0] = high[0] - low[0]
	for i := 1; i < n; i++ {
		tr[i] = math.Max(high[i]-low[i], math.Max(math.Abs(high[i]-close[i-1]), math.Abs(low[i]-close[i-1])))
	}

	total := 0.0
	for i := 0; i < period; i++ {
		total += tr[i]
	}
	out[period-1] = Some(total / float64(period))
	p := float64(period)
	for i := period; i < n; i++ {
		out[i] = Some((out[i-1].V*(p-1) + tr[i]) / p)
	}
	return out
}

// ResolveRegimes classifies every bar against anchor·(1±band). Inside the band the
// previous regime carries over; with no previous regime the close is compared to the
// anchor itself.
func ResolveRegimes(close []float64, anchor []Value, band float64) []Regime {
	regimes := make([]Regime, len(close))
	for i := range close {
		if !anchor[i].OK {
			regimes[i] = RegimeUnknown
			continue
		}
		a := anchor[i].V
		upper := a * (1.0 + band)
		lower := a * (1.0 - band)
		previous := RegimeUnknown
		if i > 0 {
			previous = regimes[i-1]
		}

		switch {
		case close[i] > upper:
			regimes[i] = RegimeBull
		case close[i] < lower:
			regimes[i] = RegimeBear
		case previous != RegimeUnknown:
			regimes[i] = previous
		case close[i] > a:
			regimes[i] = RegimeBull
		case close[i] < a:
			regimes[i] = RegimeBear
		default:
			regimes[i] = RegimeUnknown
		}
	}
	return regimes
}

// Volatility holds the per-bar ATR/price ratio and its rolling rank percentile.
type Volatility struct {
	Ratio      []Value
	Percentile []Value
	IsHigh     []bool
}

// ResolveVolatility ranks atr/close inside a trailing window of lookback bars.
func ResolveVolatility(atr []Value, close []float64, lookback int, threshold float64) Volatility {
	n := len(close)
	v := Volatility{
		Ratio:      make([]Value, n),
		Percentile: make([]Value, n),
		IsHigh:     make([]bool, n),
	}

	for i := 0; i < n; i++ {
		if atr[i].OK && close[i] > 0 && !math.IsInf(close[i], 0) {
			v.Ratio[i] = Some(atr[i].V / close[i])
		}
		if !v.Ratio[i].OK {
			continue
		}

		start := i - lookback + 1
		if start < 0 {
			start = 0
		}
		count, belowOrEqual := 0, 0
		for j := start; j <= i; j++ {
			if !v.Ratio[j].OK {
				continue
			}
			count++
			if v.Ratio[j].V <= v.Ratio[i].V {
				belowOrEqual++
			}
		}
		if count == 0 {
			continue
		}
		v.Percentile[i] = Some(float64(belowOrEqual) / float64(count))
		v.IsHigh[i] = v.Percentile[i].V >= threshold
	}
	return v
}

// HighestCloseSince returns the highest close from the first candle on or after the
// UTC date of since through signalIndex. A zero since scans from the first candle;
// when no candle qualifies only the signal bar is used.
func HighestCloseSince(candles []Candle, signalIndex int, since time.Time) Value {
	start := 0
	if !since.IsZero() {
		start = signalIndex
		for i := 0; i <= signalIndex; i++ {
			if utils.SameOrAfterDay(candles[i].Timestamp, since) {
				start = i
				break
			}
		}
	}

	highest := None()
	for i := start; i <= signalIndex; i++ {
		if !highest.OK || candles[i].Close > highest.V {
			highest = Some(candles[i].Close)
		}
	}
	return highest
}

// TrailStop is the ATR trailing stop reading at the signal bar.
type TrailStop struct {
	Stop      Value
	Triggered bool
}

// EvaluateTrailStop computes highest close since entry minus multiplier·atr.
func EvaluateTrailStop(candles []Candle, signalIndex int, atr Value, multiplier float64, position PositionSnapshot, hasPosition bool) TrailStop {
	if !hasPosition || multiplier <= 0 || !atr.OK {
		return TrailStop{}
	}
	highest := HighestCloseSince(candles, signalIndex, position.UpdatedAt)
	if !highest.OK {
		return TrailStop{}
	}
	stop := Some(highest.V - multiplier*atr.V)
	return TrailStop{Stop: stop, Triggered: stop.OK && candles[signalIndex].Close <= stop.V}
}

// SignalQuality averages the forward returns, in percent, that followed every
// BEAR to BULL transition up to the signal bar.
type SignalQuality struct {
	Avg1dPct Value
	Avg3dPct Value
	Avg7dPct Value
}

func ResolveSignalQuality(close []float64, regimes []Regime, signalIndex int) SignalQuality {
	horizons := [3]int{1, 3, 7}
	var sums [3]float64
	var counts [3]int

	for i := 1; i <= signalIndex; i++ {
		if regimes[i-1] != RegimeBear || regimes[i] != RegimeBull {
			continue
		}
		if close[i] <= 0 || math.IsNaN(close[i]) || math.IsInf(close[i], 0) {
			continue
		}
		for k, h := range horizons {
			if i+h > signalIndex || math.IsNaN(close[i+h]) || math.IsInf(close[i+h], 0) {
				continue
			}
			sums[k] += (close[i+h]/close[i] - 1.0) * 100.0
			counts[k]++
		}
	}

	avg := func(k int) Value {
		if counts[k] == 0 {
			return None()
		}
		return Some(sums[k] / float64(counts[k]))
	}
	return SignalQuality{Avg1dPct: avg(0), Avg3dPct: avg(1), Avg7dPct: avg(2)}
}

// Closes, Highs and Lows project one field of the candle series.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func Highs(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

func Lows(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}
