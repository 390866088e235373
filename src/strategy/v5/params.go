package v5

import (
	"fmt"
	"math"

	"evergreen/src/strategy"

	"github.com/kelseyhightower/envconfig"
)

const Version = "v5"

// Params is the v5 parameter bundle, read from V5_* variables.
type Params struct {
	RegimeEmaLen       int     `envconfig:"REGIME_EMA_LEN" default:"120"`
	AtrPeriod          int     `envconfig:"ATR_PERIOD" default:"18"`
	AtrMultLowVol      float64 `envconfig:"ATR_MULT_LOW_VOL" default:"2.0"`
	AtrMultHighVol     float64 `envconfig:"ATR_MULT_HIGH_VOL" default:"3.0"`
	VolRegimeLookback  int     `envconfig:"VOL_REGIME_LOOKBACK" default:"40"`
	VolRegimeThreshold float64 `envconfig:"VOL_REGIME_THRESHOLD" default:"0.6"`
	RegimeBand         float64 `envconfig:"REGIME_BAND" default:"0.01"`
}

func DefaultParams() Params {
	return Params{
		RegimeEmaLen:       120,
		AtrPeriod:          18,
		AtrMultLowVol:      2.0,
		AtrMultHighVol:     3.0,
		VolRegimeLookback:  40,
		VolRegimeThreshold: 0.6,
		RegimeBand:         0.01,
	}
}

// GetParams reads and validates the bundle; invalid values stop the process.
func GetParams() Params {
	var p Params
	if err := envconfig.Process("V5", &p); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	if err := p.Validate(); err != nil {
		panic(err)
	}
	return p
}

func (p Params) Version() string {
	return Version
}

func (p Params) Validate() error {
	switch {
	case p.RegimeEmaLen <= 0:
		return fmt.Errorf("%w: regimeEmaLen must be positive", strategy.ErrInvalidParams)
	case p.AtrPeriod <= 0:
		return fmt.Errorf("%w: atrPeriod must be positive", strategy.ErrInvalidParams)
	case p.VolRegimeLookback <= 0:
		return fmt.Errorf("%w: volRegimeLookback must be positive", strategy.ErrInvalidParams)
	case !finiteNonNegative(p.AtrMultLowVol):
		return fmt.Errorf("%w: atrMultLowVol must be >= 0", strategy.ErrInvalidParams)
	case !finiteNonNegative(p.AtrMultHighVol):
		return fmt.Errorf("%w: atrMultHighVol must be >= 0", strategy.ErrInvalidParams)
	case math.IsNaN(p.VolRegimeThreshold) || p.VolRegimeThreshold <= 0 || p.VolRegimeThreshold > 1:
		return fmt.Errorf("%w: volRegimeThreshold must be in (0, 1]", strategy.ErrInvalidParams)
	case math.IsNaN(p.RegimeBand) || p.RegimeBand < 0 || p.RegimeBand >= 1:
		return fmt.Errorf("%w: regimeBand must be in [0, 1)", strategy.ErrInvalidParams)
	}
	return nil
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
