package marketdata

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	CandleCount      int  `envconfig:"CANDLE_COUNT" default:"400"`
	ClosedCandleOnly bool `envconfig:"CLOSED_CANDLE_ONLY" default:"true"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	if config.CandleCount <= 0 {
		panic(fmt.Errorf("error processing env config: CANDLE_COUNT must be positive, got %d", config.CandleCount))
	}
	return config
}
