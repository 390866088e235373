package trading

import (
	"fmt"

	"evergreen/src/model"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	ExecutionMode model.ExecutionMode `envconfig:"EXECUTION_MODE" default:"LIVE"`
	FeeRate       decimal.Decimal     `envconfig:"FEE_RATE" default:"0.0005"`
}

func GetConfig() Config {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	if cfg.ExecutionMode != model.ExecutionModeLive && cfg.ExecutionMode != model.ExecutionModePaper {
		panic(fmt.Errorf("error processing env config: unsupported EXECUTION_MODE %q", cfg.ExecutionMode))
	}
	return cfg
}
