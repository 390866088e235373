package candles

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Markets []string `envconfig:"MARKETS" default:"KRW-BTC"`
	Count   int      `envconfig:"BACKFILL_COUNT" default:"400"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
