package executors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	LoopPeriod time.Duration `envconfig:"LOOP_PERIOD" default:"30s"`
	RunOnStart bool          `envconfig:"RUN_ON_START" default:"true"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	if config.LoopPeriod <= 0 {
		panic(fmt.Errorf("error processing env config: LOOP_PERIOD must be positive"))
	}
	return config
}
