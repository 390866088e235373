package signal

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	Markets             []string        `envconfig:"MARKETS" default:"KRW-BTC"`
	MinPositionQty      decimal.Decimal `envconfig:"MIN_POSITION_QTY" default:"0"`
	SignalOrderNotional decimal.Decimal `envconfig:"SIGNAL_ORDER_NOTIONAL" default:"100000"`
	SignalStore         string          `envconfig:"SIGNAL_STORE" default:"memory"`
	RedisAddr           string          `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword       string          `envconfig:"REDIS_PASSWORD"`
	RedisDB             int             `envconfig:"REDIS_DB" default:"0"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	if config.SignalStore != StoreMemory && config.SignalStore != StoreRedis {
		panic(fmt.Errorf("error processing env config: unsupported SIGNAL_STORE %q", config.SignalStore))
	}
	if !config.SignalOrderNotional.IsPositive() {
		panic(fmt.Errorf("error processing env config: SIGNAL_ORDER_NOTIONAL must be positive"))
	}
	return config
}
