package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	UpbitBaseURL   string        `envconfig:"UPBIT_BASE_URL" default:"https://api.upbit.com"`
	UpbitAccessKey string        `envconfig:"UPBIT_ACCESS_KEY"`
	UpbitSecretKey string        `envconfig:"UPBIT_SECRET_KEY"`
	UpbitWSURL     string        `envconfig:"UPBIT_WS_URL" default:"wss://api.upbit.com/websocket/v1"`
	UpbitWSEnabled bool          `envconfig:"UPBIT_WS_ENABLED" default:"false"`
	UpbitWSMaxAge  time.Duration `envconfig:"UPBIT_WS_MAX_AGE" default:"15s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
