package main

import (
	"fmt"
	"os"
	"time"

	"evergreen/cmd/executor"
	"evergreen/src/database"
	"evergreen/src/utils"

	logger "github.com/sirupsen/logrus"
)

var APP_NAME = os.Getenv("APP_NAME")

func main() {
	config := database.GetConfig()
	utils.SetupLogger(config.LogLevel, config.LogFormat)
	defer handlePanic()

	// API and orchestrator loop in one process, sharing the agent.
	service := &executor.Executor{ServeAPI: true}
	if err := service.Start(); err != nil {
		logger.WithError(err).Fatal("Trading agent stopped")
	}
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
		//nolint
		time.Sleep(time.Second * 5)
	}
}
