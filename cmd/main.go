package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"evergreen/cmd/candles"
	"evergreen/cmd/executor"
	"evergreen/cmd/keys"
	"evergreen/src/connectors"
	"evergreen/src/database"
	"evergreen/src/repository"
	"evergreen/src/utils"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Evergreen CMD"
	app.Usage = "The Evergreen trading agent command line interface"
	app.Version = Version
	app.Before = func(_ *cli.Context) error {
		config := database.GetConfig()
		utils.SetupLogger(config.LogLevel, config.LogFormat)
		return nil
	}

	app.Commands = []cli.Command{
		executorCMD,
		serverCMD,
		candlesCMD,
		hashTokenCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	executorCMD = cli.Command{
		Name:      "executor",
		Usage:     "run the orchestrator loop",
		Action:    executorAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.BoolFlag{Name: "serve", Usage: "also serve the HTTP API"},
		},
		Description: `Run the signal loop every LOOP_PERIOD until interrupted`,
	}
	serverCMD = cli.Command{
		Name:        "server",
		Usage:       "run the HTTP API only",
		Action:      serverAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Serve /api/trading, /metrics and /healthcheck without the loop`,
	}
	candlesCMD = cli.Command{
		Name:        "candles",
		Usage:       "backfill daily candles",
		Action:      candlesAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Fetch BACKFILL_COUNT daily candles per market into candles_1d`,
	}
	hashTokenCMD = cli.Command{
		Name:        "hash-token",
		Usage:       "print the bcrypt hash of an API token",
		Action:      hashTokenAction,
		ArgsUsage:   "[token]",
		Flags:       []cli.Flag{},
		Description: `Reads the token from the argument or stdin and prints API_TOKEN_HASH`,
	}
)

func executorAction(c *cli.Context) error {

	logrus.WithField("cmd", "executor").Info("Starting executor CMD")

	executorStrategy := &executor.Executor{ServeAPI: c.Bool("serve")}
	err := executorStrategy.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func serverAction(_ *cli.Context) error {

	logrus.WithField("cmd", "server").Info("Starting server CMD")

	api := &executor.Executor{ServeAPI: true, SkipLoop: true}
	if err := api.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

// candlesAction stores Upbit daily candles for every configured market
func candlesAction(_ *cli.Context) error {

	logrus.Info("Starting candles backfill CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to database")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backfill := &candles.Backfill{
		Log:     logrus.WithField("cmd", "candles"),
		Source:  connectors.NewUpbitClientFromConfig(connectors.GetConfig()),
		Candles: repository.NewRepositories().Candles,
	}
	if err := backfill.Start(ctx); err != nil {
		logrus.WithError(err).Error("Starting candles cmd")
		return err
	}

	return nil
}

func hashTokenAction(c *cli.Context) error {
	return keys.PrintTokenHash(os.Stdout, os.Stdin, c.Args().First())
}
