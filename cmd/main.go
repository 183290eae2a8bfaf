package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signalengine/cmd/candles"
	"signalengine/cmd/runner"
	"signalengine/src/config"
	"signalengine/src/database"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "signalengine"
	app.Usage = "Signal gating and staged position simulation"
	app.Version = Version

	app.Commands = []cli.Command{
		engineCMD,
		reportCMD,
		candlesCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	engineCMD = cli.Command{
		Name:      "engine",
		Usage:     "run the signal engine loop",
		Action:    engineAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "profile",
				Usage: "strategy profile (strict, medium, test_soft), overrides active_profile",
			},
			cli.StringFlag{
				Name:  "source",
				Usage: "candle source: binance or archive, overrides CANDLE_SOURCE",
			},
		},
		Description: `Run the engine until SIGINT/SIGTERM`,
	}
	reportCMD = cli.Command{
		Name:      "report",
		Usage:     "send the daily report",
		Action:    reportAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "date",
				Usage: "report date YYYY-MM-DD, today when empty",
			},
		},
		Description: `Build the end-of-day report from the trade log and send it`,
	}
	candlesCMD = cli.Command{
		Name:      "candles",
		Usage:     "archive Binance candles",
		Action:    candlesAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "strategy-symbols",
				Usage: "archive the symbols of the strategy file instead of SYMBOLS",
			},
		},
		Description: `Copy candles into the database, the live mirror read with CANDLE_SOURCE=archive`,
	}
)

func engineAction(c *cli.Context) error {
	logrus.Info("Starting engine CMD")

	r := &runner.Runner{
		Profile: c.String("profile"),
		Source:  c.String("source"),
		Log:     logrus.WithField("cmd", "engine"),
	}
	if err := r.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}

func reportAction(c *cli.Context) error {
	logrus.Info("Starting report CMD")

	day := time.Now()
	if raw := c.String("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", raw, err)
		}
		day = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := runner.Report(ctx, day, logrus.WithField("cmd", "report")); err != nil {
		logrus.WithError(err).Error("Report failed")
		return err
	}
	return nil
}

// candlesAction archives candles for the configured symbols and timeframes.
func candlesAction(c *cli.Context) error {
	logrus.Info("Starting candles CMD")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	archiver := &candles.Archiver{Log: logrus.WithField("cmd", "candles")}
	if c.Bool("strategy-symbols") {
		env := config.GetConfig()
		strategy, err := config.LoadFile(env.Path, env.Profile)
		if err != nil {
			return err
		}
		archiver.Symbols = strategy.Symbols
	}

	if err := archiver.Start(ctx); err != nil {
		logrus.WithError(err).Error("Starting candles cmd")
		return err
	}
	return nil
}
