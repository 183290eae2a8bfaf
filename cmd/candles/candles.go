package candles

import (
	"context"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"signalengine/src/connectors"
	"signalengine/src/model"
	"signalengine/src/repository"
)

type rangeSource interface {
	Range(ctx context.Context, symbol string, tf model.Timeframe, from, to time.Time, limit int) ([]model.Candle, error)
}

type candleStore interface {
	Upsert(ctx context.Context, symbol string, tf model.Timeframe, candles []model.Candle) error
	LatestDatetime(ctx context.Context, symbol string, tf model.Timeframe) (time.Time, bool, error)
}

// Archiver copies Binance candles into the candle_records table. With
// CANDLE_SOURCE=archive the engine reads that table as a live mirror, so it
// has to run regularly in AUTO_MODE: bars older than two bar durations are
// rejected as stale.
type Archiver struct {
	Log    *logger.Entry
	Config *Config
	// Symbols overrides Config.Symbols when set.
	Symbols []string

	source rangeSource
	repo   candleStore
	now    func() time.Time
}

func (a *Archiver) Start(ctx context.Context) error {
	if a.Config == nil {
		a.Config = GetConfig()
	}
	if a.Log == nil {
		a.Log = logger.WithField("cmd", "candles")
	}
	if a.source == nil {
		a.source = connectors.NewKlineProvider(connectors.GetConfig(), a.Log)
	}
	if a.repo == nil {
		a.repo = repository.NewCandleRepository()
	}
	if a.now == nil {
		a.now = time.Now
	}

	timeframes, err := ParseTimeframes(a.Config.Timeframes)
	if err != nil {
		return err
	}
	symbols := a.Symbols
	if len(symbols) == 0 {
		symbols = splitSymbols(a.Config.Symbols)
	}

	for _, symbol := range symbols {
		for _, tf := range timeframes {
			if err := a.archive(ctx, symbol, tf); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Archiver) archive(ctx context.Context, symbol string, tf model.Timeframe) error {
	from, err := a.startPoint(ctx, symbol, tf)
	if err != nil {
		return err
	}
	to := a.Config.EndDt
	if to.IsZero() {
		to = a.now().UTC()
	}

	candles, err := a.source.Range(ctx, symbol, tf, from, to, a.Config.Limit)
	if err != nil {
		a.Log.WithError(err).WithField("symbol", symbol).Error("archive, Range")
		return fmt.Errorf("fetch %s %s: %w", symbol, tf, err)
	}
	if err := a.repo.Upsert(ctx, symbol, tf, candles); err != nil {
		a.Log.WithError(err).WithField("symbol", symbol).Error("archive, Upsert")
		return fmt.Errorf("save %s %s: %w", symbol, tf, err)
	}

	a.Log.WithFields(logger.Fields{
		"symbol":    symbol,
		"timeframe": tf,
		"from":      from.Format(time.RFC3339),
		"to":        to.Format(time.RFC3339),
		"count":     len(candles),
	}).Info("Candles inserted or updated in database")
	return nil
}

// startPoint is the configured start date, or in auto mode one bar before
// the newest archived bar so a bar stored while still open gets rewritten.
func (a *Archiver) startPoint(ctx context.Context, symbol string, tf model.Timeframe) (time.Time, error) {
	if !a.Config.AutoMode {
		return a.Config.StartDt, nil
	}
	latest, ok, err := a.repo.LatestDatetime(ctx, symbol, tf)
	if err != nil {
		a.Log.WithError(err).Error("Failed to query latest datetime")
		return time.Time{}, err
	}
	if !ok {
		a.Log.WithFields(logger.Fields{
			"symbol":  symbol,
			"StartDt": a.Config.StartDt.String(),
		}).Warn("no records found, start from the configured StartDt")
		return a.Config.StartDt, nil
	}
	return latest.Add(-tf.BarDuration()), nil
}
