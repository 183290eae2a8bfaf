package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"signalengine/src/database"
	"signalengine/src/model"
)

// CandleRepository archives fetched bars and serves the newest ones back as a candle source.
type CandleRepository struct {
	db *gorm.DB
}

func NewCandleRepository() *CandleRepository {
	logger.WithField("component", "CandleRepository").
		Info("Creating new CandleRepository with MainDB")

	return &CandleRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *CandleRepository) WithDB(db *gorm.DB) *CandleRepository {
	return &CandleRepository{db: db}
}

// Upsert stores candles; an existing (symbol, timeframe, datetime) row is overwritten.
func (r *CandleRepository) Upsert(ctx context.Context, symbol string, tf model.Timeframe, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	rows := make([]*model.CandleRecord, 0, len(candles))
	for _, c := range candles {
		rows = append(rows, model.NewCandleRecord(symbol, tf, c))
	}

	// Upsert: on conflict on (symbol, timeframe, datetime) do update
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "timeframe"}, {Name: "datetime"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
	}).CreateInBatches(rows, 200).Error; err != nil {
		logger.WithError(err).WithFields(map[string]interface{}{
			"symbol":    symbol,
			"timeframe": tf,
		}).Error("CandleRepository.Upsert")
		return err
	}
	return nil
}

// Candles returns the latest limit archived bars, oldest first.
func (r *CandleRepository) Candles(ctx context.Context, symbol string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	if limit <= 0 {
		limit = 200
	}

	var rows []model.CandleRecord
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND timeframe = ?", model.NormalizeSymbol(symbol), string(tf)).
		Order("datetime DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	// reverse to ascending chronological order
	out := make([]model.Candle, len(rows))
	for i := range rows {
		out[len(rows)-1-i] = rows[i].Candle()
	}
	return out, nil
}

// LatestDatetime reports the newest archived bar time, ok is false when none exists.
func (r *CandleRepository) LatestDatetime(ctx context.Context, symbol string, tf model.Timeframe) (time.Time, bool, error) {
	var row model.CandleRecord
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND timeframe = ?", model.NormalizeSymbol(symbol), string(tf)).
		Order("datetime DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return row.Datetime, true, nil
}
