package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"signalengine/src/database"
	"signalengine/src/model"
)

// TradeLogRepository appends and reads closed-position rows.
type TradeLogRepository struct {
	db *gorm.DB
}

// NewTradeLogRepository creates a new repository instance on MainDB.
func NewTradeLogRepository() *TradeLogRepository {
	logger.WithField("component", "TradeLogRepository").
		Info("Creating new TradeLogRepository with MainDB")

	return &TradeLogRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *TradeLogRepository) WithDB(db *gorm.DB) *TradeLogRepository {
	return &TradeLogRepository{db: db}
}

func (r *TradeLogRepository) Create(ctx context.Context, row *model.TradeLog) error {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "TradeLogRepository",
			"op":          "Create",
			"position_id": row.PositionID,
			"symbol":      row.Symbol,
		}).WithError(err).Error("Failed to append trade log")
		return err
	}
	return nil
}

// ListClosedBetween returns rows with from <= closed_at < to, oldest first.
func (r *TradeLogRepository) ListClosedBetween(ctx context.Context, from, to time.Time) ([]model.TradeLog, error) {
	var rows []model.TradeLog
	err := r.db.WithContext(ctx).
		Where("closed_at >= ? AND closed_at < ?", from, to).
		Order("closed_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByDate returns the rows closed on the calendar day of day in its location.
func (r *TradeLogRepository) ListByDate(ctx context.Context, day time.Time) ([]model.TradeLog, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return r.ListClosedBetween(ctx, from, from.AddDate(0, 0, 1))
}
