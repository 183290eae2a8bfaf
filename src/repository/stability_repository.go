package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"signalengine/src/database"
	"signalengine/src/model"
)

// StabilityRepository persists debounce state. It satisfies stability.Store.
type StabilityRepository struct {
	db *gorm.DB
}

// NewStabilityRepository creates a new repository instance on MainDB.
func NewStabilityRepository() *StabilityRepository {
	logger.WithField("component", "StabilityRepository").
		Info("Creating new StabilityRepository with MainDB")

	return &StabilityRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *StabilityRepository) WithDB(db *gorm.DB) *StabilityRepository {
	return &StabilityRepository{db: db}
}

func (r *StabilityRepository) LoadAll(ctx context.Context) ([]model.StabilityState, error) {
	var rows []model.StabilityState
	if err := r.db.WithContext(ctx).
		Order("symbol, timeframe").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Upsert writes states keyed on (symbol, timeframe).
func (r *StabilityRepository) Upsert(ctx context.Context, states ...model.StabilityState) error {
	if len(states) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "timeframe"}},
		DoUpdates: clause.AssignmentColumns([]string{"side", "consecutive_passes", "last_pass_at", "updated_at"}),
	}).Create(&states).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "StabilityRepository",
			"op":    "Upsert",
			"count": len(states),
		}).WithError(err).Error("Failed to upsert stability states")
		return err
	}

	return nil
}
