package repository

import (
	"context"

	"gorm.io/gorm"

	"signalengine/src/database"
	"signalengine/src/model"
)

// SignalAuditRepository stores per-tick diagnostic rows.
type SignalAuditRepository struct {
	db *gorm.DB
}

func NewSignalAuditRepository() *SignalAuditRepository {
	return &SignalAuditRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *SignalAuditRepository) WithDB(db *gorm.DB) *SignalAuditRepository {
	return &SignalAuditRepository{db: db}
}

func (r *SignalAuditRepository) Create(ctx context.Context, row *model.SignalAudit) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// Latest returns up to limit rows for symbol, newest first.
func (r *SignalAuditRepository) Latest(ctx context.Context, symbol string, limit int) ([]model.SignalAudit, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []model.SignalAudit
	err := r.db.WithContext(ctx).
		Where("symbol = ?", model.NormalizeSymbol(symbol)).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
