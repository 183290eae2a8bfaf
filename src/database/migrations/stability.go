package migrations

import (
	"gorm.io/gorm"
)

// resetNonDirectionalStability zeroes counters stored against a NEUTRAL or
// empty side, so that passes > 0 always carries LONG or SHORT.
func resetNonDirectionalStability(db *gorm.DB) error {
	return db.Table("stability_states").
		Where("side NOT IN ? AND consecutive_passes > 0", []string{"LONG", "SHORT"}).
		Update("consecutive_passes", 0).Error
}
