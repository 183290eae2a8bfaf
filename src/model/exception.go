package model

import "time"

// Exception is an unexpected tick failure persisted for later inspection.
type Exception struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Where the error happened
	Service string `gorm:"size:100;index" json:"service"` // e.g. "signalengine"
	Module  string `gorm:"size:100;index" json:"module"`  // e.g. "engine"
	Method  string `gorm:"size:100" json:"method"`        // e.g. "RunOnce"

	Message string `gorm:"type:text" json:"message"`
	Stack   string `gorm:"type:text" json:"stack"`

	// debug | info | warn | error | fatal
	Level string `gorm:"size:20;index" json:"level"`

	// Extra context stored as JSON text, works on both sqlite and postgres.
	Context string `gorm:"type:text" json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
