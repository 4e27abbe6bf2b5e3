package model

import (
	"time"

	"gorm.io/datatypes"
)

// Exception is a persisted record of a failure that was reported back to a
// user, kept so support can see what an import was doing when it broke.
type Exception struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Where the error happened
	Service string `gorm:"size:100;index" json:"service"` // e.g. "trade_service"
	Module  string `gorm:"size:100;index" json:"module"`  // e.g. "importer"
	Method  string `gorm:"size:100" json:"method"`        // e.g. "AddMultipleTrades"

	UserID string `gorm:"size:64;index" json:"user_id,omitempty"`

	Message string `gorm:"type:text" json:"message"`
	Stack   string `gorm:"type:text" json:"-"`

	Level string `gorm:"size:20;index" json:"level"` // warn | error

	// Extra context, e.g. batch sizes
	Context datatypes.JSON `json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName allows you to control the exact table name for exceptions.
func (Exception) TableName() string {
	return "exceptions"
}
