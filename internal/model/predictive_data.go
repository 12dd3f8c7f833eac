package model

import "time"

// PredictiveData holds the persisted failure estimate for a machine. The
// unique index on MachineID makes the lazy create path safe under concurrent
// requests: the losing insert sees a duplicate-key error and reuses the
// existing row.
type PredictiveData struct {
	ID                     int64   `gorm:"primaryKey;autoIncrement"`
	MachineID              string  `gorm:"size:50;uniqueIndex;not null"`
	FailureProbability     float64 `gorm:"not null"`
	RecommendedMaintenance int     `gorm:"not null"` // days
	CostSavings            float64 `gorm:"not null"`
	CreatedAt              time.Time
	UpdatedAt              time.Time

	// Associations. Derived data is meaningless without its machine.
	Machine Machine `gorm:"constraint:OnDelete:CASCADE"`
}
