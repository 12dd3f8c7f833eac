package model

import "time"

// Activity status values.
const (
	ActivityPending    = "pending"
	ActivityInProgress = "in-progress"
	ActivityCompleted  = "completed"
	ActivityActive     = "active"
)

// Activity represents a maintenance activity, optionally tied to a machine.
// CompletedAt is stamped the first time the status transitions to "completed"
// and is never overwritten afterwards.
type Activity struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Description string    `gorm:"size:255;not null"`
	Technician  string    `gorm:"size:100;not null"`
	Status      string    `gorm:"size:20;not null;default:pending"`
	MachineID   *string   `gorm:"size:50;index"`
	Timestamp   time.Time `gorm:"autoCreateTime"`
	CompletedAt *time.Time

	// Associations. Activities outlive machine retirement.
	Machine *Machine `gorm:"constraint:OnDelete:SET NULL"`
}
