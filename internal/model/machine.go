package model

import "time"

// Machine status values.
const (
	StatusOperational = "operational"
	StatusWarning     = "warning"
	StatusMaintenance = "maintenance"
)

// Machine represents a tracked piece of factory equipment. The ID is
// externally assigned (e.g. "MACHINE-001") and immutable after creation.
type Machine struct {
	ID              string  `gorm:"primaryKey;size:50"`
	Name            string  `gorm:"size:100;not null"`
	Status          string  `gorm:"size:20;not null;default:operational"`
	Efficiency      float64 `gorm:"not null"`
	Temperature     float64 `gorm:"not null"`
	Vibration       float64 `gorm:"not null"`
	LastMaintenance string  `gorm:"size:50"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Associations
	Activities     []Activity       `gorm:"foreignKey:MachineID"`
	PredictiveData []PredictiveData `gorm:"foreignKey:MachineID"`
}
