package store

import (
	"errors"
	"time"

	"maintenance-tracking-backend/internal/model"
)

// Sentinel errors translated to HTTP status codes by the API layer.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// MachinePatch is a partial update for a machine. Nil fields keep their
// prior values.
type MachinePatch struct {
	Name            *string
	Status          *string
	Efficiency      *float64
	Temperature     *float64
	Vibration       *float64
	LastMaintenance *string
}

// ActivityPatch is a partial update for an activity. MachineID is applied
// verbatim when set; existence is only validated at creation time.
type ActivityPatch struct {
	Description *string
	Technician  *string
	Status      *string
	MachineID   **string
}

// MachinePrediction pairs a machine with its persisted predictive data.
type MachinePrediction struct {
	Machine    model.Machine
	Prediction model.PredictiveData
}

// DashboardStats aggregates the fleet for the dashboard endpoint.
type DashboardStats struct {
	TotalMachines       int64
	OperationalMachines int64
	WarningMachines     int64
	MaintenanceMachines int64
	AvgEfficiency       float64
	RecentActivities    int64
	TotalCostSavings    float64
}

// RecentActivityWindow is the trailing period counted as "recent" on the
// dashboard.
const RecentActivityWindow = 7 * 24 * time.Hour
