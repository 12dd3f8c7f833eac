package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"maintenance-tracking-backend/internal/model"
	"maintenance-tracking-backend/internal/predict"
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	ListMachines(ctx context.Context) ([]model.Machine, error)
	GetMachine(ctx context.Context, id string) (model.Machine, error)
	CreateMachine(ctx context.Context, m *model.Machine) error
	UpdateMachine(ctx context.Context, id string, patch MachinePatch) (updated model.Machine, prevStatus string, err error)
	DeleteMachine(ctx context.Context, id string) error
	SeedMachines(ctx context.Context, samples []model.Machine) ([]string, error)

	ListActivities(ctx context.Context) ([]model.Activity, error)
	GetActivity(ctx context.Context, id int64) (model.Activity, error)
	CreateActivity(ctx context.Context, a *model.Activity) error
	UpdateActivity(ctx context.Context, id int64, patch ActivityPatch) (model.Activity, error)
	DeleteActivity(ctx context.Context, id int64) error
	SeedActivities(ctx context.Context, samples []model.Activity) (int, error)

	PredictiveReport(ctx context.Context, est predict.Estimator) ([]MachinePrediction, error)
	SeedPredictiveData(ctx context.Context, est predict.Estimator) ([]string, error)
	DashboardStats(ctx context.Context, now time.Time) (DashboardStats, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// --- Machines ---

func (s *gormStore) ListMachines(ctx context.Context) ([]model.Machine, error) {
	var machines []model.Machine
	if err := s.db.WithContext(ctx).Find(&machines).Error; err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	return machines, nil
}

func (s *gormStore) GetMachine(ctx context.Context, id string) (model.Machine, error) {
	var machine model.Machine
	err := s.db.WithContext(ctx).First(&machine, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Machine{}, ErrNotFound
	}
	if err != nil {
		return model.Machine{}, fmt.Errorf("failed to get machine %s: %w", id, err)
	}
	return machine, nil
}

func (s *gormStore) CreateMachine(ctx context.Context, m *model.Machine) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Machine
		err := tx.First(&existing, "id = ?", m.ID).Error
		if err == nil {
			return ErrConflict
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check machine %s: %w", m.ID, err)
		}
		if err := tx.Create(m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrConflict
			}
			return fmt.Errorf("failed to create machine %s: %w", m.ID, err)
		}
		return nil
	})
}

func (s *gormStore) UpdateMachine(ctx context.Context, id string, patch MachinePatch) (model.Machine, string, error) {
	var machine model.Machine
	var prevStatus string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&machine, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load machine %s: %w", id, err)
		}
		prevStatus = machine.Status

		if patch.Name != nil {
			machine.Name = *patch.Name
		}
		if patch.Status != nil {
			machine.Status = *patch.Status
		}
		if patch.Efficiency != nil {
			machine.Efficiency = *patch.Efficiency
		}
		if patch.Temperature != nil {
			machine.Temperature = *patch.Temperature
		}
		if patch.Vibration != nil {
			machine.Vibration = *patch.Vibration
		}
		if patch.LastMaintenance != nil {
			machine.LastMaintenance = *patch.LastMaintenance
		}

		if err := tx.Save(&machine).Error; err != nil {
			return fmt.Errorf("failed to update machine %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return model.Machine{}, "", err
	}
	return machine, prevStatus, nil
}

// DeleteMachine removes a machine together with its predictive data, and
// detaches its activities. The FK constraints declare the same behavior; the
// explicit statements keep it driver-independent.
func (s *gormStore) DeleteMachine(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var machine model.Machine
		if err := tx.First(&machine, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load machine %s: %w", id, err)
		}

		if err := tx.Where("machine_id = ?", id).Delete(&model.PredictiveData{}).Error; err != nil {
			return fmt.Errorf("failed to delete predictive data for machine %s: %w", id, err)
		}
		if err := tx.Model(&model.Activity{}).Where("machine_id = ?", id).
			Update("machine_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach activities for machine %s: %w", id, err)
		}
		if err := tx.Delete(&machine).Error; err != nil {
			return fmt.Errorf("failed to delete machine %s: %w", id, err)
		}
		return nil
	})
}

// SeedMachines inserts the given sample machines, skipping any whose ID
// already exists. It returns the IDs of the machines actually created.
func (s *gormStore) SeedMachines(ctx context.Context, samples []model.Machine) ([]string, error) {
	created := make([]string, 0, len(samples))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range samples {
			var existing model.Machine
			err := tx.First(&existing, "id = ?", samples[i].ID).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to check machine %s: %w", samples[i].ID, err)
			}
			if err := tx.Create(&samples[i]).Error; err != nil {
				return fmt.Errorf("failed to create sample machine %s: %w", samples[i].ID, err)
			}
			created = append(created, samples[i].ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// --- Activities ---

func (s *gormStore) ListActivities(ctx context.Context) ([]model.Activity, error) {
	var activities []model.Activity
	if err := s.db.WithContext(ctx).Order("timestamp DESC").Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}

func (s *gormStore) GetActivity(ctx context.Context, id int64) (model.Activity, error) {
	var activity model.Activity
	err := s.db.WithContext(ctx).First(&activity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Activity{}, ErrNotFound
	}
	if err != nil {
		return model.Activity{}, fmt.Errorf("failed to get activity %d: %w", id, err)
	}
	return activity, nil
}

// CreateActivity validates the machine reference, if any, before inserting.
func (s *gormStore) CreateActivity(ctx context.Context, a *model.Activity) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if a.MachineID != nil {
			var machine model.Machine
			if err := tx.First(&machine, "id = ?", *a.MachineID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return fmt.Errorf("failed to check machine %s: %w", *a.MachineID, err)
			}
		}
		if err := tx.Create(a).Error; err != nil {
			return fmt.Errorf("failed to create activity: %w", err)
		}
		return nil
	})
}

// UpdateActivity applies a partial update. The first transition to
// "completed" stamps CompletedAt; a later "completed" never overwrites it.
// The machine reference is applied verbatim, without existence validation.
func (s *gormStore) UpdateActivity(ctx context.Context, id int64, patch ActivityPatch) (model.Activity, error) {
	var activity model.Activity
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&activity, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load activity %d: %w", id, err)
		}

		if patch.Description != nil {
			activity.Description = *patch.Description
		}
		if patch.Technician != nil {
			activity.Technician = *patch.Technician
		}
		if patch.Status != nil {
			activity.Status = *patch.Status
			if *patch.Status == model.ActivityCompleted && activity.CompletedAt == nil {
				now := time.Now().UTC()
				activity.CompletedAt = &now
			}
		}
		if patch.MachineID != nil {
			activity.MachineID = *patch.MachineID
		}

		if err := tx.Save(&activity).Error; err != nil {
			return fmt.Errorf("failed to update activity %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return model.Activity{}, err
	}
	return activity, nil
}

func (s *gormStore) DeleteActivity(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var activity model.Activity
		if err := tx.First(&activity, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load activity %d: %w", id, err)
		}
		if err := tx.Delete(&activity).Error; err != nil {
			return fmt.Errorf("failed to delete activity %d: %w", id, err)
		}
		return nil
	})
}

// SeedActivities inserts every sample unconditionally. Unlike the machine
// seeder there is no existence check, so repeated runs duplicate records.
func (s *gormStore) SeedActivities(ctx context.Context, samples []model.Activity) (int, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range samples {
			if err := tx.Create(&samples[i]).Error; err != nil {
				return fmt.Errorf("failed to create sample activity: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(samples), nil
}

// --- Predictive data ---

// PredictiveReport returns every machine paired with its predictive data,
// lazily creating missing rows from the estimator. A duplicate-key error on
// insert means a concurrent request won the race; the existing row is reused.
func (s *gormStore) PredictiveReport(ctx context.Context, est predict.Estimator) ([]MachinePrediction, error) {
	var report []MachinePrediction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var machines []model.Machine
		if err := tx.Find(&machines).Error; err != nil {
			return fmt.Errorf("failed to list machines: %w", err)
		}

		report = make([]MachinePrediction, 0, len(machines))
		for _, machine := range machines {
			data, err := fetchOrCreatePrediction(tx, machine, est)
			if err != nil {
				return err
			}
			report = append(report, MachinePrediction{Machine: machine, Prediction: data})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// SeedPredictiveData creates a predictive row for every machine lacking one
// and returns the IDs of the machines that received new rows.
func (s *gormStore) SeedPredictiveData(ctx context.Context, est predict.Estimator) ([]string, error) {
	created := make([]string, 0)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var machines []model.Machine
		if err := tx.Find(&machines).Error; err != nil {
			return fmt.Errorf("failed to list machines: %w", err)
		}

		for _, machine := range machines {
			var existing model.PredictiveData
			err := tx.First(&existing, "machine_id = ?", machine.ID).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to check predictive data for machine %s: %w", machine.ID, err)
			}
			if _, err := createPrediction(tx, machine, est); err != nil {
				return err
			}
			created = append(created, machine.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func fetchOrCreatePrediction(tx *gorm.DB, machine model.Machine, est predict.Estimator) (model.PredictiveData, error) {
	var data model.PredictiveData
	err := tx.First(&data, "machine_id = ?", machine.ID).Error
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PredictiveData{}, fmt.Errorf("failed to fetch predictive data for machine %s: %w", machine.ID, err)
	}
	return createPrediction(tx, machine, est)
}

func createPrediction(tx *gorm.DB, machine model.Machine, est predict.Estimator) (model.PredictiveData, error) {
	estimate := est.Predict(machine)
	data := model.PredictiveData{
		MachineID:              machine.ID,
		FailureProbability:     estimate.FailureProbability,
		RecommendedMaintenance: estimate.RecommendedMaintenance,
		CostSavings:            estimate.CostSavings,
	}
	if err := tx.Create(&data).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race against a concurrent create; reuse the winner.
			var existing model.PredictiveData
			if err := tx.First(&existing, "machine_id = ?", machine.ID).Error; err != nil {
				return model.PredictiveData{}, fmt.Errorf("failed to reload predictive data for machine %s: %w", machine.ID, err)
			}
			return existing, nil
		}
		return model.PredictiveData{}, fmt.Errorf("failed to create predictive data for machine %s: %w", machine.ID, err)
	}
	return data, nil
}

// --- Dashboard ---

// DashboardStats aggregates the fleet in a handful of queries.
func (s *gormStore) DashboardStats(ctx context.Context, now time.Time) (DashboardStats, error) {
	var stats DashboardStats
	db := s.db.WithContext(ctx)

	type statusCount struct {
		Status string
		Total  int64
	}
	var counts []statusCount
	if err := db.Model(&model.Machine{}).
		Select("status, COUNT(*) as total").
		Group("status").
		Scan(&counts).Error; err != nil {
		return DashboardStats{}, fmt.Errorf("failed to count machines by status: %w", err)
	}
	for _, c := range counts {
		stats.TotalMachines += c.Total
		switch c.Status {
		case model.StatusOperational:
			stats.OperationalMachines = c.Total
		case model.StatusWarning:
			stats.WarningMachines = c.Total
		case model.StatusMaintenance:
			stats.MaintenanceMachines = c.Total
		}
	}

	if stats.TotalMachines > 0 {
		if err := db.Model(&model.Machine{}).
			Select("COALESCE(AVG(efficiency), 0)").
			Scan(&stats.AvgEfficiency).Error; err != nil {
			return DashboardStats{}, fmt.Errorf("failed to average efficiency: %w", err)
		}
	}

	since := now.Add(-RecentActivityWindow)
	if err := db.Model(&model.Activity{}).
		Where("timestamp >= ?", since).
		Count(&stats.RecentActivities).Error; err != nil {
		return DashboardStats{}, fmt.Errorf("failed to count recent activities: %w", err)
	}

	if err := db.Model(&model.PredictiveData{}).
		Select("COALESCE(SUM(cost_savings), 0)").
		Scan(&stats.TotalCostSavings).Error; err != nil {
		return DashboardStats{}, fmt.Errorf("failed to sum cost savings: %w", err)
	}

	return stats, nil
}
