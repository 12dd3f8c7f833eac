package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"maintenance-tracking-backend/internal/model"
	"maintenance-tracking-backend/internal/predict"
)

// newTestStore opens an in-memory SQLite database migrated to the full
// schema. Each test gets its own named shared-cache database so connections
// from the pool see the same data.
func newTestStore(t *testing.T) Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Machine{},
		&model.Activity{},
		&model.PredictiveData{},
		&model.AlertSubscription{},
	))

	return NewGormStore(db)
}

func newMachine(id, status string, efficiency float64) model.Machine {
	return model.Machine{
		ID:              id,
		Name:            "Machine " + id,
		Status:          status,
		Efficiency:      efficiency,
		Temperature:     25.0,
		Vibration:       0.5,
		LastMaintenance: "2024-01-15",
	}
}

func TestCreateMachine_Conflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := newMachine("MACHINE-001", model.StatusOperational, 100)
	require.NoError(t, s.CreateMachine(ctx, &m))

	dup := newMachine("MACHINE-001", model.StatusWarning, 50)
	err := s.CreateMachine(ctx, &dup)
	assert.ErrorIs(t, err, ErrConflict)

	// The original record is unchanged.
	got, err := s.GetMachine(ctx, "MACHINE-001")
	require.NoError(t, err)
	assert.Equal(t, model.StatusOperational, got.Status)
	assert.Equal(t, 100.0, got.Efficiency)
}

func TestUpdateMachine_PartialMerge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := newMachine("MACHINE-001", model.StatusOperational, 95.5)
	require.NoError(t, s.CreateMachine(ctx, &m))

	status := model.StatusWarning
	updated, prevStatus, err := s.UpdateMachine(ctx, "MACHINE-001", MachinePatch{Status: &status})
	require.NoError(t, err)

	assert.Equal(t, model.StatusOperational, prevStatus)
	assert.Equal(t, model.StatusWarning, updated.Status)
	// Omitted fields keep their prior values exactly.
	assert.Equal(t, 95.5, updated.Efficiency)
	assert.Equal(t, "Machine MACHINE-001", updated.Name)
	assert.Equal(t, "2024-01-15", updated.LastMaintenance)
}

func TestUpdateMachine_NotFound(t *testing.T) {
	s := newTestStore(t)

	name := "anything"
	_, _, err := s.UpdateMachine(context.Background(), "NOPE", MachinePatch{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteMachine_CascadeAndDetach(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := newMachine("MACHINE-001", model.StatusOperational, 100)
	require.NoError(t, s.CreateMachine(ctx, &m))

	machineID := m.ID
	activity := model.Activity{Description: "Inspect bearings", Technician: "Sarah Johnson", Status: model.ActivityPending, MachineID: &machineID}
	require.NoError(t, s.CreateActivity(ctx, &activity))

	_, err := s.SeedPredictiveData(ctx, predict.Fixed{Estimate: predict.Estimate{FailureProbability: 0.1, RecommendedMaintenance: 14, CostSavings: 5000}})
	require.NoError(t, err)

	require.NoError(t, s.DeleteMachine(ctx, "MACHINE-001"))

	_, err = s.GetMachine(ctx, "MACHINE-001")
	assert.ErrorIs(t, err, ErrNotFound)

	// Predictive data is gone, the activity survives without its reference.
	var predictiveCount int64
	require.NoError(t, s.DB().Model(&model.PredictiveData{}).Count(&predictiveCount).Error)
	assert.EqualValues(t, 0, predictiveCount)

	got, err := s.GetActivity(ctx, activity.ID)
	require.NoError(t, err)
	assert.Nil(t, got.MachineID)
}

func TestCreateActivity_UnknownMachine(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	machineID := "GHOST"
	activity := model.Activity{Description: "Phantom job", Technician: "Ahmed Hassan", Status: model.ActivityPending, MachineID: &machineID}
	err := s.CreateActivity(ctx, &activity)
	assert.ErrorIs(t, err, ErrNotFound)

	// Nothing was persisted.
	activities, err := s.ListActivities(ctx)
	require.NoError(t, err)
	assert.Empty(t, activities)
}

func TestUpdateActivity_CompletionStampedOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	activity := model.Activity{Description: "Belt replacement", Technician: "Lisa Chen", Status: model.ActivityPending}
	require.NoError(t, s.CreateActivity(ctx, &activity))
	assert.Nil(t, activity.CompletedAt)

	completed := model.ActivityCompleted
	first, err := s.UpdateActivity(ctx, activity.ID, ActivityPatch{Status: &completed})
	require.NoError(t, err)
	require.NotNil(t, first.CompletedAt)

	time.Sleep(10 * time.Millisecond)

	second, err := s.UpdateActivity(ctx, activity.ID, ActivityPatch{Status: &completed})
	require.NoError(t, err)
	require.NotNil(t, second.CompletedAt)
	assert.True(t, second.CompletedAt.Equal(*first.CompletedAt), "completion timestamp must never be overwritten")
}

func TestSeedMachines_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	samples := []model.Machine{
		newMachine("MACHINE-001", model.StatusOperational, 95),
		newMachine("MACHINE-002", model.StatusWarning, 75),
	}

	created, err := s.SeedMachines(ctx, samples)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"MACHINE-001", "MACHINE-002"}, created)

	again := []model.Machine{
		newMachine("MACHINE-001", model.StatusOperational, 90),
		newMachine("MACHINE-002", model.StatusWarning, 70),
	}
	created, err = s.SeedMachines(ctx, again)
	require.NoError(t, err)
	assert.Empty(t, created)

	machines, err := s.ListMachines(ctx)
	require.NoError(t, err)
	assert.Len(t, machines, 2)
}

func TestSeedActivities_NotIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	samples := func() []model.Activity {
		return []model.Activity{
			{Description: "Routine check", Technician: "Ahmed Hassan", Status: model.ActivityPending},
			{Description: "Oil change", Technician: "Lisa Chen", Status: model.ActivityPending},
		}
	}

	count, err := s.SeedActivities(ctx, samples())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = s.SeedActivities(ctx, samples())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	activities, err := s.ListActivities(ctx)
	require.NoError(t, err)
	assert.Len(t, activities, 4)
}

// countingEstimator returns a different estimate on every call, exposing
// whether persisted rows are reused or regenerated.
type countingEstimator struct {
	calls int
}

func (e *countingEstimator) Predict(m model.Machine) predict.Estimate {
	e.calls++
	return predict.Estimate{
		FailureProbability:     float64(e.calls) / 100,
		RecommendedMaintenance: e.calls,
		CostSavings:            float64(e.calls) * 1000,
	}
}

func (e *countingEstimator) Schedule(m model.Machine) predict.ScheduleEstimate {
	return predict.ScheduleEstimate{Urgency: predict.UrgencyFor(m)}
}

func (e *countingEstimator) Cost(m model.Machine) predict.CostEstimate {
	return predict.CostEstimate{}
}

func TestPredictiveReport_PersistsFirstEstimate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := newMachine("MACHINE-001", model.StatusOperational, 100)
	require.NoError(t, s.CreateMachine(ctx, &m))

	est := &countingEstimator{}

	first, err := s.PredictiveReport(ctx, est)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 0.01, first[0].Prediction.FailureProbability)

	// The second call must reuse the stored row, not re-estimate.
	second, err := s.PredictiveReport(ctx, est)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Prediction.ID, second[0].Prediction.ID)
	assert.Equal(t, 0.01, second[0].Prediction.FailureProbability)
	assert.Equal(t, 1, est.calls)
}

func TestSeedPredictiveData_SkipsExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m1 := newMachine("MACHINE-001", model.StatusOperational, 100)
	m2 := newMachine("MACHINE-002", model.StatusWarning, 70)
	require.NoError(t, s.CreateMachine(ctx, &m1))
	require.NoError(t, s.CreateMachine(ctx, &m2))

	est := &countingEstimator{}

	created, err := s.SeedPredictiveData(ctx, est)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"MACHINE-001", "MACHINE-002"}, created)

	created, err = s.SeedPredictiveData(ctx, est)
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Equal(t, 2, est.calls)
}

func TestDashboardStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("empty fleet reports zeros", func(t *testing.T) {
		stats, err := s.DashboardStats(ctx, now)
		require.NoError(t, err)
		assert.EqualValues(t, 0, stats.TotalMachines)
		assert.Equal(t, 0.0, stats.AvgEfficiency)
		assert.Equal(t, 0.0, stats.TotalCostSavings)
	})

	m1 := newMachine("MACHINE-001", model.StatusOperational, 90)
	m2 := newMachine("MACHINE-002", model.StatusWarning, 70)
	m3 := newMachine("MACHINE-003", model.StatusMaintenance, 50)
	require.NoError(t, s.CreateMachine(ctx, &m1))
	require.NoError(t, s.CreateMachine(ctx, &m2))
	require.NoError(t, s.CreateMachine(ctx, &m3))

	recent := model.Activity{Description: "Fresh job", Technician: "Sarah Johnson", Status: model.ActivityPending}
	require.NoError(t, s.CreateActivity(ctx, &recent))

	stale := model.Activity{Description: "Old job", Technician: "Ahmed Hassan", Status: model.ActivityCompleted}
	require.NoError(t, s.CreateActivity(ctx, &stale))
	require.NoError(t, s.DB().Model(&model.Activity{}).
		Where("id = ?", stale.ID).
		Update("timestamp", now.Add(-8*24*time.Hour)).Error)

	_, err := s.SeedPredictiveData(ctx, predict.Fixed{Estimate: predict.Estimate{CostSavings: 1500}})
	require.NoError(t, err)

	stats, err := s.DashboardStats(ctx, now)
	require.NoError(t, err)

	assert.EqualValues(t, 3, stats.TotalMachines)
	assert.EqualValues(t, 1, stats.OperationalMachines)
	assert.EqualValues(t, 1, stats.WarningMachines)
	assert.EqualValues(t, 1, stats.MaintenanceMachines)
	assert.InDelta(t, 70.0, stats.AvgEfficiency, 0.001)
	assert.EqualValues(t, 1, stats.RecentActivities)
	assert.InDelta(t, 4500.0, stats.TotalCostSavings, 0.001)
}
