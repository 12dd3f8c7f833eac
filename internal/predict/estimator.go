// Package predict supplies the estimation strategy behind the analytics
// endpoints. All random draws flow through the Estimator interface so that
// deterministic doubles can replace them in tests.
package predict

import (
	"math/rand"

	"maintenance-tracking-backend/internal/model"
)

// Urgency levels for the maintenance schedule, ordered high before low.
const (
	UrgencyHigh   = "high"
	UrgencyMedium = "medium"
	UrgencyLow    = "low"
)

// UrgencyRank maps an urgency level to its sort rank (high first).
var UrgencyRank = map[string]int{
	UrgencyHigh:   0,
	UrgencyMedium: 1,
	UrgencyLow:    2,
}

// UrgencyFor derives the maintenance urgency from machine state.
func UrgencyFor(m model.Machine) string {
	switch {
	case m.Status == model.StatusMaintenance:
		return UrgencyHigh
	case m.Status == model.StatusWarning || m.Efficiency < 80:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// Estimate is a persisted-style prediction for one machine.
type Estimate struct {
	FailureProbability     float64
	RecommendedMaintenance int // days
	CostSavings            float64
}

// ScheduleEstimate is one maintenance-schedule entry's derived figures.
type ScheduleEstimate struct {
	Urgency         string
	RecommendedDays int
	EstimatedCost   float64
}

// CostEstimate is one machine's simulated maintenance cost and the savings
// predictive maintenance could recover.
type CostEstimate struct {
	MaintenanceCost  float64
	PotentialSavings float64
}

// Estimator turns machine state into predictive figures.
type Estimator interface {
	Predict(m model.Machine) Estimate
	Schedule(m model.Machine) ScheduleEstimate
	Cost(m model.Machine) CostEstimate
}

// randomEstimator draws every figure uniformly from fixed ranges. There is no
// model behind it; the ranges are the product contract.
type randomEstimator struct{}

// NewRandom returns the default uniform-random estimator.
func NewRandom() Estimator {
	return randomEstimator{}
}

func (randomEstimator) Predict(m model.Machine) Estimate {
	return Estimate{
		FailureProbability:     0.05 + rand.Float64()*0.30,
		RecommendedMaintenance: randIntIn(7, 45),
		CostSavings:            float64(randIntIn(1000, 15000)),
	}
}

func (randomEstimator) Schedule(m model.Machine) ScheduleEstimate {
	urgency := UrgencyFor(m)
	var days int
	switch urgency {
	case UrgencyHigh:
		days = randIntIn(1, 7)
	case UrgencyMedium:
		days = randIntIn(7, 21)
	default:
		days = randIntIn(21, 60)
	}
	return ScheduleEstimate{
		Urgency:         urgency,
		RecommendedDays: days,
		EstimatedCost:   float64(randIntIn(500, 5000)),
	}
}

func (randomEstimator) Cost(m model.Machine) CostEstimate {
	var cost float64
	switch m.Status {
	case model.StatusMaintenance:
		cost = float64(randIntIn(2000, 8000))
	case model.StatusWarning:
		cost = float64(randIntIn(1000, 4000))
	default:
		cost = float64(randIntIn(200, 1000))
	}
	return CostEstimate{
		MaintenanceCost:  cost,
		PotentialSavings: cost * (0.2 + rand.Float64()*0.4),
	}
}

// randIntIn returns a uniform random integer in [lo, hi].
func randIntIn(lo, hi int) int {
	return lo + rand.Intn(hi-lo+1)
}

// Fixed is a deterministic Estimator for tests. Urgency still follows the
// real policy; every numeric figure comes from the struct fields.
type Fixed struct {
	Estimate        Estimate
	ScheduleDays    int
	ScheduleCost    float64
	MaintenanceCost float64
	SavingsFactor   float64
}

func (f Fixed) Predict(m model.Machine) Estimate { return f.Estimate }

func (f Fixed) Schedule(m model.Machine) ScheduleEstimate {
	return ScheduleEstimate{
		Urgency:         UrgencyFor(m),
		RecommendedDays: f.ScheduleDays,
		EstimatedCost:   f.ScheduleCost,
	}
}

func (f Fixed) Cost(m model.Machine) CostEstimate {
	return CostEstimate{
		MaintenanceCost:  f.MaintenanceCost,
		PotentialSavings: f.MaintenanceCost * f.SavingsFactor,
	}
}
