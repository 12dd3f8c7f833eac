package api

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"maintenance-tracking-backend/internal/model"
	"maintenance-tracking-backend/internal/predict"
)

// predictiveDataResponse is the JSON projection of a predictive data row.
type predictiveDataResponse struct {
	ID                     int64     `json:"id"`
	MachineID              string    `json:"machine_id"`
	FailureProbability     float64   `json:"failureProbability"`
	RecommendedMaintenance int       `json:"recommendedMaintenance"`
	CostSavings            float64   `json:"costSavings"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func toPredictiveDataResponse(d model.PredictiveData) predictiveDataResponse {
	return predictiveDataResponse{
		ID:                     d.ID,
		MachineID:              d.MachineID,
		FailureProbability:     d.FailureProbability,
		RecommendedMaintenance: d.RecommendedMaintenance,
		CostSavings:            d.CostSavings,
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
	}
}

// GetPredictiveAnalytics handles GET /api/analytics/predictive. Missing
// predictive rows are created lazily from the estimator; once a row exists
// it is reused verbatim on later calls.
func (h *Handler) GetPredictiveAnalytics(c *gin.Context) {
	report, err := h.store.PredictiveReport(c.Request.Context(), h.estimator)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	results := make([]gin.H, 0, len(report))
	for _, entry := range report {
		results = append(results, gin.H{
			"machine":         toMachineResponse(entry.Machine),
			"predictive_data": toPredictiveDataResponse(entry.Prediction),
		})
	}
	c.JSON(http.StatusOK, results)
}

type dashboardStatsResponse struct {
	TotalMachines       int64   `json:"total_machines"`
	OperationalMachines int64   `json:"operational_machines"`
	WarningMachines     int64   `json:"warning_machines"`
	MaintenanceMachines int64   `json:"maintenance_machines"`
	AvgEfficiency       float64 `json:"avg_efficiency"`
	RecentActivities    int64   `json:"recent_activities"`
	TotalCostSavings    float64 `json:"total_cost_savings"`
}

// GetDashboardStats handles GET /api/analytics/dashboard-stats.
func (h *Handler) GetDashboardStats(c *gin.Context) {
	stats, err := h.store.DashboardStats(c.Request.Context(), time.Now().UTC())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dashboardStatsResponse{
		TotalMachines:       stats.TotalMachines,
		OperationalMachines: stats.OperationalMachines,
		WarningMachines:     stats.WarningMachines,
		MaintenanceMachines: stats.MaintenanceMachines,
		AvgEfficiency:       roundTo(stats.AvgEfficiency, 1),
		RecentActivities:    stats.RecentActivities,
		TotalCostSavings:    roundTo(stats.TotalCostSavings, 2),
	})
}

type scheduleEntryResponse struct {
	MachineID       string  `json:"machineId"`
	MachineName     string  `json:"machineName"`
	Urgency         string  `json:"urgency"`
	RecommendedDays int     `json:"recommendedDays"`
	EstimatedCost   float64 `json:"estimatedCost"`
	CurrentStatus   string  `json:"currentStatus"`
}

// GetMaintenanceSchedule handles GET /api/analytics/maintenance-schedule.
// Entries are ordered by urgency, high before medium before low; order
// within an urgency group follows machine enumeration.
func (h *Handler) GetMaintenanceSchedule(c *gin.Context) {
	machines, err := h.store.ListMachines(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	schedule := make([]scheduleEntryResponse, 0, len(machines))
	for _, m := range machines {
		estimate := h.estimator.Schedule(m)
		schedule = append(schedule, scheduleEntryResponse{
			MachineID:       m.ID,
			MachineName:     m.Name,
			Urgency:         estimate.Urgency,
			RecommendedDays: estimate.RecommendedDays,
			EstimatedCost:   estimate.EstimatedCost,
			CurrentStatus:   m.Status,
		})
	}

	sort.SliceStable(schedule, func(i, j int) bool {
		return predict.UrgencyRank[schedule[i].Urgency] < predict.UrgencyRank[schedule[j].Urgency]
	})

	c.JSON(http.StatusOK, schedule)
}

type costAnalysisResponse struct {
	TotalMaintenanceCost    float64 `json:"total_maintenance_cost"`
	PotentialSavings        float64 `json:"potential_savings"`
	CostReductionPercentage float64 `json:"cost_reduction_percentage"`
	MonthlySavings          float64 `json:"monthly_savings"`
}

// GetCostAnalysis handles GET /api/analytics/cost-analysis. Figures are
// drawn fresh on every call; nothing is persisted.
func (h *Handler) GetCostAnalysis(c *gin.Context) {
	machines, err := h.store.ListMachines(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var totalCost, totalSavings float64
	for _, m := range machines {
		estimate := h.estimator.Cost(m)
		totalCost += estimate.MaintenanceCost
		totalSavings += estimate.PotentialSavings
	}

	var reductionPct float64
	if totalCost > 0 {
		reductionPct = totalSavings / totalCost * 100
	}

	c.JSON(http.StatusOK, costAnalysisResponse{
		TotalMaintenanceCost:    roundTo(totalCost, 2),
		PotentialSavings:        roundTo(totalSavings, 2),
		CostReductionPercentage: roundTo(reductionPct, 1),
		MonthlySavings:          roundTo(totalSavings/12, 2),
	})
}

// GenerateSamplePredictiveData handles POST /api/analytics/generate-sample-data.
// Machines that already have predictive data are skipped.
func (h *Handler) GenerateSamplePredictiveData(c *gin.Context) {
	created, err := h.store.SeedPredictiveData(c.Request.Context(), h.estimator)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  fmt.Sprintf("Created predictive data for %d machines", len(created)),
		"machines": created,
	})
}
