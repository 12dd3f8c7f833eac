package api

import (
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"maintenance-tracking-backend/internal/model"
	"maintenance-tracking-backend/internal/store"
)

// machineResponse is the JSON projection of a machine.
type machineResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Status          string    `json:"status"`
	Efficiency      float64   `json:"efficiency"`
	Temperature     float64   `json:"temperature"`
	Vibration       float64   `json:"vibration"`
	LastMaintenance string    `json:"lastMaintenance"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toMachineResponse(m model.Machine) machineResponse {
	return machineResponse{
		ID:              m.ID,
		Name:            m.Name,
		Status:          m.Status,
		Efficiency:      m.Efficiency,
		Temperature:     m.Temperature,
		Vibration:       m.Vibration,
		LastMaintenance: m.LastMaintenance,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// ListMachines handles GET /api/machines.
func (h *Handler) ListMachines(c *gin.Context) {
	machines, err := h.store.ListMachines(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	responses := make([]machineResponse, 0, len(machines))
	for _, m := range machines {
		responses = append(responses, toMachineResponse(m))
	}
	c.JSON(http.StatusOK, responses)
}

type createMachineRequest struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Status          *string  `json:"status"`
	Efficiency      *float64 `json:"efficiency"`
	Temperature     *float64 `json:"temperature"`
	Vibration       *float64 `json:"vibration"`
	LastMaintenance *string  `json:"last_maintenance"`
}

// CreateMachine handles POST /api/machines.
func (h *Handler) CreateMachine(c *gin.Context) {
	var req createMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.ID == "" || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Machine ID and name are required"})
		return
	}

	machine := model.Machine{
		ID:              req.ID,
		Name:            req.Name,
		Status:          model.StatusOperational,
		Efficiency:      100.0,
		Temperature:     25.0,
		Vibration:       0.5,
		LastMaintenance: "2024-01-15",
	}
	if req.Status != nil {
		machine.Status = *req.Status
	}
	if req.Efficiency != nil {
		machine.Efficiency = *req.Efficiency
	}
	if req.Temperature != nil {
		machine.Temperature = *req.Temperature
	}
	if req.Vibration != nil {
		machine.Vibration = *req.Vibration
	}
	if req.LastMaintenance != nil {
		machine.LastMaintenance = *req.LastMaintenance
	}

	if err := h.store.CreateMachine(c.Request.Context(), &machine); err != nil {
		abortStoreError(c, err, "Machine not found", "Machine ID already exists")
		return
	}

	c.JSON(http.StatusCreated, toMachineResponse(machine))
}

// GetMachine handles GET /api/machines/:id.
func (h *Handler) GetMachine(c *gin.Context) {
	machine, err := h.store.GetMachine(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortStoreError(c, err, "Machine not found", "")
		return
	}
	c.JSON(http.StatusOK, toMachineResponse(machine))
}

type updateMachineRequest struct {
	Name            *string  `json:"name"`
	Status          *string  `json:"status"`
	Efficiency      *float64 `json:"efficiency"`
	Temperature     *float64 `json:"temperature"`
	Vibration       *float64 `json:"vibration"`
	LastMaintenance *string  `json:"last_maintenance"`
}

func machinePatchFrom(req updateMachineRequest) store.MachinePatch {
	return store.MachinePatch{
		Name:            req.Name,
		Status:          req.Status,
		Efficiency:      req.Efficiency,
		Temperature:     req.Temperature,
		Vibration:       req.Vibration,
		LastMaintenance: req.LastMaintenance,
	}
}

// UpdateMachine handles PUT /api/machines/:id with partial merge semantics.
// A status transition into warning or maintenance dispatches a push alert.
func (h *Handler) UpdateMachine(c *gin.Context) {
	var req updateMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	machine, prevStatus, err := h.store.UpdateMachine(c.Request.Context(), c.Param("id"), machinePatchFrom(req))
	if err != nil {
		abortStoreError(c, err, "Machine not found", "")
		return
	}

	if h.alerts != nil && machine.Status != prevStatus &&
		(machine.Status == model.StatusWarning || machine.Status == model.StatusMaintenance) {
		h.alerts.Dispatch(machine.ID)
	}

	c.JSON(http.StatusOK, toMachineResponse(machine))
}

// DeleteMachine handles DELETE /api/machines/:id.
func (h *Handler) DeleteMachine(c *gin.Context) {
	if err := h.store.DeleteMachine(c.Request.Context(), c.Param("id")); err != nil {
		abortStoreError(c, err, "Machine not found", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Machine deleted successfully"})
}

// GenerateSampleMachines handles POST /api/machines/generate-sample. The
// four fixed profiles get randomized readings inside per-profile ranges;
// machines that already exist are skipped, so the operation is idempotent.
func (h *Handler) GenerateSampleMachines(c *gin.Context) {
	samples := []model.Machine{
		{
			ID: "MACHINE-001", Name: "Production Line A", Status: model.StatusOperational,
			Efficiency:  float64(randIntIn(85, 100)),
			Temperature: float64(randIntIn(20, 35)),
			Vibration:   roundTo(randFloatIn(0.1, 1.0), 1), LastMaintenance: "2024-01-15",
		},
		{
			ID: "MACHINE-002", Name: "Assembly Unit B", Status: model.StatusWarning,
			Efficiency:  float64(randIntIn(70, 85)),
			Temperature: float64(randIntIn(25, 40)),
			Vibration:   roundTo(randFloatIn(0.5, 1.5), 1), LastMaintenance: "2024-01-10",
		},
		{
			ID: "MACHINE-003", Name: "Quality Control C", Status: model.StatusOperational,
			Efficiency:  float64(randIntIn(90, 100)),
			Temperature: float64(randIntIn(18, 28)),
			Vibration:   roundTo(randFloatIn(0.1, 0.8), 1), LastMaintenance: "2024-01-20",
		},
		{
			ID: "MACHINE-004", Name: "Packaging Unit D", Status: model.StatusMaintenance,
			Efficiency:  float64(randIntIn(60, 75)),
			Temperature: float64(randIntIn(30, 45)),
			Vibration:   roundTo(randFloatIn(1.0, 2.0), 1), LastMaintenance: "2024-01-05",
		},
	}

	created, err := h.store.SeedMachines(c.Request.Context(), samples)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  fmt.Sprintf("Created %d sample machines", len(created)),
		"machines": created,
	})
}

// randIntIn returns a uniform random integer in [lo, hi].
func randIntIn(lo, hi int) int {
	return lo + rand.Intn(hi-lo+1)
}

// randFloatIn returns a uniform random float in [lo, hi).
func randFloatIn(lo, hi float64) float64 {
	return lo + rand.Float64()*(hi-lo)
}

// roundTo rounds x to the given number of decimal places.
func roundTo(x float64, decimals int) float64 {
	shift := math.Pow(10, float64(decimals))
	return math.Round(x*shift) / shift
}
