package api

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"maintenance-tracking-backend/internal/model"
	"maintenance-tracking-backend/internal/store"
)

// activityResponse is the JSON projection of an activity.
type activityResponse struct {
	ID          int64      `json:"id"`
	Description string     `json:"description"`
	Technician  string     `json:"technician"`
	Status      string     `json:"status"`
	MachineID   *string    `json:"machine_id"`
	Timestamp   time.Time  `json:"timestamp"`
	CompletedAt *time.Time `json:"completed_at"`
}

func toActivityResponse(a model.Activity) activityResponse {
	return activityResponse{
		ID:          a.ID,
		Description: a.Description,
		Technician:  a.Technician,
		Status:      a.Status,
		MachineID:   a.MachineID,
		Timestamp:   a.Timestamp,
		CompletedAt: a.CompletedAt,
	}
}

// ListActivities handles GET /api/activities, newest first.
func (h *Handler) ListActivities(c *gin.Context) {
	activities, err := h.store.ListActivities(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	responses := make([]activityResponse, 0, len(activities))
	for _, a := range activities {
		responses = append(responses, toActivityResponse(a))
	}
	c.JSON(http.StatusOK, responses)
}

type createActivityRequest struct {
	Description string  `json:"description"`
	Technician  string  `json:"technician"`
	Status      *string `json:"status"`
	MachineID   *string `json:"machine_id"`
}

// CreateActivity handles POST /api/activities. A supplied machine reference
// must resolve to an existing machine.
func (h *Handler) CreateActivity(c *gin.Context) {
	var req createActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Description == "" || req.Technician == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Description and technician are required"})
		return
	}

	activity := model.Activity{
		Description: req.Description,
		Technician:  req.Technician,
		Status:      model.ActivityPending,
		MachineID:   req.MachineID,
	}
	if req.Status != nil {
		activity.Status = *req.Status
	}

	if err := h.store.CreateActivity(c.Request.Context(), &activity); err != nil {
		abortStoreError(c, err, "Machine not found", "")
		return
	}

	c.JSON(http.StatusCreated, toActivityResponse(activity))
}

// GetActivity handles GET /api/activities/:id.
func (h *Handler) GetActivity(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid activity ID"})
		return
	}

	activity, err := h.store.GetActivity(c.Request.Context(), id)
	if err != nil {
		abortStoreError(c, err, "Activity not found", "")
		return
	}
	c.JSON(http.StatusOK, toActivityResponse(activity))
}

// optionalString distinguishes an absent JSON field from an explicit null,
// so an update can clear the machine reference.
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

type updateActivityRequest struct {
	Description *string        `json:"description"`
	Technician  *string        `json:"technician"`
	Status      *string        `json:"status"`
	MachineID   optionalString `json:"machine_id"`
}

// UpdateActivity handles PUT /api/activities/:id with partial merge
// semantics. The machine reference is accepted verbatim here; existence is
// only checked at creation time.
func (h *Handler) UpdateActivity(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid activity ID"})
		return
	}

	var req updateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := store.ActivityPatch{
		Description: req.Description,
		Technician:  req.Technician,
		Status:      req.Status,
	}
	if req.MachineID.Set {
		patch.MachineID = &req.MachineID.Value
	}

	activity, err := h.store.UpdateActivity(c.Request.Context(), id, patch)
	if err != nil {
		abortStoreError(c, err, "Activity not found", "")
		return
	}
	c.JSON(http.StatusOK, toActivityResponse(activity))
}

// DeleteActivity handles DELETE /api/activities/:id.
func (h *Handler) DeleteActivity(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid activity ID"})
		return
	}

	if err := h.store.DeleteActivity(c.Request.Context(), id); err != nil {
		abortStoreError(c, err, "Activity not found", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Activity deleted successfully"})
}

// GenerateSampleActivities handles POST /api/activities/generate-sample.
// Every invocation inserts all five samples; unlike the machine seeder this
// is deliberately not idempotent.
func (h *Handler) GenerateSampleActivities(c *gin.Context) {
	ctx := c.Request.Context()

	machines, err := h.store.ListMachines(ctx)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	machineIDs := make([]string, len(machines))
	for i, m := range machines {
		machineIDs[i] = m.ID
	}

	pickMachine := func() *string {
		if len(machineIDs) == 0 {
			return nil
		}
		id := machineIDs[rand.Intn(len(machineIDs))]
		return &id
	}

	type sample struct {
		description string
		technician  string
		status      string
	}
	fixtures := []sample{
		{"Routine maintenance check on production line", "Ahmed Hassan", model.ActivityCompleted},
		{"Replace worn belt on assembly unit", "Sarah Johnson", model.ActivityInProgress},
		{"Calibrate sensors on quality control system", "Mohammed Ali", model.ActivityPending},
		{"Oil change and lubrication service", "Lisa Chen", model.ActivityCompleted},
		{"Emergency repair on packaging unit", "David Rodriguez", model.ActivityActive},
	}

	now := time.Now().UTC()
	samples := make([]model.Activity, 0, len(fixtures))
	descriptions := make([]string, 0, len(fixtures))
	for _, f := range fixtures {
		activity := model.Activity{
			Description: f.description,
			Technician:  f.technician,
			Status:      f.status,
			MachineID:   pickMachine(),
		}
		if f.status == model.ActivityCompleted {
			completedAt := now
			activity.CompletedAt = &completedAt
		}
		samples = append(samples, activity)
		descriptions = append(descriptions, f.description)
	}

	count, err := h.store.SeedActivities(ctx, samples)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    fmt.Sprintf("Created %d sample activities", count),
		"activities": descriptions,
	})
}
