package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"maintenance-tracking-backend/config"
	"maintenance-tracking-backend/internal/model"
	"maintenance-tracking-backend/internal/predict"
	"maintenance-tracking-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestStore opens an in-memory SQLite database migrated to the full schema.
func newTestStore(t *testing.T) store.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:api_%s?mode=memory&cache=shared", t.Name())
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

	return store.NewGormStore(db)
}

// setupHandlerRouter registers all resource routes directly, bypassing the
// auth middleware, so each handler can be exercised in isolation.
func setupHandlerRouter(t *testing.T, est predict.Estimator) (*gin.Engine, store.Store) {
	t.Helper()

	s := newTestStore(t)
	handler := NewHandler(s, est, nil, nil, config.AuthConfig{})

	r := gin.New()
	machines := r.Group("/api/machines")
	machines.GET("", handler.ListMachines)
	machines.POST("", handler.CreateMachine)
	machines.POST("/generate-sample", handler.GenerateSampleMachines)
	machines.GET("/:id", handler.GetMachine)
	machines.PUT("/:id", handler.UpdateMachine)
	machines.DELETE("/:id", handler.DeleteMachine)

	activities := r.Group("/api/activities")
	activities.GET("", handler.ListActivities)
	activities.POST("", handler.CreateActivity)
	activities.POST("/generate-sample", handler.GenerateSampleActivities)
	activities.GET("/:id", handler.GetActivity)
	activities.PUT("/:id", handler.UpdateActivity)
	activities.DELETE("/:id", handler.DeleteActivity)

	analytics := r.Group("/api/analytics")
	analytics.GET("/predictive", handler.GetPredictiveAnalytics)
	analytics.GET("/dashboard-stats", handler.GetDashboardStats)
	analytics.GET("/maintenance-schedule", handler.GetMaintenanceSchedule)
	analytics.GET("/cost-analysis", handler.GetCostAnalysis)
	analytics.POST("/generate-sample-data", handler.GenerateSamplePredictiveData)

	return r, s
}

// doJSON performs a request with an optional JSON body and decodes nothing.
func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewBuffer(b)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
