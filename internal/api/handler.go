package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"maintenance-tracking-backend/config"
	"maintenance-tracking-backend/internal/notification"
	"maintenance-tracking-backend/internal/predict"
	"maintenance-tracking-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	estimator predict.Estimator
	webpush   *webpush.Options
	alerts    *notification.WorkerPool
	auth      config.AuthConfig
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, est predict.Estimator, webpushOptions *webpush.Options, alerts *notification.WorkerPool, auth config.AuthConfig) *Handler {
	return &Handler{
		store:     s,
		estimator: est,
		webpush:   webpushOptions,
		alerts:    alerts,
		auth:      auth,
	}
}

// abortStoreError maps store errors to HTTP responses. notFoundMsg replaces
// the generic message for ErrNotFound so handlers can name the entity.
func abortStoreError(c *gin.Context, err error, notFoundMsg, conflictMsg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": notFoundMsg})
	case errors.Is(err, store.ErrConflict):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": conflictMsg})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
