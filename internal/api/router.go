package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"maintenance-tracking-backend/config"
	"maintenance-tracking-backend/internal/mw"
	"maintenance-tracking-backend/internal/notification"
	"maintenance-tracking-backend/internal/predict"
	"maintenance-tracking-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, est predict.Estimator, cfg *config.Config, alerts *notification.WorkerPool) *gin.Engine {
	r := gin.Default()

	webpushOptions := &webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}
	handler := NewHandler(s, est, webpushOptions, alerts, cfg.Auth)

	limit := cfg.Server.RateLimitPerSec
	if limit <= 0 {
		limit = 10
	}
	rateLimiter := mw.RateLimiter(rate.Limit(limit), 5)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/auth/login", handler.Login)
		api.GET("/vapid_public_key", caching, handler.GetVAPIDPublicKey)

		authed := api.Group("")
		authed.Use(mw.Auth(cfg.Auth.JWTSecret))
		{
			machines := authed.Group("/machines")
			machines.GET("", handler.ListMachines)
			machines.POST("", handler.CreateMachine)
			machines.POST("/generate-sample", handler.GenerateSampleMachines)
			machines.GET("/:id", handler.GetMachine)
			machines.PUT("/:id", handler.UpdateMachine)
			machines.DELETE("/:id", handler.DeleteMachine)

			activities := authed.Group("/activities")
			activities.GET("", handler.ListActivities)
			activities.POST("", handler.CreateActivity)
			activities.POST("/generate-sample", handler.GenerateSampleActivities)
			activities.GET("/:id", handler.GetActivity)
			activities.PUT("/:id", handler.UpdateActivity)
			activities.DELETE("/:id", handler.DeleteActivity)

			analytics := authed.Group("/analytics")
			analytics.GET("/predictive", handler.GetPredictiveAnalytics)
			analytics.GET("/dashboard-stats", handler.GetDashboardStats)
			analytics.GET("/maintenance-schedule", handler.GetMaintenanceSchedule)
			analytics.GET("/cost-analysis", handler.GetCostAnalysis)
			analytics.POST("/generate-sample-data", handler.GenerateSamplePredictiveData)

			authed.GET("/subscriptions", handler.GetSubscription)
			authed.PUT("/subscriptions", handler.PutSubscription)
			authed.DELETE("/subscriptions", handler.DeleteSubscription)
		}
	}

	return r
}
