package api

import (
	"net/http"

	"notify-dispatcher/internal/notification/delivery"
	"notify-dispatcher/pkg/config"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, cfg *config.Config, notificationHandler *delivery.NotificationHandler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Operator routes, protected when a secret is configured
		ops := api.Group("")
		if cfg.JWTSecret != "" {
			ops.Use(delivery.AuthMiddleware(cfg.JWTSecret))
		}
		{
			ops.POST("/jobs", notificationHandler.Enqueue)
			ops.GET("/jobs/:id", notificationHandler.GetJob)
			ops.POST("/runs", notificationHandler.TriggerRun)
			ops.GET("/history", notificationHandler.GetHistory)
			ops.GET("/dead-letters", notificationHandler.GetDeadLetters)
		}
	}
}
