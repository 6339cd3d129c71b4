package api

import (
	"net/http"

	"dabble-backend/internal/auth/delivery"
	journalDelivery "dabble-backend/internal/journal/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.authHandler.Register)
			auth.POST("/login", h.authHandler.Login)
			auth.POST("/refresh", h.authHandler.RefreshToken)
			auth.POST("/logout", h.authHandler.Logout)
			auth.GET("/me", delivery.AuthMiddleware(h.authUsecase), h.authHandler.Me)
		}

		// Delivery schedule (protected)
		settings := api.Group("/settings")
		settings.Use(delivery.AuthMiddleware(h.authUsecase))
		{
			settings.GET("/schedule", h.scheduleHandler.GetSchedule)
			settings.PUT("/schedule", h.scheduleHandler.UpdateSchedule)
			settings.POST("/schedule/pause", h.scheduleHandler.Pause)
			settings.POST("/schedule/resume", h.scheduleHandler.Resume)
		}

		// Journal entries (protected)
		entries := api.Group("/entries")
		entries.Use(delivery.AuthMiddleware(h.authUsecase))
		{
			entries.GET("", h.journalHandler.ListEntries)
			entries.POST("", h.journalHandler.CreateEntry)
			entries.GET("/:id", h.journalHandler.GetEntry)
		}

		// Prompts (protected)
		prompts := api.Group("/prompts")
		prompts.Use(delivery.AuthMiddleware(h.authUsecase))
		{
			prompts.GET("", h.journalHandler.ListPrompts)
			prompts.POST("/send-now", h.journalHandler.SendNow)
		}

		// Mail provider webhook (shared secret)
		api.POST("/inbound/email",
			journalDelivery.RequireSecret("X-Inbound-Secret", h.config.InboundSecret),
			h.inboundHandler.ReceiveEmail)

		// Operator routes (shared secret)
		admin := api.Group("/admin")
		admin.Use(journalDelivery.RequireSecret("X-Admin-Secret", h.config.AdminSecret))
		{
			admin.POST("/sweep", h.sweepHandler.RunSweep)
		}
	}
}
