package api

import (
	"net/http"

	"github.com/kentsubra71/keystone/internal/auth/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Scheduler-invoked jobs, shared secret
		cron := api.Group("/cron")
		cron.Use(delivery.CronMiddleware(h.config.CronSecret))
		{
			cron.POST("/sheet", h.jobs.SyncSheet)
			cron.POST("/gmail", h.jobs.SyncMail)
			cron.POST("/nudges", h.jobs.GenerateNudges)
			cron.POST("/brief", h.jobs.GenerateBrief)
		}

		authed := api.Group("")
		authed.Use(delivery.AuthMiddleware(h.tokens))
		{
			authed.POST("/sync/sheet", h.jobs.SyncSheet)
			authed.POST("/sync/gmail", h.jobs.SyncMail)

			authed.GET("/items", h.items.GetItems)
			authed.GET("/items/:id", h.items.GetItemByID)
			authed.GET("/items/:id/history", h.items.GetHistory)
			authed.POST("/items/:id/action", h.items.ApplyAction)

			authed.GET("/sheet-items", h.sheets.GetRows)
			authed.GET("/waiting-on", h.sheets.GetWaitingOn)

			authed.GET("/owner-directory", h.sheets.GetOwners)
			authed.POST("/owner-directory", h.sheets.CreateOwner)
			authed.GET("/owner-directory/suggest", h.sheets.SuggestOwners)
			authed.PUT("/owner-directory/:id", h.sheets.UpdateOwner)
			authed.DELETE("/owner-directory/:id", h.sheets.DeleteOwner)

			authed.GET("/nudges", h.nudges.GetActive)
			authed.POST("/nudges/:id/dismiss", h.nudges.Dismiss)

			authed.GET("/brief", h.briefs.GetLatest)

			authed.POST("/devices", h.nudges.RegisterDevice)
			authed.DELETE("/devices/:token", h.nudges.UnregisterDevice)

			settings := authed.Group("/settings")
			{
				settings.GET("/ollama", h.settings.GetOllamaSettings)
				settings.PUT("/ollama", h.settings.UpdateOllamaSettings)
				settings.POST("/ollama/test", h.settings.TestOllamaConnection)
			}
		}
	}
}
