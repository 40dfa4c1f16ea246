package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Yzori/Critvue-sub002/internal/handlers"
	"github.com/Yzori/Critvue-sub002/internal/middleware"
	"github.com/Yzori/Critvue-sub002/internal/models"
)

// RegisterRoutes регистрирует все HTTP маршруты.
func RegisterRoutes(ginRouter *gin.Engine, h *handlers.AppHandlers) {
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := ginRouter.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.AuthHandler.Register)
		auth.POST("/login", h.AuthHandler.Login)
		auth.POST("/refresh", h.AuthHandler.Refresh)
		auth.POST("/logout", h.AuthHandler.Logout)
	}

	requests := api.Group("/requests")
	requests.Use(middleware.AuthMiddleware())
	{
		requests.POST("", h.RequestHandler.Create)
		requests.GET("", h.RequestHandler.Browse)
		requests.GET("/mine", h.RequestHandler.ListMine)
		requests.GET("/:id", h.RequestHandler.Get)
		requests.POST("/:id/publish", h.RequestHandler.Publish)
		requests.DELETE("/:id", h.RequestHandler.Delete)
		// Claim any available slot on the request
		requests.POST("/:id/claim", h.SlotHandler.ClaimByRequest)
	}

	slots := api.Group("/slots")
	slots.Use(middleware.AuthMiddleware())
	{
		slots.GET("/mine", h.SlotHandler.ListMine)
		slots.POST("/:id/claim", h.SlotHandler.ClaimBySlot)
		slots.POST("/:id/unclaim", h.SlotHandler.Unclaim)
		slots.POST("/:id/submit", h.SlotHandler.Submit)
		slots.POST("/:id/accept", h.SlotHandler.Accept)
		slots.POST("/:id/reject", h.SlotHandler.Reject)
		slots.POST("/:id/dispute", h.SlotHandler.Dispute)
	}

	reputation := api.Group("/reputation")
	reputation.Use(middleware.AuthMiddleware())
	{
		reputation.GET("/me", h.ReputationHandler.GetMyProfile)
		reputation.GET("/me/history", h.ReputationHandler.GetKarmaHistory)
		reputation.GET("/:id", h.ReputationHandler.GetProfile)
	}

	notifications := api.Group("/notifications")
	notifications.Use(middleware.AuthMiddleware())
	{
		notifications.GET("", h.NotificationHandler.List)
		notifications.POST("/:id/read", h.NotificationHandler.MarkRead)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RoleMiddleware(models.UserRoleAdmin))
	{
		admin.GET("/disputes", h.AdminHandler.ListDisputes)
		admin.POST("/disputes/:id/claim", h.AdminHandler.ClaimDispute)
		admin.POST("/disputes/:id/resolve", h.AdminHandler.ResolveDispute)
		admin.POST("/sweeps/:name", h.AdminHandler.TriggerSweep)
	}
}
