package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eventhub/backend/services/marketplace-service/controllers"
	"github.com/eventhub/backend/services/marketplace-service/middleware"
)

// Controllers groups the handlers mounted by RegisterRoutes.
type Controllers struct {
	Requests      *controllers.RequestController
	Consultations *controllers.ConsultationController
	Marketplace   *controllers.MarketplaceController
	Notifications *controllers.NotificationController
}

func RegisterRoutes(router *gin.Engine, auth *middleware.Authenticator, h Controllers) {
	// Public
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": "marketplace-service"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	marketplace := api.Group("/marketplace", auth.Optional())
	{
		marketplace.GET("/vendors", h.Marketplace.ListVendors)
		marketplace.GET("/vendors/:id", h.Marketplace.GetVendor)
		marketplace.POST("/vendors", h.Marketplace.RegisterVendor)
		marketplace.GET("/events", h.Marketplace.ListEvents)
	}

	// Wizard steps are open to anonymous customers; the caller is attached
	// when known.
	requests := api.Group("/requests", auth.Optional())
	{
		requests.POST("", h.Requests.CreateRequest)
		requests.GET("/:id", h.Requests.GetRequest)
		requests.PUT("/:id/package", h.Requests.SelectPackage)
		requests.PUT("/:id/services", h.Requests.SelectServices)
		requests.POST("/:id/consultations", h.Consultations.Schedule)
		requests.GET("/:id/consultations", h.Consultations.List)
	}

	// Admin only
	admin := api.Group("", auth.Required(), middleware.AdminOnly())
	{
		admin.PATCH("/requests/:id", h.Requests.UpdateRequest)
		admin.PATCH("/consultations/:id", h.Consultations.Update)
		admin.POST("/notifications/send", h.Notifications.SendNotification)
		admin.GET("/notifications/log", h.Notifications.GetNotificationLogs)
	}
}
