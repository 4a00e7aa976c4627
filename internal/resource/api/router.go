package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures the resource manager API routes
func SetupRoutes(router *gin.RouterGroup, handler *Handler) {
	// Resource routes
	resources := router.Group("/resources")
	{
		resources.GET("", handler.ListResources)
		resources.POST("", handler.CreateResource)
		resources.GET("/metrics", handler.GetMetrics)
		resources.GET("/:resourceId", handler.GetResource)
		resources.PUT("/:resourceId", handler.UpdateResource)
		resources.DELETE("/:resourceId", handler.DeleteResource)
	}

	// Credential routes
	credentials := router.Group("/credentials")
	{
		credentials.GET("", handler.ListCredentials)
		credentials.POST("", handler.CreateCredential)
		credentials.GET("/:credentialId", handler.GetCredential)
		credentials.DELETE("/:credentialId", handler.DeleteCredential)
	}

	// Booking routes
	bookings := router.Group("/bookings")
	{
		bookings.GET("", handler.ListBookings)
		bookings.POST("", handler.CreateBooking)
		bookings.DELETE("/:bookingId", handler.CancelBooking)
	}

	// Cost routes
	costs := router.Group("/costs")
	{
		costs.GET("", handler.SummarizeCosts)
		costs.POST("", handler.RecordCost)
	}

	// Quota routes
	quotas := router.Group("/quotas")
	{
		quotas.GET("", handler.ListQuotas)
		quotas.POST("", handler.SetQuota)
		quotas.GET("/check", handler.CheckQuota)
		quotas.POST("/reserve", handler.ReserveQuota)
		quotas.PUT("/:quotaId/usage", handler.RecordQuotaUsage)
		quotas.POST("/:quotaId/reset", handler.ResetQuota)
	}
}
