package intake

import "github.com/gin-gonic/gin"

// RegisterRoutes binds every route in spec.md §6's HTTP API table.
func RegisterRoutes(r *gin.Engine, h *Handlers) {
	r.GET("/health", h.Health)
	r.GET("/health/db", h.HealthDB)
	r.GET("/health/redis", h.HealthRedis)
	r.GET("/test/jobs/status", h.JobsStatus)

	payments := r.Group("/payments")
	payments.POST("", h.CreatePayment)
	payments.GET("/:id", h.GetPayment)
	payments.POST("/:id/refund", h.CreateRefund)

	webhooks := r.Group("/webhooks")
	webhooks.POST("", h.CreateWebhookSubscription)
	webhooks.GET("", h.ListWebhookSubscriptions)
	webhooks.GET("/:id", h.GetWebhookSubscription)
	webhooks.GET("/:id/events", h.ListWebhookEvents)
	webhooks.PATCH("/:id", h.UpdateWebhookSubscription)
	webhooks.DELETE("/:id", h.DeleteWebhookSubscription)
}
