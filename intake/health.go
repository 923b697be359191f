package intake

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/novapay/gateway/queue"
)

// Health is a liveness probe — no dependency checks.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HealthDB pings the database connection pool.
func (h *Handlers) HealthDB(c *gin.Context) {
	if err := h.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HealthRedis pings the job queue's Redis connection.
func (h *Handlers) HealthRedis(c *gin.Context) {
	if err := h.Queue.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// JobsStatus reports queue depths for both named queues, a minimal
// operational surface for the /test/jobs/status endpoint spec.md §6 names.
func (h *Handlers) JobsStatus(c *gin.Context) {
	ctx := c.Request.Context()
	paymentsPending, err := h.Queue.Depth(ctx, queue.Payments)
	if err != nil {
		respondErr(c, err)
		return
	}
	webhooksPending, err := h.Queue.Depth(ctx, queue.Webhooks)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payments_pending": paymentsPending,
		"webhooks_pending": webhooksPending,
	})
}
