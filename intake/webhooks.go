package intake

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/novapay/gateway/apierror"
	"github.com/novapay/gateway/models"
	"github.com/novapay/gateway/store"
)

type createWebhookRequest struct {
	URL    string   `json:"url" binding:"required"`
	Events []string `json:"events" binding:"required"`
}

// CreateWebhookSubscription returns the generated secret exactly once, in
// the creation response — GetWebhookSubscription never surfaces it again.
func (h *Handlers) CreateWebhookSubscription(c *gin.Context) {
	var req createWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apierror.Validation(err.Error()))
		return
	}
	if req.URL == "" || len(req.Events) == 0 {
		respondErr(c, apierror.Validation("url and events are required"))
		return
	}

	sub, err := h.Store.CreateWebhookSubscription(c.Request.Context(), store.CreateWebhookSubscriptionInput{
		URL:    req.URL,
		Events: req.Events,
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":     sub.ID,
		"url":    sub.URL,
		"events": []string(sub.Events),
		"active": sub.Active,
		"secret": sub.Secret,
	})
}

func (h *Handlers) ListWebhookSubscriptions(c *gin.Context) {
	subs, err := h.Store.ListWebhookSubscriptions(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	out := make([]gin.H, len(subs))
	for i, sub := range subs {
		out[i] = publicSubscription(&sub)
	}
	c.JSON(http.StatusOK, gin.H{"webhooks": out})
}

func (h *Handlers) GetWebhookSubscription(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondErr(c, apierror.Validation("invalid webhook id"))
		return
	}
	sub, err := h.Store.GetWebhookSubscription(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, publicSubscription(sub))
}

type updateWebhookRequest struct {
	URL    *string  `json:"url"`
	Events []string `json:"events"`
	Active *bool    `json:"active"`
}

func (h *Handlers) UpdateWebhookSubscription(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondErr(c, apierror.Validation("invalid webhook id"))
		return
	}
	var req updateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apierror.Validation(err.Error()))
		return
	}

	sub, err := h.Store.UpdateWebhookSubscription(c.Request.Context(), id, store.UpdateWebhookSubscriptionInput{
		URL:    req.URL,
		Events: req.Events,
		Active: req.Active,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, publicSubscription(sub))
}

func (h *Handlers) DeleteWebhookSubscription(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondErr(c, apierror.Validation("invalid webhook id"))
		return
	}
	if err := h.Store.DeleteWebhookSubscription(c.Request.Context(), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ListWebhookEvents paginates a subscription's outbox rows by query params
// status, limit, offset, per spec.md §6.
func (h *Handlers) ListWebhookEvents(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondErr(c, apierror.Validation("invalid webhook id"))
		return
	}
	if _, err := h.Store.GetWebhookSubscription(c.Request.Context(), id); err != nil {
		respondErr(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	events, err := h.Store.ListWebhookEvents(c.Request.Context(), store.ListWebhookEventsInput{
		WebhookID: id,
		Status:    c.Query("status"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// publicSubscription omits Secret — it is returned exactly once, at
// creation time, never on subsequent reads.
func publicSubscription(sub *models.WebhookSubscription) gin.H {
	return gin.H{
		"id":         sub.ID,
		"url":        sub.URL,
		"events":     []string(sub.Events),
		"active":     sub.Active,
		"created_at": sub.CreatedAt,
		"updated_at": sub.UpdatedAt,
	}
}
