package intake

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/novapay/gateway/apierror"
	"github.com/novapay/gateway/logger"
	"github.com/novapay/gateway/models"
	"github.com/novapay/gateway/queue"
)

type createRefundRequest struct {
	Amount *int64  `json:"amount"`
	Reason *string `json:"reason"`
}

// CreateRefund implements spec.md §4.D's POST /payments/{id}/refund flow:
// idempotency gate, load payment, validate state and budget, create the
// refund transactionally (which also transitions the parent payment and
// writes refund.created to the outbox), record the idempotent response, then
// enqueue the background settlement job.
func (h *Handlers) CreateRefund(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondErr(c, apierror.Validation("invalid payment id"))
		return
	}

	key := c.GetHeader("Idempotency-Key")
	if key != "" {
		if record, lookupErr := h.Store.LookupIdempotent(c.Request.Context(), key); lookupErr != nil {
			respondErr(c, lookupErr)
			return
		} else if record != nil {
			c.JSON(http.StatusOK, record.Response)
			return
		}
	}

	var req createRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		respondErr(c, apierror.Validation(err.Error()))
		return
	}

	payment, err := h.Store.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		respondErr(c, err)
		return
	}

	amount := req.Amount
	if amount == nil {
		remaining, rErr := h.Store.RemainingRefundBudgetFor(c.Request.Context(), payment)
		if rErr != nil {
			respondErr(c, rErr)
			return
		}
		amount = &remaining
	}

	refund, err := h.Store.CreateRefund(c.Request.Context(), paymentID, *amount, req.Reason)
	if err != nil {
		respondErr(c, err)
		return
	}

	response := gin.H{
		"id":         refund.ID,
		"payment_id": refund.PaymentID,
		"amount":     refund.Amount,
		"status":     refund.Status,
	}
	if key != "" {
		if recErr := h.Store.RecordIdempotentResponse(c.Request.Context(), key, &refund.PaymentID, models.JSONMap(response), h.Cfg.IdempotencyTTL); recErr != nil {
			logger.Error(c, "record refund idempotency response failed", recErr)
		}
	}

	if enqErr := h.Queue.Enqueue(c.Request.Context(), queue.Payments, "refund:"+refund.ID.String(), map[string]any{
		"refund_id": refund.ID.String(),
	}); enqErr != nil {
		logger.Error(c, "enqueue ProcessRefund failed", enqErr)
	}

	c.JSON(http.StatusCreated, response)
}
