package intake

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/novapay/gateway/apierror"
	"github.com/novapay/gateway/logger"
	"github.com/novapay/gateway/models"
	"github.com/novapay/gateway/queue"
	"github.com/novapay/gateway/store"
)

type createPaymentRequest struct {
	Amount        int64          `json:"amount" binding:"required"`
	Currency      string         `json:"currency"`
	CustomerEmail string         `json:"customer_email" binding:"required"`
	CustomerName  *string        `json:"customer_name"`
	Description   *string        `json:"description"`
	PaymentMethod *string        `json:"payment_method"`
	Metadata      models.JSONMap `json:"metadata"`
}

// CreatePayment implements spec.md §4.D's POST /payments flow: idempotency
// gate, validation, transactional creation + idempotency-record write,
// enqueue, and reply.
func (h *Handlers) CreatePayment(c *gin.Context) {
	key := c.GetHeader("Idempotency-Key")

	if key != "" {
		if record, err := h.Store.LookupIdempotent(c.Request.Context(), key); err != nil {
			respondErr(c, err)
			return
		} else if record != nil {
			c.JSON(http.StatusOK, record.Response)
			return
		}
	}

	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, apierror.Validation(err.Error()))
		return
	}
	if req.Amount <= 0 {
		respondErr(c, apierror.Validation("amount must be greater than zero"))
		return
	}
	if req.CustomerEmail == "" {
		respondErr(c, apierror.Validation("customer_email is required"))
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}
	if len(req.Currency) != 3 {
		respondErr(c, apierror.Validation("currency must be a 3-letter code"))
		return
	}

	var idemKey *string
	if key != "" {
		idemKey = &key
	}

	in := store.CreatePaymentInput{
		IdempotencyKey: idemKey,
		Amount:         req.Amount,
		Currency:       req.Currency,
		CustomerEmail:  req.CustomerEmail,
		CustomerName:   req.CustomerName,
		Description:    req.Description,
		PaymentMethod:  req.PaymentMethod,
		Metadata:       req.Metadata,
	}

	payment, err := h.Store.CreatePayment(c.Request.Context(), in, h.Cfg.IdempotencyTTL, func(p *models.Payment) models.JSONMap {
		return models.JSONMap{
			"id":     p.ID.String(),
			"status": p.Status,
			"amount": p.Amount,
		}
	})
	if apierror.IsKind(err, "duplicate_key") {
		existing, lookupErr := h.Store.FindPaymentByIdempotencyKey(c.Request.Context(), key)
		if lookupErr != nil {
			respondErr(c, lookupErr)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":      existing.ID,
			"status":  existing.Status,
			"message": "Payment already exists",
		})
		return
	}
	if err != nil {
		respondErr(c, err)
		return
	}

	if enqErr := h.Queue.Enqueue(c.Request.Context(), queue.Payments, payment.ID.String(), map[string]any{
		"payment_id": payment.ID.String(),
	}); enqErr != nil {
		logger.Error(c, "enqueue ProcessPayment failed", enqErr)
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":     payment.ID,
		"status": payment.Status,
		"amount": payment.Amount,
	})
}

// GetPayment returns a payment with its refunds embedded, newest first.
func (h *Handlers) GetPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondErr(c, apierror.Validation("invalid payment id"))
		return
	}

	payment, err := h.Store.GetPayment(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func respondErr(c *gin.Context, err error) {
	e := apierror.As(err)
	c.JSON(e.Code, gin.H{"error": e.Kind, "message": e.Message})
}
