package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/novapay/gateway/apierror"
	"github.com/novapay/gateway/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateRefund validates the payment's status and remaining refund budget,
// inserts the refund row, transitions the parent payment to partial_refunded
// or refunded according to the new cumulative sum, and emits refund.created
// — all within one transaction, per spec.md §4.D's POST refund flow.
func (s *Store) CreateRefund(ctx context.Context, paymentID uuid.UUID, amount int64, reason *string) (*models.Refund, error) {
	var refund models.Refund

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&payment, "id = ?", paymentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFound("payment not found")
		}
		if err != nil {
			return apierror.Fatal("load payment for refund failed", err)
		}

		if payment.Status != models.PaymentCompleted && payment.Status != models.PaymentPartialRefunded {
			return apierror.InvalidState("payment is not eligible for refund")
		}

		remaining, err := s.RemainingRefundBudget(tx, &payment)
		if err != nil {
			return err
		}
		if amount <= 0 || amount > remaining {
			return apierror.InvalidState("refund amount exceeds remaining balance")
		}

		now := time.Now().UTC()
		refund = models.Refund{
			ID:        uuid.New(),
			PaymentID: payment.ID,
			Amount:    amount,
			Reason:    reason,
			Status:    models.RefundPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(&refund).Error; err != nil {
			return apierror.Fatal("create refund failed", err)
		}

		newStatus := models.PaymentPartialRefunded
		if amount == remaining {
			newStatus = models.PaymentRefunded
		}
		if err := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, payment.Status).
			Updates(map[string]any{"status": newStatus, "updated_at": now}).Error; err != nil {
			return apierror.Fatal("transition payment for refund failed", err)
		}

		payload := models.JSONMap{
			"refund_id":  refund.ID.String(),
			"payment_id": payment.ID.String(),
			"amount":     amount,
			"status":     refund.Status,
		}
		if _, err := insertOutboxEvents(tx, models.EventRefundCreated, payload, s.webhookMaxRetries); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

// ProcessRefund settles a pending refund to processed and emits
// refund.processed, resolving the open question in spec.md §9 by treating
// refund settlement as a background job analogous to the payment processor
// rather than an inline side effect of CreateRefund.
func (s *Store) ProcessRefund(ctx context.Context, refundID uuid.UUID) (*models.Refund, bool, error) {
	var refund models.Refund
	var settled bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Refund{}).
			Where("id = ? AND status = ?", refundID, models.RefundPending).
			Updates(map[string]any{
				"status":     models.RefundProcessed,
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return apierror.Fatal("settle refund CAS failed", res.Error)
		}
		if err := tx.First(&refund, "id = ?", refundID).Error; err != nil {
			return apierror.NotFound("refund not found")
		}
		if res.RowsAffected == 0 {
			settled = false
			return nil
		}
		settled = true

		payload := models.JSONMap{
			"refund_id":  refund.ID.String(),
			"payment_id": refund.PaymentID.String(),
			"amount":     refund.Amount,
		}
		if _, err := insertOutboxEvents(tx, models.EventRefundProcessed, payload, s.webhookMaxRetries); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &refund, settled, nil
}
