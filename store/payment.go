package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/novapay/gateway/apierror"
	"github.com/novapay/gateway/models"
	"gorm.io/gorm"
)

// SettlePayment performs the compare-and-set in spec.md's payment processor
// step 5: pending -> completed|failed, and in the same transaction writes
// the matching outbox event. If another worker has already settled the
// payment (CAS miss), it returns (payment, false, nil) so the caller acks
// the job without retrying — the idempotency the design notes require of
// redelivered jobs.
func (s *Store) SettlePayment(ctx context.Context, id uuid.UUID, success bool, failureReason string) (*models.Payment, bool, error) {
	newStatus := models.PaymentCompleted
	if !success {
		newStatus = models.PaymentFailed
	}

	var payment models.Payment
	var settled bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", id, models.PaymentPending).
			Updates(map[string]any{
				"status":     newStatus,
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return apierror.Fatal("settle payment CAS failed", res.Error)
		}
		if res.RowsAffected == 0 {
			// Either already settled by a prior delivery, or the payment
			// doesn't exist. Re-read to decide which: an already-settled
			// payment is a no-op exit, a missing one is reported as NotFound.
			if err := tx.First(&payment, "id = ?", id).Error; err != nil {
				return apierror.NotFound("payment not found")
			}
			settled = false
			return nil
		}

		if err := tx.First(&payment, "id = ?", id).Error; err != nil {
			return apierror.Fatal("reload settled payment failed", err)
		}
		settled = true

		eventType := models.EventPaymentCompleted
		payload := models.JSONMap{
			"payment_id": payment.ID.String(),
			"amount":     payment.Amount,
			"currency":   payment.Currency,
		}
		if success {
			payload["email"] = payment.CustomerEmail
		} else {
			eventType = models.EventPaymentFailed
			payload["reason"] = failureReason
		}

		if _, err := insertOutboxEvents(tx, eventType, payload, s.webhookMaxRetries); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &payment, settled, nil
}

// RemainingRefundBudget returns amount minus the sum of non-failed refunds.
func (s *Store) RemainingRefundBudget(tx *gorm.DB, payment *models.Payment) (int64, error) {
	var sum int64
	err := tx.Model(&models.Refund{}).
		Where("payment_id = ? AND status <> ?", payment.ID, models.RefundFailed).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, apierror.Fatal("sum refunds failed", fmt.Errorf("%w", err))
	}
	return payment.Amount - sum, nil
}

// RemainingRefundBudgetFor is RemainingRefundBudget outside of an existing
// transaction, for intake's default-amount computation in the refund flow.
func (s *Store) RemainingRefundBudgetFor(ctx context.Context, payment *models.Payment) (int64, error) {
	return s.RemainingRefundBudget(s.db.WithContext(ctx), payment)
}
