package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment statuses, forming the DAG:
//
//	pending -> {completed, failed}
//	completed -> {refunded, partial_refunded}
//	partial_refunded -> {refunded, partial_refunded}
const (
	PaymentPending         = "pending"
	PaymentCompleted       = "completed"
	PaymentFailed          = "failed"
	PaymentRefunded        = "refunded"
	PaymentPartialRefunded = "partial_refunded"
)

// paymentTransitions enumerates every status this status may legally move to.
// Terminal states (failed, refunded) map to an empty slice.
var paymentTransitions = map[string][]string{
	PaymentPending:         {PaymentCompleted, PaymentFailed},
	PaymentCompleted:       {PaymentRefunded, PaymentPartialRefunded},
	PaymentPartialRefunded: {PaymentRefunded, PaymentPartialRefunded},
	PaymentFailed:          {},
	PaymentRefunded:        {},
}

// CanTransition reports whether a payment may move from `from` to `to`.
func CanTransition(from, to string) bool {
	for _, allowed := range paymentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Payment is the durable record of a single payment attempt.
type Payment struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	IdempotencyKey    *string   `gorm:"uniqueIndex;type:varchar(128)"`
	Amount            int64     `gorm:"not null"` // fixed-point: smallest currency unit
	Currency          string    `gorm:"type:varchar(3);not null;default:USD"`
	Status            string    `gorm:"type:varchar(20);not null;index:idx_payments_status_created"`
	CustomerEmail     string    `gorm:"type:varchar(255);not null"`
	CustomerName      *string   `gorm:"type:varchar(255)"`
	Description       *string   `gorm:"type:varchar(500)"`
	PaymentMethod     *string   `gorm:"type:varchar(50)"`
	Metadata          JSONMap   `gorm:"type:jsonb"`
	CreatedAt         time.Time `gorm:"not null;index:idx_payments_status_created"`
	UpdatedAt         time.Time `gorm:"not null"`

	Refunds []Refund `gorm:"foreignKey:PaymentID;constraint:OnDelete:CASCADE"`
}

func (Payment) TableName() string { return "payments" }
