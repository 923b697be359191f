package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RefundPending   = "pending"
	RefundProcessed = "processed"
	RefundFailed    = "failed"
)

// Refund is a partial or full reimbursement against a completed Payment.
type Refund struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	PaymentID uuid.UUID `gorm:"type:uuid;not null;index:idx_refunds_payment_status"`
	Amount    int64     `gorm:"not null"`
	Reason    *string   `gorm:"type:varchar(500)"`
	Status    string    `gorm:"type:varchar(20);not null;index:idx_refunds_payment_status"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Refund) TableName() string { return "refunds" }
