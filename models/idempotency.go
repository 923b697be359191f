package models

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyRecord maps a client-supplied key to the exact response body
// previously returned for it, so replays are exactly-once from the caller's
// point of view.
type IdempotencyRecord struct {
	Key       string     `gorm:"type:varchar(128);primaryKey"`
	PaymentID *uuid.UUID `gorm:"type:uuid"`
	Response  JSONMap    `gorm:"type:jsonb;not null"`
	CreatedAt time.Time  `gorm:"not null"`
	ExpiresAt time.Time  `gorm:"not null;index"`
}

func (IdempotencyRecord) TableName() string { return "idempotency_keys" }
