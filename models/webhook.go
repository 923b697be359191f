package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookSubscription is a merchant-configured delivery target for events.
type WebhookSubscription struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	URL       string    `gorm:"type:varchar(2048);not null"`
	Events    StringSet `gorm:"type:jsonb;not null"`
	Active    bool      `gorm:"not null;default:true"`
	Secret    string    `gorm:"type:varchar(128);not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (WebhookSubscription) TableName() string { return "webhook_subscriptions" }

const (
	WebhookEventPending   = "pending"
	WebhookEventCompleted = "completed"
	WebhookEventFailed    = "failed"

	DefaultMaxRetries = 5
)

// WebhookEvent is a single outbox row: one event, bound to one subscription,
// awaiting (or having completed) HTTP delivery.
type WebhookEvent struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	WebhookID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	EventType  string     `gorm:"type:varchar(64);not null"`
	Payload    JSONMap    `gorm:"type:jsonb;not null"`
	Status     string     `gorm:"type:varchar(20);not null;index:idx_events_status_next_retry"`
	RetryCount int        `gorm:"not null;default:0"`
	MaxRetries int        `gorm:"not null;default:5"`
	NextRetry  *time.Time `gorm:"index:idx_events_status_next_retry"`
	LastError  *string    `gorm:"type:varchar(1000)"`
	ClaimedBy  *string    `gorm:"type:varchar(64)"`
	ClaimedAt  *time.Time
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }

// Event type names emitted by the delivery engine.
const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventRefundCreated    = "refund.created"
	EventRefundProcessed  = "refund.processed"
)
