package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/novapay/gateway/apierror"
	"github.com/novapay/gateway/models"
	"gorm.io/gorm"
)

// insertOutboxEvents fans a single domain event out to one pending
// webhook_events row per active subscription whose Events set contains
// eventType. It MUST run inside the same transaction as the state change
// that produced the event — that transactional coupling is the outbox
// guarantee spec.md's design notes call out. maxRetries sets the retry
// budget each new row is created with, per the operator-configured
// WEBHOOK_MAX_RETRIES (config.Config.WebhookMaxRetries).
func insertOutboxEvents(tx *gorm.DB, eventType string, payload models.JSONMap, maxRetries int) ([]uuid.UUID, error) {
	var subs []models.WebhookSubscription
	if err := tx.Where("active = ?", true).Find(&subs).Error; err != nil {
		return nil, apierror.Fatal("list webhook subscriptions failed", err)
	}

	now := time.Now().UTC()
	var ids []uuid.UUID
	for _, sub := range subs {
		if !sub.Events.Contains(eventType) {
			continue
		}
		event := &models.WebhookEvent{
			ID:         uuid.New(),
			WebhookID:  sub.ID,
			EventType:  eventType,
			Payload:    payload,
			Status:     models.WebhookEventPending,
			RetryCount: 0,
			MaxRetries: maxRetries,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Create(event).Error; err != nil {
			return nil, apierror.Fatal("insert outbox event failed", err)
		}
		ids = append(ids, event.ID)
	}
	return ids, nil
}
