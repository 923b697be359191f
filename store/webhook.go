package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/novapay/gateway/apierror"
	"github.com/novapay/gateway/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateWebhookSubscriptionInput is the validated shape for POST /webhooks.
type CreateWebhookSubscriptionInput struct {
	URL    string
	Events []string
}

// CreateWebhookSubscription generates a high-entropy secret server-side.
// The caller is responsible for returning it exactly once, in the creation
// response — GetWebhookSubscription never surfaces it again.
func (s *Store) CreateWebhookSubscription(ctx context.Context, in CreateWebhookSubscriptionInput) (*models.WebhookSubscription, error) {
	secret, err := generateSecret()
	if err != nil {
		return nil, apierror.Fatal("generate webhook secret failed", err)
	}

	now := time.Now().UTC()
	sub := &models.WebhookSubscription{
		ID:        uuid.New(),
		URL:       in.URL,
		Events:    models.StringSet(in.Events),
		Active:    true,
		Secret:    secret,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return nil, apierror.Fatal("create webhook subscription failed", err)
	}
	return sub, nil
}

func generateSecret() (string, error) {
	buf := make([]byte, 32) // 256 bits
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// GetWebhookSubscription loads one subscription by id.
func (s *Store) GetWebhookSubscription(ctx context.Context, id uuid.UUID) (*models.WebhookSubscription, error) {
	var sub models.WebhookSubscription
	err := s.db.WithContext(ctx).First(&sub, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("webhook subscription not found")
	}
	if err != nil {
		return nil, apierror.Fatal("get webhook subscription failed", err)
	}
	return &sub, nil
}

// ListWebhookSubscriptions returns every subscription, newest first.
func (s *Store) ListWebhookSubscriptions(ctx context.Context) ([]models.WebhookSubscription, error) {
	var subs []models.WebhookSubscription
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&subs).Error
	if err != nil {
		return nil, apierror.Fatal("list webhook subscriptions failed", err)
	}
	return subs, nil
}

// UpdateWebhookSubscriptionInput carries the PATCH-able fields; nil means
// "leave unchanged".
type UpdateWebhookSubscriptionInput struct {
	URL    *string
	Events []string
	Active *bool
}

func (s *Store) UpdateWebhookSubscription(ctx context.Context, id uuid.UUID, in UpdateWebhookSubscriptionInput) (*models.WebhookSubscription, error) {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if in.URL != nil {
		updates["url"] = *in.URL
	}
	if in.Events != nil {
		updates["events"] = models.StringSet(in.Events)
	}
	if in.Active != nil {
		updates["active"] = *in.Active
	}

	res := s.db.WithContext(ctx).Model(&models.WebhookSubscription{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, apierror.Fatal("update webhook subscription failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apierror.NotFound("webhook subscription not found")
	}
	return s.GetWebhookSubscription(ctx, id)
}

func (s *Store) DeleteWebhookSubscription(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.WebhookSubscription{}, "id = ?", id)
	if res.Error != nil {
		return apierror.Fatal("delete webhook subscription failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return apierror.NotFound("webhook subscription not found")
	}
	return nil
}

// ListWebhookEventsInput filters GET /webhooks/{id}/events.
type ListWebhookEventsInput struct {
	WebhookID uuid.UUID
	Status    string
	Limit     int
	Offset    int
}

func (s *Store) ListWebhookEvents(ctx context.Context, in ListWebhookEventsInput) ([]models.WebhookEvent, error) {
	q := s.db.WithContext(ctx).Where("webhook_id = ?", in.WebhookID)
	if in.Status != "" {
		q = q.Where("status = ?", in.Status)
	}
	limit := in.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var events []models.WebhookEvent
	err := q.Order("created_at DESC").Limit(limit).Offset(in.Offset).Find(&events).Error
	if err != nil {
		return nil, apierror.Fatal("list webhook events failed", err)
	}
	return events, nil
}

// ClaimDueEvents selects up to limit pending rows whose next_retry has
// elapsed (or was never set), locking them FOR UPDATE SKIP LOCKED so
// concurrent poller/dispatcher instances never double-claim a row — the
// row-level lock itself is what prevents double-claims, not claimed_at,
// which this only stamps for operator visibility into in-flight rows.
func (s *Store) ClaimDueEvents(ctx context.Context, now time.Time, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND (next_retry IS NULL OR next_retry <= ?)", models.WebhookEventPending, now).
			Order("next_retry ASC NULLS FIRST, created_at ASC").
			Limit(limit).
			Find(&events).Error
		if err != nil {
			return apierror.Fatal("claim due events query failed", err)
		}
		if len(events) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, len(events))
		for i, e := range events {
			ids[i] = e.ID
		}
		claimedAt := now
		if err := tx.Model(&models.WebhookEvent{}).
			Where("id IN ?", ids).
			Update("claimed_at", claimedAt).Error; err != nil {
			return apierror.Fatal("mark claimed events failed", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// GetWebhookEvent loads one outbox row by id.
func (s *Store) GetWebhookEvent(ctx context.Context, id uuid.UUID) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := s.db.WithContext(ctx).First(&event, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("webhook event not found")
	}
	if err != nil {
		return nil, apierror.Fatal("get webhook event failed", err)
	}
	return &event, nil
}

// MarkEventFailed terminates an event row without an attempt — used when its
// subscription has been deleted or deactivated since the event was queued.
func (s *Store) MarkEventFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return s.db.WithContext(ctx).Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     models.WebhookEventFailed,
			"last_error": reason,
			"updated_at": time.Now().UTC(),
		}).Error
}

// RecordEventAttempt applies the outcome of one delivery attempt per
// spec.md §4.A: success terminates the row as completed; failure either
// reschedules next_retry via backoff or terminates as failed once
// retry_count reaches max_retries.
func (s *Store) RecordEventAttempt(ctx context.Context, id uuid.UUID, success bool, attemptErr string, backoff func(attempt int) time.Duration) (*models.WebhookEvent, error) {
	var event models.WebhookEvent

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&event, "id = ?", id).Error; err != nil {
			return apierror.NotFound("webhook event not found")
		}

		now := time.Now().UTC()
		if success {
			return tx.Model(&event).Updates(map[string]any{
				"status":     models.WebhookEventCompleted,
				"updated_at": now,
			}).Error
		}

		attempt := event.RetryCount + 1
		if attempt >= event.MaxRetries {
			return tx.Model(&event).Updates(map[string]any{
				"status":      models.WebhookEventFailed,
				"retry_count": attempt,
				"last_error":  attemptErr,
				"updated_at":  now,
			}).Error
		}

		next := now.Add(backoff(attempt))
		return tx.Model(&event).Updates(map[string]any{
			"retry_count": attempt,
			"next_retry":  next,
			"claimed_at":  nil,
			"last_error":  attemptErr,
			"updated_at":  now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}
