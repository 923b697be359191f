package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/novapay/gateway/apierror"
	"github.com/novapay/gateway/models"
	"gorm.io/gorm"
)

// LookupIdempotent returns the recorded response for key, or nil if absent
// or expired. Expired records are treated as absent per spec.md §3 rather
// than deleted eagerly — CleanupExpiredIdempotencyKeys reaps them lazily.
func (s *Store) LookupIdempotent(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	var record models.IdempotencyRecord
	err := s.db.WithContext(ctx).First(&record, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apierror.Fatal("lookup idempotency record failed", err)
	}
	if time.Now().UTC().After(record.ExpiresAt) {
		return nil, nil
	}
	return &record, nil
}

// RecordIdempotentResponse persists a response for a key outside of
// CreatePayment's transaction. Used by the refund flow, which per spec.md
// §4.D handles idempotency at the same granularity as payments but isn't
// itself a row-creating operation on a table with a key column, so it
// records the replay response as a separate step after CreateRefund commits.
func (s *Store) RecordIdempotentResponse(ctx context.Context, key string, paymentID *uuid.UUID, response models.JSONMap, ttl time.Duration) error {
	now := time.Now().UTC()
	record := &models.IdempotencyRecord{
		Key:       key,
		PaymentID: paymentID,
		Response:  response,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return apierror.Fatal("record idempotent response failed", err)
	}
	return nil
}

// CleanupExpiredIdempotencyKeys deletes idempotency records past their TTL,
// the only non-cascade deletion spec.md's lifecycle section allows.
func (s *Store) CleanupExpiredIdempotencyKeys(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now().UTC()).
		Delete(&models.IdempotencyRecord{})
	if res.Error != nil {
		return 0, apierror.Fatal("cleanup expired idempotency keys failed", res.Error)
	}
	return res.RowsAffected, nil
}
