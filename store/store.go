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

// Store is the durable-state boundary every other component depends on.
// Every multi-row mutation below is atomic: it either fully commits or
// leaves no trace, per the outbox and CAS guarantees the gateway relies on.
type Store struct {
	db                *gorm.DB
	webhookMaxRetries int
}

// New wraps an open *gorm.DB connection. webhookMaxRetries sets the retry
// budget (config.Config.WebhookMaxRetries) new outbox rows are created with.
func New(db *gorm.DB, webhookMaxRetries int) *Store {
	return &Store{db: db, webhookMaxRetries: webhookMaxRetries}
}

// Ping verifies the underlying connection pool is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CreatePaymentInput is the validated shape intake hands to CreatePayment.
type CreatePaymentInput struct {
	IdempotencyKey *string
	Amount         int64
	Currency       string
	CustomerEmail  string
	CustomerName   *string
	Description    *string
	PaymentMethod  *string
	Metadata       models.JSONMap
}

// CreatePayment inserts a new pending payment and, if a client supplied an
// idempotency key, an idempotency record bound to it — all in one
// transaction. buildResponse runs after the payment row exists (so it can
// embed the generated id) but before commit, so the recorded response and
// the committed state can never drift apart. A pre-existing key surfaces as
// apierror DuplicateKey so the intake layer can recover by replaying the
// stored response.
func (s *Store) CreatePayment(ctx context.Context, in CreatePaymentInput, ttl time.Duration, buildResponse func(*models.Payment) models.JSONMap) (*models.Payment, error) {
	payment := &models.Payment{
		ID:             uuid.New(),
		IdempotencyKey: in.IdempotencyKey,
		Amount:         in.Amount,
		Currency:       in.Currency,
		Status:         models.PaymentPending,
		CustomerEmail:  in.CustomerEmail,
		CustomerName:   in.CustomerName,
		Description:    in.Description,
		PaymentMethod:  in.PaymentMethod,
		Metadata:       in.Metadata,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payment).Error; err != nil {
			if isUniqueViolation(err) {
				return apierror.DuplicateKey("idempotency key already in use")
			}
			return apierror.Fatal("create payment failed", err)
		}

		if in.IdempotencyKey == nil || buildResponse == nil {
			return nil
		}
		now := time.Now().UTC()
		record := &models.IdempotencyRecord{
			Key:       *in.IdempotencyKey,
			PaymentID: &payment.ID,
			Response:  buildResponse(payment),
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
		}
		if err := tx.Create(record).Error; err != nil {
			return apierror.Fatal("record idempotency response failed", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// GetPayment loads a payment with its refunds preloaded, newest first.
func (s *Store) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).
		Preload("Refunds", func(db *gorm.DB) *gorm.DB {
			return db.Order("refunds.created_at DESC")
		}).
		First(&payment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("payment not found")
	}
	if err != nil {
		return nil, apierror.Fatal("get payment failed", err)
	}
	return &payment, nil
}

// FindPaymentByIdempotencyKey re-reads the payment behind a key after a
// DuplicateKey collision, for intake's "Payment already exists" reply.
func (s *Store) FindPaymentByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).First(&payment, "idempotency_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.NotFound("payment not found")
	}
	if err != nil {
		return nil, apierror.Fatal("lookup payment by idempotency key failed", err)
	}
	return &payment, nil
}

func isUniqueViolation(err error) bool {
	// Postgres unique_violation is SQLSTATE 23505; pgx/lib/pq both surface it
	// in the error string, which is all GORM's generic interface exposes
	// without importing the driver-specific error types.
	return err != nil && (contains(err.Error(), "23505") || contains(err.Error(), "duplicate key"))
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && indexOf(s, substr) >= 0
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
