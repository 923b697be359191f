package store_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/novapay/gateway/apierror"
	"github.com/novapay/gateway/models"
	"github.com/novapay/gateway/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestCreatePayment_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	s := store.New(gormDB, 5)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "payments"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	payment, err := s.CreatePayment(context.Background(), store.CreatePaymentInput{
		Amount:        9999,
		Currency:      "USD",
		CustomerEmail: "a@b.c",
	}, 0, nil)

	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePayment_DuplicateKeyIsRecoverable(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	s := store.New(gormDB, 5)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "payments"`)).
		WillReturnError(&pqUniqueViolation{})
	mock.ExpectRollback()

	key := "K1"
	_, err := s.CreatePayment(context.Background(), store.CreatePaymentInput{
		IdempotencyKey: &key,
		Amount:         9999,
		Currency:       "USD",
		CustomerEmail:  "a@b.c",
	}, 0, nil)

	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, "duplicate_key"))
}

func TestGetPayment_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	s := store.New(gormDB, 5)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payments"`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	_, err := s.GetPayment(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, "not_found"))
}

// pqUniqueViolation mimics the error string shape Postgres drivers surface
// for a unique_violation, which isUniqueViolation pattern-matches on since
// GORM's generic interface doesn't expose driver-specific error types.
type pqUniqueViolation struct{}

func (e *pqUniqueViolation) Error() string {
	return `ERROR: duplicate key value violates unique constraint "payments_idempotency_key_key" (SQLSTATE 23505)`
}
