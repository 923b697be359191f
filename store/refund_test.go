package store_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/novapay/gateway/apierror"
	"github.com/novapay/gateway/models"
	"github.com/novapay/gateway/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRefund_OverRefundRejected(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	s := store.New(gormDB, 5)

	paymentID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payments"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount", "status", "created_at", "updated_at"}).
			AddRow(paymentID, int64(10000), models.PaymentCompleted, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(amount), 0)`)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(6000)))
	mock.ExpectRollback()

	_, err := s.CreateRefund(context.Background(), paymentID, 5000, nil)
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, "invalid_state"))
}

func TestCreateRefund_PaymentNotEligible(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	s := store.New(gormDB, 5)

	paymentID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payments"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount", "status", "created_at", "updated_at"}).
			AddRow(paymentID, int64(10000), models.PaymentPending, now, now))
	mock.ExpectRollback()

	_, err := s.CreateRefund(context.Background(), paymentID, 1000, nil)
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, "invalid_state"))
}
