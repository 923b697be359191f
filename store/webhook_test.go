package store_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/novapay/gateway/models"
	"github.com/novapay/gateway/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEventAttempt_ExhaustsAtMaxRetries(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	s := store.New(gormDB, 5)

	eventID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "webhook_events"`)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "webhook_id", "event_type", "payload", "status",
			"retry_count", "max_retries", "created_at", "updated_at",
		}).AddRow(eventID, uuid.New(), models.EventPaymentCompleted, []byte(`{}`),
			models.WebhookEventPending, 4, 5, now, now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "webhook_events"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	event, err := s.RecordEventAttempt(context.Background(), eventID, false, "receiver returned status 500", func(int) time.Duration {
		return time.Minute
	})
	require.NoError(t, err)
	assert.Equal(t, models.WebhookEventFailed, event.Status)
}

func TestRecordEventAttempt_SuccessCompletesEvent(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	s := store.New(gormDB, 5)

	eventID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "webhook_events"`)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "webhook_id", "event_type", "payload", "status",
			"retry_count", "max_retries", "created_at", "updated_at",
		}).AddRow(eventID, uuid.New(), models.EventPaymentCompleted, []byte(`{}`),
			models.WebhookEventPending, 0, 5, now, now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "webhook_events"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	event, err := s.RecordEventAttempt(context.Background(), eventID, true, "", nil)
	require.NoError(t, err)
	assert.Equal(t, models.WebhookEventCompleted, event.Status)
}
