package models_test

import (
	"testing"

	"github.com/novapay/gateway/models"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition_ValidPaths(t *testing.T) {
	assert.True(t, models.CanTransition(models.PaymentPending, models.PaymentCompleted))
	assert.True(t, models.CanTransition(models.PaymentPending, models.PaymentFailed))
	assert.True(t, models.CanTransition(models.PaymentCompleted, models.PaymentRefunded))
	assert.True(t, models.CanTransition(models.PaymentCompleted, models.PaymentPartialRefunded))
	assert.True(t, models.CanTransition(models.PaymentPartialRefunded, models.PaymentRefunded))
	assert.True(t, models.CanTransition(models.PaymentPartialRefunded, models.PaymentPartialRefunded))
}

func TestCanTransition_TerminalStatesReject(t *testing.T) {
	assert.False(t, models.CanTransition(models.PaymentFailed, models.PaymentCompleted))
	assert.False(t, models.CanTransition(models.PaymentRefunded, models.PaymentPartialRefunded))
}

func TestCanTransition_NoBackwardMoves(t *testing.T) {
	assert.False(t, models.CanTransition(models.PaymentCompleted, models.PaymentPending))
	assert.False(t, models.CanTransition(models.PaymentRefunded, models.PaymentCompleted))
}

func TestStringSet_Contains(t *testing.T) {
	set := models.StringSet{"payment.completed", "refund.created"}
	assert.True(t, set.Contains("payment.completed"))
	assert.False(t, set.Contains("payment.failed"))
}

func TestJSONMap_ValueAndScan_RoundTrip(t *testing.T) {
	m := models.JSONMap{"amount": float64(100), "currency": "USD"}
	v, err := m.Value()
	assert.NoError(t, err)

	var scanned models.JSONMap
	assert.NoError(t, scanned.Scan(v))
	assert.Equal(t, m["currency"], scanned["currency"])
}
