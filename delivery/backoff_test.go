package delivery

import (
	"testing"
	"time"

	"github.com/novapay/gateway/config"
	"github.com/stretchr/testify/assert"
)

func TestBackoffSchedule_DoublesPerAttempt(t *testing.T) {
	cfg := &config.Config{WebhookRetryIntervalsTest: true}
	backoff := backoffSchedule(cfg)

	for n := 1; n <= 5; n++ {
		d := backoff(n)
		base := time.Duration(1<<uint(n)) * time.Second
		lower := base - base/10
		upper := base + base/10
		assert.GreaterOrEqual(t, d, lower)
		assert.LessOrEqual(t, d, upper)
	}
}

func TestBackoffSchedule_ProductionUsesMinuteBase(t *testing.T) {
	cfg := &config.Config{WebhookRetryIntervalsTest: false}
	backoff := backoffSchedule(cfg)

	d := backoff(1)
	assert.InDelta(t, float64(2*time.Minute), float64(d), float64(2*time.Minute)/10+1)
}
