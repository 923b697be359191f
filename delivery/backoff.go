package delivery

import (
	"math/rand"
	"time"

	"github.com/novapay/gateway/config"
)

// backoffSchedule returns a backoff(attempt) closure per spec.md §4.E.2:
// 2^n * base, base = 60s normally or 1s under the short test schedule, with
// up to ±10% jitter so synchronized retries don't all land on the same tick.
func backoffSchedule(cfg *config.Config) func(attempt int) time.Duration {
	base := cfg.BackoffBase()
	return func(attempt int) time.Duration {
		d := base * time.Duration(uint64(1)<<uint(attempt))
		jitter := time.Duration(rand.Int63n(int64(d)/5)) - d/10 // +/-10%
		return d + jitter
	}
}
