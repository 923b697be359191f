// Package intake implements the HTTP API surface: idempotency gating,
// request validation, transactional state creation, and job enqueue,
// adapted from the teacher's services/payment-service/controllers package.
package intake

import (
	"github.com/novapay/gateway/config"
	"github.com/novapay/gateway/queue"
	"github.com/novapay/gateway/store"
)

// Handlers bundles the dependencies every route needs.
type Handlers struct {
	Store *store.Store
	Queue *queue.Queue
	Cfg   *config.Config
}

// New constructs a Handlers bundle.
func New(st *store.Store, q *queue.Queue, cfg *config.Config) *Handlers {
	return &Handlers{Store: st, Queue: q, Cfg: cfg}
}
