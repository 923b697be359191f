package delivery

import (
	"context"
	"time"

	"github.com/novapay/gateway/config"
	"github.com/novapay/gateway/logger"
	"github.com/novapay/gateway/queue"
	"github.com/novapay/gateway/store"
	"go.uber.org/zap"
)

// Poller bridges the outbox to the dispatcher's queue: the outbox's
// next_retry column is the authoritative schedule; the queue is only a
// wake-up cue, per spec.md's design notes.
type Poller struct {
	Store *store.Store
	Cfg   *config.Config
}

// NewPoller constructs a Poller.
func NewPoller(st *store.Store, cfg *config.Config) *Poller {
	return &Poller{Store: st, Cfg: cfg}
}

// Run claims due outbox events and enqueues one DeliverWebhook job per row
// on a fixed interval, until ctx is cancelled.
func (p *Poller) Run(ctx context.Context, q *queue.Queue) {
	ticker := time.NewTicker(p.Cfg.PollInterval)
	defer ticker.Stop()

	p.tick(ctx, q)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, q)
		}
	}
}

func (p *Poller) tick(ctx context.Context, q *queue.Queue) {
	events, err := p.Store.ClaimDueEvents(ctx, time.Now().UTC(), p.Cfg.PollBatch)
	if err != nil {
		logger.Error(ctx, "poller: claim due events failed", err)
		return
	}
	for _, event := range events {
		err := q.Enqueue(ctx, queue.Webhooks, event.ID.String(), map[string]any{
			"event_id": event.ID.String(),
		})
		if err != nil {
			logger.Error(ctx, "poller: enqueue DeliverWebhook failed", err, zap.String("event_id", event.ID.String()))
		}
	}
}
