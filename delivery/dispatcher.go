package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/novapay/gateway/config"
	"github.com/novapay/gateway/logger"
	"github.com/novapay/gateway/metrics"
	"github.com/novapay/gateway/queue"
	"github.com/novapay/gateway/signer"
	"github.com/novapay/gateway/store"
	"go.uber.org/zap"
)

// WebhookDispatcher delivers claimed outbox rows over HTTP, signs them, and
// schedules retries on failure, per spec.md §4.E.2.
type WebhookDispatcher struct {
	Store   *store.Store
	Signer  *signer.Signer
	Metrics *metrics.Client
	Cfg     *config.Config
	client  *http.Client
	backoff func(attempt int) time.Duration
}

// NewWebhookDispatcher wires an HTTP client with the configured timeout.
func NewWebhookDispatcher(st *store.Store, sgn *signer.Signer, m *metrics.Client, cfg *config.Config) *WebhookDispatcher {
	return &WebhookDispatcher{
		Store:   st,
		Signer:  sgn,
		Metrics: m,
		Cfg:     cfg,
		client:  &http.Client{Timeout: cfg.WebhookTimeout},
		backoff: backoffSchedule(cfg),
	}
}

// Run starts the dispatcher's worker pool against the webhooks queue.
func (d *WebhookDispatcher) Run(ctx context.Context, q *queue.Queue, workers int) {
	q.Run(ctx, queue.Webhooks, workers, d.handle)
}

func (d *WebhookDispatcher) handle(job *queue.Job) error {
	ctx := context.Background()
	rawID, ok := job.Payload["event_id"]
	if !ok {
		return fmt.Errorf("delivery: webhook job %s missing event_id", job.ID)
	}
	id, err := uuid.Parse(rawID.(string))
	if err != nil {
		return fmt.Errorf("delivery: invalid event id %q: %w", rawID, err)
	}
	return d.deliver(ctx, id)
}

// deliver implements the consumer steps in spec.md §4.E.2: load, check
// subscription liveness, sign, POST, and record the outcome.
func (d *WebhookDispatcher) deliver(ctx context.Context, eventID uuid.UUID) error {
	event, err := d.Store.GetWebhookEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if event.Status != "pending" {
		return nil // already terminal — idempotent no-op under redelivery
	}

	sub, err := d.Store.GetWebhookSubscription(ctx, event.WebhookID)
	if err != nil || !sub.Active {
		reason := "subscription missing or inactive"
		return d.Store.MarkEventFailed(ctx, eventID, reason)
	}

	body, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("delivery: marshal payload: %w", err)
	}
	now := time.Now().UTC()
	signature := d.Signer.Sign(sub.Secret, body, now)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("delivery: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", event.EventType)
	req.Header.Set("X-Webhook-Signature", signature)
	req.Header.Set("X-Webhook-Timestamp", strconv.FormatInt(now.UnixMilli(), 10))

	if d.Metrics != nil {
		_ = d.Metrics.RecordCount(ctx, metrics.MetricWebhookAttempts, map[string]string{"event_type": event.EventType})
	}

	resp, err := d.client.Do(req)
	success := err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300
	var attemptErr string
	if err != nil {
		attemptErr = err.Error()
	} else {
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
		if !success {
			attemptErr = fmt.Sprintf("receiver returned status %d", resp.StatusCode)
		}
	}

	updated, recErr := d.Store.RecordEventAttempt(ctx, eventID, success, attemptErr, d.backoff)
	if recErr != nil {
		return recErr
	}

	if d.Metrics != nil {
		if success {
			_ = d.Metrics.RecordCount(ctx, metrics.MetricWebhookDelivered, nil)
		} else {
			_ = d.Metrics.RecordCount(ctx, metrics.MetricWebhookFailed, nil)
			if updated.Status == "failed" {
				_ = d.Metrics.RecordCount(ctx, metrics.MetricWebhookExhausted, nil)
			}
		}
	}
	logger.Info(ctx, "webhook delivery attempt",
		zap.String("event_id", eventID.String()),
		zap.Bool("success", success),
		zap.Int("retry_count", updated.RetryCount),
		zap.String("status", updated.Status),
	)
	return nil
}
