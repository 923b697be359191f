// Package queue implements the durable, at-least-once job queue spec.md's
// §4.C calls for: two named queues ("payments", "webhooks"), job-id
// deduplication, and delayed scheduling, grounded in the teacher pack's
// ManuelReschke-PixelFox internal/pkg/jobqueue package (BRPopLPush handoff,
// processing-list sweeper) built on go-redis/v9.
package queue

import "time"

// Name identifies one of the gateway's two durable queues.
type Name string

const (
	Payments Name = "payments"
	Webhooks Name = "webhooks"
)

// Job is a unit of work. ID doubles as the dedup key: enqueueing a job
// whose ID already exists is a no-op, per spec.md §4.C.
type Job struct {
	ID         string         `json:"id"`
	Queue      Name           `json:"queue"`
	Payload    map[string]any `json:"payload"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
	LastError  string         `json:"last_error,omitempty"`
}

// Handler processes one job. Returning an error causes the job to be
// retried (bounded by MaxRetries) via the queue's own redelivery, distinct
// from the outbox-level retry schedule that governs webhook delivery.
type Handler func(job *Job) error
