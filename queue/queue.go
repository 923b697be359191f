package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// dedupTTL bounds how long a job_id is remembered for deduplication —
// generous enough to cover intake retries of the same request, narrow
// enough that a job_id can eventually be reused.
const dedupTTL = 24 * time.Hour

// Queue is a Redis-backed, at-least-once job queue with two named lanes
// and delayed-enqueue support, following the teacher pack's jobqueue.Queue
// shape (pending list, processing list, BRPopLPush handoff, stuck sweeper).
type Queue struct {
	client *redis.Client
	log    *zap.Logger
	wg     sync.WaitGroup
}

// New wraps an already-connected Redis client.
func New(client *redis.Client, log *zap.Logger) *Queue {
	return &Queue{client: client, log: log}
}

// Ping verifies the Redis connection is reachable.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Depth returns the number of jobs awaiting consumption on queue.
func (q *Queue) Depth(ctx context.Context, queue Name) (int64, error) {
	return q.client.LLen(ctx, pendingKey(queue)).Result()
}

func pendingKey(q Name) string    { return fmt.Sprintf("queue:%s:pending", q) }
func processingKey(q Name) string { return fmt.Sprintf("queue:%s:processing", q) }
func delayedKey(q Name) string    { return fmt.Sprintf("queue:%s:delayed", q) }
func jobKey(id string) string     { return "queue:job:" + id }
func dedupKey(q Name, id string) string { return fmt.Sprintf("queue:%s:dedup:%s", q, id) }

// Enqueue pushes a job onto queue q for immediate consumption. A job_id
// already seen within dedupTTL is a silent no-op.
func (q *Queue) Enqueue(ctx context.Context, queue Name, id string, payload map[string]any) error {
	return q.enqueue(ctx, queue, id, payload, 0)
}

// EnqueueDelayed schedules a job to become visible after delay elapses. The
// outbox's own next_retry column remains authoritative for webhook
// redelivery timing per spec.md's design notes; this is only the wake-up
// cue.
func (q *Queue) EnqueueDelayed(ctx context.Context, queue Name, id string, payload map[string]any, delay time.Duration) error {
	return q.enqueue(ctx, queue, id, payload, delay)
}

func (q *Queue) enqueue(ctx context.Context, queue Name, id string, payload map[string]any, delay time.Duration) error {
	set, err := q.client.SetNX(ctx, dedupKey(queue, id), 1, dedupTTL).Result()
	if err != nil {
		return fmt.Errorf("queue: dedup check failed: %w", err)
	}
	if !set {
		return nil // job_id already enqueued; no-op per spec.md §4.C
	}

	now := time.Now().UTC()
	job := &Job{
		ID:         id,
		Queue:      queue,
		Payload:    payload,
		CreatedAt:  now,
		UpdatedAt:  now,
		MaxRetries: 5,
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, jobKey(id), data, dedupTTL)
	if delay <= 0 {
		pipe.LPush(ctx, pendingKey(queue), id)
	} else {
		pipe.ZAdd(ctx, delayedKey(queue), redis.Z{Score: float64(now.Add(delay).Unix()), Member: id})
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Run starts workers consuming queue, a promoter moving due delayed jobs
// into the pending list, and a sweeper recovering jobs stuck in processing.
// It blocks until ctx is cancelled.
func (q *Queue) Run(ctx context.Context, queue Name, workers int, handler Handler) {
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, queue, i, handler)
	}
	q.wg.Add(1)
	go q.promoter(ctx, queue)
	q.wg.Add(1)
	go q.sweeper(ctx, queue)

	<-ctx.Done()
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context, queue Name, id int, handler Handler) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		jobID, err := q.client.BRPopLPush(ctx, pendingKey(queue), processingKey(queue), time.Second).Result()
		if err != nil {
			if err != redis.Nil && ctx.Err() == nil {
				q.log.Warn("queue: dequeue error", zap.String("queue", string(queue)), zap.Error(err))
			}
			continue
		}

		job, err := q.loadJob(ctx, jobID)
		if err != nil {
			q.log.Warn("queue: dropping unreadable job", zap.String("job_id", jobID), zap.Error(err))
			q.client.LRem(ctx, processingKey(queue), 1, jobID)
			continue
		}

		q.process(ctx, queue, job, handler)
	}
}

func (q *Queue) process(ctx context.Context, queue Name, job *Job, handler Handler) {
	err := handler(job)
	if err != nil {
		job.RetryCount++
		job.LastError = err.Error()
		job.UpdatedAt = time.Now().UTC()
		q.log.Warn("queue: job failed", zap.String("job_id", job.ID), zap.Int("retry_count", job.RetryCount), zap.Error(err))

		q.client.LRem(ctx, processingKey(queue), 1, job.ID)
		if job.RetryCount >= job.MaxRetries {
			q.log.Error("queue: job exhausted retries", zap.String("job_id", job.ID))
			q.saveJob(ctx, job)
			q.client.Del(ctx, dedupKey(queue, job.ID))
			return
		}
		q.saveJob(ctx, job)
		backoff := time.Duration(job.RetryCount) * time.Second
		q.client.ZAdd(ctx, delayedKey(queue), redis.Z{
			Score:  float64(time.Now().Add(backoff).Unix()),
			Member: job.ID,
		})
		return
	}

	q.client.LRem(ctx, processingKey(queue), 1, job.ID)
	q.client.Del(ctx, jobKey(job.ID))
	// Clear the dedup key once the job leaves this queue for good so a
	// caller (the webhook poller) can enqueue a fresh job under the same
	// id once the underlying record becomes due again. Only the terminal
	// branches (here and retry-exhaustion above) clear it; a job still
	// rescheduled in the delayed set keeps its dedup key so it can't also
	// be re-enqueued by its creator in the meantime.
	q.client.Del(ctx, dedupKey(queue, job.ID))
}

// promoter moves delayed jobs whose scheduled time has elapsed onto the
// pending list.
func (q *Queue) promoter(ctx context.Context, queue Name) {
	defer q.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := float64(time.Now().Unix())
			ids, err := q.client.ZRangeByScore(ctx, delayedKey(queue), &redis.ZRangeBy{
				Min: "-inf", Max: fmt.Sprintf("%f", now),
			}).Result()
			if err != nil || len(ids) == 0 {
				continue
			}
			for _, id := range ids {
				pipe := q.client.Pipeline()
				pipe.ZRem(ctx, delayedKey(queue), id)
				pipe.LPush(ctx, pendingKey(queue), id)
				if _, err := pipe.Exec(ctx); err != nil {
					q.log.Warn("queue: promote delayed job failed", zap.String("job_id", id), zap.Error(err))
				}
			}
		}
	}
}

// sweeper recovers jobs that have sat in the processing list longer than
// maxAge, presumed abandoned by a crashed worker, and requeues them — the
// redelivery guarantee spec.md's concurrency model relies on.
func (q *Queue) sweeper(ctx context.Context, queue Name) {
	defer q.wg.Done()
	const maxAge = 10 * time.Minute
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ids, err := q.client.LRange(ctx, processingKey(queue), 0, -1).Result()
			if err != nil {
				continue
			}
			now := time.Now()
			for _, id := range ids {
				job, err := q.loadJob(ctx, id)
				if err != nil {
					q.client.LRem(ctx, processingKey(queue), 1, id)
					continue
				}
				if now.Sub(job.UpdatedAt) > maxAge {
					q.log.Warn("queue: recovering stuck job", zap.String("job_id", id))
					q.client.LRem(ctx, processingKey(queue), 1, id)
					q.client.RPush(ctx, pendingKey(queue), id)
				}
			}
		}
	}
}

func (q *Queue) loadJob(ctx context.Context, id string) (*Job, error) {
	data, err := q.client.Get(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (q *Queue) saveJob(ctx context.Context, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		return
	}
	q.client.Set(ctx, jobKey(job.ID), data, dedupTTL)
}
