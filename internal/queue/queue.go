// Package queue implements the best-effort delivery job queue: a Redis
// sorted set keyed by ready-time, polled by the dispatcher and handed
// off to the worker pool.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const DeliveryQueueKey = "webhook_relay:delivery_queue"

// Job is a single delivery task: which event to claim and deliver, and
// the request ID to thread through delivery logs for traceability.
type Job struct {
	EventID   string `json:"event_id"`
	RequestID string `json:"request_id"`
}

// Queue wraps a Redis client for the delivery job sorted set.
type Queue struct {
	client *redis.Client
}

func New(client *redis.Client) *Queue {
	return &Queue{client: client}
}

func NewClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (q *Queue) Client() *redis.Client {
	return q.client
}

// Enqueue schedules a job for immediate delivery, scored by enqueue time
// so ZRangeByScore returns jobs in roughly FIFO order.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job: %w", err)
	}

	err = q.client.ZAdd(ctx, DeliveryQueueKey, redis.Z{
		Score:  float64(time.Now().UnixMicro()),
		Member: string(body),
	}).Err()
	if err != nil {
		return fmt.Errorf("enqueuing job: %w", err)
	}
	return nil
}

// Poll pulls up to count ready jobs from the queue and removes them
// atomically, so a job claimed by one dispatcher is never handed to
// another.
func (q *Queue) Poll(ctx context.Context, count int64) ([]Job, error) {
	now := strconv.FormatFloat(float64(time.Now().UnixMicro()), 'f', -1, 64)

	results, err := q.client.ZRangeByScoreWithScores(ctx, DeliveryQueueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   now,
		Count: count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("polling delivery queue: %w", err)
	}

	var jobs []Job
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}

		removed, err := q.client.ZRem(ctx, DeliveryQueueKey, member).Result()
		if err != nil {
			return nil, fmt.Errorf("removing claimed job: %w", err)
		}
		if removed == 0 {
			// another dispatcher instance already claimed it
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(member), &job); err != nil {
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// Depth returns the number of jobs currently waiting in the queue.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, DeliveryQueueKey).Result()
}
