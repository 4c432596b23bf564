package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/Priya8975/webhook-relay/internal/queue"
)

// Dispatcher continuously polls the Redis delivery queue and hands
// ready jobs to the worker pool.
type Dispatcher struct {
	queue        *queue.Queue
	pool         *Pool
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int64
}

func NewDispatcher(q *queue.Queue, pool *Pool, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		queue:        q,
		pool:         pool,
		logger:       logger,
		pollInterval: 100 * time.Millisecond,
		batchSize:    10,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("dispatcher started")

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping")
			return
		case <-ticker.C:
			d.poll(ctx)
		}
	}
}

func (d *Dispatcher) poll(ctx context.Context) {
	jobs, err := d.queue.Poll(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("failed to poll delivery queue", "error", err)
		return
	}

	for _, job := range jobs {
		d.pool.Submit(job)
	}
}
