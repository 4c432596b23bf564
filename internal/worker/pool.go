package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Priya8975/webhook-relay/internal/queue"
)

// Pool manages a fixed number of worker goroutines that process
// delivery jobs.
type Pool struct {
	numWorkers int
	jobs       chan queue.Job
	deliverer  *Deliverer
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func NewPool(numWorkers int, deliverer *Deliverer, logger *slog.Logger) *Pool {
	return &Pool{
		numWorkers: numWorkers,
		jobs:       make(chan queue.Job, numWorkers*2),
		deliverer:  deliverer,
		logger:     logger,
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.logger.Info("worker pool started", "num_workers", p.numWorkers)
}

// Submit sends a job to the worker pool via the jobs channel. It
// blocks if the channel is full, providing natural backpressure on the
// dispatcher.
func (p *Pool) Submit(job queue.Job) {
	p.jobs <- job
}

func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		select {
		case <-ctx.Done():
			return
		default:
			p.deliverer.Deliver(ctx, job)
		}
	}
}
