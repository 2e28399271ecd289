// -----------------------------------------------------------------------
// Bounded worker pool - one-shot fan-out for independent batch jobs
// -----------------------------------------------------------------------

package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
)

// Job is one unit of batch work. Its context descends from the pool's
// parent context and is cancelled on Shutdown.
type Job func(ctx context.Context) error

// Pool fans a batch of independent jobs out over a fixed number of
// workers. It is one-shot: Start, Submit the batch, Wait, read Errors.
type Pool struct {
	jobs    chan Job
	workers int
	logger  arbor.ILogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// closeOnce lets Shutdown follow Wait without a double close
	closeOnce sync.Once

	mu     sync.Mutex
	errors []error
}

// NewPool creates a pool whose job contexts inherit from parent.
// Non-positive worker counts fall back to a small default.
func NewPool(parent context.Context, workers int, logger arbor.ILogger) *Pool {
	if workers <= 0 {
		workers = 4
	}

	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		jobs:    make(chan Job, workers*2),
		workers: workers,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.logger.Debug().
		Int("workers", p.workers).
		Msg("Worker pool started")
}

// Submit queues a job, blocking while the queue is full. It fails once
// the pool or its parent context is cancelled.
func (p *Pool) Submit(job Job) error {
	select {
	case p.jobs <- job:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Wait closes the queue and blocks until every submitted job has
// finished. No Submit may follow.
func (p *Pool) Wait() {
	p.closeOnce.Do(func() { close(p.jobs) })
	p.wg.Wait()
}

// Shutdown cancels in-flight jobs and waits for the workers to exit.
func (p *Pool) Shutdown() {
	p.cancel()
	p.Wait()
}

// Errors returns a copy of the errors collected from failed jobs.
func (p *Pool) Errors() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]error(nil), p.errors...)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}

			if err := job(p.ctx); err != nil {
				p.mu.Lock()
				p.errors = append(p.errors, err)
				p.mu.Unlock()

				p.logger.Warn().
					Err(err).
					Int("worker_id", id).
					Msg("Pool job failed")
			}

		case <-p.ctx.Done():
			return
		}
	}
}
