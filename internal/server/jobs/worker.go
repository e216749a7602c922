package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/soundfilter/internal/logging"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxAttempts bounds redelivery of a failing job.
	DefaultMaxAttempts = 8
	// DefaultRetryDelay is the wait before the first redelivery; it doubles
	// with every attempt up to DefaultMaxRetryDelay.
	DefaultRetryDelay    = 2 * time.Second
	DefaultMaxRetryDelay = 5 * time.Minute
)

// Pool runs a fixed number of workers that pull from a Queue and dispatch to
// the handler registered for each job type.
type Pool struct {
	queue       Queue
	handlers    map[string]Handler
	workers     int
	maxAttempts int
	retryDelay  time.Duration
	maxDelay    time.Duration
	logger      logging.Logger
}

func NewPool(queue Queue, workers int, logger logging.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		queue:       queue,
		handlers:    make(map[string]Handler),
		workers:     workers,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxRetryDelay,
		logger:      logger.With("module", "jobs"),
	}
}

// Handle registers h for jobs of type typ. It must be called before Run.
func (p *Pool) Handle(typ string, h Handler) {
	p.handlers[typ] = h
}

// Run blocks until ctx is canceled or the queue is closed.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		worker := i
		g.Go(func() error {
			return p.loop(ctx, worker)
		})
	}
	return g.Wait()
}

func (p *Pool) loop(ctx context.Context, worker int) error {
	for {
		d, err := p.queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrQueueClosed) {
				return nil
			}
			p.logger.Error(ctx, "receive failed", "worker", worker, "error", err)
			if !sleepCtx(ctx, p.retryDelay) {
				return nil
			}
			continue
		}
		p.process(ctx, d)
	}
}

func (p *Pool) process(ctx context.Context, d Delivery) {
	job := d.Job()
	log := p.logger.With("job_id", job.ID, "job_type", job.Type, "attempt", job.Attempt)

	h, ok := p.handlers[job.Type]
	if !ok {
		log.Warn(ctx, "no handler for job type, dropping")
		p.ack(ctx, d, log)
		return
	}

	if err := h(ctx, job); err != nil {
		if job.Attempt+1 >= p.maxAttempts {
			log.Error(ctx, "job failed, giving up", "error", err)
			p.ack(ctx, d, log)
			return
		}
		delay := p.backoff(job.Attempt)
		log.Warn(ctx, "job failed, releasing for retry", "error", err, "retry_in", delay)
		if err := d.Nack(ctx, delay); err != nil {
			log.Error(ctx, "nack failed", "error", err)
		}
		return
	}

	log.Info(ctx, "job done")
	p.ack(ctx, d, log)
}

func (p *Pool) ack(ctx context.Context, d Delivery, log logging.Logger) {
	if err := d.Ack(ctx); err != nil {
		log.Error(ctx, "ack failed", "error", err)
	}
}

// backoff is the wait before redelivering a job that failed on the given
// attempt: retryDelay doubled per attempt, capped at maxDelay.
func (p *Pool) backoff(attempt int) time.Duration {
	d := p.retryDelay
	for i := 0; i < attempt && d < p.maxDelay; i++ {
		d *= 2
	}
	return min(d, p.maxDelay)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
