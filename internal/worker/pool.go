// Package worker runs queued tasks on a pool of polling goroutines. Tasks
// are delivered at least once; a handler error marks the task failed and is
// not retried here.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/talktotext/talktotext/internal/logger"
	"github.com/talktotext/talktotext/internal/queue"
)

// Handler executes one claimed task.
type Handler func(ctx context.Context, t *queue.Task) error

// Pool polls the queue and dispatches tasks to registered handlers.
type Pool struct {
	queue        queue.Queue
	handlers     map[string]Handler
	concurrency  int
	pollInterval time.Duration
	limiter      *rate.Limiter
	logger       logger.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// Option configures a Pool.
type Option func(*Pool)

// WithConcurrency sets the number of polling goroutines.
func WithConcurrency(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithPollInterval sets the idle poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// WithRateLimit caps sustained task starts per second across the pool.
// Zero limit disables rate limiting.
func WithRateLimit(limit float64, burst int) Option {
	return func(p *Pool) {
		if limit > 0 {
			if burst <= 0 {
				burst = 1
			}
			p.limiter = rate.NewLimiter(rate.Limit(limit), burst)
		}
	}
}

// NewPool creates a worker pool on the given queue.
func NewPool(q queue.Queue, log logger.Logger, opts ...Option) *Pool {
	p := &Pool{
		queue:        q,
		handlers:     make(map[string]Handler),
		concurrency:  2,
		pollInterval: time.Second,
		logger:       log,
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register binds a handler to a task name. Must be called before Start.
func (p *Pool) Register(name string, h Handler) {
	p.handlers[name] = h
}

// Start launches the polling goroutines and returns immediately.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	p.running = true

	p.logger.Info(ctx, "Worker pool starting: %d workers, poll every %s", p.concurrency, p.pollInterval)

	for range p.concurrency {
		p.wg.Add(1)
		go p.pollLoop(ctx)
	}
	return nil
}

// Stop signals the workers and waits for in-flight tasks, bounded by ctx.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	close(p.stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}

func (p *Pool) pollLoop(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if p.limiter != nil && !p.limiter.Allow() {
			p.sleep(ctx)
			continue
		}

		tasks, err := p.queue.Dequeue(ctx, 1)
		if err != nil {
			p.logger.Error(ctx, "dequeue failed: %v", err)
			p.sleep(ctx)
			continue
		}
		if len(tasks) == 0 {
			p.sleep(ctx)
			continue
		}

		p.execute(ctx, tasks[0])
	}
}

func (p *Pool) execute(ctx context.Context, t *queue.Task) {
	handler, ok := p.handlers[t.Name]
	if !ok {
		p.logger.Error(ctx, "no handler registered for task %q", t.Name)
		if err := p.queue.Fail(ctx, t.ID, fmt.Sprintf("no handler for %q", t.Name)); err != nil {
			p.logger.Error(ctx, "failed to mark task %s: %v", t.ID, err)
		}
		return
	}

	if err := handler(ctx, t); err != nil {
		p.logger.Error(ctx, "task %s (%s) failed: %v", t.ID, t.Name, err)
		if failErr := p.queue.Fail(ctx, t.ID, logger.FormatError(err)); failErr != nil {
			p.logger.Error(ctx, "failed to mark task %s: %v", t.ID, failErr)
		}
		return
	}

	if err := p.queue.Complete(ctx, t.ID); err != nil {
		p.logger.Error(ctx, "failed to complete task %s: %v", t.ID, err)
	}
}

func (p *Pool) sleep(ctx context.Context) {
	timer := time.NewTimer(p.pollInterval)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-p.stopCh:
	case <-ctx.Done():
	}
}
