// Package worker drains fetched pages from the queue into the ingestion
// pipeline.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/scholarsync/internal/domain/ingest"
	"github.com/okian/scholarsync/internal/domain/model"
	"github.com/okian/scholarsync/pkg/logger"
	"github.com/okian/scholarsync/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	metricsUpdateInterval   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Processor handles one fetched page. The ingestion pipeline satisfies it.
type Processor interface {
	Process(ctx context.Context, page model.Page) ingest.Result
}

// Queue defines how workers receive pages.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Page
}

// Worker processes pages until the queue is drained or it is told to stop.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker without waiting for the queue to drain.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker on top of an in-process queue.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	name      string
	observe   func(ingest.Result)

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, processor Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		processor: processor,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	pages := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case page, ok := <-pages:
			if !ok {
				return
			}
			w.handle(ctx, page)
		}
	}
}

// Shutdown stops the worker loop after the page in hand.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
}

func (w *InMemoryWorker) handle(ctx context.Context, page model.Page) { //nolint:gocritic // hugeParam: Page must be passed by value for channel semantics
	start := time.Now()
	res := w.processor.Process(ctx, page)
	metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))

	if res.Outcome == ingest.OutcomeFailed {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "ingest_failed")
		w.logger.Error(ctx, "page failed",
			logger.String("url", res.URL),
			logger.Error(res.Err),
		)
	}

	if w.observe != nil {
		w.observe(res)
	}
}

// Pool manages multiple workers and tallies their outcomes.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processor Processor

	mu       sync.Mutex
	outcomes ingest.Summary

	shutdown     chan struct{}
	shutdownOnce sync.Once

	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive count picks a default
// based on the CPU count.
func NewPool(workerCount int, queue Queue, processor Processor) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:   make([]*InMemoryWorker, workerCount),
		queue:     queue,
		processor: processor,
		outcomes:  ingest.Summary{},
		shutdown:  make(chan struct{}),
		logger:    logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			processor,
			WithName("worker-"+strconv.Itoa(i)),
			withObserver(pool.record),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}

	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			metrics.UpdateWorkerCount(p.running())
		}
	}
}

func (p *Pool) running() int {
	n := 0
	for _, w := range p.workers {
		select {
		case <-w.done:
		default:
			n++
		}
	}
	return n
}

func (p *Pool) record(res ingest.Result) {
	p.mu.Lock()
	p.outcomes[res.Outcome]++
	p.mu.Unlock()
}

// Outcomes returns a copy of the per-outcome tally since the pool started.
func (p *Pool) Outcomes() ingest.Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(ingest.Summary, len(p.outcomes))
	for k, v := range p.outcomes {
		out[k] = v
	}
	return out
}

// Shutdown closes the queue and waits for the workers to drain it. When ctx
// (or the pool's own timeout) expires first, workers are stopped with the
// remaining pages left unprocessed.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			if !timedOut {
				p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			}
			timedOut = true
			w.stop()
		}
	}

	p.shutdownOnce.Do(func() { close(p.shutdown) })
	metrics.UpdateWorkerCount(0)

	if timedOut {
		return fmt.Errorf("worker pool drain: %w", shutdownCtx.Err())
	}
	return nil
}
