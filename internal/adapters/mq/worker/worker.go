// Package worker drains the submission queue into the store.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/placar/internal/domain/model"
	"github.com/okian/placar/pkg/logger"
	"github.com/okian/placar/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Submission is what workers read off the queue.
type Submission = model.Submission

// Writer persists submissions.
type Writer interface {
	SaveMatch(ctx context.Context, m model.MatchRecord) error
	// SaveEvent returns false when an event with the same id is already stored.
	SaveEvent(ctx context.Context, e model.GoalEvent) (bool, error)
}

// Queue defines how workers receive submissions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Submission
}

// Worker processes submissions until its queue closes or it is stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// Counters are shared by every worker of a pool. Processed includes
// duplicates; Failed does not overlap Processed.
type Counters struct {
	processed  atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
	inFlight   atomic.Int64
}

func (c *Counters) Processed() int64  { return c.processed.Load() }
func (c *Counters) Duplicates() int64 { return c.duplicates.Load() }
func (c *Counters) Failed() int64     { return c.failed.Load() }
func (c *Counters) InFlight() int64   { return c.inFlight.Load() }

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	writer    Writer
	name      string
	counters  *Counters
	onFailure func(ctx context.Context, s Submission, err error)

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, w Writer, opts ...Option) *InMemoryWorker {
	wk := &InMemoryWorker{
		queue:    q,
		writer:   w,
		name:     "worker",
		counters: &Counters{},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(wk)
	}
	if wk.name != "worker" {
		wk.logger = wk.logger.Named(wk.name)
	}
	return wk
}

// Name returns the worker name.
func (w *InMemoryWorker) Name() string { return w.name }

// Counters returns the worker's counters.
func (w *InMemoryWorker) Counters() *Counters { return w.counters }

// Run processes submissions until ctx is done, Shutdown is called, or the
// queue is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case s, ok := <-items:
			if !ok {
				return
			}
			if err := w.process(ctx, s); err != nil {
				w.logger.Error(ctx, "error processing submission", logger.String("submission_id", s.ID), logger.Error(err))
				if w.onFailure != nil {
					w.onFailure(ctx, s, err)
				}
			}
		}
	}
}

// Shutdown stops the worker without waiting for the queue to drain.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, s Submission) error { //nolint:gocritic // hugeParam: received by value from the channel
	w.counters.inFlight.Add(1)
	defer w.counters.inFlight.Add(-1)

	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	var err error
	switch {
	case s.Match != nil:
		err = w.writer.SaveMatch(ctx, *s.Match)
		if err == nil {
			metrics.RecordStoreWrite("match", "stored")
		}
	case s.Event != nil:
		var stored bool
		stored, err = w.writer.SaveEvent(ctx, *s.Event)
		if err == nil && !stored {
			w.counters.duplicates.Add(1)
			metrics.RecordStoreWrite("event", "duplicate")
			w.logger.Debug(ctx, "event already stored", logger.String("event_id", s.Event.ID))
		} else if err == nil {
			metrics.RecordStoreWrite("event", "stored")
		}
	default:
		err = ErrEmptySubmission
	}

	if err != nil {
		w.counters.failed.Add(1)
		metrics.RecordStoreWrite(s.Kind(), "failed")
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store_error")
		metrics.RecordErrorByType("store_error", "high")
		return fmt.Errorf("store %s %s: %w", s.Kind(), s.ID, err)
	}
	w.counters.processed.Add(1)
	return nil
}

// Pool manages multiple workers sharing one queue and one set of counters.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	counters  *Counters
	onFailure func(ctx context.Context, s Submission, err error)
	wg        sync.WaitGroup

	logger logger.Logger
}

// NewPool creates a new worker pool. workerCount < 1 selects runtime.NumCPU().
func NewPool(workerCount int, q Queue, w Writer, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		counters: &Counters{},
		logger:   logger.Get().Named("worker-pool"),
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := 0; i < workerCount; i++ {
		wk := NewInMemoryWorker(q, w,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(p.logger),
			WithFailureHandler(p.onFailure),
		)
		wk.counters = p.counters
		p.workers[i] = wk
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Counters returns the counters shared by the pool's workers.
func (p *Pool) Counters() *Counters { return p.counters }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, wk := range p.workers {
		p.wg.Add(1)
		go func(wk *InMemoryWorker) {
			defer p.wg.Done()
			wk.Run(ctx)
		}(wk)
	}
}

// Stop stops every worker without draining the queue.
func (p *Pool) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), poolShutdownTimeout)
	defer cancel()
	for _, wk := range p.workers {
		if err := wk.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker stop timed out", logger.String("worker", wk.Name()))
		}
	}
}

// Shutdown closes the queue, lets the workers drain what was already
// accepted and waits for them. Workers still busy when ctx ends are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		p.Stop()
		return fmt.Errorf("pool drain: %w", ctx.Err())
	}
}
