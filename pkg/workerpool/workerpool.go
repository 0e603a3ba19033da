// Package workerpool provides a generic fixed-size worker pool. The pool
// itself is the admission gate: at most maxWorkers payloads are being
// processed at any moment, the rest queue on the jobs channel.
package workerpool

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/AndrewPiroli/NOS-MCT/pkg/lg"
)

const TotalMaxWorkers = 10

// JobFunc processes one payload. Failures belong in the payload's own
// result handling, the pool never interprets them.
type JobFunc[T any] func(ctx context.Context, payload T)

type Pool[T any] struct {
	jobs    chan T
	fn      JobFunc[T]
	wg      sync.WaitGroup
	active  int32
	workers int
}

func New[T any](maxWorkers int, fn JobFunc[T]) *Pool[T] {
	if maxWorkers <= 0 {
		maxWorkers = TotalMaxWorkers
	}
	return &Pool[T]{
		jobs:    make(chan T, maxWorkers),
		fn:      fn,
		workers: maxWorkers,
	}
}

// Start launches the fixed worker set. Workers exit when the jobs channel
// is closed via Close.
func (p *Pool[T]) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()
	logger := lg.FromContext(ctx)
	for payload := range p.jobs {
		atomic.AddInt32(&p.active, 1)
		logger.Debug("worker picked up job",
			lg.Int32("workers", atomic.LoadInt32(&p.active)))
		p.fn(ctx, payload)
		atomic.AddInt32(&p.active, -1)
	}
}

// Submit queues one payload. Blocks when the queue is full.
func (p *Pool[T]) Submit(payload T) {
	p.jobs <- payload
}

// Close stops accepting payloads and waits for all queued work to finish.
func (p *Pool[T]) Close() {
	close(p.jobs)
	p.wg.Wait()
}

// Active reports how many workers are processing a payload right now.
func (p *Pool[T]) Active() int32 {
	return atomic.LoadInt32(&p.active)
}
