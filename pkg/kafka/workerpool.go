package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

type Job func(ctx context.Context) error

var ErrPoolClosed = errors.New("worker pool is shut down")

// Pool runs jobs on a fixed set of workers. Jobs receive the pool context,
// which is cancelled only after Shutdown has drained the queue.
type Pool struct {
	workers  int
	jobs     chan Job
	queueLen atomic.Int64
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	log      zerolog.Logger

	// mu guards closing jobs against in-flight sends.
	mu       sync.RWMutex
	closed   bool
	quit     chan struct{}
	quitOnce sync.Once
}

func NewPool(ctx context.Context, workers int, queueSize int, log zerolog.Logger) *Pool {
	pCtx, cancel := context.WithCancel(ctx)
	p := &Pool{
		workers: workers,
		jobs:    make(chan Job, queueSize),
		quit:    make(chan struct{}),
		ctx:     pCtx,
		cancel:  cancel,
		log:     log,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.runWorker(i)
	}
	return p
}

func (p *Pool) runWorker(id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		if err := p.execute(job); err != nil {
			p.log.Error().Err(err).Int("worker", id).Msg("job failed")
		}
		p.queueLen.Add(-1)
	}
}

func (p *Pool) execute(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panic: %v", r)
		}
	}()
	return job(p.ctx)
}

// Submit queues job, blocking while the queue is full. It gives up when ctx
// is done, and returns ErrPoolClosed once Shutdown has begun.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	p.queueLen.Add(1)
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		p.queueLen.Add(-1)
		return ctx.Err()
	case <-p.quit:
		p.queueLen.Add(-1)
		return ErrPoolClosed
	}
}

// QueueLen counts jobs queued or running.
func (p *Pool) QueueLen() int {
	return int(p.queueLen.Load())
}

func (p *Pool) Capacity() int {
	return cap(p.jobs)
}

func (p *Pool) Workers() int {
	return p.workers
}

// Shutdown stops accepting jobs and waits for queued and running ones. It is
// safe to call while other goroutines are still submitting, and more than once.
func (p *Pool) Shutdown() {
	// Release submitters blocked on a full queue so mu can be taken.
	p.quitOnce.Do(func() { close(p.quit) })

	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
}
