package retriever

import (
	"context"
	"sync"
	"time"

	"github.com/jaennil/slippymap/pkg/logger"
	"golang.org/x/sync/semaphore"
)

// Pool runs fetch work on at most a fixed number of goroutines at once.
type Pool struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewPool(maxWorkers int, timeout time.Duration, l logger.Logger) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		sem:     semaphore.NewWeighted(int64(maxWorkers)),
		timeout: timeout,
		logger:  l,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit queues work and reports whether the pool accepted it. Each run gets
// a context bounded by the pool timeout and cancelled on Shutdown.
func (p *Pool) Submit(work func(ctx context.Context) error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			return
		}
		defer p.sem.Release(1)

		ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
		defer cancel()

		if err := work(ctx); err != nil {
			p.logger.Debug("pool task failed", "error", err)
		}
	}()

	return true
}

// Wait blocks until every submitted task has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Shutdown stops accepting work, cancels running tasks and waits for them.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}
