// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

// ErrPoolClosed is returned by Submit after Stop or context cancellation.
var ErrPoolClosed = errors.New("worker pool closed")

type Task func(ctx context.Context) error

// Pool runs submitted tasks on a fixed number of goroutines. Submit blocks while
// the queue is full so bursts of updates are delayed rather than dropped.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan Task
	quit chan struct{}
	once sync.Once
	n    int
	log  *zerolog.Logger
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	l := logger.With().Str("component", "WorkerPool").Logger()
	return &Pool{jobs: make(chan Task, workers*4), quit: make(chan struct{}), n: workers, log: &l}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-p.jobs:
					p.run(ctx, id, task)
				}
			}
		}(i)
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error().Int("worker", id).Interface("panic", rec).Msg("task panicked")
		}
	}()
	if err := task(ctx); err != nil {
		p.log.Warn().Int("worker", id).Err(err).Msg("task error")
	}
}

// Stop signals workers to exit and waits for running tasks to finish.
func (p *Pool) Stop() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}

func (p *Pool) Submit(ctx context.Context, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.jobs <- task:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
