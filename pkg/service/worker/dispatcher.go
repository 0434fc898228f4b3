package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/carelens/carelens/pkg/utils/errutil"
	"github.com/carelens/carelens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/panjf2000/ants/v2"
)

// Job is one unit of background work. It receives a context that is not tied to the submitting request.
type Job func(ctx context.Context) error

// Dispatcher hands generation jobs to an executor
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, job Job) error
}

// Inline runs jobs synchronously in the caller's goroutine. The caller's request stays open until
// generation finishes. Used by the CLI and tests.
type Inline struct{}

func (Inline) Dispatch(ctx context.Context, name string, job Job) error {
	if err := job(ctx); err != nil {
		return goerr.Wrap(err, "job failed", goerr.V("job", name))
	}
	return nil
}

// Pool runs jobs on a bounded goroutine pool so admission returns before generation completes
type Pool struct {
	pool *ants.Pool
	wg   sync.WaitGroup
}

var _ Dispatcher = &Pool{}

// NewPool creates a pool with at most size concurrent jobs. Submissions beyond capacity block
// until a worker frees up.
func NewPool(size int) (*Pool, error) {
	if size <= 0 {
		return nil, goerr.New("pool size must be positive", goerr.V("size", size))
	}
	p, err := ants.NewPool(size)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create worker pool", goerr.V("size", size))
	}
	return &Pool{pool: p}, nil
}

// Dispatch submits job. The job context keeps ctx values such as the request logger but is never
// cancelled by the caller.
func (p *Pool) Dispatch(ctx context.Context, name string, job Job) error {
	jobCtx := context.WithoutCancel(ctx)
	logger := logging.From(ctx).With("job", name)
	jobCtx = logging.With(jobCtx, logger)

	p.wg.Add(1)
	err := p.pool.Submit(func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				errutil.Handle(jobCtx, fmt.Errorf("panic: %v", r), "panic in background job")
			}
		}()

		if err := job(jobCtx); err != nil {
			errutil.Handle(jobCtx, err, "background job failed")
		}
	})
	if err != nil {
		p.wg.Done()
		return goerr.Wrap(err, "failed to submit job", goerr.V("job", name))
	}
	return nil
}

// Running returns the number of jobs currently executing
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Stop waits for submitted jobs to finish and releases the pool
func (p *Pool) Stop() {
	logging.Default().Info("worker pool draining", "running", p.pool.Running())
	p.wg.Wait()
	p.pool.Release()
	logging.Default().Info("worker pool stopped")
}
