package async

import (
	"context"
	"fmt"
	"sync"

	"github.com/carelens/carelens/pkg/utils/errutil"
	"github.com/carelens/carelens/pkg/utils/logging"
)

// Group runs fire-and-forget handlers and lets the owner wait for them on shutdown
type Group struct {
	wg sync.WaitGroup
}

// Go runs handler in a new goroutine. The handler context keeps the values of ctx
// (logger, owner) but is not cancelled with it. Errors and panics are logged and reported.
func (g *Group) Go(ctx context.Context, name string, handler func(ctx context.Context) error) {
	bgCtx := context.WithoutCancel(ctx)
	bgCtx = logging.With(bgCtx, logging.From(ctx).With("task", name))

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				errutil.Handle(bgCtx, fmt.Errorf("panic: %v", r), "panic in async handler")
			}
		}()

		if err := handler(bgCtx); err != nil {
			errutil.Handle(bgCtx, err, "async handler failed")
		}
	}()
}

// Wait blocks until every handler started by Go has returned
func (g *Group) Wait() {
	g.wg.Wait()
}

var defaultGroup Group

// Dispatch runs handler on the process-wide group
func Dispatch(ctx context.Context, name string, handler func(ctx context.Context) error) {
	defaultGroup.Go(ctx, name, handler)
}

// Wait blocks until every handler started by Dispatch has returned
func Wait() {
	defaultGroup.Wait()
}
