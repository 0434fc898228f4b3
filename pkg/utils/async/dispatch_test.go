package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/carelens/carelens/pkg/utils/async"
	"github.com/m-mizutani/gt"
)

type ctxKey struct{}

func TestGroup(t *testing.T) {
	t.Run("handler outlives cancelled parent and keeps values", func(t *testing.T) {
		var g async.Group
		ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "v"))
		cancel()

		var gotValue atomic.Value
		var gotErr atomic.Value
		g.Go(ctx, "test", func(ctx context.Context) error {
			gotValue.Store(ctx.Value(ctxKey{}))
			gotErr.Store(ctx.Err() == nil)
			return nil
		})
		g.Wait()

		gt.Value(t, gotValue.Load()).Equal("v")
		gt.Value(t, gotErr.Load()).Equal(true)
	})

	t.Run("errors and panics do not escape", func(t *testing.T) {
		var g async.Group
		var calls atomic.Int32

		g.Go(context.Background(), "fails", func(ctx context.Context) error {
			calls.Add(1)
			return errors.New("boom")
		})
		g.Go(context.Background(), "panics", func(ctx context.Context) error {
			calls.Add(1)
			panic("boom")
		})
		g.Wait()

		gt.Value(t, calls.Load()).Equal(int32(2))
	})
}
