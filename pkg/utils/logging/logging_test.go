package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/carelens/carelens/pkg/utils/logging"
	"github.com/m-mizutani/gt"
)

func TestFrom(t *testing.T) {
	t.Run("falls back to default logger", func(t *testing.T) {
		gt.Value(t, logging.From(context.Background())).Equal(logging.Default())
	})

	t.Run("returns logger stored in context", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		ctx := logging.With(context.Background(), logger)

		logging.From(ctx).Info("hello", "search_id", "s-1")
		gt.String(t, buf.String()).Contains(`"search_id":"s-1"`)
	})
}

func TestSetDefault_IgnoresNil(t *testing.T) {
	before := logging.Default()
	logging.SetDefault(nil)
	gt.Value(t, logging.Default()).Equal(before)
}
