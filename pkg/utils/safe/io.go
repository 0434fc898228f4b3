package safe

import (
	"context"
	"io"
	"log/slog"

	"github.com/carelens/carelens/pkg/utils/logging"
)

// Close closes c and logs a failure. A nil closer is ignored.
// Use it only where the close error cannot change the outcome, such as deferred cleanup.
func Close(ctx context.Context, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logging.From(ctx).Warn("failed to close", slog.Any("error", err))
	}
}

// Write writes data to w and logs a failure. Used for response bodies after the status line is sent.
func Write(ctx context.Context, w io.Writer, data []byte) {
	if w == nil {
		return
	}
	if _, err := w.Write(data); err != nil {
		logging.From(ctx).Warn("failed to write", slog.Any("error", err))
	}
}
