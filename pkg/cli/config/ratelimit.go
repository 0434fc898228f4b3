package config

import (
	"log/slog"
	"time"

	httpctrl "github.com/carelens/carelens/pkg/controller/http"
	"github.com/carelens/carelens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// RateLimit holds per-owner submission limits
type RateLimit struct {
	limit  int
	window time.Duration
}

// Flags returns CLI flags for rate limiting
func (r *RateLimit) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "rate-limit",
			Category:    "Rate limit",
			Usage:       "Submissions allowed per owner within the window (0 disables limiting)",
			Value:       10,
			Sources:     cli.EnvVars("CARELENS_RATE_LIMIT"),
			Destination: &r.limit,
		},
		&cli.DurationFlag{
			Name:        "rate-limit-window",
			Category:    "Rate limit",
			Usage:       "Rate limit window length",
			Value:       time.Minute,
			Sources:     cli.EnvVars("CARELENS_RATE_LIMIT_WINDOW"),
			Destination: &r.window,
		},
	}
}

// LogAttrs returns log attributes for the rate limit configuration
func (r *RateLimit) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.Int("limit", r.limit),
		slog.Duration("window", r.window),
	}
}

// Configure validates the limits and returns the server option that applies them
func (r *RateLimit) Configure() (httpctrl.Options, error) {
	if r.limit < 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "rate limit must not be negative", goerr.V("limit", r.limit))
	}
	if r.limit == 0 {
		logging.Default().Warn("Submission rate limiting disabled")
		return httpctrl.WithRateLimit(0, 0), nil
	}
	if r.window <= 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "rate limit window must be positive", goerr.V("window", r.window))
	}

	return httpctrl.WithRateLimit(r.limit, r.window), nil
}

// LogValue implements slog.LogValuer
func (r *RateLimit) LogValue() slog.Value {
	return slog.GroupValue(r.LogAttrs()...)
}
