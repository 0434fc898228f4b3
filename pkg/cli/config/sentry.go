package config

import (
	"log/slog"
	"time"

	"github.com/carelens/carelens/pkg/utils/logging"
	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Sentry holds error reporting settings
type Sentry struct {
	dsn     string
	env     string
	release string
}

// Flags returns CLI flags for Sentry
func (s *Sentry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Category:    "Sentry",
			Usage:       "Sentry DSN (empty disables reporting)",
			Sources:     cli.EnvVars("CARELENS_SENTRY_DSN"),
			Destination: &s.dsn,
		},
		&cli.StringFlag{
			Name:        "sentry-env",
			Category:    "Sentry",
			Usage:       "Sentry environment",
			Sources:     cli.EnvVars("CARELENS_SENTRY_ENV"),
			Destination: &s.env,
		},
	}
}

// LogAttrs returns log attributes for the Sentry configuration
func (s *Sentry) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.Bool("enabled", s.dsn != ""),
		slog.String("env", s.env),
	}
}

// SetRelease sets the release reported with events
func (s *Sentry) SetRelease(release string) {
	s.release = release
}

// Configure initializes the global Sentry client and returns a flush function
func (s *Sentry) Configure() (func(), error) {
	if s.dsn == "" {
		return func() {}, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         s.dsn,
		Environment: s.env,
		Release:     s.release,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to initialize sentry")
	}
	logging.Default().Info("Sentry enabled", "env", s.env)

	return func() {
		sentry.Flush(2 * time.Second)
	}, nil
}

// LogValue implements slog.LogValuer
func (s *Sentry) LogValue() slog.Value {
	return slog.GroupValue(s.LogAttrs()...)
}
