package config

import (
	"context"
	"log/slog"

	"github.com/carelens/carelens/pkg/service/archive"
	"github.com/carelens/carelens/pkg/utils/logging"
	"github.com/carelens/carelens/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Archive holds settings for keeping unparseable model responses
type Archive struct {
	bucket string
	prefix string
}

// Flags returns CLI flags for the response archive
func (a *Archive) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "archive-bucket",
			Category:    "Archive",
			Usage:       "Cloud Storage bucket for model responses that failed to parse (empty disables archiving)",
			Sources:     cli.EnvVars("CARELENS_ARCHIVE_BUCKET"),
			Destination: &a.bucket,
		},
		&cli.StringFlag{
			Name:        "archive-prefix",
			Category:    "Archive",
			Usage:       "Object name prefix inside the archive bucket",
			Value:       "responses/",
			Sources:     cli.EnvVars("CARELENS_ARCHIVE_PREFIX"),
			Destination: &a.prefix,
		},
	}
}

// LogAttrs returns log attributes for the archive configuration
func (a *Archive) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("bucket", a.bucket),
		slog.String("prefix", a.prefix),
	}
}

// Configure returns the archive service and a closer
func (a *Archive) Configure(ctx context.Context) (archive.Service, func(), error) {
	if a.bucket == "" {
		return archive.Noop{}, func() {}, nil
	}

	store, err := archive.NewGCS(ctx, a.bucket, a.prefix)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create response archive", goerr.V("bucket", a.bucket))
	}
	logging.Default().Info("Archiving unparseable model responses", "bucket", a.bucket, "prefix", a.prefix)

	return store, func() { safe.Close(ctx, store) }, nil
}

// LogValue implements slog.LogValuer
func (a *Archive) LogValue() slog.Value {
	return slog.GroupValue(a.LogAttrs()...)
}
