package cli

import (
	"context"
	"time"

	"github.com/carelens/carelens/pkg/cli/config"
	"github.com/carelens/carelens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var path string

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate a pipeline configuration file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "pipeline-config",
				Aliases:     []string{"c"},
				Usage:       "Path to the pipeline TOML file (required)",
				Required:    true,
				Sources:     cli.EnvVars("CARELENS_PIPELINE_CONFIG"),
				Destination: &path,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.LoadPipelineConfig(path)
			if err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}

			jitter := 0.0
			if cfg.Retry.Jitter != nil {
				jitter = *cfg.Retry.Jitter
			}
			logging.Default().Info("Configuration validation passed",
				"path", path,
				"retry_max_attempts", cfg.Retry.MaxAttempts,
				"retry_base_delay", time.Duration(cfg.Retry.BaseDelay),
				"retry_max_delay", time.Duration(cfg.Retry.MaxDelay),
				"retry_jitter", jitter,
				"dispatch_mode", cfg.Dispatch.Mode,
				"dispatch_pool_size", cfg.Dispatch.PoolSize,
				"reaper_stale_after", time.Duration(cfg.Reaper.StaleAfter),
				"reaper_interval", time.Duration(cfg.Reaper.Interval),
			)
			return nil
		},
	}
}
