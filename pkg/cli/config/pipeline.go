package config

import (
	"bytes"
	"log/slog"
	"os"
	"time"

	"github.com/carelens/carelens/pkg/service/worker"
	"github.com/carelens/carelens/pkg/utils/retry"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// Dispatch modes
const (
	DispatchPool   = "pool"
	DispatchInline = "inline"
)

// PipelineConfig is the TOML file that tunes the generation pipeline. Every field is optional.
type PipelineConfig struct {
	Retry    RetrySection    `toml:"retry"`
	Dispatch DispatchSection `toml:"dispatch"`
	Reaper   ReaperSection   `toml:"reaper"`
}

type RetrySection struct {
	MaxAttempts int      `toml:"max_attempts"`
	BaseDelay   Duration `toml:"base_delay"`
	MaxDelay    Duration `toml:"max_delay"`
	Jitter      *float64 `toml:"jitter"`
}

type DispatchSection struct {
	Mode     string `toml:"mode"`
	PoolSize int    `toml:"pool_size"`
}

type ReaperSection struct {
	StaleAfter Duration `toml:"stale_after"`
	Interval   Duration `toml:"interval"`
}

// Duration reads Go duration strings such as "500ms" from TOML
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return goerr.Wrap(err, "invalid duration", goerr.V("value", string(text)))
	}
	*d = Duration(parsed)
	return nil
}

// DefaultPipelineConfig returns the configuration used when no file is given
func DefaultPipelineConfig() *PipelineConfig {
	jitter := retry.DefaultJitter
	return &PipelineConfig{
		Retry: RetrySection{
			MaxAttempts: retry.DefaultMaxAttempts,
			BaseDelay:   Duration(retry.DefaultBaseDelay),
			MaxDelay:    Duration(retry.DefaultMaxDelay),
			Jitter:      &jitter,
		},
		Dispatch: DispatchSection{
			Mode:     DispatchPool,
			PoolSize: 16,
		},
		Reaper: ReaperSection{
			StaleAfter: Duration(10 * time.Minute),
			Interval:   Duration(time.Minute),
		},
	}
}

// Validate checks ranges and enumerations
func (p *PipelineConfig) Validate() error {
	if p.Retry.MaxAttempts < 1 {
		return goerr.Wrap(ErrInvalidConfig, "retry.max_attempts must be at least 1", goerr.V("max_attempts", p.Retry.MaxAttempts))
	}
	if p.Retry.MaxAttempts > retry.MaxAttemptsCap {
		return goerr.Wrap(ErrInvalidConfig, "retry.max_attempts is too large",
			goerr.V("max_attempts", p.Retry.MaxAttempts),
			goerr.V("limit", retry.MaxAttemptsCap))
	}
	if p.Retry.BaseDelay <= 0 || p.Retry.MaxDelay < p.Retry.BaseDelay {
		return goerr.Wrap(ErrInvalidConfig, "retry delays must satisfy 0 < base_delay <= max_delay",
			goerr.V("base_delay", time.Duration(p.Retry.BaseDelay)),
			goerr.V("max_delay", time.Duration(p.Retry.MaxDelay)))
	}
	// The wait before the last attempt is base_delay * 2^(max_attempts-2); beyond max_delay it would be clamped
	if p.Retry.MaxAttempts >= 2 {
		last := time.Duration(p.Retry.BaseDelay) << (p.Retry.MaxAttempts - 2)
		if last > time.Duration(p.Retry.MaxDelay) {
			return goerr.Wrap(ErrInvalidConfig, "retry delays must keep increasing: max_delay is reached before the last retry",
				goerr.V("base_delay", time.Duration(p.Retry.BaseDelay)),
				goerr.V("max_delay", time.Duration(p.Retry.MaxDelay)),
				goerr.V("max_attempts", p.Retry.MaxAttempts))
		}
	}
	if p.Retry.Jitter != nil && (*p.Retry.Jitter < 0 || *p.Retry.Jitter > 1) {
		return goerr.Wrap(ErrInvalidConfig, "retry.jitter must be between 0 and 1", goerr.V("jitter", *p.Retry.Jitter))
	}

	switch p.Dispatch.Mode {
	case DispatchPool:
		if p.Dispatch.PoolSize < 1 {
			return goerr.Wrap(ErrInvalidConfig, "dispatch.pool_size must be positive", goerr.V("pool_size", p.Dispatch.PoolSize))
		}
	case DispatchInline:
	default:
		return goerr.Wrap(ErrInvalidConfig, "unknown dispatch.mode", goerr.V("mode", p.Dispatch.Mode))
	}

	if p.Reaper.StaleAfter <= 0 || p.Reaper.Interval <= 0 {
		return goerr.Wrap(ErrInvalidConfig, "reaper durations must be positive",
			goerr.V("stale_after", time.Duration(p.Reaper.StaleAfter)),
			goerr.V("interval", time.Duration(p.Reaper.Interval)))
	}
	return nil
}

// Retrier builds the retry policy
func (p *PipelineConfig) Retrier() *retry.Retrier {
	opts := []retry.Option{
		retry.WithMaxAttempts(p.Retry.MaxAttempts),
		retry.WithBaseDelay(time.Duration(p.Retry.BaseDelay)),
		retry.WithMaxDelay(time.Duration(p.Retry.MaxDelay)),
	}
	if p.Retry.Jitter != nil {
		opts = append(opts, retry.WithJitter(*p.Retry.Jitter))
	}
	return retry.New(opts...)
}

// Dispatcher builds the generation dispatcher and a function that drains it
func (p *PipelineConfig) Dispatcher() (worker.Dispatcher, func(), error) {
	if p.Dispatch.Mode == DispatchInline {
		return worker.Inline{}, func() {}, nil
	}

	pool, err := worker.NewPool(p.Dispatch.PoolSize)
	if err != nil {
		return nil, nil, err
	}
	return pool, pool.Stop, nil
}

// LoadPipelineConfig reads a TOML file on top of the defaults and validates the result
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cfg := DefaultPipelineConfig()

	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(ErrConfigNotFound, "pipeline config not found", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	decoder := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path),
			goerr.V("cause", err.Error()))
	}

	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return cfg, nil
}

// Pipeline holds the CLI flag pointing at the pipeline TOML file
type Pipeline struct {
	path string
}

// Flags returns CLI flags for the pipeline configuration
func (p *Pipeline) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "pipeline-config",
			Aliases:     []string{"c"},
			Category:    "Pipeline",
			Usage:       "Path to the pipeline TOML file (defaults apply when empty)",
			Sources:     cli.EnvVars("CARELENS_PIPELINE_CONFIG"),
			Destination: &p.path,
		},
	}
}

// LogAttrs returns log attributes for the pipeline configuration
func (p *Pipeline) LogAttrs() []slog.Attr {
	return []slog.Attr{slog.String("path", p.path)}
}

// Configure loads the file, or returns defaults when no path is set
func (p *Pipeline) Configure() (*PipelineConfig, error) {
	if p.path == "" {
		return DefaultPipelineConfig(), nil
	}
	return LoadPipelineConfig(p.path)
}

// LogValue implements slog.LogValuer
func (p *Pipeline) LogValue() slog.Value {
	return slog.GroupValue(p.LogAttrs()...)
}
