package config

import (
	"context"
	"log/slog"

	"github.com/carelens/carelens/pkg/service/archive"
	"github.com/carelens/carelens/pkg/service/genai"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/urfave/cli/v3"
)

// Gemini holds configuration for the Gemini LLM client
type Gemini struct {
	projectID string
	location  string
	model     string
}

// Flags returns CLI flags for Gemini configuration
func (g *Gemini) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Category:    "Gemini",
			Usage:       "Google Cloud project ID for Gemini API",
			Sources:     cli.EnvVars("CARELENS_GEMINI_PROJECT"),
			Destination: &g.projectID,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Category:    "Gemini",
			Usage:       "Google Cloud location for Gemini API",
			Value:       "us-central1",
			Sources:     cli.EnvVars("CARELENS_GEMINI_LOCATION"),
			Destination: &g.location,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Category:    "Gemini",
			Usage:       "Gemini model name (empty for the client default)",
			Sources:     cli.EnvVars("CARELENS_GEMINI_MODEL"),
			Destination: &g.model,
		},
	}
}

// LogAttrs returns log attributes for the Gemini configuration
func (g *Gemini) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("project_id", g.projectID),
		slog.String("location", g.location),
		slog.String("model", g.model),
	}
}

// Configure creates a new Gemini LLM client from the configured flags.
// Returns nil if projectID is not configured; every generation then ends errored.
func (g *Gemini) Configure(ctx context.Context) (gollem.LLMClient, error) {
	if g.projectID == "" {
		return nil, nil
	}

	var opts []gemini.Option
	if g.model != "" {
		opts = append(opts, gemini.WithModel(g.model))
	}

	client, err := gemini.New(ctx, g.projectID, g.location, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client")
	}

	return client, nil
}

// Executor builds the generative call executor, or nil when Gemini is not configured
func (g *Gemini) Executor(ctx context.Context, store archive.Service) (genai.Executor, error) {
	llm, err := g.Configure(ctx)
	if err != nil {
		return nil, err
	}
	if llm == nil {
		return nil, nil
	}

	executor, err := genai.New(llm, genai.WithArchive(store))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create executor")
	}
	return executor, nil
}

// LogValue implements slog.LogValuer
func (g *Gemini) LogValue() slog.Value {
	return slog.GroupValue(g.LogAttrs()...)
}
