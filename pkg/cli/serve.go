package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carelens/carelens/pkg/cli/config"
	httpctrl "github.com/carelens/carelens/pkg/controller/http"
	"github.com/carelens/carelens/pkg/service/worker"
	"github.com/carelens/carelens/pkg/usecase"
	"github.com/carelens/carelens/pkg/utils/logging"
	"github.com/carelens/carelens/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdServe(version string) *cli.Command {
	var addr string
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var authCfg config.Auth
	var rateCfg config.RateLimit
	var sentryCfg config.Sentry
	var archiveCfg config.Archive
	var pipelineCfg config.Pipeline

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("CARELENS_ADDR"),
			Destination: &addr,
		},
	}

	// Add shared config flags
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, authCfg.Flags()...)
	flags = append(flags, rateCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)
	flags = append(flags, archiveCfg.Flags()...)
	flags = append(flags, pipelineCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()
			logger.Info("Serve configuration",
				"addr", addr,
				"repository", &repoCfg,
				"gemini", &geminiCfg,
				"auth", &authCfg,
				"rate_limit", &rateCfg,
				"sentry", &sentryCfg,
				"archive", &archiveCfg,
				"pipeline", &pipelineCfg,
			)

			sentryCfg.SetRelease(version)
			flush, err := sentryCfg.Configure()
			if err != nil {
				return err
			}
			defer flush()

			pipeline, err := pipelineCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load pipeline config")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			store, closeArchive, err := archiveCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer closeArchive()

			executor, err := geminiCfg.Executor(ctx, store)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize Gemini")
			}
			if executor == nil {
				logger.Warn("Gemini project is not configured, every search will end errored")
			}

			authUC, err := authCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure authentication")
			}

			rateLimit, err := rateCfg.Configure()
			if err != nil {
				return err
			}

			dispatcher, drain, err := pipeline.Dispatcher()
			if err != nil {
				return goerr.Wrap(err, "failed to create dispatcher")
			}

			uc := usecase.New(repo,
				usecase.WithExecutor(executor),
				usecase.WithDispatcher(dispatcher),
				usecase.WithRetrier(pipeline.Retrier()),
				usecase.WithAuth(authUC),
			)

			reaper := worker.NewStaleSearchReaper(repo,
				time.Duration(pipeline.Reaper.StaleAfter),
				time.Duration(pipeline.Reaper.Interval),
			)
			if err := reaper.Start(ctx); err != nil {
				drain()
				return goerr.Wrap(err, "failed to start stale search reaper")
			}

			httpHandler, err := httpctrl.New(uc, rateLimit)
			if err != nil {
				reaper.Stop()
				drain()
				return goerr.Wrap(err, "failed to create http server")
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           httpHandler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				reaper.Stop()
				drain()
				return err
			case sig := <-sigCh:
				logger.Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				// Generation still in flight finishes before the store closes
				if err := shutdown(shutdownCtx, server, reaper.Stop, drain); err != nil {
					return err
				}

				logger.Info("Server shutdown completed")
				return nil
			}
		},
	}
}

// shutdown stops the server, then runs stops in order even when the server did not stop cleanly
func shutdown(ctx context.Context, server *http.Server, stops ...func()) error {
	err := server.Shutdown(ctx)
	for _, stop := range stops {
		stop()
	}
	if err != nil {
		return goerr.Wrap(err, "failed to shutdown server gracefully")
	}
	return nil
}
