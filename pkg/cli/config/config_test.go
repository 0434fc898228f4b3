package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/carelens/carelens/pkg/cli/config"
	"github.com/m-mizutani/gt"
)

func TestAuth_Configure(t *testing.T) {
	t.Run("no-auth mode", func(t *testing.T) {
		authUC, err := config.NewAuthForTest("", "", "dev-user").Configure()
		gt.NoError(t, err).Required()
		gt.Bool(t, authUC.IsNoAuthn()).True()

		owner, err := authUC.Authenticate(context.Background(), "")
		gt.NoError(t, err).Required()
		gt.Value(t, owner.String()).Equal("dev-user")
	})

	t.Run("hmac mode", func(t *testing.T) {
		authUC, err := config.NewAuthForTest("secret-secret-secret-secret-1234", "", "").Configure()
		gt.NoError(t, err).Required()
		gt.Bool(t, authUC.IsNoAuthn()).False()
	})

	t.Run("jwks mode", func(t *testing.T) {
		authUC, err := config.NewAuthForTest("", "https://issuer.example.com/jwks.json", "").Configure()
		gt.NoError(t, err).Required()
		gt.Bool(t, authUC.IsNoAuthn()).False()
	})

	t.Run("rejects missing or conflicting settings", func(t *testing.T) {
		for _, cfg := range []*config.Auth{
			config.NewAuthForTest("", "", ""),
			config.NewAuthForTest("s", "https://issuer.example.com/jwks.json", ""),
			config.NewAuthForTest("s", "", "dev-user"),
		} {
			_, err := cfg.Configure()
			gt.Error(t, err).Is(config.ErrInvalidConfig)
		}
	})
}

func TestRateLimit_Configure(t *testing.T) {
	t.Run("zero disables limiting", func(t *testing.T) {
		opt, err := config.NewRateLimitForTest(0, 0).Configure()
		gt.NoError(t, err).Required()
		gt.Value(t, opt).NotNil()
	})

	t.Run("positive limit needs a window", func(t *testing.T) {
		opt, err := config.NewRateLimitForTest(1, time.Minute).Configure()
		gt.NoError(t, err).Required()
		gt.Value(t, opt).NotNil()

		_, err = config.NewRateLimitForTest(1, 0).Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("negative limit is invalid", func(t *testing.T) {
		_, err := config.NewRateLimitForTest(-1, time.Minute).Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestRepository_Configure(t *testing.T) {
	ctx := context.Background()

	t.Run("memory backend", func(t *testing.T) {
		repo, err := config.NewRepositoryForTest("memory", "").Configure(ctx)
		gt.NoError(t, err).Required()
		defer repo.Close()
		gt.Value(t, repo.Search()).NotNil()
	})

	t.Run("firestore requires a project", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("firestore", "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("sqlite", "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}
