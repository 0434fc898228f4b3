package config_test

import (
	"testing"

	"github.com/carelens/carelens/pkg/cli/config"
	"github.com/carelens/carelens/pkg/service/archive"
	"github.com/m-mizutani/gt"
)

func TestGemini_Configure(t *testing.T) {
	t.Run("returns nil client when project ID is empty", func(t *testing.T) {
		cfg := config.NewGeminiForTest("", "us-central1")
		client, err := cfg.Configure(t.Context())
		gt.NoError(t, err)
		gt.Value(t, client).Nil()
	})

	t.Run("returns nil executor when project ID is empty", func(t *testing.T) {
		cfg := config.NewGeminiForTest("", "us-central1")
		executor, err := cfg.Executor(t.Context(), archive.Noop{})
		gt.NoError(t, err)
		gt.Value(t, executor).Nil()
	})

	t.Run("returns flags", func(t *testing.T) {
		cfg := config.NewGeminiForTest("", "")
		flags := cfg.Flags()
		gt.Value(t, len(flags)).Equal(3)
	})
}
