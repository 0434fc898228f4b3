package usecase_test

import (
	"context"
	"testing"

	"github.com/carelens/carelens/pkg/domain/model"
	"github.com/carelens/carelens/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func TestNoAuthnUseCase(t *testing.T) {
	uc := usecase.NewNoAuthnUseCase("dev-user")

	t.Run("Authenticate returns the fixed owner for any token", func(t *testing.T) {
		for _, token := range []string{"", "garbage", "Bearer x"} {
			owner, err := uc.Authenticate(context.Background(), token)
			gt.NoError(t, err).Required()
			gt.Value(t, owner).Equal(model.OwnerID("dev-user"))
		}
	})

	t.Run("IsNoAuthn returns true", func(t *testing.T) {
		gt.Bool(t, uc.IsNoAuthn()).True()
	})
}

func TestNoAuthnUseCaseImplementsInterface(t *testing.T) {
	var _ usecase.AuthUseCaseInterface = usecase.NewNoAuthnUseCase("sub")
}
