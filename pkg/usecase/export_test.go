package usecase

import (
	"context"

	"github.com/carelens/carelens/pkg/domain/model"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// RenderPrompt is exported for testing template rendering
func RenderPrompt(name string, rec *model.SearchRecord, profile string) (string, error) {
	data := newPromptData(rec)
	data.Profile = profile
	return renderPrompt(name, data)
}

// WithStaticKeySet verifies tokens with set instead of fetching a JWKS URL. Fetches are counted.
func WithStaticKeySet(set jwk.Set, fetches *int) AuthOption {
	return func(uc *AuthUseCase) {
		uc.keys = &keySetCache{
			url: "static",
			fetch: func(context.Context, string) (jwk.Set, error) {
				*fetches++
				return set, nil
			},
		}
	}
}
