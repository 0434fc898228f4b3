package usecase

import (
	"context"

	"github.com/carelens/carelens/pkg/domain/model"
)

// NoAuthnUseCase treats every request as coming from a fixed owner (for development/testing)
type NoAuthnUseCase struct {
	owner model.OwnerID
}

// NewNoAuthnUseCase creates a new NoAuthnUseCase instance with the specified owner
func NewNoAuthnUseCase(owner model.OwnerID) *NoAuthnUseCase {
	return &NoAuthnUseCase{owner: owner}
}

// Authenticate ignores the token and returns the fixed owner
func (uc *NoAuthnUseCase) Authenticate(ctx context.Context, token string) (model.OwnerID, error) {
	return uc.owner, nil
}

// IsNoAuthn returns true for NoAuthnUseCase
func (uc *NoAuthnUseCase) IsNoAuthn() bool {
	return true
}
