package usecase

import (
	"errors"

	"github.com/carelens/carelens/pkg/domain/types"
)

// Sentinel errors for use case layer
var (
	// Rejected before any record is created
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnsupportedMode = types.ErrUnsupportedMode
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrRateLimited     = errors.New("rate limit exceeded")

	// Not found, or owned by someone else
	ErrSearchNotFound = errors.New("search not found")
)

// Context keys for error values
const (
	SearchIDKey = "search_id"
	OwnerKey    = "owner"
	ModeKey     = "mode"
)
