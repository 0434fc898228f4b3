package model

import (
	"github.com/carelens/carelens/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrNotFound is returned when a search record does not exist
	ErrNotFound = goerr.New("search record not found")

	// ErrAlreadyExists is returned when creating a record whose ID is taken
	ErrAlreadyExists = goerr.New("search record already exists")

	// ErrInvalidTransition is returned when an update would leave a terminal status or go backwards
	ErrInvalidTransition = goerr.New("invalid search status transition")
)

// Check verifies that the update may be applied to a record in the current status
func (u *SearchUpdate) Check(id SearchID, current types.SearchStatus) error {
	next := u.NextStatus(current)
	if !next.IsValid() {
		return goerr.Wrap(ErrInvalidTransition, "unknown status",
			goerr.V("id", id), goerr.V("status", next))
	}
	if current.IsTerminal() {
		return goerr.Wrap(ErrInvalidTransition, "record is already terminal",
			goerr.V("id", id), goerr.V("current", current), goerr.V("next", next))
	}
	if !current.CanTransitionTo(next) {
		return goerr.Wrap(ErrInvalidTransition, "status transition not allowed",
			goerr.V("id", id), goerr.V("current", current), goerr.V("next", next))
	}
	return nil
}
