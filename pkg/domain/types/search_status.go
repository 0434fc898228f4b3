package types

import "fmt"

// SearchStatus is the lifecycle state of a search record
type SearchStatus string

const (
	SearchStatusPending SearchStatus = "pending"
	SearchStatusReady   SearchStatus = "ready"
	SearchStatusErrored SearchStatus = "errored"
)

// AllSearchStatuses returns all valid search statuses
func AllSearchStatuses() []SearchStatus {
	return []SearchStatus{
		SearchStatusPending,
		SearchStatusReady,
		SearchStatusErrored,
	}
}

// IsValid checks if the search status is valid
func (s SearchStatus) IsValid() bool {
	switch s {
	case SearchStatusPending,
		SearchStatusReady,
		SearchStatusErrored:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is allowed
func (s SearchStatus) IsTerminal() bool {
	return s == SearchStatusReady || s == SearchStatusErrored
}

// CanTransitionTo reports whether a record in status s may be moved to next.
// pending -> pending covers field-only updates between the two generation stages.
func (s SearchStatus) CanTransitionTo(next SearchStatus) bool {
	if s != SearchStatusPending {
		return false
	}
	return next.IsValid()
}

// String returns the string representation of the search status
func (s SearchStatus) String() string {
	return string(s)
}

// ParseSearchStatus parses a string into a SearchStatus
func ParseSearchStatus(s string) (SearchStatus, error) {
	status := SearchStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid search status: %s", s)
	}
	return status, nil
}
