package types

import "fmt"

// SearchKind selects the analysis flow
type SearchKind string

const (
	SearchKindSymptom  SearchKind = "symptom"
	SearchKindMedicine SearchKind = "medicine"
)

// AllSearchKinds returns all valid search kinds
func AllSearchKinds() []SearchKind {
	return []SearchKind{
		SearchKindSymptom,
		SearchKindMedicine,
	}
}

// IsValid checks if the search kind is valid
func (k SearchKind) IsValid() bool {
	switch k {
	case SearchKindSymptom, SearchKindMedicine:
		return true
	default:
		return false
	}
}

// String returns the string representation of the search kind
func (k SearchKind) String() string {
	return string(k)
}

// ParseSearchKind parses a string into a SearchKind
func ParseSearchKind(s string) (SearchKind, error) {
	kind := SearchKind(s)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid search kind: %s", s)
	}
	return kind, nil
}
