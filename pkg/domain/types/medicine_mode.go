package types

import (
	"github.com/m-mizutani/goerr/v2"
)

// ErrUnsupportedMode is returned for a medicine mode outside the fixed enumeration
var ErrUnsupportedMode = goerr.New("unsupported medicine search mode")

// MedicineMode is the analysis discriminant of the medicine flow
type MedicineMode string

const (
	MedicineModeDisease     MedicineMode = "disease"
	MedicineModeName        MedicineMode = "name"
	MedicineModeSideEffects MedicineMode = "sideEffects"
	MedicineModeIngredient  MedicineMode = "ingredient"
	MedicineModeSimilar     MedicineMode = "similar"
)

// AllMedicineModes returns all valid medicine modes
func AllMedicineModes() []MedicineMode {
	return []MedicineMode{
		MedicineModeDisease,
		MedicineModeName,
		MedicineModeSideEffects,
		MedicineModeIngredient,
		MedicineModeSimilar,
	}
}

// IsValid checks if the medicine mode is valid
func (m MedicineMode) IsValid() bool {
	switch m {
	case MedicineModeDisease,
		MedicineModeName,
		MedicineModeSideEffects,
		MedicineModeIngredient,
		MedicineModeSimilar:
		return true
	default:
		return false
	}
}

// String returns the string representation of the medicine mode
func (m MedicineMode) String() string {
	return string(m)
}

// ParseMedicineMode parses a string into a MedicineMode
func ParseMedicineMode(s string) (MedicineMode, error) {
	mode := MedicineMode(s)
	if !mode.IsValid() {
		return "", goerr.Wrap(ErrUnsupportedMode, "invalid medicine mode", goerr.V("mode", s))
	}
	return mode, nil
}
