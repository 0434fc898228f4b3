package model

import (
	"time"

	"github.com/carelens/carelens/pkg/domain/types"
)

// Caller-safe text written into analysis fields when generation fails.
// Operator detail goes to SearchRecord.ErrorMessage instead.
const (
	PlaceholderTitle       = "Analysis unavailable"
	PlaceholderUnavailable = "We could not complete this analysis. Please try again later."
	PlaceholderSeekHelp    = "If your symptoms are severe or getting worse, contact a healthcare professional or emergency services."
	PlaceholderDisclaimer  = "This service does not provide medical advice. Consult a qualified healthcare professional."
)

// ErroredSymptomAnalysis returns the placeholder symptom analysis
func ErroredSymptomAnalysis() *SymptomAnalysis {
	return &SymptomAnalysis{
		PotentialConditions: []Condition{},
		SuggestedMedicines:  []MedicineSuggestion{},
		WhenToSeekHelp:      []string{PlaceholderSeekHelp},
		SelfCareChecklist:   []string{},
		ReliefIdeas:         []string{},
		FinalVerdict:        PlaceholderUnavailable,
	}
}

// ErroredMedicineCommon returns the placeholder common payload
func ErroredMedicineCommon() *MedicineCommon {
	return &MedicineCommon{
		ClinicalActions:    []string{PlaceholderUnavailable},
		RiskAlerts:         []string{},
		InteractionNotes:   []string{},
		MonitoringGuidance: []string{},
		References:         []Reference{},
		Disclaimer:         PlaceholderDisclaimer,
	}
}

// ErroredModePayload returns the placeholder payload for the record's flow.
// An unknown mode still gets a symptom-shaped placeholder so the record can be finalized.
func ErroredModePayload(kind types.SearchKind, mode types.MedicineMode) *ModePayload {
	pk, err := PayloadKindOf(kind, mode)
	if err != nil {
		pk = PayloadKindSymptom
	}

	switch pk {
	case PayloadKindDisease:
		return &ModePayload{Kind: pk, Disease: &DiseaseAnalysis{DiseaseOverview: PlaceholderUnavailable}}
	case PayloadKindName:
		return &ModePayload{Kind: pk, Name: &NameAnalysis{GenericName: PlaceholderUnavailable}}
	case PayloadKindSideEffects:
		return &ModePayload{Kind: pk, SideEffects: &SideEffectsAnalysis{SeverityAssessment: PlaceholderUnavailable}}
	case PayloadKindIngredient:
		return &ModePayload{Kind: pk, Ingredient: &IngredientAnalysis{Pharmacology: PlaceholderUnavailable}}
	case PayloadKindSimilar:
		return &ModePayload{Kind: pk, Similar: &SimilarAnalysis{Reference: PlaceholderUnavailable}}
	default:
		return &ModePayload{Kind: PayloadKindSymptom, Symptom: ErroredSymptomAnalysis()}
	}
}

// ErroredUpdate finalizes rec as errored. Analysis fields get placeholders and message is kept for operators.
// A title produced by stage 1 is kept.
func ErroredUpdate(rec *SearchRecord, message string, elapsed time.Duration) *SearchUpdate {
	upd := &SearchUpdate{
		Status:       Ptr(types.SearchStatusErrored),
		Analysis:     ErroredModePayload(rec.Kind, rec.Mode),
		ErrorMessage: Ptr(message),
		DurationMs:   Ptr(elapsed.Milliseconds()),
	}
	if rec.Title == "" {
		upd.Title = Ptr(PlaceholderTitle)
	}
	if rec.Kind == types.SearchKindMedicine {
		upd.Common = ErroredMedicineCommon()
	}
	return upd
}
