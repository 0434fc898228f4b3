package schema

import (
	"github.com/carelens/carelens/pkg/domain/types"
	"github.com/m-mizutani/gollem"
)

func summarySchema() *gollem.Parameter {
	return require(&gollem.Parameter{
		Title:       "SearchSummary",
		Description: "Short title and normalized clinical summary of the request",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"title":   str("Title of at most eight words"),
			"summary": str("One or two sentences restating the request in neutral clinical terms"),
		},
	}, "title", "summary")
}

func symptomSchema() *gollem.Parameter {
	return require(&gollem.Parameter{
		Title:       "SymptomAnalysis",
		Description: "Structured analysis of reported symptoms",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"potentialConditions": objList("Candidate conditions, most likely first",
				map[string]*gollem.Parameter{
					"name":        str("Condition name"),
					"likelihood":  str("high, medium or low"),
					"description": str("Why the symptoms fit this condition"),
				}, "name", "likelihood"),
			"suggestedMedicines": objList("Over-the-counter options worth discussing with a pharmacist",
				map[string]*gollem.Parameter{
					"name":     str("Medicine name"),
					"purpose":  str("What it relieves"),
					"dosage":   str("Typical adult dosage"),
					"cautions": str("Who should avoid it"),
				}, "name"),
			"whenToSeekHelp":    strList("Warning signs that need prompt medical attention"),
			"selfCareChecklist": strList("Practical self-care steps"),
			"reliefIdeas":       strList("Non-drug relief ideas"),
			"finalVerdict":      str("Overall assessment in plain language"),
		},
	}, "potentialConditions", "whenToSeekHelp", "selfCareChecklist", "reliefIdeas", "finalVerdict")
}

func commonSchema() *gollem.Parameter {
	return require(&gollem.Parameter{
		Type: gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"clinicalActions":    strList("Concrete next steps for the patient"),
			"riskAlerts":         strList("Safety risks that apply to this request"),
			"interactionNotes":   strList("Relevant drug or food interactions"),
			"monitoringGuidance": strList("What to monitor and for how long"),
			"references": objList("Sources the answer relies on",
				map[string]*gollem.Parameter{
					"title":  str("Reference title"),
					"source": str("Publisher or URL"),
				}, "title"),
			"disclaimer": str("Reminder that this is not medical advice"),
		},
	}, "clinicalActions", "riskAlerts", "interactionNotes", "monitoringGuidance", "references", "disclaimer")
}

var modeSchemas = map[types.MedicineMode]func() *gollem.Parameter{
	types.MedicineModeDisease:     diseaseSchema,
	types.MedicineModeName:        nameSchema,
	types.MedicineModeSideEffects: sideEffectsSchema,
	types.MedicineModeIngredient:  ingredientSchema,
	types.MedicineModeSimilar:     similarSchema,
}

func diseaseSchema() *gollem.Parameter {
	return require(&gollem.Parameter{
		Description: "Treatment options for a disease",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"diseaseOverview": str("Short overview of the disease"),
			"firstLineTreatments": objList("First-line medicines, preferred first",
				map[string]*gollem.Parameter{
					"name":      str("Medicine name"),
					"drugClass": str("Pharmacological class"),
					"notes":     str("Usage notes"),
				}, "name"),
			"adjunctTherapies":  strList("Supporting therapies"),
			"lifestyleMeasures": strList("Lifestyle measures that help"),
		},
	}, "diseaseOverview", "firstLineTreatments")
}

func nameSchema() *gollem.Parameter {
	return require(&gollem.Parameter{
		Description: "Profile of a medicine looked up by name",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"genericName": str("International nonproprietary name"),
			"brandNames":  strList("Common brand names"),
			"drugClass":   str("Pharmacological class"),
			"indications": strList("Approved uses"),
			"dosingGuidance": objList("Dosing by population",
				map[string]*gollem.Parameter{
					"population": str("Population such as adults or children 6-12"),
					"dose":       str("Single dose"),
					"frequency":  str("How often"),
					"maxDaily":   str("Maximum daily dose"),
				}, "population", "dose"),
			"contraindications": strList("Situations where the medicine must not be used"),
			"commonSideEffects": strList("Frequently reported side effects"),
		},
	}, "genericName", "dosingGuidance", "contraindications")
}

func sideEffectsSchema() *gollem.Parameter {
	return require(&gollem.Parameter{
		Description: "Explanation of reported side effects",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"suspectedMedicines": objList("Medicines that may cause the effects, most likely first",
				map[string]*gollem.Parameter{
					"name":       str("Medicine name"),
					"likelihood": str("high, medium or low"),
					"mechanism":  str("How it causes the effect"),
				}, "name"),
			"severityAssessment": str("How serious the reported effects are"),
			"managementSteps":    strList("How to manage the effects"),
			"stopImmediatelyIf":  strList("Signs that require stopping the medicine"),
		},
	}, "suspectedMedicines", "severityAssessment", "managementSteps")
}

func ingredientSchema() *gollem.Parameter {
	return require(&gollem.Parameter{
		Description: "Profile of an active ingredient",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"activeIngredients": objList("Active ingredients involved",
				map[string]*gollem.Parameter{
					"name":     str("Ingredient name"),
					"role":     str("What it does in the product"),
					"strength": str("Typical strength"),
				}, "name"),
			"pharmacology":     str("Mechanism of action"),
			"products":         strList("Products that contain the ingredient"),
			"allergenWarnings": strList("Allergy or excipient warnings"),
		},
	}, "activeIngredients", "pharmacology")
}

func similarSchema() *gollem.Parameter {
	return require(&gollem.Parameter{
		Description: "Alternatives to a medicine with a comparison matrix",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"reference": str("The medicine the alternatives are compared against"),
			"alternatives": objList("Alternative medicines",
				map[string]*gollem.Parameter{
					"name":  str("Medicine name"),
					"kind":  str("Generic, brand or different class"),
					"notes": str("Key difference"),
				}, "name"),
			"comparisonMatrix": objList("One row per attribute, one cell per alternative",
				map[string]*gollem.Parameter{
					"attribute": str("Compared attribute such as onset or cost"),
					"values": objList("Cells of this row",
						map[string]*gollem.Parameter{
							"alternative": str("Name of an alternative or of the reference medicine"),
							"value":       str("Value for this attribute"),
						}, "alternative", "value"),
				}, "attribute", "values"),
		},
	}, "reference", "alternatives", "comparisonMatrix")
}
