package model

import (
	"slices"
	"strings"

	"github.com/carelens/carelens/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// ErrInvalidPayload is returned when a generated payload breaks its own invariants
var ErrInvalidPayload = goerr.New("invalid analysis payload")

// PayloadKind is the discriminant of ModePayload
type PayloadKind string

const (
	PayloadKindSymptom     PayloadKind = "symptom"
	PayloadKindDisease     PayloadKind = PayloadKind(types.MedicineModeDisease)
	PayloadKindName        PayloadKind = PayloadKind(types.MedicineModeName)
	PayloadKindSideEffects PayloadKind = PayloadKind(types.MedicineModeSideEffects)
	PayloadKindIngredient  PayloadKind = PayloadKind(types.MedicineModeIngredient)
	PayloadKindSimilar     PayloadKind = PayloadKind(types.MedicineModeSimilar)
)

// PayloadKindOf maps a flow and mode to the payload variant it produces
func PayloadKindOf(kind types.SearchKind, mode types.MedicineMode) (PayloadKind, error) {
	switch kind {
	case types.SearchKindSymptom:
		return PayloadKindSymptom, nil
	case types.SearchKindMedicine:
		if !mode.IsValid() {
			return "", goerr.Wrap(types.ErrUnsupportedMode, "no payload for medicine mode", goerr.V("mode", mode))
		}
		return PayloadKind(mode), nil
	default:
		return "", goerr.New("unknown search kind", goerr.V("kind", kind))
	}
}

// ModePayload is a tagged union. Exactly the variant named by Kind is set.
type ModePayload struct {
	Kind        PayloadKind          `json:"kind" firestore:"Kind"`
	Symptom     *SymptomAnalysis     `json:"symptom,omitempty" firestore:"Symptom,omitempty"`
	Disease     *DiseaseAnalysis     `json:"disease,omitempty" firestore:"Disease,omitempty"`
	Name        *NameAnalysis        `json:"name,omitempty" firestore:"Name,omitempty"`
	SideEffects *SideEffectsAnalysis `json:"sideEffects,omitempty" firestore:"SideEffects,omitempty"`
	Ingredient  *IngredientAnalysis  `json:"ingredient,omitempty" firestore:"Ingredient,omitempty"`
	Similar     *SimilarAnalysis     `json:"similar,omitempty" firestore:"Similar,omitempty"`
}

// variant returns the populated variant and the number of populated variants
func (p *ModePayload) variant() (Variant, int) {
	var found Variant
	n := 0
	for _, v := range []Variant{p.Symptom, p.Disease, p.Name, p.SideEffects, p.Ingredient, p.Similar} {
		if isNil(v) {
			continue
		}
		found = v
		n++
	}
	return found, n
}

// Variant is implemented by every payload variant
type Variant interface {
	Validate() error
}

func isNil(v Variant) bool {
	switch x := v.(type) {
	case *SymptomAnalysis:
		return x == nil
	case *DiseaseAnalysis:
		return x == nil
	case *NameAnalysis:
		return x == nil
	case *SideEffectsAnalysis:
		return x == nil
	case *IngredientAnalysis:
		return x == nil
	case *SimilarAnalysis:
		return x == nil
	}
	return v == nil
}

// Validate checks the tag agrees with the populated variant and the variant's invariants
func (p *ModePayload) Validate() error {
	if p == nil {
		return goerr.Wrap(ErrInvalidPayload, "payload is nil")
	}

	v, n := p.variant()
	if n != 1 {
		return goerr.Wrap(ErrInvalidPayload, "payload must carry exactly one variant",
			goerr.V("kind", p.Kind), goerr.V("variants", n))
	}

	var tagOK bool
	switch p.Kind {
	case PayloadKindSymptom:
		tagOK = p.Symptom != nil
	case PayloadKindDisease:
		tagOK = p.Disease != nil
	case PayloadKindName:
		tagOK = p.Name != nil
	case PayloadKindSideEffects:
		tagOK = p.SideEffects != nil
	case PayloadKindIngredient:
		tagOK = p.Ingredient != nil
	case PayloadKindSimilar:
		tagOK = p.Similar != nil
	}
	if !tagOK {
		return goerr.Wrap(ErrInvalidPayload, "payload kind does not match variant", goerr.V("kind", p.Kind))
	}

	return v.Validate()
}

// Copy returns a deep copy of the payload
func (p *ModePayload) Copy() *ModePayload {
	if p == nil {
		return nil
	}
	copied := &ModePayload{Kind: p.Kind}
	if p.Symptom != nil {
		copied.Symptom = p.Symptom.copy()
	}
	if p.Disease != nil {
		copied.Disease = p.Disease.copy()
	}
	if p.Name != nil {
		copied.Name = p.Name.copy()
	}
	if p.SideEffects != nil {
		copied.SideEffects = p.SideEffects.copy()
	}
	if p.Ingredient != nil {
		copied.Ingredient = p.Ingredient.copy()
	}
	if p.Similar != nil {
		copied.Similar = p.Similar.copy()
	}
	return copied
}

// NewModePayload wraps a decoded variant into the union
func NewModePayload(v Variant) (*ModePayload, error) {
	switch x := v.(type) {
	case *SymptomAnalysis:
		return &ModePayload{Kind: PayloadKindSymptom, Symptom: x}, nil
	case *DiseaseAnalysis:
		return &ModePayload{Kind: PayloadKindDisease, Disease: x}, nil
	case *NameAnalysis:
		return &ModePayload{Kind: PayloadKindName, Name: x}, nil
	case *SideEffectsAnalysis:
		return &ModePayload{Kind: PayloadKindSideEffects, SideEffects: x}, nil
	case *IngredientAnalysis:
		return &ModePayload{Kind: PayloadKindIngredient, Ingredient: x}, nil
	case *SimilarAnalysis:
		return &ModePayload{Kind: PayloadKindSimilar, Similar: x}, nil
	default:
		return nil, goerr.Wrap(ErrInvalidPayload, "unknown payload variant")
	}
}

// NewVariant returns an empty decode target for the payload kind
func NewVariant(kind PayloadKind) (Variant, error) {
	switch kind {
	case PayloadKindSymptom:
		return &SymptomAnalysis{}, nil
	case PayloadKindDisease:
		return &DiseaseAnalysis{}, nil
	case PayloadKindName:
		return &NameAnalysis{}, nil
	case PayloadKindSideEffects:
		return &SideEffectsAnalysis{}, nil
	case PayloadKindIngredient:
		return &IngredientAnalysis{}, nil
	case PayloadKindSimilar:
		return &SimilarAnalysis{}, nil
	default:
		return nil, goerr.Wrap(types.ErrUnsupportedMode, "no variant for payload kind", goerr.V("kind", kind))
	}
}

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return goerr.Wrap(ErrInvalidPayload, "required text is empty", goerr.V("field", field))
	}
	return nil
}

func requireItems[T any](field string, items []T) error {
	if len(items) == 0 {
		return goerr.Wrap(ErrInvalidPayload, "required list is empty", goerr.V("field", field))
	}
	return nil
}

// Symptom flow

// Condition is a candidate explanation for the reported symptoms
type Condition struct {
	Name        string `json:"name" firestore:"Name"`
	Likelihood  string `json:"likelihood" firestore:"Likelihood"`
	Description string `json:"description" firestore:"Description"`
}

// MedicineSuggestion is an over-the-counter option the report mentions
type MedicineSuggestion struct {
	Name     string `json:"name" firestore:"Name"`
	Purpose  string `json:"purpose" firestore:"Purpose"`
	Dosage   string `json:"dosage" firestore:"Dosage"`
	Cautions string `json:"cautions" firestore:"Cautions"`
}

// SymptomAnalysis is the full-analysis result of the symptom flow.
// List order is the order returned by the model, most likely first by convention.
type SymptomAnalysis struct {
	PotentialConditions []Condition          `json:"potentialConditions" firestore:"PotentialConditions"`
	SuggestedMedicines  []MedicineSuggestion `json:"suggestedMedicines" firestore:"SuggestedMedicines"`
	WhenToSeekHelp      []string             `json:"whenToSeekHelp" firestore:"WhenToSeekHelp"`
	SelfCareChecklist   []string             `json:"selfCareChecklist" firestore:"SelfCareChecklist"`
	ReliefIdeas         []string             `json:"reliefIdeas" firestore:"ReliefIdeas"`
	FinalVerdict        string               `json:"finalVerdict" firestore:"FinalVerdict"`
}

// Validate checks the required content of a symptom analysis
func (a *SymptomAnalysis) Validate() error {
	if err := requireItems("potentialConditions", a.PotentialConditions); err != nil {
		return err
	}
	for i, c := range a.PotentialConditions {
		if err := requireText("potentialConditions.name", c.Name); err != nil {
			return goerr.Wrap(err, "invalid condition", goerr.V("index", i))
		}
	}
	return requireText("finalVerdict", a.FinalVerdict)
}

func (a *SymptomAnalysis) copy() *SymptomAnalysis {
	return &SymptomAnalysis{
		PotentialConditions: slices.Clone(a.PotentialConditions),
		SuggestedMedicines:  slices.Clone(a.SuggestedMedicines),
		WhenToSeekHelp:      slices.Clone(a.WhenToSeekHelp),
		SelfCareChecklist:   slices.Clone(a.SelfCareChecklist),
		ReliefIdeas:         slices.Clone(a.ReliefIdeas),
		FinalVerdict:        a.FinalVerdict,
	}
}

// Medicine flow, common part

// Reference is a source the model cites
type Reference struct {
	Title  string `json:"title" firestore:"Title"`
	Source string `json:"source" firestore:"Source"`
}

// MedicineCommon holds the findings shared by every medicine mode
type MedicineCommon struct {
	ClinicalActions    []string    `json:"clinicalActions" firestore:"ClinicalActions"`
	RiskAlerts         []string    `json:"riskAlerts" firestore:"RiskAlerts"`
	InteractionNotes   []string    `json:"interactionNotes" firestore:"InteractionNotes"`
	MonitoringGuidance []string    `json:"monitoringGuidance" firestore:"MonitoringGuidance"`
	References         []Reference `json:"references" firestore:"References"`
	Disclaimer         string      `json:"disclaimer" firestore:"Disclaimer"`
}

// Validate checks the required content of the common payload
func (c *MedicineCommon) Validate() error {
	if err := requireItems("clinicalActions", c.ClinicalActions); err != nil {
		return err
	}
	return requireText("disclaimer", c.Disclaimer)
}

// Copy returns a deep copy
func (c *MedicineCommon) Copy() *MedicineCommon {
	if c == nil {
		return nil
	}
	return &MedicineCommon{
		ClinicalActions:    slices.Clone(c.ClinicalActions),
		RiskAlerts:         slices.Clone(c.RiskAlerts),
		InteractionNotes:   slices.Clone(c.InteractionNotes),
		MonitoringGuidance: slices.Clone(c.MonitoringGuidance),
		References:         slices.Clone(c.References),
		Disclaimer:         c.Disclaimer,
	}
}

// Medicine flow, mode variants

// Treatment is a therapy option for a disease
type Treatment struct {
	Name      string `json:"name" firestore:"Name"`
	DrugClass string `json:"drugClass" firestore:"DrugClass"`
	Notes     string `json:"notes" firestore:"Notes"`
}

// DiseaseAnalysis answers "what treats this disease"
type DiseaseAnalysis struct {
	DiseaseOverview     string      `json:"diseaseOverview" firestore:"DiseaseOverview"`
	FirstLineTreatments []Treatment `json:"firstLineTreatments" firestore:"FirstLineTreatments"`
	AdjunctTherapies    []string    `json:"adjunctTherapies" firestore:"AdjunctTherapies"`
	LifestyleMeasures   []string    `json:"lifestyleMeasures" firestore:"LifestyleMeasures"`
}

func (a *DiseaseAnalysis) Validate() error {
	if err := requireText("diseaseOverview", a.DiseaseOverview); err != nil {
		return err
	}
	return requireItems("firstLineTreatments", a.FirstLineTreatments)
}

func (a *DiseaseAnalysis) copy() *DiseaseAnalysis {
	return &DiseaseAnalysis{
		DiseaseOverview:     a.DiseaseOverview,
		FirstLineTreatments: slices.Clone(a.FirstLineTreatments),
		AdjunctTherapies:    slices.Clone(a.AdjunctTherapies),
		LifestyleMeasures:   slices.Clone(a.LifestyleMeasures),
	}
}

// Dosing is one row of dosing guidance
type Dosing struct {
	Population string `json:"population" firestore:"Population"`
	Dose       string `json:"dose" firestore:"Dose"`
	Frequency  string `json:"frequency" firestore:"Frequency"`
	MaxDaily   string `json:"maxDaily" firestore:"MaxDaily"`
}

// NameAnalysis describes a medicine looked up by name
type NameAnalysis struct {
	GenericName       string   `json:"genericName" firestore:"GenericName"`
	BrandNames        []string `json:"brandNames" firestore:"BrandNames"`
	DrugClass         string   `json:"drugClass" firestore:"DrugClass"`
	Indications       []string `json:"indications" firestore:"Indications"`
	DosingGuidance    []Dosing `json:"dosingGuidance" firestore:"DosingGuidance"`
	Contraindications []string `json:"contraindications" firestore:"Contraindications"`
	CommonSideEffects []string `json:"commonSideEffects" firestore:"CommonSideEffects"`
}

func (a *NameAnalysis) Validate() error {
	if err := requireText("genericName", a.GenericName); err != nil {
		return err
	}
	if err := requireItems("dosingGuidance", a.DosingGuidance); err != nil {
		return err
	}
	return requireItems("contraindications", a.Contraindications)
}

func (a *NameAnalysis) copy() *NameAnalysis {
	return &NameAnalysis{
		GenericName:       a.GenericName,
		BrandNames:        slices.Clone(a.BrandNames),
		DrugClass:         a.DrugClass,
		Indications:       slices.Clone(a.Indications),
		DosingGuidance:    slices.Clone(a.DosingGuidance),
		Contraindications: slices.Clone(a.Contraindications),
		CommonSideEffects: slices.Clone(a.CommonSideEffects),
	}
}

// SuspectedMedicine links a reported side effect to a likely cause
type SuspectedMedicine struct {
	Name       string `json:"name" firestore:"Name"`
	Likelihood string `json:"likelihood" firestore:"Likelihood"`
	Mechanism  string `json:"mechanism" firestore:"Mechanism"`
}

// SideEffectsAnalysis explains reported side effects
type SideEffectsAnalysis struct {
	SuspectedMedicines []SuspectedMedicine `json:"suspectedMedicines" firestore:"SuspectedMedicines"`
	SeverityAssessment string              `json:"severityAssessment" firestore:"SeverityAssessment"`
	ManagementSteps    []string            `json:"managementSteps" firestore:"ManagementSteps"`
	StopImmediatelyIf  []string            `json:"stopImmediatelyIf" firestore:"StopImmediatelyIf"`
}

func (a *SideEffectsAnalysis) Validate() error {
	if err := requireItems("suspectedMedicines", a.SuspectedMedicines); err != nil {
		return err
	}
	if err := requireText("severityAssessment", a.SeverityAssessment); err != nil {
		return err
	}
	return requireItems("managementSteps", a.ManagementSteps)
}

func (a *SideEffectsAnalysis) copy() *SideEffectsAnalysis {
	return &SideEffectsAnalysis{
		SuspectedMedicines: slices.Clone(a.SuspectedMedicines),
		SeverityAssessment: a.SeverityAssessment,
		ManagementSteps:    slices.Clone(a.ManagementSteps),
		StopImmediatelyIf:  slices.Clone(a.StopImmediatelyIf),
	}
}

// ActiveIngredient is one ingredient of a product
type ActiveIngredient struct {
	Name     string `json:"name" firestore:"Name"`
	Role     string `json:"role" firestore:"Role"`
	Strength string `json:"strength" firestore:"Strength"`
}

// IngredientAnalysis describes an active ingredient and where it appears
type IngredientAnalysis struct {
	ActiveIngredients []ActiveIngredient `json:"activeIngredients" firestore:"ActiveIngredients"`
	Pharmacology      string             `json:"pharmacology" firestore:"Pharmacology"`
	Products          []string           `json:"products" firestore:"Products"`
	AllergenWarnings  []string           `json:"allergenWarnings" firestore:"AllergenWarnings"`
}

func (a *IngredientAnalysis) Validate() error {
	if err := requireItems("activeIngredients", a.ActiveIngredients); err != nil {
		return err
	}
	return requireText("pharmacology", a.Pharmacology)
}

func (a *IngredientAnalysis) copy() *IngredientAnalysis {
	return &IngredientAnalysis{
		ActiveIngredients: slices.Clone(a.ActiveIngredients),
		Pharmacology:      a.Pharmacology,
		Products:          slices.Clone(a.Products),
		AllergenWarnings:  slices.Clone(a.AllergenWarnings),
	}
}

// Alternative is a named substitute for the reference medicine
type Alternative struct {
	Name  string `json:"name" firestore:"Name"`
	Kind  string `json:"kind" firestore:"Kind"`
	Notes string `json:"notes" firestore:"Notes"`
}

// ComparisonCell is the value of one attribute for one alternative
type ComparisonCell struct {
	Alternative string `json:"alternative" firestore:"Alternative"`
	Value       string `json:"value" firestore:"Value"`
}

// ComparisonRow compares one attribute across the alternatives
type ComparisonRow struct {
	Attribute string           `json:"attribute" firestore:"Attribute"`
	Values    []ComparisonCell `json:"values" firestore:"Values"`
}

// SimilarAnalysis lists alternatives and a comparison matrix
type SimilarAnalysis struct {
	Reference        string          `json:"reference" firestore:"Reference"`
	Alternatives     []Alternative   `json:"alternatives" firestore:"Alternatives"`
	ComparisonMatrix []ComparisonRow `json:"comparisonMatrix" firestore:"ComparisonMatrix"`
}

// Validate additionally requires every matrix cell to name a listed alternative
// (or the reference medicine itself).
func (a *SimilarAnalysis) Validate() error {
	if err := requireItems("alternatives", a.Alternatives); err != nil {
		return err
	}
	if err := requireItems("comparisonMatrix", a.ComparisonMatrix); err != nil {
		return err
	}

	names := make(map[string]struct{}, len(a.Alternatives)+1)
	for _, alt := range a.Alternatives {
		names[NormalizeText(alt.Name)] = struct{}{}
	}
	if a.Reference != "" {
		names[NormalizeText(a.Reference)] = struct{}{}
	}

	for _, row := range a.ComparisonMatrix {
		if err := requireText("comparisonMatrix.attribute", row.Attribute); err != nil {
			return err
		}
		for _, cell := range row.Values {
			if _, ok := names[NormalizeText(cell.Alternative)]; !ok {
				return goerr.Wrap(ErrInvalidPayload, "comparison cell names an unknown alternative",
					goerr.V("attribute", row.Attribute),
					goerr.V("alternative", cell.Alternative))
			}
		}
	}
	return nil
}

func (a *SimilarAnalysis) copy() *SimilarAnalysis {
	var rows []ComparisonRow
	if a.ComparisonMatrix != nil {
		rows = make([]ComparisonRow, len(a.ComparisonMatrix))
	}
	for i, row := range a.ComparisonMatrix {
		rows[i] = ComparisonRow{Attribute: row.Attribute, Values: slices.Clone(row.Values)}
	}
	return &SimilarAnalysis{
		Reference:        a.Reference,
		Alternatives:     slices.Clone(a.Alternatives),
		ComparisonMatrix: rows,
	}
}
