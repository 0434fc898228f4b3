package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/carelens/carelens/pkg/domain/model"
	"github.com/carelens/carelens/pkg/domain/types"
	"github.com/m-mizutani/gt"
)

func validSimilar() *model.SimilarAnalysis {
	return &model.SimilarAnalysis{
		Reference: "Ibuprofen",
		Alternatives: []model.Alternative{
			{Name: "Naproxen", Kind: "NSAID"},
			{Name: "Acetaminophen", Kind: "analgesic"},
		},
		ComparisonMatrix: []model.ComparisonRow{
			{
				Attribute: "Duration",
				Values: []model.ComparisonCell{
					{Alternative: "ibuprofen", Value: "4-6h"},
					{Alternative: "Naproxen", Value: "8-12h"},
					{Alternative: "Acetaminophen", Value: "4-6h"},
				},
			},
		},
	}
}

func TestModePayloadValidate(t *testing.T) {
	tests := []struct {
		name    string
		payload *model.ModePayload
		wantErr bool
	}{
		{
			name: "valid symptom",
			payload: &model.ModePayload{Kind: model.PayloadKindSymptom, Symptom: &model.SymptomAnalysis{
				PotentialConditions: []model.Condition{{Name: "Tension headache"}},
				FinalVerdict:        "Likely benign",
			}},
		},
		{
			name:    "valid similar",
			payload: &model.ModePayload{Kind: model.PayloadKindSimilar, Similar: validSimilar()},
		},
		{
			name:    "nil payload",
			payload: nil,
			wantErr: true,
		},
		{
			name:    "no variant",
			payload: &model.ModePayload{Kind: model.PayloadKindName},
			wantErr: true,
		},
		{
			name: "two variants",
			payload: &model.ModePayload{
				Kind:       model.PayloadKindDisease,
				Disease:    &model.DiseaseAnalysis{DiseaseOverview: "x", FirstLineTreatments: []model.Treatment{{Name: "y"}}},
				Ingredient: &model.IngredientAnalysis{ActiveIngredients: []model.ActiveIngredient{{Name: "z"}}, Pharmacology: "p"},
			},
			wantErr: true,
		},
		{
			name: "tag mismatch",
			payload: &model.ModePayload{
				Kind:    model.PayloadKindName,
				Disease: &model.DiseaseAnalysis{DiseaseOverview: "x", FirstLineTreatments: []model.Treatment{{Name: "y"}}},
			},
			wantErr: true,
		},
		{
			name: "name mode missing contraindications",
			payload: &model.ModePayload{Kind: model.PayloadKindName, Name: &model.NameAnalysis{
				GenericName:    "ibuprofen",
				DosingGuidance: []model.Dosing{{Population: "adult", Dose: "200mg"}},
			}},
			wantErr: true,
		},
		{
			name: "symptom condition without name",
			payload: &model.ModePayload{Kind: model.PayloadKindSymptom, Symptom: &model.SymptomAnalysis{
				PotentialConditions: []model.Condition{{Likelihood: "high"}},
				FinalVerdict:        "x",
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if tt.wantErr {
				gt.Error(t, err)
				gt.B(t, errors.Is(err, model.ErrInvalidPayload)).True()
				return
			}
			gt.NoError(t, err)
		})
	}
}

func TestSimilarAnalysisRejectsUnknownAlternative(t *testing.T) {
	a := validSimilar()
	a.ComparisonMatrix[0].Values = append(a.ComparisonMatrix[0].Values, model.ComparisonCell{Alternative: "Aspirin", Value: "4h"})
	gt.Error(t, a.Validate())
}

func TestModePayloadCopy(t *testing.T) {
	orig := &model.ModePayload{Kind: model.PayloadKindSimilar, Similar: validSimilar()}
	copied := orig.Copy()
	gt.V(t, copied).Equal(orig)

	copied.Similar.Alternatives[0].Name = "changed"
	copied.Similar.ComparisonMatrix[0].Values[0].Value = "changed"
	gt.V(t, orig.Similar.Alternatives[0].Name).Equal("Naproxen")
	gt.V(t, orig.Similar.ComparisonMatrix[0].Values[0].Value).Equal("4-6h")

	var nilPayload *model.ModePayload
	gt.V(t, nilPayload.Copy()).Nil()
}

func TestNewModePayload(t *testing.T) {
	for _, mode := range types.AllMedicineModes() {
		t.Run(mode.String(), func(t *testing.T) {
			kind, err := model.PayloadKindOf(types.SearchKindMedicine, mode)
			gt.NoError(t, err).Required()

			v, err := model.NewVariant(kind)
			gt.NoError(t, err).Required()

			p, err := model.NewModePayload(v)
			gt.NoError(t, err).Required()
			gt.V(t, p.Kind).Equal(kind)
		})
	}

	_, err := model.PayloadKindOf(types.SearchKindMedicine, "unknown")
	gt.Error(t, err)
	gt.B(t, errors.Is(err, types.ErrUnsupportedMode)).True()
}

func TestErroredPlaceholders(t *testing.T) {
	t.Run("symptom", func(t *testing.T) {
		p := model.ErroredModePayload(types.SearchKindSymptom, "")
		gt.V(t, p.Kind).Equal(model.PayloadKindSymptom)
		gt.V(t, p.Symptom.FinalVerdict).Equal(model.PlaceholderUnavailable)
	})

	t.Run("medicine modes", func(t *testing.T) {
		for _, mode := range types.AllMedicineModes() {
			p := model.ErroredModePayload(types.SearchKindMedicine, mode)
			gt.V(t, p.Kind).Equal(model.PayloadKind(mode))
			n := 0
			for _, set := range []bool{p.Symptom != nil, p.Disease != nil, p.Name != nil, p.SideEffects != nil, p.Ingredient != nil, p.Similar != nil} {
				if set {
					n++
				}
			}
			gt.Number(t, n).Equal(1)
		}
	})

	t.Run("unknown mode falls back", func(t *testing.T) {
		p := model.ErroredModePayload(types.SearchKindMedicine, "unknown")
		gt.V(t, p.Kind).Equal(model.PayloadKindSymptom)
	})

	common := model.ErroredMedicineCommon()
	gt.NoError(t, common.Validate())
}

func TestErroredUpdate(t *testing.T) {
	t.Run("medicine record without title", func(t *testing.T) {
		rec := &model.SearchRecord{Kind: types.SearchKindMedicine, Mode: types.MedicineModeSimilar}
		upd := model.ErroredUpdate(rec, "retry exhausted", 1500*time.Millisecond)

		gt.Value(t, *upd.Status).Equal(types.SearchStatusErrored)
		gt.Value(t, *upd.Title).Equal(model.PlaceholderTitle)
		gt.Value(t, *upd.ErrorMessage).Equal("retry exhausted")
		gt.Value(t, *upd.DurationMs).Equal(int64(1500))
		gt.Value(t, upd.Common).NotNil()
		gt.Value(t, upd.Analysis.Kind).Equal(model.PayloadKindSimilar)
	})

	t.Run("symptom record keeps stage-1 title", func(t *testing.T) {
		rec := &model.SearchRecord{Kind: types.SearchKindSymptom, Title: "Headache with fever"}
		upd := model.ErroredUpdate(rec, "boom", 0)

		gt.Value(t, upd.Title).Nil()
		gt.Value(t, upd.Common).Nil()
		gt.Value(t, upd.Analysis.Kind).Equal(model.PayloadKindSymptom)
	})
}
