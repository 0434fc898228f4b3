package model_test

import (
	"testing"

	"github.com/carelens/carelens/pkg/domain/model"
	"github.com/carelens/carelens/pkg/domain/types"
	"github.com/m-mizutani/gt"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "already normalized", input: "tension headache", want: "tension headache"},
		{name: "trims edges", input: "  tension headache\n", want: "tension headache"},
		{name: "collapses runs", input: "tension \t\n  headache", want: "tension headache"},
		{name: "lowercases", input: "Tension HEADACHE", want: "tension headache"},
		{name: "empty", input: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.V(t, model.NormalizeText(tt.input)).Equal(tt.want)
		})
	}
}

func TestNewFingerprint(t *testing.T) {
	const summary = "Three-day headache with mild fever, suggestive of a viral illness."

	t.Run("deterministic", func(t *testing.T) {
		a := model.NewFingerprint(types.SearchKindSymptom, "", summary)
		b := model.NewFingerprint(types.SearchKindSymptom, "", summary)
		gt.V(t, a).Equal(b)
		gt.Number(t, len(a)).Equal(64)
	})

	t.Run("whitespace and case variation collapse", func(t *testing.T) {
		a := model.NewFingerprint(types.SearchKindSymptom, "", summary)
		b := model.NewFingerprint(types.SearchKindSymptom, "", "  three-day HEADACHE with mild   fever,\nsuggestive of a viral illness. ")
		gt.V(t, a).Equal(b)
	})

	t.Run("different text differs", func(t *testing.T) {
		a := model.NewFingerprint(types.SearchKindSymptom, "", summary)
		b := model.NewFingerprint(types.SearchKindSymptom, "", "Sudden chest pain radiating to the left arm.")
		gt.V(t, a).NotEqual(b)
	})

	t.Run("scoped by kind and mode", func(t *testing.T) {
		name := model.NewFingerprint(types.SearchKindMedicine, types.MedicineModeName, "ibuprofen")
		ingredient := model.NewFingerprint(types.SearchKindMedicine, types.MedicineModeIngredient, "ibuprofen")
		symptom := model.NewFingerprint(types.SearchKindSymptom, "", "ibuprofen")
		gt.V(t, name).NotEqual(ingredient)
		gt.V(t, name).NotEqual(symptom)
	})

	t.Run("separator prevents boundary collisions", func(t *testing.T) {
		a := model.NewFingerprint(types.SearchKindMedicine, types.MedicineMode("name"), "x")
		b := model.NewFingerprint(types.SearchKindMedicine, types.MedicineMode("namex"), "")
		gt.V(t, a).NotEqual(b)
	})
}

func TestNewQueryHash(t *testing.T) {
	a := model.NewQueryHash("user-1", types.MedicineModeName, "Ibuprofen")
	gt.V(t, a).Equal(model.NewQueryHash("user-1", types.MedicineModeName, "  ibuprofen "))
	gt.V(t, a).NotEqual(model.NewQueryHash("user-2", types.MedicineModeName, "ibuprofen"))
	gt.V(t, a).NotEqual(model.NewQueryHash("user-1", types.MedicineModeSimilar, "ibuprofen"))
}
