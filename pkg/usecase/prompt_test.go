package usecase_test

import (
	"strings"
	"testing"

	"github.com/carelens/carelens/pkg/domain/model"
	"github.com/carelens/carelens/pkg/domain/types"
	"github.com/carelens/carelens/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func TestRenderPrompt(t *testing.T) {
	symptom := &model.SearchRecord{
		Kind: types.SearchKindSymptom,
		Input: model.SearchInput{
			Query:    "persistent headache",
			Age:      40,
			Duration: "3 days",
		},
		Summary: "Three days of headache in a 40 year old.",
	}
	medicine := &model.SearchRecord{
		Kind:    types.SearchKindMedicine,
		Mode:    types.MedicineModeSimilar,
		Input:   model.SearchInput{Query: "ibuprofen"},
		Summary: "Alternatives to ibuprofen.",
	}

	t.Run("summary for symptoms", func(t *testing.T) {
		out, err := usecase.RenderPrompt("summary.md", symptom, "")
		gt.NoError(t, err).Required()
		gt.String(t, out).Contains("Symptoms: persistent headache")
		gt.String(t, out).Contains("Age: 40")
		gt.String(t, out).Contains("Duration: 3 days")
		gt.Bool(t, containsAny(out, "Sex:", "Current medications:")).False()
	})

	t.Run("summary for medicine carries the mode instruction", func(t *testing.T) {
		out, err := usecase.RenderPrompt("summary.md", medicine, "")
		gt.NoError(t, err).Required()
		gt.String(t, out).Contains("## Medicine request (similar)")
		gt.String(t, out).Contains("comparison matrix")
		gt.String(t, out).Contains("Query: ibuprofen")
	})

	t.Run("analysis without profile", func(t *testing.T) {
		out, err := usecase.RenderPrompt("analysis.md", symptom, "")
		gt.NoError(t, err).Required()
		gt.String(t, out).Contains("## Request summary")
		gt.String(t, out).Contains("Three days of headache")
		gt.Bool(t, containsAny(out, "## Patient profile")).False()
	})

	t.Run("analysis with profile", func(t *testing.T) {
		out, err := usecase.RenderPrompt("analysis.md", medicine, "Pregnant, 20 weeks")
		gt.NoError(t, err).Required()
		gt.String(t, out).Contains("## Patient profile")
		gt.String(t, out).Contains("Pregnant, 20 weeks")
		gt.String(t, out).Contains("## Task (similar)")
	})
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
