package schema_test

import (
	"encoding/json"
	"errors"
	"maps"
	"os"
	"path/filepath"
	"testing"

	"github.com/carelens/carelens/pkg/domain/model"
	"github.com/carelens/carelens/pkg/domain/types"
	"github.com/carelens/carelens/pkg/service/schema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
)

func loadFixture(t *testing.T, name string) map[string]any {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name+".json"))
	gt.NoError(t, err).Required()

	var v map[string]any
	gt.NoError(t, json.Unmarshal(raw, &v)).Required()
	return v
}

func requiredFields(p *gollem.Parameter) []string {
	var names []string
	for name, prop := range p.Properties {
		if prop.Required {
			names = append(names, name)
		}
	}
	return names
}

func medicineFixture(t *testing.T, mode types.MedicineMode) map[string]any {
	t.Helper()
	v := loadFixture(t, "common")
	maps.Copy(v, loadFixture(t, string(mode)))
	return v
}

func TestSummarySchema(t *testing.T) {
	reg := schema.NewRegistry()

	gt.NoError(t, reg.Summary().ValidateValue("$", map[string]any{"title": "Headache", "summary": "Three-day headache."}))

	err := reg.Summary().ValidateValue("$", map[string]any{"title": "Headache"})
	gt.Error(t, err).Is(gollem.ErrInvalidParameter)
}

func TestSymptomSchema(t *testing.T) {
	reg := schema.NewRegistry()
	fixture := loadFixture(t, "symptom")

	gt.NoError(t, reg.Symptom().ValidateValue("$", fixture)).Required()

	raw, err := json.Marshal(fixture)
	gt.NoError(t, err).Required()
	var analysis model.SymptomAnalysis
	gt.NoError(t, json.Unmarshal(raw, &analysis)).Required()
	gt.NoError(t, analysis.Validate())
	gt.Value(t, analysis.PotentialConditions[0].Name).Equal("Viral upper respiratory infection")

	t.Run("suggested medicines are optional", func(t *testing.T) {
		v := loadFixture(t, "symptom")
		delete(v, "suggestedMedicines")
		gt.NoError(t, reg.Symptom().ValidateValue("$", v))
	})
}

func TestMedicineSchemaCompleteness(t *testing.T) {
	reg := schema.NewRegistry()

	for _, mode := range types.AllMedicineModes() {
		t.Run(mode.String(), func(t *testing.T) {
			s, err := reg.Medicine(mode)
			gt.NoError(t, err).Required()
			gt.Value(t, s.Type).Equal(gollem.TypeObject)

			fixture := medicineFixture(t, mode)
			gt.NoError(t, s.ValidateValue("$", fixture)).Required()

			raw, err := json.Marshal(fixture)
			gt.NoError(t, err).Required()

			var common model.MedicineCommon
			gt.NoError(t, json.Unmarshal(raw, &common)).Required()
			gt.NoError(t, common.Validate())

			kind, err := model.PayloadKindOf(types.SearchKindMedicine, mode)
			gt.NoError(t, err).Required()
			variant, err := model.NewVariant(kind)
			gt.NoError(t, err).Required()
			gt.NoError(t, json.Unmarshal(raw, variant)).Required()
			gt.NoError(t, variant.Validate())

			for _, field := range requiredFields(s) {
				t.Run("missing "+field, func(t *testing.T) {
					broken := medicineFixture(t, mode)
					delete(broken, field)
					gt.Error(t, s.ValidateValue("$", broken)).Is(gollem.ErrInvalidParameter)
				})
			}
		})
	}
}

func TestMedicineSchemaRequiredFields(t *testing.T) {
	reg := schema.NewRegistry()

	nameSchema, err := reg.Medicine(types.MedicineModeName)
	gt.NoError(t, err).Required()
	gt.Array(t, requiredFields(nameSchema)).Has("dosingGuidance")
	gt.Array(t, requiredFields(nameSchema)).Has("contraindications")
	gt.Array(t, requiredFields(nameSchema)).Has("clinicalActions")
	gt.Bool(t, nameSchema.Properties["dosingGuidance"].Items.Properties["dose"].Required).True()
	gt.Bool(t, nameSchema.Properties["brandNames"].Required).False()

	similarSchema, err := reg.Medicine(types.MedicineModeSimilar)
	gt.NoError(t, err).Required()
	gt.Array(t, requiredFields(similarSchema)).Has("comparisonMatrix")
	gt.Array(t, requiredFields(similarSchema)).Has("alternatives")
}

func TestMedicineSchemaUnsupportedMode(t *testing.T) {
	reg := schema.NewRegistry()

	_, err := reg.Medicine("unknown")
	gt.Error(t, err).Is(types.ErrUnsupportedMode)
	gt.Bool(t, goerr.HasTag(err, schema.ErrTagUnsupported)).True()
}

func TestRegistryReturnsCopies(t *testing.T) {
	reg := schema.NewRegistry()

	s := reg.Symptom()
	s.Properties["finalVerdict"].Required = false
	s.Properties["finalVerdict"].Type = gollem.TypeInteger

	fresh := reg.Symptom()
	gt.Array(t, requiredFields(fresh)).Length(5)
	gt.Value(t, fresh.Properties["finalVerdict"].Type).Equal(gollem.TypeString)
}

func TestResponseValidation(t *testing.T) {
	s := &gollem.Parameter{
		Type: gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"name":  {Type: gollem.TypeString, Required: true},
			"count": {Type: gollem.TypeInteger},
			"ratio": {Type: gollem.TypeNumber},
			"ok":    {Type: gollem.TypeBoolean},
			"tags": {
				Type:  gollem.TypeArray,
				Items: &gollem.Parameter{Type: gollem.TypeString},
			},
		},
	}

	tests := []struct {
		name    string
		value   any
		wantErr bool
	}{
		{name: "valid", value: map[string]any{"name": "x", "count": 2.0, "ratio": 0.5, "ok": true, "tags": []any{"a"}}},
		{name: "not an object", value: []any{}, wantErr: true},
		{name: "missing required", value: map[string]any{"count": 1.0}, wantErr: true},
		{name: "null required", value: map[string]any{"name": nil}, wantErr: true},
		{name: "fractional integer", value: map[string]any{"name": "x", "count": 1.5}, wantErr: true},
		{name: "wrong item type", value: map[string]any{"name": "x", "tags": []any{"a", 1.0}}, wantErr: true},
		{name: "wrong boolean", value: map[string]any{"name": "x", "ok": "yes"}, wantErr: true},
		{name: "optional null is fine", value: map[string]any{"name": "x", "tags": nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.ValidateValue("$", tt.value)
			if !tt.wantErr {
				gt.NoError(t, err)
				return
			}
			gt.Error(t, err).Is(gollem.ErrInvalidParameter)
		})
	}
}

func TestResponseValidationReportsPath(t *testing.T) {
	reg := schema.NewRegistry()
	s, err := reg.Medicine(types.MedicineModeSimilar)
	gt.NoError(t, err).Required()

	v := medicineFixture(t, types.MedicineModeSimilar)
	rows := v["comparisonMatrix"].([]any)
	cells := rows[0].(map[string]any)["values"].([]any)
	delete(cells[1].(map[string]any), "value")

	err = s.ValidateValue("$", v)
	gt.Error(t, err).Is(gollem.ErrInvalidParameter)

	var ge *goerr.Error
	gt.Bool(t, errors.As(err, &ge)).True().Required()
	gt.Value(t, ge.Values()["parameter"]).Equal("$.comparisonMatrix[0].values[1].value")
}
