package schema

import (
	"maps"
	"slices"

	"github.com/carelens/carelens/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

// ErrTagUnsupported marks a request for a mode with no schema. It is a programming error and is never retried.
var ErrTagUnsupported = goerr.NewTag("unsupported_mode")

// Registry returns the structured-output schemas of every generation stage.
// Every call returns a fresh copy, so callers may modify the result.
type Registry struct {
	summary  *gollem.Parameter
	symptom  *gollem.Parameter
	medicine map[types.MedicineMode]*gollem.Parameter
}

// NewRegistry builds every schema once
func NewRegistry() *Registry {
	r := &Registry{
		summary:  summarySchema(),
		symptom:  symptomSchema(),
		medicine: make(map[types.MedicineMode]*gollem.Parameter),
	}
	for mode, build := range modeSchemas {
		r.medicine[mode] = merge("MedicineAnalysis_"+string(mode), commonSchema(), build())
	}
	return r
}

// Summary is the stage-1 schema: a short title and a normalized clinical summary
func (r *Registry) Summary() *gollem.Parameter {
	return clone(r.summary)
}

// Symptom is the full-analysis schema of the symptom flow
func (r *Registry) Symptom() *gollem.Parameter {
	return clone(r.symptom)
}

// Medicine is the common medicine schema unioned with the schema of mode
func (r *Registry) Medicine(mode types.MedicineMode) (*gollem.Parameter, error) {
	p, ok := r.medicine[mode]
	if !ok {
		return nil, goerr.Wrap(types.ErrUnsupportedMode, "no schema for medicine mode",
			goerr.V("mode", mode),
			goerr.T(ErrTagUnsupported))
	}
	return clone(p), nil
}

// merge unions the properties of two object schemas. Each property keeps its own required flag.
func merge(title string, a, b *gollem.Parameter) *gollem.Parameter {
	props := make(map[string]*gollem.Parameter, len(a.Properties)+len(b.Properties))
	maps.Copy(props, a.Properties)
	maps.Copy(props, b.Properties)

	return &gollem.Parameter{
		Title:       title,
		Description: b.Description,
		Type:        gollem.TypeObject,
		Properties:  props,
	}
}

func clone(p *gollem.Parameter) *gollem.Parameter {
	if p == nil {
		return nil
	}
	copied := *p
	copied.Enum = slices.Clone(p.Enum)
	copied.Items = clone(p.Items)
	if p.Properties != nil {
		copied.Properties = make(map[string]*gollem.Parameter, len(p.Properties))
		for k, v := range p.Properties {
			copied.Properties[k] = clone(v)
		}
	}
	return &copied
}

func str(desc string) *gollem.Parameter {
	return &gollem.Parameter{Type: gollem.TypeString, Description: desc}
}

func strList(desc string) *gollem.Parameter {
	return &gollem.Parameter{
		Type:        gollem.TypeArray,
		Description: desc,
		Items:       &gollem.Parameter{Type: gollem.TypeString},
	}
}

func objList(desc string, props map[string]*gollem.Parameter, required ...string) *gollem.Parameter {
	return &gollem.Parameter{
		Type:        gollem.TypeArray,
		Description: desc,
		Items: require(&gollem.Parameter{
			Type:       gollem.TypeObject,
			Properties: props,
		}, required...),
	}
}

// require marks the named properties of an object schema as required
func require(p *gollem.Parameter, names ...string) *gollem.Parameter {
	for _, name := range names {
		p.Properties[name].Required = true
	}
	return p
}

