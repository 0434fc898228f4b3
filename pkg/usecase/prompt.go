package usecase

import (
	"bytes"
	"embed"
	"text/template"

	"github.com/carelens/carelens/pkg/domain/model"
	"github.com/carelens/carelens/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed prompt/*.md
var promptFS embed.FS

var promptTemplates = template.Must(template.New("prompt").ParseFS(promptFS, "prompt/*.md"))

// modeInstructions tells the model what each medicine mode asks for
var modeInstructions = map[types.MedicineMode]string{
	types.MedicineModeDisease:     "The query names a disease or condition. Describe it briefly and list first-line treatments, adjunct therapies and lifestyle measures.",
	types.MedicineModeName:        "The query names a medicine. Give its generic name, brands, class, indications, dosing guidance by population and contraindications.",
	types.MedicineModeSideEffects: "The query describes side effects. Identify the medicines most likely responsible, assess severity, and explain management and when to stop.",
	types.MedicineModeIngredient:  "The query names an active ingredient. Describe the ingredients involved, their pharmacology, products that contain them and allergen warnings.",
	types.MedicineModeSimilar:     "The query names a medicine. List alternatives and compare them in a matrix; every cell must name the reference medicine or one of the listed alternatives.",
}

type promptData struct {
	Kind            string
	Mode            string
	ModeInstruction string
	Input           model.SearchInput
	Summary         string
	Profile         string
}

func newPromptData(rec *model.SearchRecord) promptData {
	return promptData{
		Kind:            rec.Kind.String(),
		Mode:            rec.Mode.String(),
		ModeInstruction: modeInstructions[rec.Mode],
		Input:           rec.Input,
		Summary:         rec.Summary,
	}
}

func renderPrompt(name string, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", goerr.Wrap(err, "failed to render prompt", goerr.V("template", name))
	}
	return buf.String(), nil
}

func systemPrompt() (string, error) {
	return renderPrompt("system.md", promptData{})
}
