package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/carelens/carelens/pkg/cli/config"
	"github.com/carelens/carelens/pkg/domain/model"
	"github.com/carelens/carelens/pkg/domain/types"
	"github.com/carelens/carelens/pkg/repository/memory"
	"github.com/carelens/carelens/pkg/service/archive"
	"github.com/carelens/carelens/pkg/service/worker"
	"github.com/carelens/carelens/pkg/usecase"
	"github.com/carelens/carelens/pkg/utils/safe"
	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const localOwner = model.OwnerID("local")

func cmdAnalyze() *cli.Command {
	var kind string
	var mode string
	var symptom usecase.SymptomInput
	var additionalContext string
	var geminiCfg config.Gemini
	var pipelineCfg config.Pipeline

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "kind",
			Aliases:     []string{"k"},
			Usage:       "Search kind (symptom or medicine)",
			Value:       string(types.SearchKindSymptom),
			Destination: &kind,
		},
		&cli.StringFlag{
			Name:        "mode",
			Usage:       "Medicine search mode (disease, name, sideEffects, ingredient, similar)",
			Value:       string(types.MedicineModeName),
			Destination: &mode,
		},
		&cli.IntFlag{
			Name:        "age",
			Usage:       "Patient age (symptom search)",
			Destination: &symptom.Age,
		},
		&cli.StringFlag{
			Name:        "sex",
			Usage:       "Patient sex (symptom search)",
			Destination: &symptom.Sex,
		},
		&cli.StringFlag{
			Name:        "duration",
			Usage:       "How long the symptoms have lasted (symptom search)",
			Destination: &symptom.Duration,
		},
		&cli.StringFlag{
			Name:        "conditions",
			Usage:       "Existing conditions (symptom search)",
			Destination: &symptom.ExistingConditions,
		},
		&cli.StringFlag{
			Name:        "medications",
			Usage:       "Current medications (symptom search)",
			Destination: &symptom.Medications,
		},
		&cli.StringFlag{
			Name:        "context",
			Usage:       "Additional information for either search kind",
			Destination: &additionalContext,
		},
	}
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, pipelineCfg.Flags()...)

	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Run one search locally and print the report",
		ArgsUsage: "<symptoms or query>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return goerr.New("symptoms or query text is required")
			}

			searchKind, err := types.ParseSearchKind(kind)
			if err != nil {
				return goerr.Wrap(err, "invalid --kind")
			}

			pipeline, err := pipelineCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load pipeline config")
			}

			executor, err := geminiCfg.Executor(ctx, archive.Noop{})
			if err != nil {
				return goerr.Wrap(err, "failed to initialize Gemini")
			}
			if executor == nil {
				return goerr.New("--gemini-project is required for analyze")
			}

			repo := memory.New()
			defer safe.Close(ctx, repo)

			uc := usecase.New(repo,
				usecase.WithExecutor(executor),
				usecase.WithDispatcher(worker.Inline{}),
				usecase.WithRetrier(pipeline.Retrier()),
			)

			var result *usecase.SubmitResult
			switch searchKind {
			case types.SearchKindSymptom:
				symptom.Symptoms = query
				symptom.AdditionalInfo = additionalContext
				result, err = uc.Search.SubmitSymptoms(ctx, localOwner, symptom)
			case types.SearchKindMedicine:
				result, err = uc.Search.SubmitMedicine(ctx, localOwner, usecase.MedicineInput{
					Mode:              mode,
					Query:             query,
					AdditionalContext: additionalContext,
				})
			}
			if err != nil {
				return err
			}

			rec, err := uc.Search.Get(ctx, localOwner, result.ID)
			if err != nil {
				return err
			}
			printReport(os.Stdout, rec)

			if rec.Status != types.SearchStatusReady {
				return goerr.New("analysis did not complete", goerr.V("error", rec.ErrorMessage))
			}
			return nil
		},
	}
}

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	sectionColor = color.New(color.FgYellow, color.Bold)
	alertColor   = color.New(color.FgRed)
	mutedColor   = color.New(color.Faint)
)

func printReport(w io.Writer, rec *model.SearchRecord) {
	_, _ = headingColor.Fprintln(w, rec.Title)
	_, _ = mutedColor.Fprintf(w, "%s / %s in %dms\n", rec.Kind, rec.Status, rec.DurationMs)
	if rec.Summary != "" {
		_, _ = fmt.Fprintln(w, rec.Summary)
	}
	if rec.Status == types.SearchStatusErrored {
		_, _ = alertColor.Fprintln(w, rec.ErrorMessage)
		return
	}

	if a := rec.Analysis; a != nil {
		switch {
		case a.Symptom != nil:
			printSymptom(w, a.Symptom)
		case a.Disease != nil:
			s := a.Disease
			section(w, "Overview", s.DiseaseOverview)
			lines := make([]string, 0, len(s.FirstLineTreatments))
			for _, t := range s.FirstLineTreatments {
				lines = append(lines, fmt.Sprintf("%s (%s) %s", t.Name, t.DrugClass, t.Notes))
			}
			list(w, "First-line treatments", lines)
			list(w, "Adjunct therapies", s.AdjunctTherapies)
			list(w, "Lifestyle measures", s.LifestyleMeasures)
		case a.Name != nil:
			s := a.Name
			section(w, "Medicine", fmt.Sprintf("%s (%s)", s.GenericName, s.DrugClass))
			list(w, "Brand names", s.BrandNames)
			list(w, "Indications", s.Indications)
			lines := make([]string, 0, len(s.DosingGuidance))
			for _, d := range s.DosingGuidance {
				lines = append(lines, fmt.Sprintf("%s: %s %s, max %s", d.Population, d.Dose, d.Frequency, d.MaxDaily))
			}
			list(w, "Dosing", lines)
			list(w, "Contraindications", s.Contraindications)
			list(w, "Common side effects", s.CommonSideEffects)
		case a.SideEffects != nil:
			s := a.SideEffects
			lines := make([]string, 0, len(s.SuspectedMedicines))
			for _, m := range s.SuspectedMedicines {
				lines = append(lines, fmt.Sprintf("%s [%s] %s", m.Name, m.Likelihood, m.Mechanism))
			}
			list(w, "Suspected medicines", lines)
			section(w, "Severity", s.SeverityAssessment)
			list(w, "Management", s.ManagementSteps)
			alerts(w, "Stop immediately if", s.StopImmediatelyIf)
		case a.Ingredient != nil:
			s := a.Ingredient
			lines := make([]string, 0, len(s.ActiveIngredients))
			for _, i := range s.ActiveIngredients {
				lines = append(lines, fmt.Sprintf("%s %s (%s)", i.Name, i.Strength, i.Role))
			}
			list(w, "Active ingredients", lines)
			section(w, "Pharmacology", s.Pharmacology)
			list(w, "Products", s.Products)
			alerts(w, "Allergen warnings", s.AllergenWarnings)
		case a.Similar != nil:
			s := a.Similar
			section(w, "Reference", s.Reference)
			lines := make([]string, 0, len(s.Alternatives))
			for _, alt := range s.Alternatives {
				lines = append(lines, fmt.Sprintf("%s [%s] %s", alt.Name, alt.Kind, alt.Notes))
			}
			list(w, "Alternatives", lines)
			for _, row := range s.ComparisonMatrix {
				cells := make([]string, 0, len(row.Values))
				for _, v := range row.Values {
					cells = append(cells, v.Alternative+": "+v.Value)
				}
				section(w, row.Attribute, strings.Join(cells, " | "))
			}
		}
	}

	if c := rec.Common; c != nil {
		list(w, "Clinical actions", c.ClinicalActions)
		alerts(w, "Risk alerts", c.RiskAlerts)
		list(w, "Interactions", c.InteractionNotes)
		list(w, "Monitoring", c.MonitoringGuidance)
		refs := make([]string, 0, len(c.References))
		for _, r := range c.References {
			refs = append(refs, r.Title+" ("+r.Source+")")
		}
		list(w, "References", refs)
		_, _ = mutedColor.Fprintln(w, "\n"+c.Disclaimer)
	}
}

func printSymptom(w io.Writer, s *model.SymptomAnalysis) {
	lines := make([]string, 0, len(s.PotentialConditions))
	for _, c := range s.PotentialConditions {
		lines = append(lines, fmt.Sprintf("%s [%s] %s", c.Name, c.Likelihood, c.Description))
	}
	list(w, "Potential conditions", lines)

	lines = make([]string, 0, len(s.SuggestedMedicines))
	for _, m := range s.SuggestedMedicines {
		lines = append(lines, fmt.Sprintf("%s: %s, %s (%s)", m.Name, m.Purpose, m.Dosage, m.Cautions))
	}
	list(w, "Suggested medicines", lines)
	alerts(w, "When to seek help", s.WhenToSeekHelp)
	list(w, "Self-care checklist", s.SelfCareChecklist)
	list(w, "Relief ideas", s.ReliefIdeas)
	section(w, "Verdict", s.FinalVerdict)
}

func section(w io.Writer, title, body string) {
	if body == "" {
		return
	}
	_, _ = sectionColor.Fprintln(w, "\n"+title)
	_, _ = fmt.Fprintln(w, "  "+body)
}

func list(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	_, _ = sectionColor.Fprintln(w, "\n"+title)
	for _, item := range items {
		_, _ = fmt.Fprintln(w, "  - "+item)
	}
}

func alerts(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	_, _ = sectionColor.Fprintln(w, "\n"+title)
	for _, item := range items {
		_, _ = alertColor.Fprintln(w, "  ! "+item)
	}
}
