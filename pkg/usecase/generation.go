package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/carelens/carelens/pkg/domain/interfaces"
	"github.com/carelens/carelens/pkg/domain/model"
	"github.com/carelens/carelens/pkg/domain/types"
	"github.com/carelens/carelens/pkg/service/genai"
	"github.com/carelens/carelens/pkg/service/schema"
	"github.com/carelens/carelens/pkg/utils/errutil"
	"github.com/carelens/carelens/pkg/utils/logging"
	"github.com/carelens/carelens/pkg/utils/retry"
	"github.com/m-mizutani/goerr/v2"
)

// finalWriteTimeout bounds the write that moves a failed record to errored
const finalWriteTimeout = 10 * time.Second

// ProfileProvider returns the owner's profile as an opaque text block for the analysis prompt
type ProfileProvider interface {
	Profile(ctx context.Context, owner model.OwnerID) (string, error)
}

type noProfile struct{}

func (noProfile) Profile(context.Context, model.OwnerID) (string, error) { return "", nil }

// ProfileFunc adapts a function to ProfileProvider
type ProfileFunc func(ctx context.Context, owner model.OwnerID) (string, error)

func (f ProfileFunc) Profile(ctx context.Context, owner model.OwnerID) (string, error) {
	return f(ctx, owner)
}

// Generator drives a pending record through summary, cache lookup and full analysis to a terminal status
type Generator struct {
	repo     interfaces.Repository
	executor genai.Executor
	retrier  *retry.Retrier
	registry *schema.Registry
	profiles ProfileProvider
	dedup    *dedupResolver
	now      func() time.Time
}

type summaryResult struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

func (s *summaryResult) Validate() error {
	if s.Title == "" || s.Summary == "" {
		return goerr.Wrap(model.ErrInvalidPayload, "summary result has empty fields")
	}
	return nil
}

// Run generates the analysis of rec. Generation failures end in an errored record, not an error;
// an error is returned only when the record could not be finalized at all.
func (g *Generator) Run(ctx context.Context, rec *model.SearchRecord) (result *model.SearchRecord, err error) {
	start := g.now()
	ctx = logging.With(ctx, logging.From(ctx).With(
		SearchIDKey, rec.ID,
		"kind", rec.Kind,
		ModeKey, rec.Mode,
		OwnerKey, rec.Owner,
	))

	current := rec
	defer func() {
		if r := recover(); r != nil {
			genErr := goerr.New("panic during generation", goerr.V("panic", fmt.Sprint(r)), goerr.V(SearchIDKey, rec.ID))
			result, err = g.fail(ctx, current, genErr, start)
		}
	}()

	final, genErr := g.generate(ctx, rec, &current, start)
	if genErr != nil {
		return g.fail(ctx, current, genErr, start)
	}
	return final, nil
}

func (g *Generator) generate(ctx context.Context, rec *model.SearchRecord, current **model.SearchRecord, start time.Time) (*model.SearchRecord, error) {
	if g.executor == nil {
		return nil, goerr.New("no model executor configured")
	}
	repo := g.repo.Search()
	logger := logging.From(ctx)

	// Stage 1
	head, err := g.summarize(ctx, rec)
	if err != nil {
		return nil, err
	}
	fp := model.NewFingerprint(rec.Kind, rec.Mode, head.Summary)

	updated, err := repo.Update(ctx, rec.ID, &model.SearchUpdate{
		Title:       model.Ptr(head.Title),
		Summary:     model.Ptr(head.Summary),
		Fingerprint: model.Ptr(fp),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to save summary", goerr.V(SearchIDKey, rec.ID))
	}
	*current = updated
	logger.Debug("summary saved", "fingerprint", fp)

	// Cache lookup
	if cached := g.dedup.ResolveByFingerprint(ctx, fp); cached != nil {
		logger.Info("reusing analysis", "reused_from", cached.SourceID)
		final, err := repo.Update(ctx, rec.ID, &model.SearchUpdate{
			Status:     model.Ptr(types.SearchStatusReady),
			Common:     cached.Common,
			Analysis:   cached.Analysis,
			ReusedFrom: model.Ptr(cached.SourceID),
			DurationMs: model.Ptr(g.now().Sub(start).Milliseconds()),
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to save reused analysis", goerr.V(SearchIDKey, rec.ID))
		}
		return final, nil
	}

	// Stage 2
	common, analysis, err := g.analyze(ctx, updated)
	if err != nil {
		return nil, err
	}

	final, err := repo.Update(ctx, rec.ID, &model.SearchUpdate{
		Status:     model.Ptr(types.SearchStatusReady),
		Common:     common,
		Analysis:   analysis,
		DurationMs: model.Ptr(g.now().Sub(start).Milliseconds()),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to save analysis", goerr.V(SearchIDKey, rec.ID))
	}
	logger.Info("analysis ready", "duration_ms", final.DurationMs)
	return final, nil
}

func (g *Generator) summarize(ctx context.Context, rec *model.SearchRecord) (*summaryResult, error) {
	sys, err := systemPrompt()
	if err != nil {
		return nil, err
	}
	prompt, err := renderPrompt("summary.md", newPromptData(rec))
	if err != nil {
		return nil, err
	}
	req := genai.Request{
		Label:        "summary",
		SystemPrompt: sys,
		Prompt:       prompt,
		Schema:       g.registry.Summary(),
	}

	return retry.Value(ctx, g.retrier, func() (*summaryResult, error) {
		raw, err := g.executor.Execute(ctx, req)
		if err != nil {
			return nil, err
		}
		var head summaryResult
		if err := genai.Decode(raw, &head); err != nil {
			return nil, err
		}
		return &head, nil
	})
}

type analysisResult struct {
	common   *model.MedicineCommon
	analysis *model.ModePayload
}

func (g *Generator) analyze(ctx context.Context, rec *model.SearchRecord) (*model.MedicineCommon, *model.ModePayload, error) {
	// Resolved before the retry loop: an unsupported mode is fatal and never retried
	kind, err := model.PayloadKindOf(rec.Kind, rec.Mode)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "cannot analyze record", goerr.T(schema.ErrTagUnsupported))
	}
	responseSchema := g.registry.Symptom()
	if rec.Kind == types.SearchKindMedicine {
		if responseSchema, err = g.registry.Medicine(rec.Mode); err != nil {
			return nil, nil, err
		}
	}

	data := newPromptData(rec)
	data.Profile, err = g.profiles.Profile(ctx, rec.Owner)
	if err != nil {
		logging.From(ctx).Warn("profile unavailable, continuing without it", "error", err)
		data.Profile = ""
	}

	sys, err := systemPrompt()
	if err != nil {
		return nil, nil, err
	}
	prompt, err := renderPrompt("analysis.md", data)
	if err != nil {
		return nil, nil, err
	}
	req := genai.Request{
		Label:        "analysis_" + string(kind),
		SystemPrompt: sys,
		Prompt:       prompt,
		Schema:       responseSchema,
	}

	res, err := retry.Value(ctx, g.retrier, func() (*analysisResult, error) {
		raw, err := g.executor.Execute(ctx, req)
		if err != nil {
			return nil, err
		}
		return decodeAnalysis(raw, rec.Kind, kind)
	})
	if err != nil {
		return nil, nil, err
	}
	return res.common, res.analysis, nil
}

func decodeAnalysis(raw json.RawMessage, searchKind types.SearchKind, kind model.PayloadKind) (*analysisResult, error) {
	variant, err := model.NewVariant(kind)
	if err != nil {
		return nil, err
	}

	res := &analysisResult{}
	targets := []any{variant}
	if searchKind == types.SearchKindMedicine {
		res.common = &model.MedicineCommon{}
		targets = append(targets, res.common)
	}
	if err := genai.Decode(raw, targets...); err != nil {
		return nil, err
	}

	res.analysis, err = model.NewModePayload(variant)
	if err != nil {
		return nil, err
	}
	if err := res.analysis.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid analysis payload", goerr.T(genai.ErrTagParse))
	}
	return res, nil
}

// fail finalizes rec as errored with placeholder analysis. The write does not use the caller's
// cancellation so a dropped client cannot leave the record pending.
func (g *Generator) fail(ctx context.Context, rec *model.SearchRecord, cause error, start time.Time) (*model.SearchRecord, error) {
	errutil.Handle(ctx, cause, "search generation failed")

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalWriteTimeout)
	defer cancel()

	msg := fmt.Sprintf("[%s] %s", genai.Kind(cause), cause.Error())
	final, err := g.repo.Search().Update(writeCtx, rec.ID, model.ErroredUpdate(rec, msg, g.now().Sub(start)))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to mark search as errored",
			goerr.V(SearchIDKey, rec.ID),
			goerr.V("cause", cause.Error()))
	}
	return final, nil
}
