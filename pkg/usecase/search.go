package usecase

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/carelens/carelens/pkg/domain/interfaces"
	"github.com/carelens/carelens/pkg/domain/model"
	"github.com/carelens/carelens/pkg/domain/types"
	"github.com/carelens/carelens/pkg/service/worker"
	"github.com/carelens/carelens/pkg/utils/errutil"
	"github.com/carelens/carelens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Input limits, in runes
const (
	MaxSymptomsLength = 4000
	MaxQueryLength    = 1000
	MaxContextLength  = 2000

	MaxAge = 130

	DefaultListLimit = 20
	MaxListLimit     = 100
)

// SymptomInput is a symptom-flow submission. Age 0 means not given.
type SymptomInput struct {
	Symptoms           string
	Age                int
	Sex                string
	Duration           string
	ExistingConditions string
	Medications        string
	AdditionalInfo     string
}

// MedicineInput is a medicine-flow submission
type MedicineInput struct {
	Mode              string
	Query             string
	AdditionalContext string
}

// SubmitResult is returned by admission. Status is the record status when admission returned.
type SubmitResult struct {
	ID     model.SearchID
	Status types.SearchStatus
	Reused bool
}

// SearchUseCase admits submissions and serves the owner's records
type SearchUseCase struct {
	repo       interfaces.Repository
	dispatcher worker.Dispatcher
	generator  *Generator
	dedup      *dedupResolver
	now        func() time.Time
}

// SubmitSymptoms validates the input, creates a pending record and dispatches its generation
func (uc *SearchUseCase) SubmitSymptoms(ctx context.Context, owner model.OwnerID, input SymptomInput) (*SubmitResult, error) {
	if owner == "" {
		return nil, goerr.Wrap(ErrUnauthenticated, "owner is required")
	}

	symptoms := strings.TrimSpace(input.Symptoms)
	if symptoms == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "symptoms are required")
	}
	if err := checkLength("symptoms", symptoms, MaxSymptomsLength); err != nil {
		return nil, err
	}
	if input.Age < 0 || input.Age > MaxAge {
		return nil, goerr.Wrap(ErrInvalidInput, "age out of range", goerr.V("age", input.Age))
	}
	optional := map[string]string{
		"sex":                input.Sex,
		"duration":           input.Duration,
		"existingConditions": input.ExistingConditions,
		"medications":        input.Medications,
		"additionalInfo":     input.AdditionalInfo,
	}
	for field, value := range optional {
		if err := checkLength(field, value, MaxContextLength); err != nil {
			return nil, err
		}
	}

	rec, err := uc.repo.Search().Create(ctx, &model.SearchRecord{
		Owner: owner,
		Kind:  types.SearchKindSymptom,
		Input: model.SearchInput{
			Query:              symptoms,
			Age:                input.Age,
			Sex:                strings.TrimSpace(input.Sex),
			Duration:           strings.TrimSpace(input.Duration),
			ExistingConditions: strings.TrimSpace(input.ExistingConditions),
			Medications:        strings.TrimSpace(input.Medications),
			AdditionalInfo:     strings.TrimSpace(input.AdditionalInfo),
		},
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create search", goerr.V(OwnerKey, owner))
	}

	status := uc.dispatch(ctx, rec)
	return &SubmitResult{ID: rec.ID, Status: status}, nil
}

// SubmitMedicine validates the mode and query, then either returns the owner's existing record for
// the same query or creates and dispatches a new one. An unsupported mode creates nothing.
func (uc *SearchUseCase) SubmitMedicine(ctx context.Context, owner model.OwnerID, input MedicineInput) (*SubmitResult, error) {
	if owner == "" {
		return nil, goerr.Wrap(ErrUnauthenticated, "owner is required")
	}

	mode, err := types.ParseMedicineMode(input.Mode)
	if err != nil {
		return nil, goerr.Wrap(err, "cannot submit medicine search", goerr.V(ModeKey, input.Mode))
	}
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "query is required")
	}
	if err := checkLength("query", query, MaxQueryLength); err != nil {
		return nil, err
	}
	if err := checkLength("additionalContext", input.AdditionalContext, MaxContextLength); err != nil {
		return nil, err
	}

	qh := model.NewQueryHash(owner, mode, query)
	rec, created, err := uc.dedup.Admit(ctx, owner, qh, func() (*model.SearchRecord, error) {
		return uc.repo.Search().Create(ctx, &model.SearchRecord{
			Owner:     owner,
			Kind:      types.SearchKindMedicine,
			Mode:      mode,
			QueryHash: qh,
			Input: model.SearchInput{
				Query:          query,
				AdditionalInfo: strings.TrimSpace(input.AdditionalContext),
			},
		})
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to admit medicine search", goerr.V(OwnerKey, owner), goerr.V(ModeKey, mode))
	}

	if !created {
		logging.From(ctx).Info("medicine search reused", SearchIDKey, rec.ID, ModeKey, mode)
		return &SubmitResult{ID: rec.ID, Status: rec.Status, Reused: true}, nil
	}

	status := uc.dispatch(ctx, rec)
	return &SubmitResult{ID: rec.ID, Status: status}, nil
}

// dispatch hands rec to the dispatcher and returns the status observed afterwards.
// A record that cannot be dispatched is finalized as errored right away.
func (uc *SearchUseCase) dispatch(ctx context.Context, rec *model.SearchRecord) types.SearchStatus {
	ctx = logging.With(ctx, logging.From(ctx).With(SearchIDKey, rec.ID))

	job := func(ctx context.Context) error {
		_, err := uc.generator.Run(ctx, rec)
		return err
	}
	if err := uc.dispatcher.Dispatch(ctx, "generate_search", job); err != nil {
		errutil.Handle(ctx, err, "failed to dispatch search generation")
		if final, ferr := uc.generator.fail(ctx, rec, err, uc.now()); ferr == nil {
			return final.Status
		}
	}

	current, err := uc.repo.Search().Get(ctx, rec.ID)
	if err != nil {
		logging.From(ctx).Warn("failed to read search after dispatch", "error", err)
		return rec.Status
	}
	return current.Status
}

// Get returns the owner's record. Records of other owners are reported as not found.
func (uc *SearchUseCase) Get(ctx context.Context, owner model.OwnerID, id model.SearchID) (*model.SearchRecord, error) {
	if owner == "" {
		return nil, goerr.Wrap(ErrUnauthenticated, "owner is required")
	}

	rec, err := uc.repo.Search().Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, goerr.Wrap(ErrSearchNotFound, "search not found", goerr.V(SearchIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get search", goerr.V(SearchIDKey, id))
	}
	if rec.Owner != owner {
		return nil, goerr.Wrap(ErrSearchNotFound, "search not found", goerr.V(SearchIDKey, id))
	}
	return rec, nil
}

// List returns the owner's records newest first and the total count.
// kind may be empty. limit defaults to DefaultListLimit and is capped at MaxListLimit.
func (uc *SearchUseCase) List(ctx context.Context, owner model.OwnerID, kind string, limit, offset int) ([]*model.SearchRecord, int, error) {
	if owner == "" {
		return nil, 0, goerr.Wrap(ErrUnauthenticated, "owner is required")
	}

	var k types.SearchKind
	if kind != "" {
		parsed, err := types.ParseSearchKind(kind)
		if err != nil {
			return nil, 0, goerr.Wrap(ErrInvalidInput, "invalid kind", goerr.V("kind", kind))
		}
		k = parsed
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	if offset < 0 {
		return nil, 0, goerr.Wrap(ErrInvalidInput, "offset must not be negative", goerr.V("offset", offset))
	}

	records, total, err := uc.repo.Search().List(ctx, owner, k, limit, offset)
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to list searches", goerr.V(OwnerKey, owner))
	}
	return records, total, nil
}

// Delete removes the owner's record
func (uc *SearchUseCase) Delete(ctx context.Context, owner model.OwnerID, id model.SearchID) error {
	if _, err := uc.Get(ctx, owner, id); err != nil {
		return err
	}

	if _, err := uc.repo.Search().Delete(ctx, id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return goerr.Wrap(ErrSearchNotFound, "search not found", goerr.V(SearchIDKey, id))
		}
		return goerr.Wrap(err, "failed to delete search", goerr.V(SearchIDKey, id))
	}

	logging.From(ctx).Info("search deleted", SearchIDKey, id, OwnerKey, owner)
	return nil
}

func checkLength(field, value string, maxLen int) error {
	if n := utf8.RuneCountInString(value); n > maxLen {
		return goerr.Wrap(ErrInvalidInput, "input too long",
			goerr.V("field", field),
			goerr.V("length", n),
			goerr.V("max", maxLen))
	}
	return nil
}
