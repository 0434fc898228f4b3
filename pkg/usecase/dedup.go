package usecase

import (
	"context"

	"github.com/carelens/carelens/pkg/domain/interfaces"
	"github.com/carelens/carelens/pkg/domain/model"
	"github.com/carelens/carelens/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/singleflight"
)

// CachedAnalysis is the reusable part of a ready record. Title and summary are never reused.
type CachedAnalysis struct {
	SourceID model.SearchID
	Common   *model.MedicineCommon
	Analysis *model.ModePayload
}

// dedupResolver looks up earlier results so expensive generation can be skipped
type dedupResolver struct {
	repo interfaces.Repository
	// collapses concurrent identical medicine submissions within this process
	flight singleflight.Group
}

func newDedupResolver(repo interfaces.Repository) *dedupResolver {
	return &dedupResolver{repo: repo}
}

// ResolveByFingerprint returns a copy of the analysis of a ready record with the fingerprint, or nil.
// Lookup errors count as a miss: the cache is an optimization.
func (d *dedupResolver) ResolveByFingerprint(ctx context.Context, fp model.Fingerprint) *CachedAnalysis {
	rec, err := d.repo.Search().FindReadyByFingerprint(ctx, fp)
	if err != nil {
		logging.From(ctx).Warn("fingerprint lookup failed, generating instead",
			"fingerprint", fp,
			"error", err)
		return nil
	}
	if rec == nil || rec.Analysis == nil {
		return nil
	}

	return &CachedAnalysis{
		SourceID: rec.ID,
		Common:   rec.Common.Copy(),
		Analysis: rec.Analysis.Copy(),
	}
}

// ResolveByQueryHash returns the owner's pending or ready record for the same query, or nil
func (d *dedupResolver) ResolveByQueryHash(ctx context.Context, owner model.OwnerID, qh model.QueryHash) (*model.SearchRecord, error) {
	rec, err := d.repo.Search().FindActiveByQueryHash(ctx, owner, qh)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to look up query hash", goerr.V(OwnerKey, owner))
	}
	return rec, nil
}

type admission struct {
	record *model.SearchRecord
	reused bool
}

// Admit returns the existing record for qh or creates one with create. Concurrent callers with the
// same key share one check-then-create; only the caller that ran create gets created == true.
func (d *dedupResolver) Admit(ctx context.Context, owner model.OwnerID, qh model.QueryHash, create func() (*model.SearchRecord, error)) (*model.SearchRecord, bool, error) {
	ranHere := false
	v, err, _ := d.flight.Do(string(owner)+"/"+string(qh), func() (any, error) {
		ranHere = true

		existing, err := d.ResolveByQueryHash(ctx, owner, qh)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return admission{record: existing, reused: true}, nil
		}

		created, err := create()
		if err != nil {
			return nil, err
		}
		return admission{record: created}, nil
	})
	if err != nil {
		return nil, false, err
	}

	result := v.(admission)
	created := ranHere && !result.reused
	return result.record.Copy(), created, nil
}
