package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/carelens/carelens/pkg/domain/model"
	"github.com/carelens/carelens/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

type searchRepository struct {
	mu      sync.RWMutex
	records map[model.SearchID]*model.SearchRecord
	now     func() time.Time
}

func newSearchRepository() *searchRepository {
	return &searchRepository{
		records: make(map[model.SearchID]*model.SearchRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *searchRepository) Create(ctx context.Context, rec *model.SearchRecord) (*model.SearchRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := rec.Copy()
	if created.ID == "" {
		created.ID = model.NewSearchID()
	}
	if _, exists := r.records[created.ID]; exists {
		return nil, goerr.Wrap(model.ErrAlreadyExists, "search record already exists", goerr.V("id", created.ID))
	}

	now := r.now()
	created.Status = types.SearchStatusPending
	created.CreatedAt = now
	created.UpdatedAt = now

	r.records[created.ID] = created
	return created.Copy(), nil
}

func (r *searchRepository) Get(ctx context.Context, id model.SearchID) (*model.SearchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.records[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrNotFound, "search record not found", goerr.V("id", id))
	}
	return rec.Copy(), nil
}

func (r *searchRepository) Update(ctx context.Context, id model.SearchID, upd *model.SearchUpdate) (*model.SearchRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.records[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrNotFound, "search record not found", goerr.V("id", id))
	}
	if err := upd.Check(id, current.Status); err != nil {
		return nil, err
	}

	updated := current.Copy()
	upd.Apply(updated)
	updated.UpdatedAt = r.now()

	r.records[id] = updated
	return updated.Copy(), nil
}

func (r *searchRepository) Delete(ctx context.Context, id model.SearchID) (*model.SearchRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.records[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrNotFound, "search record not found", goerr.V("id", id))
	}
	delete(r.records, id)
	return rec, nil
}

func (r *searchRepository) FindReadyByFingerprint(ctx context.Context, fp model.Fingerprint) (*model.SearchRecord, error) {
	if fp == "" {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.newest(func(rec *model.SearchRecord) bool {
		return rec.Fingerprint == fp && rec.Status == types.SearchStatusReady
	}), nil
}

func (r *searchRepository) FindActiveByQueryHash(ctx context.Context, owner model.OwnerID, qh model.QueryHash) (*model.SearchRecord, error) {
	if qh == "" {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.newest(func(rec *model.SearchRecord) bool {
		return rec.Owner == owner && rec.QueryHash == qh && rec.Status != types.SearchStatusErrored
	}), nil
}

func (r *searchRepository) List(ctx context.Context, owner model.OwnerID, kind types.SearchKind, limit, offset int) ([]*model.SearchRecord, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.collect(func(rec *model.SearchRecord) bool {
		return rec.Owner == owner && (kind == "" || rec.Kind == kind)
	})
	sortNewestFirst(matched)

	total := len(matched)
	if offset >= total {
		return []*model.SearchRecord{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *searchRepository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.SearchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.collect(func(rec *model.SearchRecord) bool {
		return rec.Status == types.SearchStatusPending && rec.CreatedAt.Before(cutoff)
	})
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// collect returns copies of every record matching fn. Caller holds the lock.
func (r *searchRepository) collect(fn func(*model.SearchRecord) bool) []*model.SearchRecord {
	var result []*model.SearchRecord
	for _, rec := range r.records {
		if fn(rec) {
			result = append(result, rec.Copy())
		}
	}
	return result
}

func (r *searchRepository) newest(fn func(*model.SearchRecord) bool) *model.SearchRecord {
	matched := r.collect(fn)
	if len(matched) == 0 {
		return nil
	}
	sortNewestFirst(matched)
	return matched[0]
}

// sortNewestFirst orders by CreatedAt descending; ties break on ID (UUIDv7 is time ordered)
func sortNewestFirst(records []*model.SearchRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})
}
