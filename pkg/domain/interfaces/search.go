package interfaces

import (
	"context"
	"time"

	"github.com/carelens/carelens/pkg/domain/model"
	"github.com/carelens/carelens/pkg/domain/types"
)

// SearchRepository defines the interface for SearchRecord persistence
type SearchRepository interface {
	// Create stores a new pending record. An empty ID is assigned; timestamps are set by the store.
	Create(ctx context.Context, rec *model.SearchRecord) (*model.SearchRecord, error)

	// Get retrieves a record by ID
	Get(ctx context.Context, id model.SearchID) (*model.SearchRecord, error)

	// Update applies a partial update atomically and returns the updated record.
	// Updates to terminal records and invalid transitions fail with ErrInvalidTransition.
	Update(ctx context.Context, id model.SearchID, upd *model.SearchUpdate) (*model.SearchRecord, error)

	// Delete removes a record and returns what was deleted
	Delete(ctx context.Context, id model.SearchID) (*model.SearchRecord, error)

	// FindReadyByFingerprint returns the newest ready record with the fingerprint, or nil
	FindReadyByFingerprint(ctx context.Context, fp model.Fingerprint) (*model.SearchRecord, error)

	// FindActiveByQueryHash returns a pending or ready record of the owner with the query hash, or nil
	FindActiveByQueryHash(ctx context.Context, owner model.OwnerID, qh model.QueryHash) (*model.SearchRecord, error)

	// List returns the owner's records newest first, with the total count.
	// An empty kind matches every kind.
	List(ctx context.Context, owner model.OwnerID, kind types.SearchKind, limit, offset int) ([]*model.SearchRecord, int, error)

	// ListPendingBefore returns up to limit records still pending that were created before cutoff
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.SearchRecord, error)
}
