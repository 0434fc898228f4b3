package model

import (
	"time"

	"github.com/carelens/carelens/pkg/domain/types"
	"github.com/google/uuid"
)

// SearchID is the caller-visible handle of a search record
type SearchID string

// NewSearchID generates a time-ordered UUIDv7 SearchID
func NewSearchID() SearchID {
	return SearchID(uuid.Must(uuid.NewV7()).String())
}

func (id SearchID) String() string {
	return string(id)
}

// SearchInput is the raw submission. Only Query is required; the rest is optional context.
type SearchInput struct {
	Query              string
	Age                int
	Sex                string
	Duration           string
	ExistingConditions string
	Medications        string
	AdditionalInfo     string
}

// SearchRecord is the unit of work and the cache entry of the analysis pipeline.
// Analysis fields are only trustworthy when Status is ready.
type SearchRecord struct {
	ID    SearchID
	Owner OwnerID
	Kind  types.SearchKind
	Mode  types.MedicineMode // empty for the symptom flow
	Input SearchInput

	QueryHash   QueryHash   // medicine flow only, computed before any model call
	Fingerprint Fingerprint // set after stage 1

	Status       types.SearchStatus
	Title        string
	Summary      string
	Common       *MedicineCommon
	Analysis     *ModePayload
	ReusedFrom   SearchID
	ErrorMessage string
	DurationMs   int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Copy returns a deep copy of the record
func (r *SearchRecord) Copy() *SearchRecord {
	if r == nil {
		return nil
	}
	copied := *r
	copied.Common = r.Common.Copy()
	copied.Analysis = r.Analysis.Copy()
	return &copied
}

// SearchUpdate is a partial update. Nil fields are left unchanged.
type SearchUpdate struct {
	Status       *types.SearchStatus
	Title        *string
	Summary      *string
	Fingerprint  *Fingerprint
	Common       *MedicineCommon
	Analysis     *ModePayload
	ReusedFrom   *SearchID
	ErrorMessage *string
	DurationMs   *int64
}

// Apply writes the non-nil fields of u into r. Transition checks are the caller's responsibility.
func (u *SearchUpdate) Apply(r *SearchRecord) {
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.Title != nil {
		r.Title = *u.Title
	}
	if u.Summary != nil {
		r.Summary = *u.Summary
	}
	if u.Fingerprint != nil {
		r.Fingerprint = *u.Fingerprint
	}
	if u.Common != nil {
		r.Common = u.Common.Copy()
	}
	if u.Analysis != nil {
		r.Analysis = u.Analysis.Copy()
	}
	if u.ReusedFrom != nil {
		r.ReusedFrom = *u.ReusedFrom
	}
	if u.ErrorMessage != nil {
		r.ErrorMessage = *u.ErrorMessage
	}
	if u.DurationMs != nil {
		r.DurationMs = *u.DurationMs
	}
}

// NextStatus returns the status the record will have after the update
func (u *SearchUpdate) NextStatus(current types.SearchStatus) types.SearchStatus {
	if u.Status == nil {
		return current
	}
	return *u.Status
}

// Ptr returns a pointer to v. Convenience for building SearchUpdate values.
func Ptr[T any](v T) *T {
	return &v
}
