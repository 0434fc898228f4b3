package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/carelens/carelens/pkg/domain/model"
	"github.com/carelens/carelens/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SearchCollection is the collection holding search records
const SearchCollection = "searches"

// searchDoc is the Firestore document representation of model.SearchRecord
type searchDoc struct {
	ID    model.SearchID     `firestore:"ID"`
	Owner model.OwnerID      `firestore:"Owner"`
	Kind  types.SearchKind   `firestore:"Kind"`
	Mode  types.MedicineMode `firestore:"Mode"`

	Query              string `firestore:"Query"`
	Age                int    `firestore:"Age"`
	Sex                string `firestore:"Sex"`
	Duration           string `firestore:"Duration"`
	ExistingConditions string `firestore:"ExistingConditions"`
	Medications        string `firestore:"Medications"`
	AdditionalInfo     string `firestore:"AdditionalInfo"`

	QueryHash   model.QueryHash   `firestore:"QueryHash"`
	Fingerprint model.Fingerprint `firestore:"Fingerprint"`

	Status       types.SearchStatus    `firestore:"Status"`
	Title        string                `firestore:"Title"`
	Summary      string                `firestore:"Summary"`
	Common       *model.MedicineCommon `firestore:"Common,omitempty"`
	Analysis     *model.ModePayload    `firestore:"Analysis,omitempty"`
	ReusedFrom   model.SearchID        `firestore:"ReusedFrom"`
	ErrorMessage string                `firestore:"ErrorMessage"`
	DurationMs   int64                 `firestore:"DurationMs"`

	CreatedAt time.Time `firestore:"CreatedAt"`
	UpdatedAt time.Time `firestore:"UpdatedAt"`
}

func toSearchDoc(r *model.SearchRecord) *searchDoc {
	return &searchDoc{
		ID:                 r.ID,
		Owner:              r.Owner,
		Kind:               r.Kind,
		Mode:               r.Mode,
		Query:              r.Input.Query,
		Age:                r.Input.Age,
		Sex:                r.Input.Sex,
		Duration:           r.Input.Duration,
		ExistingConditions: r.Input.ExistingConditions,
		Medications:        r.Input.Medications,
		AdditionalInfo:     r.Input.AdditionalInfo,
		QueryHash:          r.QueryHash,
		Fingerprint:        r.Fingerprint,
		Status:             r.Status,
		Title:              r.Title,
		Summary:            r.Summary,
		Common:             r.Common,
		Analysis:           r.Analysis,
		ReusedFrom:         r.ReusedFrom,
		ErrorMessage:       r.ErrorMessage,
		DurationMs:         r.DurationMs,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func fromSearchDoc(d *searchDoc) *model.SearchRecord {
	return &model.SearchRecord{
		ID:    d.ID,
		Owner: d.Owner,
		Kind:  d.Kind,
		Mode:  d.Mode,
		Input: model.SearchInput{
			Query:              d.Query,
			Age:                d.Age,
			Sex:                d.Sex,
			Duration:           d.Duration,
			ExistingConditions: d.ExistingConditions,
			Medications:        d.Medications,
			AdditionalInfo:     d.AdditionalInfo,
		},
		QueryHash:    d.QueryHash,
		Fingerprint:  d.Fingerprint,
		Status:       d.Status,
		Title:        d.Title,
		Summary:      d.Summary,
		Common:       d.Common,
		Analysis:     d.Analysis,
		ReusedFrom:   d.ReusedFrom,
		ErrorMessage: d.ErrorMessage,
		DurationMs:   d.DurationMs,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func docToSearch(doc *firestore.DocumentSnapshot) (*model.SearchRecord, error) {
	var d searchDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, err
	}
	return fromSearchDoc(&d), nil
}

type searchRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newSearchRepository(client *firestore.Client) *searchRepository {
	return &searchRepository{
		client: client,
	}
}

func (r *searchRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.collectionPrefix + SearchCollection)
}

func (r *searchRepository) Create(ctx context.Context, rec *model.SearchRecord) (*model.SearchRecord, error) {
	created := rec.Copy()
	if created.ID == "" {
		created.ID = model.NewSearchID()
	}
	now := time.Now().UTC()
	created.Status = types.SearchStatusPending
	created.CreatedAt = now
	created.UpdatedAt = now

	if _, err := r.collection().Doc(created.ID.String()).Create(ctx, toSearchDoc(created)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(model.ErrAlreadyExists, "search record already exists", goerr.V("id", created.ID))
		}
		return nil, goerr.Wrap(err, "failed to create search record", goerr.V("id", created.ID))
	}

	return created, nil
}

func (r *searchRepository) Get(ctx context.Context, id model.SearchID) (*model.SearchRecord, error) {
	doc, err := r.collection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "search record not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get search record", goerr.V("id", id))
	}

	rec, err := docToSearch(doc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal search record", goerr.V("id", id))
	}
	return rec, nil
}

func (r *searchRepository) Update(ctx context.Context, id model.SearchID, upd *model.SearchUpdate) (*model.SearchRecord, error) {
	docRef := r.collection().Doc(id.String())

	var updated *model.SearchRecord
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(model.ErrNotFound, "search record not found", goerr.V("id", id))
			}
			return goerr.Wrap(err, "failed to get search record", goerr.V("id", id))
		}

		current, err := docToSearch(doc)
		if err != nil {
			return goerr.Wrap(err, "failed to unmarshal search record", goerr.V("id", id))
		}
		if err := upd.Check(id, current.Status); err != nil {
			return err
		}

		upd.Apply(current)
		current.UpdatedAt = time.Now().UTC()
		if err := tx.Set(docRef, toSearchDoc(current)); err != nil {
			return goerr.Wrap(err, "failed to write search record", goerr.V("id", id))
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *searchRepository) Delete(ctx context.Context, id model.SearchID) (*model.SearchRecord, error) {
	docRef := r.collection().Doc(id.String())

	var deleted *model.SearchRecord
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(model.ErrNotFound, "search record not found", goerr.V("id", id))
			}
			return goerr.Wrap(err, "failed to get search record", goerr.V("id", id))
		}

		deleted, err = docToSearch(doc)
		if err != nil {
			return goerr.Wrap(err, "failed to unmarshal search record", goerr.V("id", id))
		}
		return tx.Delete(docRef)
	})
	if err != nil {
		return nil, err
	}

	return deleted, nil
}

func (r *searchRepository) FindReadyByFingerprint(ctx context.Context, fp model.Fingerprint) (*model.SearchRecord, error) {
	if fp == "" {
		return nil, nil
	}

	query := r.collection().
		Where("Fingerprint", "==", string(fp)).
		Where("Status", "==", string(types.SearchStatusReady)).
		OrderBy("CreatedAt", firestore.Desc).
		Limit(1)

	records, err := r.fetch(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find search by fingerprint", goerr.V("fingerprint", fp))
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

func (r *searchRepository) FindActiveByQueryHash(ctx context.Context, owner model.OwnerID, qh model.QueryHash) (*model.SearchRecord, error) {
	if qh == "" {
		return nil, nil
	}

	query := r.collection().
		Where("Owner", "==", string(owner)).
		Where("QueryHash", "==", string(qh)).
		OrderBy("CreatedAt", firestore.Desc)

	records, err := r.fetch(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find search by query hash", goerr.V("owner", owner))
	}
	for _, rec := range records {
		if rec.Status != types.SearchStatusErrored {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *searchRepository) List(ctx context.Context, owner model.OwnerID, kind types.SearchKind, limit, offset int) ([]*model.SearchRecord, int, error) {
	base := r.collection().Where("Owner", "==", string(owner))
	if kind != "" {
		base = base.Where("Kind", "==", string(kind))
	}

	res, err := base.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to count search records", goerr.V("owner", owner))
	}
	count, ok := res["total"].(*firestorepb.Value)
	if !ok {
		return nil, 0, goerr.New("count missing from aggregation result", goerr.V("owner", owner))
	}
	total := int(count.GetIntegerValue())

	records, err := r.fetch(ctx, base.OrderBy("CreatedAt", firestore.Desc).Offset(offset).Limit(limit))
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to list search records", goerr.V("owner", owner))
	}

	return records, total, nil
}

func (r *searchRepository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.SearchRecord, error) {
	query := r.collection().
		Where("Status", "==", string(types.SearchStatusPending)).
		Where("CreatedAt", "<", cutoff).
		OrderBy("CreatedAt", firestore.Asc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	records, err := r.fetch(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list pending search records", goerr.V("cutoff", cutoff))
	}
	return records, nil
}

func (r *searchRepository) fetch(ctx context.Context, query firestore.Query) ([]*model.SearchRecord, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	records := make([]*model.SearchRecord, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate search records")
		}

		rec, err := docToSearch(doc)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal search record", goerr.V("id", doc.Ref.ID))
		}
		records = append(records, rec)
	}
	return records, nil
}
