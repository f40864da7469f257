// Package firestore adapts Google Cloud Firestore to the remote.Store
// contract. This is the production backend: a single collection holds
// the visual-aid documents, and Firestore's own transaction retry
// machinery provides the serializable read-modify-write the rating
// update depends on.
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/sahayak-labs/sahayak/internal/remote"
)

// Config holds Firestore connection settings.
type Config struct {
	// ProjectID is the Google Cloud project ID.
	ProjectID string

	// Collection is the Firestore collection holding visual-aid
	// documents (default: "visual_aids").
	Collection string

	// CredentialsFile optionally points to a service-account key file.
	// When empty, application default credentials are used.
	CredentialsFile string
}

// Store implements remote.Store on top of a Firestore collection.
type Store struct {
	client *firestore.Client
	coll   *firestore.CollectionRef
}

// Open creates a Firestore-backed store.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	store, err := firestore.Open(ctx, firestore.Config{ProjectID: "sahayak-prod"})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project ID is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = "visual_aids"
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &Store{
		client: client,
		coll:   client.Collection(cfg.Collection),
	}, nil
}

// Close releases the underlying client connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Create implements remote.Store.Create.
func (s *Store) Create(ctx context.Context, fields remote.Fields) (string, error) {
	ref := s.coll.NewDoc()
	if _, err := ref.Create(ctx, translate(fields)); err != nil {
		return "", classify(err)
	}
	return ref.ID, nil
}

// Get implements remote.Store.Get.
func (s *Store) Get(ctx context.Context, id string) (remote.Document, error) {
	snap, err := s.coll.Doc(id).Get(ctx)
	if err != nil {
		return remote.Document{}, classify(err)
	}
	return remote.Document{ID: snap.Ref.ID, Fields: snap.Data()}, nil
}

// Update implements remote.Store.Update. Deltas apply to an existing
// document; fields not mentioned are left untouched, and a missing
// document yields ErrNotFound rather than being created.
func (s *Store) Update(ctx context.Context, id string, deltas remote.Fields) error {
	if _, err := s.coll.Doc(id).Update(ctx, updates(deltas)); err != nil {
		return classify(err)
	}
	return nil
}

// RunTransaction implements remote.Store.RunTransaction. Firestore
// retries the callback on contention, so fn must be safe to re-run.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx remote.Tx) error) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		return fn(&tx{t: t, coll: s.coll})
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// Query implements remote.Store.Query.
func (s *Store) Query(ctx context.Context, q remote.Query) ([]remote.Document, error) {
	fq := s.coll.Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, "==", f.Value)
	}
	for _, o := range q.OrderBy {
		dir := firestore.Asc
		if o.Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(o.Field, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}

	snaps, err := fq.Documents(ctx).GetAll()
	if err != nil {
		return nil, classify(err)
	}

	docs := make([]remote.Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, remote.Document{ID: snap.Ref.ID, Fields: snap.Data()})
	}
	return docs, nil
}

// Delete implements remote.Store.Delete. Firestore deletes are
// idempotent; deleting a missing document succeeds.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.coll.Doc(id).Delete(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// tx adapts a firestore.Transaction to remote.Tx.
type tx struct {
	t    *firestore.Transaction
	coll *firestore.CollectionRef
}

func (x *tx) Get(id string) (remote.Document, error) {
	snap, err := x.t.Get(x.coll.Doc(id))
	if err != nil {
		return remote.Document{}, classify(err)
	}
	if !snap.Exists() {
		return remote.Document{}, remote.ErrNotFound
	}
	return remote.Document{ID: snap.Ref.ID, Fields: snap.Data()}, nil
}

func (x *tx) Update(id string, deltas remote.Fields) error {
	if err := x.t.Update(x.coll.Doc(id), updates(deltas)); err != nil {
		return classify(err)
	}
	return nil
}

// translate maps the contract's sentinel values onto Firestore's.
func translate(fields remote.Fields) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		switch t := v.(type) {
		case remote.IncrementValue:
			out[k] = firestore.Increment(t.Delta)
		default:
			if remote.IsServerTimestamp(v) {
				out[k] = firestore.ServerTimestamp
			} else {
				out[k] = v
			}
		}
	}
	return out
}

// updates maps field deltas onto Firestore update operations, with the
// same sentinel translation as translate. Update operations require the
// document to exist already.
func updates(deltas remote.Fields) []firestore.Update {
	out := make([]firestore.Update, 0, len(deltas))
	for k, v := range deltas {
		u := firestore.Update{Path: k}
		switch t := v.(type) {
		case remote.IncrementValue:
			u.Value = firestore.Increment(t.Delta)
		default:
			if remote.IsServerTimestamp(v) {
				u.Value = firestore.ServerTimestamp
			} else {
				u.Value = v
			}
		}
		out = append(out, u)
	}
	return out
}

// classify maps Firestore errors onto the contract's sentinel errors.
// Anything that is not a clean NotFound counts as unavailable; network,
// permission and service errors are indistinguishable at this layer.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return remote.ErrNotFound
	}
	return fmt.Errorf("%w: %v", remote.ErrUnavailable, err)
}
