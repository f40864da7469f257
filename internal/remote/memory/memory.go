// Package memory provides an in-process remote.Store used by tests and
// by the CLI's offline development mode. It mirrors the semantics the
// library relies on (serializable transactions, atomic increments,
// server-assigned timestamps, equality/order/limit queries) without a
// network, and can inject failures to exercise the offline fallback.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sahayak-labs/sahayak/internal/remote"
)

// Store is a map-backed remote.Store. The zero value is not usable;
// call New.
type Store struct {
	mu     sync.Mutex
	docs   map[string]remote.Fields
	nextID int

	failAll  bool
	failNext int

	// now is the clock used for server timestamps; replaceable in tests.
	now func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		docs: make(map[string]remote.Fields),
		now:  time.Now,
	}
}

// FailAll makes every subsequent call fail with remote.ErrUnavailable
// until called again with false. Used to simulate a network outage.
func (s *Store) FailAll(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAll = fail
}

// FailNext makes the next n calls fail with remote.ErrUnavailable.
func (s *Store) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// checkFailure consumes one injected failure if any is armed.
// Callers must hold s.mu.
func (s *Store) checkFailure() error {
	if s.failAll {
		return fmt.Errorf("%w: injected outage", remote.ErrUnavailable)
	}
	if s.failNext > 0 {
		s.failNext--
		return fmt.Errorf("%w: injected failure", remote.ErrUnavailable)
	}
	return nil
}

// Create implements remote.Store.Create. IDs are sequential for
// deterministic tests.
func (s *Store) Create(ctx context.Context, fields remote.Fields) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkFailure(); err != nil {
		return "", err
	}

	s.nextID++
	id := fmt.Sprintf("doc-%06d", s.nextID)
	s.docs[id] = s.resolve(fields, nil)
	return id, nil
}

// Get implements remote.Store.Get.
func (s *Store) Get(ctx context.Context, id string) (remote.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkFailure(); err != nil {
		return remote.Document{}, err
	}

	fields, ok := s.docs[id]
	if !ok {
		return remote.Document{}, remote.ErrNotFound
	}
	return remote.Document{ID: id, Fields: cloneFields(fields)}, nil
}

// Update implements remote.Store.Update.
func (s *Store) Update(ctx context.Context, id string, deltas remote.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkFailure(); err != nil {
		return err
	}

	current, ok := s.docs[id]
	if !ok {
		return remote.ErrNotFound
	}
	s.docs[id] = s.resolve(deltas, current)
	return nil
}

// RunTransaction implements remote.Store.RunTransaction. The store
// mutex is held for the whole callback, which serializes conflicting
// read-modify-write attempts the way the real database's transaction
// retry does.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx remote.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkFailure(); err != nil {
		return err
	}

	staged := make(map[string]remote.Fields)
	err := fn(&tx{store: s, staged: staged})
	if err != nil {
		return err
	}

	// Commit staged writes only if the callback succeeded.
	for id, fields := range staged {
		s.docs[id] = fields
	}
	return nil
}

// Query implements remote.Store.Query with deterministic ordering:
// the requested sort keys first, then document ID as a tiebreaker.
func (s *Store) Query(ctx context.Context, q remote.Query) ([]remote.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkFailure(); err != nil {
		return nil, err
	}

	var docs []remote.Document
	for id, fields := range s.docs {
		if matches(fields, q.Filters) {
			docs = append(docs, remote.Document{ID: id, Fields: cloneFields(fields)})
		}
	}

	sort.Slice(docs, func(i, j int) bool {
		for _, o := range q.OrderBy {
			c := compare(docs[i].Fields[o.Field], docs[j].Fields[o.Field])
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return docs[i].ID < docs[j].ID
	})

	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

// Delete implements remote.Store.Delete (idempotent).
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkFailure(); err != nil {
		return err
	}

	delete(s.docs, id)
	return nil
}

// tx implements remote.Tx against the locked store, staging writes
// until the callback returns nil.
type tx struct {
	store  *Store
	staged map[string]remote.Fields
}

func (x *tx) Get(id string) (remote.Document, error) {
	if fields, ok := x.staged[id]; ok {
		return remote.Document{ID: id, Fields: cloneFields(fields)}, nil
	}
	fields, ok := x.store.docs[id]
	if !ok {
		return remote.Document{}, remote.ErrNotFound
	}
	return remote.Document{ID: id, Fields: cloneFields(fields)}, nil
}

func (x *tx) Update(id string, deltas remote.Fields) error {
	current, ok := x.staged[id]
	if !ok {
		current, ok = x.store.docs[id]
		if !ok {
			return remote.ErrNotFound
		}
	}
	x.staged[id] = x.store.resolve(deltas, current)
	return nil
}

// resolve applies deltas on top of current (which may be nil), expanding
// sentinel values. Callers must hold s.mu.
func (s *Store) resolve(deltas remote.Fields, current remote.Fields) remote.Fields {
	out := cloneFields(current)
	if out == nil {
		out = make(remote.Fields, len(deltas))
	}
	for k, v := range deltas {
		switch t := v.(type) {
		case remote.IncrementValue:
			out[k] = asInt64(out[k]) + t.Delta
		default:
			if remote.IsServerTimestamp(v) {
				out[k] = s.now()
			} else {
				out[k] = v
			}
		}
	}
	return out
}

func cloneFields(fields remote.Fields) remote.Fields {
	if fields == nil {
		return nil
	}
	out := make(remote.Fields, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func matches(fields remote.Fields, filters []remote.Filter) bool {
	for _, f := range filters {
		if compare(fields[f.Field], f.Value) != 0 {
			return false
		}
	}
	return true
}

// compare orders two field values of the same kind. Mixed numeric kinds
// (int64 vs float64) are compared as floats, matching how documents
// round-trip through JSON.
func compare(a, b interface{}) int {
	switch av := a.(type) {
	case nil:
		if b == nil {
			return 0
		}
		return -1
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return -1
		}
		switch {
		case av == bv:
			return 0
		case bv:
			return -1
		default:
			return 1
		}
	case string:
		bv, ok := b.(string)
		if !ok {
			return -1
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return -1
		}
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		default:
			return 0
		}
	case int64, int, float64:
		af := asFloat64(a)
		bf := asFloat64(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	default:
		return -1
	}
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func asFloat64(v interface{}) float64 {
	switch t := v.(type) {
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case float64:
		return t
	default:
		return 0
	}
}
