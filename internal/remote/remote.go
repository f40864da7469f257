// Package remote defines the contract this library requires from the
// networked document database that holds the authoritative records.
//
// The core never talks to a concrete client directly; it depends on the
// Store interface and the adapters under remote/firestore and
// remote/memory satisfy it. Field maps cross this boundary only inside
// adapters and the library's codec; the rest of the code works with
// typed records.
package remote

import (
	"context"
	"errors"
)

// Common errors returned by Store implementations.
//
// These can be checked using errors.Is():
//
//	if errors.Is(err, remote.ErrNotFound) {
//	    // Document does not exist
//	}
var (
	// ErrNotFound is returned when the requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrUnavailable is returned when the remote store cannot be
	// reached or refuses the call. Network failures, permission errors
	// and transient service errors are indistinguishable at this layer;
	// all of them wrap ErrUnavailable.
	ErrUnavailable = errors.New("remote store unavailable")
)

// IsUnavailable reports whether err indicates the remote store could
// not serve the call, which is the condition that triggers the local
// offline fallback.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// Fields is a document field map as stored by the remote database.
// Values may include the ServerTimestamp and Increment sentinels on the
// write side; on the read side values carry the database's native types
// (string, bool, int64, float64, time.Time, []interface{}).
type Fields map[string]interface{}

// Document is a stored document together with its server-assigned ID.
type Document struct {
	ID     string
	Fields Fields
}

// serverTimestamp is the sentinel type behind ServerTimestamp.
type serverTimestamp struct{}

// ServerTimestamp is a sentinel field value instructing the store to
// write its own clock. Adapters translate it to the database's native
// server-timestamp marker.
var ServerTimestamp = serverTimestamp{}

// IsServerTimestamp reports whether v is the ServerTimestamp sentinel.
// Intended for adapter implementations.
func IsServerTimestamp(v interface{}) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// IncrementValue is a sentinel field value instructing the store to
// atomically add Delta to the current numeric value of the field.
type IncrementValue struct {
	Delta int64
}

// Increment returns a sentinel that atomically adds delta to a numeric
// field. Unlike a read-modify-write, concurrent increments never lose
// updates.
func Increment(delta int64) IncrementValue {
	return IncrementValue{Delta: delta}
}

// Filter is an equality constraint on a document field.
type Filter struct {
	Field string
	Value interface{}
}

// Order is a sort key for query results.
type Order struct {
	Field string
	Desc  bool
}

// Query describes an equality-filtered, ordered, limited read over the
// collection. This is the complete capability set the library needs;
// adapters must not be asked for more.
type Query struct {
	Filters []Filter
	OrderBy []Order
	Limit   int
}

// Tx is the read-modify-write surface available inside RunTransaction.
type Tx interface {
	// Get reads a document inside the transaction.
	// Returns ErrNotFound if the document does not exist.
	Get(id string) (Document, error)

	// Update applies field deltas to a document inside the transaction.
	// Sentinel values are allowed.
	Update(id string, deltas Fields) error
}

// Store abstracts the remote document collection.
//
// All methods may block on network I/O and honor ctx cancellation where
// the underlying client supports it. Implementations classify their
// failures into ErrNotFound / ErrUnavailable so the library's fallback
// logic can stay client-agnostic.
type Store interface {
	// Create adds a new document and returns its server-assigned ID.
	Create(ctx context.Context, fields Fields) (string, error)

	// Get reads a single document by ID.
	Get(ctx context.Context, id string) (Document, error)

	// Update applies field deltas to an existing document.
	Update(ctx context.Context, id string, deltas Fields) error

	// RunTransaction executes fn with serializable read-modify-write
	// semantics. Conflicting transactions are retried or serialized by
	// the store itself; callers only see the final error.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error

	// Query returns the documents matching q.
	Query(ctx context.Context, q Query) ([]Document, error)

	// Delete removes a document. Deleting a missing document is not an
	// error (idempotent).
	Delete(ctx context.Context, id string) error
}
