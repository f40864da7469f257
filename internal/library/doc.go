// Package library implements the visual-aid operations for the Sahayak
// education assistant: optimistic remote-first writes with a durable
// offline queue, transactional rating updates, share/usage bookkeeping,
// teacher and discovery queries with a local cache fallback, usage
// analytics, and the sweep that replays queued writes.
//
// The remote document store is the authority for every record. A write
// is attempted remotely first; on success the record is mirrored into
// the local box, on failure it is appended to the local queue AND the
// error is surfaced: callers must never take a queued write for a
// durable one. A later sweep replays queued records through the same
// write path and removes the ones that succeed, continuing past
// individual failures so one bad record cannot stall the rest.
//
// Operations return explicit errors; remote outages wrap
// remote.ErrUnavailable so callers can decide how to degrade. The
// Sahayak app's UI deliberately degrades most reads to empty results
// and most mutations to silent no-ops, but that decision belongs to the
// caller, not this package. The one exception is Rate on a missing
// record, which is a documented no-op of the operation itself.
package library
