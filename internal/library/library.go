package library

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/sahayak-labs/sahayak/internal/model"
	"github.com/sahayak-labs/sahayak/internal/remote"
	"github.com/sahayak-labs/sahayak/internal/store"
)

// ErrQueuedForSync reports that a write did not reach the remote store
// but was durably queued for a later sweep. Callers that hand records
// off (the spool daemon, the CLI) treat this as delivered-for-retry.
var ErrQueuedForSync = errors.New("record queued for offline sync")

// Notifier receives change events for connected monitoring clients.
// Implementations must not block; the library calls them inline.
type Notifier interface {
	// RecordChanged is called after a record is created, rated, shared
	// or deleted. rec may carry only the ID for delete events.
	RecordChanged(action string, rec *model.VisualAid)

	// SweepComplete is called after each offline-queue sweep.
	SweepComplete(stats SweepStats)
}

// Library is the visual-aids data layer. It owns its local box handle
// explicitly; nothing here reaches for ambient global state.
type Library struct {
	remote   remote.Store
	box      *store.Store
	logger   *log.Logger
	notifier Notifier
}

// New creates a Library over a remote store and a local box.
//
// If logger is nil, a default logger writing to stderr is used.
//
// Example:
//
//	box, err := store.Open(".sahayak/sahayak.db")
//	if err != nil {
//	    return err
//	}
//	lib := library.New(remoteStore, box, nil)
func New(remoteStore remote.Store, box *store.Store, logger *log.Logger) *Library {
	if logger == nil {
		logger = log.New(os.Stderr, "[library] ", log.LstdFlags)
	}
	return &Library{
		remote: remoteStore,
		box:    box,
		logger: logger,
	}
}

// SetNotifier attaches a change-event receiver (e.g. the dashboard).
// Pass nil to detach.
func (l *Library) SetNotifier(n Notifier) {
	l.notifier = n
}

func (l *Library) notifyRecord(action string, rec *model.VisualAid) {
	if l.notifier != nil {
		l.notifier.RecordChanged(action, rec)
	}
}

func (l *Library) notifySweep(stats SweepStats) {
	if l.notifier != nil {
		l.notifier.SweepComplete(stats)
	}
}

// Create writes a new record, remote-first.
//
// On success the server-assigned ID is returned and the record
// (including that ID) is mirrored into the local cache. On remote
// failure the record is appended to the local offline queue for a later
// sweep AND the error is returned: a non-nil error never means the
// record reached the remote store, even though it is queued for retry.
func (l *Library) Create(ctx context.Context, rec *model.VisualAid) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", fmt.Errorf("invalid record: %w", err)
	}
	rec.SetDefaults()

	id, err := l.writeRemote(ctx, rec)
	if err != nil {
		queuedAt := time.Now()
		if _, qerr := l.box.EnqueueContext(ctx, rec, queuedAt); qerr != nil {
			l.logger.Printf("Remote write failed AND record could not be queued: %v (queue: %v)", err, qerr)
			return "", fmt.Errorf("failed to write record and failed to queue it locally: %w", err)
		}
		l.logger.Printf("Remote write failed, record queued for sync: %v", err)
		return "", fmt.Errorf("failed to write record (%w): %w", ErrQueuedForSync, err)
	}
	return id, nil
}

// writeRemote performs the remote half of a write and mirrors the
// result locally. It never touches the queue; Create and the sweep
// layer their own queue handling on top of it.
func (l *Library) writeRemote(ctx context.Context, rec *model.VisualAid) (string, error) {
	id, err := l.remote.Create(ctx, createFields(rec))
	if err != nil {
		return "", err
	}

	rec.ID = id
	if cerr := l.box.PutCachedContext(ctx, rec, time.Now()); cerr != nil {
		// The remote write is durable; a cache miss only degrades the
		// offline read path.
		l.logger.Printf("Warning: failed to mirror record %s locally: %v", id, cerr)
	}

	l.logger.Printf("Created record %s (%s / %s)", id, rec.Subject, rec.Topic)
	l.notifyRecord("created", rec)
	return id, nil
}

// Rate submits a rating for a record as a single serializable
// read-modify-write: the new average is computed from the committed
// count and mean, so concurrent ratings never lose updates.
//
// Rating a record that does not exist is a silent no-op: the caller
// gets nil. That leniency is long-standing app behavior the UI depends
// on; see the product notes before changing it. The rating range (1–5)
// is a caller contract and is not enforced here.
func (l *Library) Rate(ctx context.Context, id string, rating int) error {
	err := l.remote.RunTransaction(ctx, func(tx remote.Tx) error {
		doc, err := tx.Get(id)
		if errors.Is(err, remote.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		count := asInt64(doc.Fields[fieldRatingCount])
		avg := asFloat64(doc.Fields[fieldAverageRating])

		newCount := count + 1
		newAvg := (avg*float64(count) + float64(rating)) / float64(newCount)

		return tx.Update(id, remote.Fields{
			fieldRatingCount:   newCount,
			fieldAverageRating: newAvg,
			fieldEffectiveness: int64(math.Round(newAvg)),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to rate record %s: %w", id, err)
	}

	l.notifyRecord("rated", &model.VisualAid{ID: id})
	return nil
}

// IncrementUsage bumps a record's usage counter by one using the remote
// store's native atomic increment, so concurrent bumps all land.
func (l *Library) IncrementUsage(ctx context.Context, id string) error {
	err := l.remote.Update(ctx, id, remote.Fields{
		fieldUsageCount: remote.Increment(1),
	})
	if err != nil {
		return fmt.Errorf("failed to increment usage for %s: %w", id, err)
	}
	return nil
}

// Share makes a record public and stamps the share time with the
// server clock. Sharing is irreversible: no operation here ever sets
// isPublic back to false.
func (l *Library) Share(ctx context.Context, id string) error {
	err := l.remote.Update(ctx, id, remote.Fields{
		fieldIsPublic: true,
		fieldSharedAt: remote.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to share record %s: %w", id, err)
	}

	l.logger.Printf("Shared record %s", id)
	l.notifyRecord("shared", &model.VisualAid{ID: id})
	return nil
}

// Delete removes a record from the remote store and then from the local
// cache mirror. The two halves are independently best-effort: there is
// no compensating transaction, so a crash between them can strand a
// stale cache entry. The local half is attempted even when the remote
// half fails, and a local failure is only logged.
func (l *Library) Delete(ctx context.Context, id string) error {
	rerr := l.remote.Delete(ctx, id)

	if lerr := l.box.DeleteCachedContext(ctx, id); lerr != nil {
		l.logger.Printf("Warning: failed to delete cache entry %s: %v", id, lerr)
	}

	if rerr != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, rerr)
	}

	l.logger.Printf("Deleted record %s", id)
	l.notifyRecord("deleted", &model.VisualAid{ID: id})
	return nil
}
