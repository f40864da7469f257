package library

import (
	"context"
	"fmt"
	"time"
)

// SweepStats summarizes one pass over the offline queue.
type SweepStats struct {
	Attempted int
	Synced    int
	Failed    int
	Duration  time.Duration
}

// SyncOfflineQueue replays every queued record against the remote
// store. Entries that sync are removed from the queue; entries that
// fail stay put for the next sweep. One bad entry never blocks the
// rest of the queue.
//
// Example:
//
//	stats, err := lib.SyncOfflineQueue(ctx)
//	if err != nil {
//	    log.Printf("sweep aborted: %v", err)
//	} else {
//	    log.Printf("synced %d/%d", stats.Synced, stats.Attempted)
//	}
func (l *Library) SyncOfflineQueue(ctx context.Context) (SweepStats, error) {
	start := time.Now()
	var stats SweepStats

	entries, err := l.box.PendingQueue(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to read offline queue: %w", err)
	}
	if len(entries) == 0 {
		l.logger.Printf("Sweep: queue empty, nothing to sync")
		stats.Duration = time.Since(start)
		l.notifySweep(stats)
		return stats, nil
	}

	l.logger.Printf("Sweep: replaying %d queued record(s)", len(entries))
	for _, entry := range entries {
		if ctx.Err() != nil {
			stats.Duration = time.Since(start)
			return stats, ctx.Err()
		}
		stats.Attempted++

		rec := entry.Record
		if _, werr := l.writeRemote(ctx, &rec); werr != nil {
			stats.Failed++
			l.logger.Printf("Sweep: entry %d still unsyncable: %v", entry.Seq, werr)
			continue
		}

		if derr := l.box.Dequeue(ctx, entry.Seq); derr != nil {
			// The record is already durable remotely. Leave the entry
			// for the next sweep rather than aborting mid-pass.
			l.logger.Printf("Sweep: failed to remove synced entry %d: %v", entry.Seq, derr)
		}
		stats.Synced++
	}

	stats.Duration = time.Since(start)
	l.logger.Printf("Sweep complete: %d synced, %d failed (%s)", stats.Synced, stats.Failed, stats.Duration.Round(time.Millisecond))
	l.notifySweep(stats)
	return stats, nil
}
