package library

import (
	"context"
	"testing"
)

func TestSweepEmptyQueue(t *testing.T) {
	lib, mem, _ := testLibrary(t)

	stats, err := lib.SyncOfflineQueue(context.Background())
	if err != nil {
		t.Fatalf("SyncOfflineQueue: %v", err)
	}
	if stats.Attempted != 0 || stats.Synced != 0 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want all zero on empty queue", stats)
	}
	if mem.Len() != 0 {
		t.Error("empty sweep wrote to the remote store")
	}
}

func TestSweepReplaysQueuedRecords(t *testing.T) {
	lib, mem, box := testLibrary(t)
	ctx := context.Background()

	// Two writes fail and queue while the remote store is down.
	mem.FailAll(true)
	for _, topic := range []string{"fractions", "decimals"} {
		if _, err := lib.Create(ctx, sampleRecord("t1", "math", topic)); err == nil {
			t.Fatalf("Create(%s) succeeded during outage", topic)
		}
	}
	if n, _ := box.QueueCount(ctx); n != 2 {
		t.Fatalf("queue count = %d, want 2", n)
	}

	// Remote store recovers; the sweep drains the queue.
	mem.FailAll(false)
	stats, err := lib.SyncOfflineQueue(ctx)
	if err != nil {
		t.Fatalf("SyncOfflineQueue: %v", err)
	}
	if stats.Attempted != 2 || stats.Synced != 2 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want 2 attempted, 2 synced", stats)
	}
	if mem.Len() != 2 {
		t.Errorf("remote has %d docs after sweep, want 2", mem.Len())
	}
	if n, _ := box.QueueCount(ctx); n != 0 {
		t.Errorf("queue count = %d after sweep, want 0", n)
	}
	if n, _ := box.CachedCount(ctx); n != 2 {
		t.Errorf("cache count = %d after sweep, want 2 mirrors", n)
	}
}

func TestSweepKeepsFailedEntries(t *testing.T) {
	lib, mem, box := testLibrary(t)
	ctx := context.Background()

	mem.FailAll(true)
	if _, err := lib.Create(ctx, sampleRecord("t1", "math", "fractions")); err == nil {
		t.Fatal("Create succeeded during outage")
	}

	// Still down: the sweep attempts the entry and leaves it queued.
	stats, err := lib.SyncOfflineQueue(ctx)
	if err != nil {
		t.Fatalf("SyncOfflineQueue: %v", err)
	}
	if stats.Attempted != 1 || stats.Failed != 1 || stats.Synced != 0 {
		t.Errorf("stats = %+v, want 1 attempted, 1 failed", stats)
	}
	if n, _ := box.QueueCount(ctx); n != 1 {
		t.Errorf("queue count = %d, want entry retained for next sweep", n)
	}
}

func TestSweepContinuesPastFailures(t *testing.T) {
	lib, mem, box := testLibrary(t)
	ctx := context.Background()

	mem.FailAll(true)
	for _, topic := range []string{"first", "second", "third"} {
		if _, err := lib.Create(ctx, sampleRecord("t1", "math", topic)); err == nil {
			t.Fatalf("Create(%s) succeeded during outage", topic)
		}
	}
	mem.FailAll(false)

	// Only the first replay fails; the rest of the queue still drains.
	mem.FailNext(1)
	stats, err := lib.SyncOfflineQueue(ctx)
	if err != nil {
		t.Fatalf("SyncOfflineQueue: %v", err)
	}
	if stats.Attempted != 3 || stats.Synced != 2 || stats.Failed != 1 {
		t.Errorf("stats = %+v, want 3 attempted, 2 synced, 1 failed", stats)
	}

	entries, _ := box.PendingQueue(ctx)
	if len(entries) != 1 || entries[0].Record.Topic != "first" {
		t.Errorf("queue after sweep = %+v, want only the failed entry", entries)
	}
	if mem.Len() != 2 {
		t.Errorf("remote has %d docs, want 2", mem.Len())
	}
}

func TestSweepIdempotent(t *testing.T) {
	lib, mem, box := testLibrary(t)
	ctx := context.Background()

	mem.FailAll(true)
	if _, err := lib.Create(ctx, sampleRecord("t1", "math", "fractions")); err == nil {
		t.Fatal("Create succeeded during outage")
	}
	mem.FailAll(false)

	if _, err := lib.SyncOfflineQueue(ctx); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	stats, err := lib.SyncOfflineQueue(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if stats.Attempted != 0 {
		t.Errorf("second sweep attempted %d entries, want 0", stats.Attempted)
	}
	if mem.Len() != 1 {
		t.Errorf("remote has %d docs after double sweep, want 1 (no duplicates)", mem.Len())
	}
	if n, _ := box.QueueCount(ctx); n != 0 {
		t.Errorf("queue holds %d entries after double sweep, want 0", n)
	}
}

func TestSweepNotifiesCompletion(t *testing.T) {
	lib, mem, _ := testLibrary(t)
	ctx := context.Background()

	rec := &notifyRecorder{}
	lib.SetNotifier(rec)

	mem.FailAll(true)
	if _, err := lib.Create(ctx, sampleRecord("t1", "math", "fractions")); err == nil {
		t.Fatal("Create succeeded during outage")
	}
	mem.FailAll(false)

	if _, err := lib.SyncOfflineQueue(ctx); err != nil {
		t.Fatalf("SyncOfflineQueue: %v", err)
	}
	if len(rec.sweeps) != 1 {
		t.Fatalf("got %d sweep events, want 1", len(rec.sweeps))
	}
	if rec.sweeps[0].Synced != 1 {
		t.Errorf("sweep event synced = %d, want 1", rec.sweeps[0].Synced)
	}
}
