package daemon

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sahayak-labs/sahayak/internal/library"
	"github.com/sahayak-labs/sahayak/internal/model"
	"github.com/sahayak-labs/sahayak/internal/remote/memory"
	"github.com/sahayak-labs/sahayak/internal/store"
)

func testConfig() *Config {
	return &Config{
		SweepInterval:    25 * time.Millisecond,
		DebounceInterval: 10 * time.Millisecond,
		Logger:           log.New(io.Discard, "", 0),
	}
}

func testSetup(t *testing.T) (*library.Library, *memory.Store, *store.Store, string) {
	t.Helper()

	mem := memory.New()
	dir := t.TempDir()
	box, err := store.Open(filepath.Join(dir, "sahayak.db"))
	if err != nil {
		t.Fatalf("failed to open test box: %v", err)
	}
	t.Cleanup(func() { _ = box.Close() })

	lib := library.New(mem, box, log.New(io.Discard, "", 0))
	return lib, mem, box, filepath.Join(dir, "spool")
}

// startDaemon runs d.Start in the background and stops it when the test
// finishes.
func startDaemon(t *testing.T, d *Daemon) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("daemon exited with error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("daemon did not stop in time")
		}
	})
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func spoolRecord(t *testing.T, dir, topic string) string {
	t.Helper()

	rec := &model.VisualAid{
		TeacherID:     "t1",
		Subject:       "math",
		Topic:         topic,
		VisualContent: "chalkboard diagram",
	}
	if err := model.WriteRecordFile(dir, rec); err != nil {
		t.Fatalf("failed to write spool file: %v", err)
	}
	return filepath.Join(dir, "math-"+topic+".json")
}

func TestNewValidation(t *testing.T) {
	lib, _, _, spool := testSetup(t)

	if _, err := New(nil, spool); err == nil {
		t.Error("New accepted a nil library")
	}
	if _, err := New(lib, ""); err == nil {
		t.Error("New accepted an empty spool directory")
	}
}

func TestStartDrainsExistingSpool(t *testing.T) {
	lib, mem, _, spool := testSetup(t)

	if err := os.MkdirAll(spool, 0755); err != nil {
		t.Fatal(err)
	}
	path := spoolRecord(t, spool, "fractions")

	d, err := NewWithConfig(lib, spool, testConfig())
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	startDaemon(t, d)

	waitFor(t, "spool file ingestion", func() bool { return mem.Len() == 1 })
	waitFor(t, "spool file removal", func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	})
}

func TestWatcherIngestsNewFiles(t *testing.T) {
	lib, mem, _, spool := testSetup(t)

	d, err := NewWithConfig(lib, spool, testConfig())
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	startDaemon(t, d)

	// Let Start create and begin watching the spool before writing.
	waitFor(t, "spool directory", func() bool {
		_, err := os.Stat(spool)
		return err == nil
	})

	spoolRecord(t, spool, "decimals")
	waitFor(t, "watched file ingestion", func() bool { return mem.Len() == 1 })
}

func TestOfflineSpoolFileQueues(t *testing.T) {
	lib, mem, box, spool := testSetup(t)
	mem.FailAll(true)

	if err := os.MkdirAll(spool, 0755); err != nil {
		t.Fatal(err)
	}
	path := spoolRecord(t, spool, "fractions")

	d, err := NewWithConfig(lib, spool, testConfig())
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	startDaemon(t, d)

	// The record lands in the offline queue and the spool file is still
	// consumed: the queue owns the record now.
	waitFor(t, "record queued", func() bool {
		n, _ := box.QueueCount(context.Background())
		return n == 1
	})
	waitFor(t, "spool file removal", func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	})

	// Remote store recovers; the periodic sweep drains the queue.
	mem.FailAll(false)
	waitFor(t, "sweep to drain queue", func() bool { return mem.Len() == 1 })
	waitFor(t, "queue empty", func() bool {
		n, _ := box.QueueCount(context.Background())
		return n == 0
	})
}

func TestInvalidSpoolFileKept(t *testing.T) {
	lib, mem, _, spool := testSetup(t)

	if err := os.MkdirAll(spool, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(spool, "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := NewWithConfig(lib, spool, testConfig())
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	startDaemon(t, d)

	// Give the daemon a few ticks; the bad file must survive for an
	// operator to inspect, and nothing reaches the remote store.
	time.Sleep(100 * time.Millisecond)
	if _, err := os.Stat(path); err != nil {
		t.Errorf("broken spool file was removed: %v", err)
	}
	if mem.Len() != 0 {
		t.Errorf("remote has %d docs, want 0", mem.Len())
	}
}

func TestNonJSONFilesIgnored(t *testing.T) {
	lib, mem, _, spool := testSetup(t)

	if err := os.MkdirAll(spool, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(spool, "README.txt"), []byte("notes"), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := NewWithConfig(lib, spool, testConfig())
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	startDaemon(t, d)

	time.Sleep(100 * time.Millisecond)
	if mem.Len() != 0 {
		t.Errorf("remote has %d docs, want 0", mem.Len())
	}
}
