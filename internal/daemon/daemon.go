// Package daemon provides the background worker that keeps the visual
// aid library in sync.
//
// The daemon:
// 1. Watches the spool directory for record JSON files dropped by tools
// 2. Ingests each file through the library's remote-first write path
// 3. Periodically sweeps the offline queue
// 4. Handles graceful shutdown
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sahayak-labs/sahayak/internal/library"
	"github.com/sahayak-labs/sahayak/internal/model"
)

// Config holds configuration for the daemon.
type Config struct {
	// SweepInterval is how often to replay the offline queue.
	SweepInterval time.Duration

	// DebounceInterval is how long to wait before ingesting file changes.
	// This batches rapid updates together.
	DebounceInterval time.Duration

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SweepInterval:    30 * time.Second,
		DebounceInterval: 200 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon orchestrates spool watching and offline-queue sweeps.
type Daemon struct {
	lib      *library.Library
	spoolDir string
	config   *Config

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time // filepath -> timestamp
	changeQueueMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Daemon instance.
//
// The daemon requires:
//   - lib: the visual-aid library to write through
//   - spoolDir: directory where record JSON files are dropped
//
// Use Start() to begin watching and sweeping.
func New(lib *library.Library, spoolDir string) (*Daemon, error) {
	return NewWithConfig(lib, spoolDir, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(lib *library.Library, spoolDir string, config *Config) (*Daemon, error) {
	if lib == nil {
		return nil, fmt.Errorf("lib cannot be nil")
	}
	if spoolDir == "" {
		return nil, fmt.Errorf("spoolDir cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		lib:         lib,
		spoolDir:    spoolDir,
		config:      config,
		watcher:     watcher,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// The daemon will:
// 1. Ingest any record files already sitting in the spool
// 2. Run one immediate sweep of the offline queue
// 3. Start watching the spool for new files
// 4. Sweep the queue on every tick
//
// This blocks until ctx is cancelled or an error occurs.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	if err := os.MkdirAll(d.spoolDir, 0755); err != nil {
		return fmt.Errorf("failed to create spool directory: %w", err)
	}

	if err := d.DrainSpool(); err != nil {
		return fmt.Errorf("initial spool drain failed: %w", err)
	}

	if stats, err := d.lib.SyncOfflineQueue(d.ctx); err != nil {
		d.config.Logger.Printf("Initial sweep failed: %v", err)
	} else if stats.Attempted > 0 {
		d.config.Logger.Printf("Initial sweep: %d synced, %d failed", stats.Synced, stats.Failed)
	}

	if err := d.watcher.Add(d.spoolDir); err != nil {
		return fmt.Errorf("failed to watch spool directory: %w", err)
	}

	d.config.Logger.Printf("Watching: %s", d.spoolDir)

	d.wg.Add(3)
	go d.watchFileEvents()
	go d.processChangeQueue()
	go d.runSweeps()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()

	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}

	d.wg.Wait()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// DrainSpool ingests every record file currently in the spool.
//
// Called on startup and safe to call manually. One bad file never
// blocks the rest of the spool.
func (d *Daemon) DrainSpool() error {
	entries, err := os.ReadDir(d.spoolDir)
	if err != nil {
		return fmt.Errorf("failed to read spool directory: %w", err)
	}

	var ingested int
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(d.spoolDir, entry.Name())
		if err := d.ingestFile(path); err != nil {
			d.config.Logger.Printf("Warning: failed to ingest %s: %v", path, err)
			continue
		}
		ingested++
	}

	if ingested > 0 {
		d.config.Logger.Printf("Drained %d record(s) from spool", ingested)
	}
	return nil
}

// watchFileEvents monitors filesystem events and queues changes.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			// Only care about Create and Write; removals are either our
			// own cleanup or an operator withdrawing a file.
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			if filepath.Ext(event.Name) != ".json" {
				continue
			}

			d.queueChange(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueChange adds a file to the change queue with debouncing.
func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[path] = time.Now()
}

// processChangeQueue ingests queued files once they have settled.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.processPendingChanges()
		}
	}
}

// processPendingChanges ingests files that have been quiet long enough.
func (d *Daemon) processPendingChanges() {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	now := time.Now()
	for path, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) < d.config.DebounceInterval {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			// Withdrawn (or already ingested) before we got to it.
			delete(d.changeQueue, path)
			continue
		}

		if err := d.ingestFile(path); err != nil {
			d.config.Logger.Printf("Error ingesting %s: %v", path, err)
		}
		delete(d.changeQueue, path)
	}
}

// ingestFile writes one spool file through the library and removes it
// once the record is durably handed off. A record that could not reach
// the remote store but made it into the offline queue counts as handed
// off; the sweep owns it from there.
func (d *Daemon) ingestFile(path string) error {
	rec, err := model.ReadRecordFile(path)
	if err != nil {
		return err
	}

	id, err := d.lib.Create(d.ctx, rec)
	if err != nil && !errors.Is(err, library.ErrQueuedForSync) {
		return err
	}

	if err != nil {
		d.config.Logger.Printf("Spooled record queued for sync: %s", path)
	} else {
		d.config.Logger.Printf("Ingested %s as %s", filepath.Base(path), id)
	}

	if rerr := os.Remove(path); rerr != nil {
		d.config.Logger.Printf("Warning: failed to remove spool file %s: %v", path, rerr)
	}
	return nil
}

// runSweeps replays the offline queue on every tick.
func (d *Daemon) runSweeps() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			stats, err := d.lib.SyncOfflineQueue(d.ctx)
			if err != nil {
				d.config.Logger.Printf("Sweep error: %v", err)
				continue
			}
			if stats.Attempted > 0 {
				d.config.Logger.Printf("Sweep: %d synced, %d failed", stats.Synced, stats.Failed)
			}
		}
	}
}
