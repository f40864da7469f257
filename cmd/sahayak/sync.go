package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sahayak-labs/sahayak/internal/daemon"
	"github.com/sahayak-labs/sahayak/internal/dashboard"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replay the offline queue once",
	Long: `Replay every record in the offline queue against the document store.

Records that sync are removed from the queue; records that still cannot
reach the store stay queued for the next attempt. One bad record never
blocks the rest.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpenApp(ctx)
		defer a.Close()

		fmt.Printf("🔄 Syncing offline queue...\n")
		stats, err := a.lib.SyncOfflineQueue(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error during sync: %v\n", err)
			os.Exit(1)
		}

		if stats.Attempted == 0 {
			fmt.Printf("✓ Queue empty, nothing to sync\n")
			return
		}
		fmt.Printf("✓ Sync complete in %v\n", stats.Duration.Round(time.Millisecond))
		fmt.Printf("   Synced: %d\n", stats.Synced)
		if stats.Failed > 0 {
			fmt.Printf("   Still queued: %d\n", stats.Failed)
		}
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local cache and queue status",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpenApp(ctx)
		defer a.Close()

		cached, err := a.box.CachedCount(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading cache: %v\n", err)
			os.Exit(1)
		}
		queued, err := a.box.QueueCount(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading queue: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\n📦 Local Box Status\n\n")
		fmt.Printf("Database: %s\n", a.cfg.Local.DBPath)
		fmt.Printf("Cached records: %d\n", cached)
		fmt.Printf("Queued for sync: %d\n", queued)
		if queued > 0 {
			fmt.Printf("\nRun 'sahayak sync' to replay the queue\n")
		}
		fmt.Println()
	},
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the sync daemon (foreground)",
	Long: `Run the background sync daemon in the foreground.

The daemon will:
  1. Ingest record JSON files dropped into the spool directory
  2. Sweep the offline queue on an interval
  3. Serve the monitoring dashboard if enabled in config

Press Ctrl+C to stop.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a := mustOpenApp(ctx)
		defer a.Close()

		dcfg := daemon.DefaultConfig()
		dcfg.SweepInterval = a.cfg.Daemon.SweepInterval
		dcfg.DebounceInterval = a.cfg.Daemon.DebounceInterval
		if a.cfg.Daemon.LogFile != "" {
			dcfg.Logger = log.New(&lumberjack.Logger{
				Filename:   a.cfg.Daemon.LogFile,
				MaxSize:    10, // MB
				MaxBackups: 3,
				MaxAge:     28, // days
			}, "[daemon] ", log.LstdFlags)
		}

		if a.cfg.Dashboard.Enabled {
			server := dashboard.NewServer(&dashboard.Config{
				Addr:   a.cfg.Dashboard.Addr,
				Logger: dcfg.Logger,
			})
			if err := server.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "Error starting dashboard: %v\n", err)
				os.Exit(1)
			}
			defer func() {
				if err := server.Stop(); err != nil {
					fmt.Fprintf(os.Stderr, "Error stopping dashboard: %v\n", err)
				}
			}()
			a.lib.SetNotifier(server)
			fmt.Printf("   Dashboard: http://%s\n", server.GetAddr())
		}

		d, err := daemon.NewWithConfig(a.lib, a.cfg.Local.SpoolDir, dcfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating daemon: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("🚀 Starting sync daemon...\n")
		fmt.Printf("   Spool: %s\n", a.cfg.Local.SpoolDir)
		fmt.Printf("   Sweep interval: %s\n", dcfg.SweepInterval)
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := d.Start(runCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Daemon stopped with error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(daemonCmd)
}
