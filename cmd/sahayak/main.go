// Command sahayak manages a teacher's visual aid library: remote-first
// writes to the shared document store, a local cache and offline queue,
// and the background sync daemon.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sahayak-labs/sahayak/internal/config"
	"github.com/sahayak-labs/sahayak/internal/library"
	"github.com/sahayak-labs/sahayak/internal/remote"
	fsremote "github.com/sahayak-labs/sahayak/internal/remote/firestore"
	"github.com/sahayak-labs/sahayak/internal/remote/memory"
	"github.com/sahayak-labs/sahayak/internal/store"
)

var (
	flagDir     string
	flagOffline bool
	flagTeacher string
)

var rootCmd = &cobra.Command{
	Use:   "sahayak",
	Short: "Visual aid library for teachers",
	Long: `Sahayak manages a library of teaching visual aids.

Records are written to the shared document store first; when the network
is down they are queued locally and replayed by 'sahayak sync' or the
daemon. Reads of your own library fall back to the local cache mirror.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", ".sahayak", "data directory (config, cache, spool)")
	rootCmd.PersistentFlags().BoolVar(&flagOffline, "offline", false, "use the in-process store (development mode)")
	rootCmd.PersistentFlags().StringVar(&flagTeacher, "teacher", "", "teacher id (overrides config)")
}

// app bundles everything a command needs, opened from flags and config.
type app struct {
	cfg *config.Config
	lib *library.Library
	box *store.Store

	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cleanup failed: %v\n", err)
		}
	}
}

// teacherID resolves the acting teacher from the flag or config.
func (a *app) teacherID() string {
	if flagTeacher != "" {
		return flagTeacher
	}
	if a.cfg.TeacherID != "" {
		return a.cfg.TeacherID
	}
	fmt.Fprintf(os.Stderr, "Error: no teacher id; set --teacher or teacher_id in %s/sahayak.yaml\n", flagDir)
	os.Exit(1)
	return ""
}

// openApp loads config and wires the library. The remote store is
// Firestore unless offline mode is requested, in which case an empty
// in-process store is used.
func openApp(ctx context.Context) (*app, error) {
	if flagOffline {
		// Config validation reads this through the environment, so the
		// flag works with or without a config file.
		os.Setenv("SAHAYAK_OFFLINE", "true")
	}

	cfg, err := config.Load(flagDir)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	var remoteStore remote.Store
	if cfg.Offline {
		remoteStore = memory.New()
	} else {
		fs, err := fsremote.Open(ctx, fsremote.Config{
			ProjectID:       cfg.Firestore.ProjectID,
			Collection:      cfg.Firestore.Collection,
			CredentialsFile: cfg.Firestore.CredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to document store: %w", err)
		}
		a.closers = append(a.closers, fs.Close)
		remoteStore = fs
	}

	box, err := store.Open(cfg.Local.DBPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, box.Close)
	a.box = box

	a.lib = library.New(remoteStore, box, nil)
	return a, nil
}

// mustOpenApp is openApp but prints the error and exits instead of
// returning it.
func mustOpenApp(ctx context.Context) *app {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return a
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
