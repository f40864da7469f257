// Package config loads the Sahayak configuration from a YAML file and
// SAHAYAK_-prefixed environment variables, with environment winning.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
	TeacherID string          `mapstructure:"teacher_id"`
	Offline   bool            `mapstructure:"offline"`
	Firestore FirestoreConfig `mapstructure:"firestore"`
	Local     LocalConfig     `mapstructure:"local"`
	Daemon    DaemonConfig    `mapstructure:"daemon"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// FirestoreConfig holds remote document store settings.
type FirestoreConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	Collection      string `mapstructure:"collection"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// LocalConfig holds on-device storage settings.
type LocalConfig struct {
	DBPath   string `mapstructure:"db_path"`
	SpoolDir string `mapstructure:"spool_dir"`
}

// DaemonConfig holds background worker settings.
type DaemonConfig struct {
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	DebounceInterval time.Duration `mapstructure:"debounce_interval"`
	LogFile          string        `mapstructure:"log_file"`
}

// DashboardConfig holds monitoring server settings.
type DashboardConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads configuration from dir/sahayak.yaml (if present) and the
// environment. A missing config file is not an error; the defaults and
// environment carry a usable setup for offline development.
//
// Environment variables use the SAHAYAK_ prefix with underscores for
// nesting, e.g. SAHAYAK_FIRESTORE_PROJECT_ID.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("sahayak")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("SAHAYAK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	// Environment values arrive as strings; decode them weakly so
	// SAHAYAK_OFFLINE=true lands in a bool field.
	weakly := func(dc *mapstructure.DecoderConfig) { dc.WeaklyTypedInput = true }
	if err := v.Unmarshal(&cfg, weakly); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("teacher_id", "")
	v.SetDefault("offline", false)
	v.SetDefault("firestore.project_id", "")
	v.SetDefault("firestore.collection", "visual_aids")
	v.SetDefault("firestore.credentials_file", "")
	v.SetDefault("local.db_path", filepath.Join(dir, "sahayak.db"))
	v.SetDefault("local.spool_dir", filepath.Join(dir, "spool"))
	v.SetDefault("daemon.sweep_interval", 30*time.Second)
	v.SetDefault("daemon.debounce_interval", 200*time.Millisecond)
	v.SetDefault("daemon.log_file", "")
	v.SetDefault("dashboard.enabled", false)
	v.SetDefault("dashboard.addr", ":8080")
}

// Validate checks cross-field constraints that viper cannot express.
func (c *Config) Validate() error {
	if !c.Offline && c.Firestore.ProjectID == "" {
		return fmt.Errorf("firestore.project_id is required unless offline mode is enabled")
	}
	if c.Firestore.Collection == "" {
		return fmt.Errorf("firestore.collection cannot be empty")
	}
	if c.Local.DBPath == "" {
		return fmt.Errorf("local.db_path cannot be empty")
	}
	if c.Daemon.SweepInterval <= 0 {
		return fmt.Errorf("daemon.sweep_interval must be positive (got %s)", c.Daemon.SweepInterval)
	}
	if c.Daemon.DebounceInterval <= 0 {
		return fmt.Errorf("daemon.debounce_interval must be positive (got %s)", c.Daemon.DebounceInterval)
	}
	return nil
}
