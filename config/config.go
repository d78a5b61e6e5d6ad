// Package config handles loading and saving the application configuration,
// including persisted settings and the registered account list.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gitify-app/gitify-sub003/internal/model"
)

// Settings is the user-tunable behavior consumed on every refresh cycle.
type Settings struct {
	// Participating limits fetches to notifications the user participates in.
	Participating bool `yaml:"participating"`
	// FetchAllNotifications follows pagination links until exhausted instead
	// of stopping after the first page.
	FetchAllNotifications bool `yaml:"fetch_all_notifications"`
	// FetchReadNotifications includes read notifications in fetches.
	FetchReadNotifications bool `yaml:"fetch_read_notifications"`
	// DetailedNotifications enables GraphQL enrichment of subjects.
	DetailedNotifications bool `yaml:"detailed_notifications"`
	// DelayNotificationState keeps acted-on notifications visible (marked
	// read in place) instead of removing them from the list.
	DelayNotificationState bool `yaml:"delay_notification_state"`

	FetchInterval time.Duration `yaml:"fetch_interval"`

	PlaySound         bool `yaml:"play_sound"`
	ShowNotifications bool `yaml:"show_notifications"`

	MarkAsDoneOnUnsubscribe bool `yaml:"mark_as_done_on_unsubscribe"`
	MarkAsDoneOnOpen        bool `yaml:"mark_as_done_on_open"`
}

// DefaultSettings returns the settings used before the user customizes anything.
func DefaultSettings() Settings {
	return Settings{
		Participating:          false,
		FetchAllNotifications:  true,
		FetchReadNotifications: false,
		DetailedNotifications:  true,
		DelayNotificationState: false,
		FetchInterval:          time.Minute,
		PlaySound:              true,
		ShowNotifications:      true,
	}
}

// Config is the on-disk application state: settings plus registered accounts.
// Account tokens are not part of the file; they live in the OS keyring.
type Config struct {
	Settings Settings        `yaml:"settings"`
	Accounts []model.Account `yaml:"accounts,omitempty"`

	path string
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine config directory: %w", err)
	}
	return filepath.Join(configDir, "gitify", "config.yaml"), nil
}

// Load reads the config from the default location. A missing file is not an
// error; it yields defaults so first-run works without setup.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config from an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{
		Settings: DefaultSettings(),
		path:     path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Settings.FetchInterval <= 0 {
		cfg.Settings.FetchInterval = DefaultSettings().FetchInterval
	}

	return cfg, nil
}

// Save writes the config back to the path it was loaded from.
func (c *Config) Save() error {
	if c.path == "" {
		path, err := DefaultPath()
		if err != nil {
			return err
		}
		c.path = path
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	return c.path
}
