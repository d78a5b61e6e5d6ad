package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gitify-app/gitify-sub003/internal/model"
)

func TestLoadFromMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Settings != DefaultSettings() {
		t.Errorf("settings = %+v, want defaults", cfg.Settings)
	}
	if len(cfg.Accounts) != 0 {
		t.Errorf("accounts = %d, want 0", len(cfg.Accounts))
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	cfg.Settings.Participating = true
	cfg.Settings.FetchInterval = 2 * time.Minute
	cfg.Accounts = []model.Account{
		{
			Hostname: "github.com",
			Method:   model.MethodPersonalAccessToken,
			Platform: model.PlatformCloud,
			User:     model.User{ID: 1, Login: "octocat"},
		},
	}

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom after save: %v", err)
	}
	if !loaded.Settings.Participating {
		t.Error("Participating not persisted")
	}
	if loaded.Settings.FetchInterval != 2*time.Minute {
		t.Errorf("FetchInterval = %v", loaded.Settings.FetchInterval)
	}
	if len(loaded.Accounts) != 1 || loaded.Accounts[0].User.Login != "octocat" {
		t.Errorf("accounts not persisted: %+v", loaded.Accounts)
	}
}

func TestLoadFromFixesNonPositiveInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "settings:\n  fetch_interval: 0\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Settings.FetchInterval != DefaultSettings().FetchInterval {
		t.Errorf("FetchInterval = %v, want default", cfg.Settings.FetchInterval)
	}
}

func TestConfigFileDoesNotContainTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Accounts = []model.Account{
		{
			Hostname: "github.com",
			Method:   model.MethodPersonalAccessToken,
			Platform: model.PlatformCloud,
			User:     model.User{ID: 1, Login: "octocat"},
		},
	}
	if err := cfg.Save(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := strings.ToLower(string(data))
	for _, needle := range []string{"token:", "secret:"} {
		if strings.Contains(content, needle) {
			t.Errorf("config file contains a %q field:\n%s", needle, data)
		}
	}
}
