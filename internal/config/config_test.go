package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sentry.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("unexpected default address %q", cfg.Server.Address)
	}
	if cfg.Storage.RunStore.Driver != "memory" || cfg.Payment.Driver != "memory" {
		t.Fatalf("storage drivers should default to memory: %+v", cfg.Storage)
	}
	if cfg.Risk.IntentMode != "revoke_approval" {
		t.Fatalf("unexpected default intent mode %q", cfg.Risk.IntentMode)
	}
	if cfg.Budget.PerAppCapUSD != 10 || cfg.Budget.DailyCapUSD != 50 {
		t.Fatalf("unexpected budget defaults: %+v", cfg.Budget)
	}
}

func TestLoadResolvesRelativeBlacklistPath(t *testing.T) {
	path := writeConfig(t, `{"risk": {"blacklist_path": "blacklist.yaml"}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := filepath.Join(filepath.Dir(path), "blacklist.yaml")
	if cfg.Risk.BlacklistPath != want {
		t.Fatalf("blacklist path should resolve against the config dir: %q", cfg.Risk.BlacklistPath)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestResolvePrefersEnvironment(t *testing.T) {
	t.Setenv(envConfigPath, "/etc/sentry/sentry.json")
	if got := Resolve("configs/sentry.json"); got != "/etc/sentry/sentry.json" {
		t.Fatalf("environment should win, got %q", got)
	}
	t.Setenv(envConfigPath, "")
	if got := Resolve("configs/sentry.json"); got != "configs/sentry.json" {
		t.Fatalf("flag path should be used when env is empty, got %q", got)
	}
}
