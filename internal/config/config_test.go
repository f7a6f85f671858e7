package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.DBPath != "sadaf.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if !cfg.Enabled {
		t.Fatal("expected enabled by default")
	}
	if cfg.Memory.DupThreshold != 0.85 {
		t.Fatalf("expected dup threshold 0.85, got %v", cfg.Memory.DupThreshold)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sadaf.yaml")
	body := `
db_path: /tmp/other.db
oracle:
  provider: gemini
  model: gemini-2.0-flash
gate:
  confirm_timeout_seconds: 45
safety:
  temperature_ceiling: 55
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/other.db" {
		t.Fatalf("expected file db path, got %q", cfg.DBPath)
	}
	if cfg.Oracle.Provider != "gemini" || cfg.Oracle.Model != "gemini-2.0-flash" {
		t.Fatalf("oracle config not applied: %+v", cfg.Oracle)
	}
	if cfg.Gate.ConfirmTimeoutSeconds != 45 {
		t.Fatalf("expected 45s confirm timeout, got %d", cfg.Gate.ConfirmTimeoutSeconds)
	}
	if cfg.Safety.TemperatureCeiling != 55 {
		t.Fatalf("expected ceiling 55, got %v", cfg.Safety.TemperatureCeiling)
	}
	// Untouched sections keep defaults.
	if cfg.Budget.CooldownMinutes != 10 {
		t.Fatalf("expected default cooldown, got %d", cfg.Budget.CooldownMinutes)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("SADAF_DB_PATH", "/tmp/env.db")
	t.Setenv("SADAF_ENABLED", "false")
	t.Setenv("SADAF_COOLDOWN_MINUTES", "3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/env.db" {
		t.Fatalf("env db path not applied, got %q", cfg.DBPath)
	}
	if cfg.Enabled {
		t.Fatal("SADAF_ENABLED=false should disable")
	}
	if cfg.Budget.CooldownMinutes != 3 {
		t.Fatalf("expected cooldown 3, got %d", cfg.Budget.CooldownMinutes)
	}
}
