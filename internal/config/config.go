package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// #region types

// Config is the full runtime configuration, loaded from YAML with
// environment overrides on top.
type Config struct {
	// DBPath is the sqlite file shared by the registry, preference memory,
	// and audit log.
	DBPath string `yaml:"db_path"`
	// DevicesFile optionally seeds the registry from a capability JSON file.
	DevicesFile string `yaml:"devices_file"`
	// Enabled is the kill switch: when false, cycles sense and log but never
	// suggest.
	Enabled bool `yaml:"enabled"`

	Oracle   OracleConfig   `yaml:"oracle"`
	Memory   MemoryConfig   `yaml:"memory"`
	Gate     GateConfig     `yaml:"gate"`
	Budget   BudgetConfig   `yaml:"budget"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Sense    SenseConfig    `yaml:"sense"`
	Safety   SafetyConfig   `yaml:"safety"`
}

// OracleConfig selects and tunes the reasoning backend.
type OracleConfig struct {
	// Provider is "ollama" or "gemini".
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	EmbedModel     string `yaml:"embed_model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	// APIKeyEnv names the environment variable holding the gemini key.
	APIKeyEnv string `yaml:"api_key_env"`
}

// MemoryConfig tunes preference memory.
type MemoryConfig struct {
	DupThreshold float32 `yaml:"dup_threshold"`
	QueryK       int     `yaml:"query_k"`
}

// GateConfig tunes the confirmation gate.
type GateConfig struct {
	ConfirmTimeoutSeconds int `yaml:"confirm_timeout_seconds"`
}

// BudgetConfig tunes the proactivity budget.
type BudgetConfig struct {
	CooldownMinutes int `yaml:"cooldown_minutes"`
}

// DispatchConfig tunes the dispatcher.
type DispatchConfig struct {
	// BusyPolicy is "reject" or "queue".
	BusyPolicy            string `yaml:"busy_policy"`
	ExecuteTimeoutSeconds int    `yaml:"execute_timeout_seconds"`
}

// SenseConfig tunes packet building.
type SenseConfig struct {
	FreshForSeconds      int `yaml:"fresh_for_seconds"`
	DecayTTLSeconds      int `yaml:"decay_ttl_seconds"`
	SourceTimeoutSeconds int `yaml:"source_timeout_seconds"`
}

// SafetyConfig tunes the built-in safety rules.
type SafetyConfig struct {
	TemperatureCeiling float64  `yaml:"temperature_ceiling"`
	ProtectedPatterns  []string `yaml:"protected_patterns"`
}

// #endregion types

// #region defaults

// Default returns the configuration used when no file or overrides exist.
func Default() Config {
	return Config{
		DBPath:  "sadaf.db",
		Enabled: true,
		Oracle: OracleConfig{
			Provider:       "ollama",
			Model:          "llama3.1",
			EmbedModel:     "nomic-embed-text",
			TimeoutSeconds: 60,
			APIKeyEnv:      "GEMINI_API_KEY",
		},
		Memory:   MemoryConfig{DupThreshold: 0.85, QueryK: 3},
		Gate:     GateConfig{ConfirmTimeoutSeconds: 120},
		Budget:   BudgetConfig{CooldownMinutes: 10},
		Dispatch: DispatchConfig{BusyPolicy: "reject", ExecuteTimeoutSeconds: 15},
		Sense:    SenseConfig{FreshForSeconds: 30, DecayTTLSeconds: 600, SourceTimeoutSeconds: 5},
		Safety:   SafetyConfig{TemperatureCeiling: 60, ProtectedPatterns: []string{"router", "refrigerator", "fridge", "security_camera"}},
	}
}

// #endregion defaults

// #region load

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env overrides
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv layers SADAF_* overrides on top of the file.
func applyEnv(cfg *Config) {
	cfg.DBPath = envOr("SADAF_DB_PATH", cfg.DBPath)
	cfg.DevicesFile = envOr("SADAF_DEVICES_FILE", cfg.DevicesFile)
	cfg.Oracle.Provider = envOr("SADAF_ORACLE_PROVIDER", cfg.Oracle.Provider)
	cfg.Oracle.Model = envOr("SADAF_ORACLE_MODEL", cfg.Oracle.Model)
	cfg.Oracle.EmbedModel = envOr("SADAF_EMBED_MODEL", cfg.Oracle.EmbedModel)
	if v, ok := envBool("SADAF_ENABLED"); ok {
		cfg.Enabled = v
	}
	if v, ok := envInt("SADAF_CONFIRM_TIMEOUT_SECONDS"); ok {
		cfg.Gate.ConfirmTimeoutSeconds = v
	}
	if v, ok := envInt("SADAF_COOLDOWN_MINUTES"); ok {
		cfg.Budget.CooldownMinutes = v
	}
}

// #endregion load

// #region env-helpers

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// #endregion env-helpers
