package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	path := writeConfig(t, `
debug: true
storage:
  database_path: "test.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/db/hal.db"
knowledge:
  directories: ["./knowledge"]
  seed_files: ["./seed/courses.yaml"]
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "db", "hal.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("DatabasePath = %q, want %q", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "knowledge"); cfg.Knowledge.Directories[0] != want {
		t.Errorf("Directories[0] = %q, want %q", cfg.Knowledge.Directories[0], want)
	}
	if want := filepath.Join(dir, "seed", "courses.yaml"); cfg.Knowledge.SeedFiles[0] != want {
		t.Errorf("SeedFiles[0] = %q, want %q", cfg.Knowledge.SeedFiles[0], want)
	}
}

func TestLoad_durationsAndEnvSecrets(t *testing.T) {
	t.Setenv("HAL_TEST_KEY", "sk-test")
	path := writeConfig(t, `
llm:
  provider: claude
  anthropic_api_key: "${HAL_TEST_KEY}"
session:
  timeout: 45m
advisor:
  query_timeout: 5s
  complex_turns: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.AnthropicAPIKey != "sk-test" {
		t.Errorf("AnthropicAPIKey = %q", cfg.LLM.AnthropicAPIKey)
	}
	if cfg.Session.Timeout != 45*time.Minute {
		t.Errorf("Session.Timeout = %v", cfg.Session.Timeout)
	}
	if cfg.Advisor.QueryTimeout != 5*time.Second {
		t.Errorf("QueryTimeout = %v", cfg.Advisor.QueryTimeout)
	}
	if cfg.Advisor.ComplexTurnsOrDefault() != 0 {
		t.Errorf("complex_turns: 0 should disable the trigger, got %d", cfg.Advisor.ComplexTurnsOrDefault())
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)

	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Session.Timeout != 30*time.Minute {
		t.Errorf("Session.Timeout = %v, want 30m", cfg.Session.Timeout)
	}
	if cfg.Session.Backend != "memory" {
		t.Errorf("Session.Backend = %q", cfg.Session.Backend)
	}
	a := cfg.Advisor
	if a.TopK != 5 || a.HighThreshold != 0.8 || a.MediumThreshold != 0.5 || a.EscalationThreshold != 0.4 {
		t.Errorf("advisor thresholds not defaulted: %+v", a)
	}
	if a.ReplaceThreshold != 0.3 || a.NoDocsScore != 0.3 || a.GenericRelevance != 0.5 {
		t.Errorf("advisor policy constants not defaulted: %+v", a)
	}
	if a.ComplexTurnsOrDefault() != 6 {
		t.Errorf("ComplexTurnsOrDefault = %d, want 6", a.ComplexTurnsOrDefault())
	}
	if !a.HandoffEnabled() {
		t.Error("handoff should be enabled by default")
	}
	if a.BookingURL != DefaultBookingURL {
		t.Errorf("BookingURL = %q", a.BookingURL)
	}
	if cfg.LLM.Provider != "claude" || cfg.LLM.ClassifierModel != "claude-3-5-haiku-20241022" {
		t.Errorf("llm defaults: %+v", cfg.LLM)
	}
	if cfg.LLM.ClassifierTemperature != 0 {
		t.Errorf("classifier temperature should stay 0, got %v", cfg.LLM.ClassifierTemperature)
	}
}

func TestApplyDefaults_providerModels(t *testing.T) {
	cfg := Config{LLM: LLMConfig{Provider: "openai"}}
	ApplyDefaults(&cfg)
	if cfg.LLM.MainModel != "gpt-4o" || cfg.LLM.ClassifierModel != "gpt-4o-mini" {
		t.Errorf("openai models: main=%q classifier=%q", cfg.LLM.MainModel, cfg.LLM.ClassifierModel)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := &Config{Server: ServerConfig{Host: "0.0.0.0", Port: 9999}}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9999 || loaded.Server.Host != "0.0.0.0" {
		t.Errorf("loaded server = %+v", loaded.Server)
	}
}

func TestLoad_handoffNotifyTimeout(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "test.db"
handoff:
  slack_channel: advising
  notify_timeout: 750ms
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Handoff.NotifyTimeout != 750*time.Millisecond {
		t.Errorf("notify_timeout = %v, want 750ms", cfg.Handoff.NotifyTimeout)
	}
}
