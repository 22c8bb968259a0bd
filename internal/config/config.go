// Package config provides configuration loading and structs for the HAL advisor service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Advisor   AdvisorConfig   `yaml:"advisor"`
	Session   SessionConfig   `yaml:"session"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Handoff   HandoffConfig   `yaml:"handoff"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StorageConfig holds paths for the database and indices.
type StorageConfig struct {
	DatabasePath       string `yaml:"database_path"`
	BleveIndexPath     string `yaml:"bleve_index_path"`
	VectorIndexPath    string `yaml:"vector_index_path"`
	EmbeddingCachePath string `yaml:"embedding_cache_path"`
}

// EmbeddingConfig selects and sizes the embedder.
// Provider is "hash" (deterministic, offline) or "onnx" (requires CGO).
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// LLMConfig configures the text-generation backend shared by the classifier and the answer step.
type LLMConfig struct {
	Provider              string        `yaml:"provider"` // claude, openai, ollama, mock
	AnthropicAPIKey       string        `yaml:"anthropic_api_key"`
	OpenAIAPIKey          string        `yaml:"openai_api_key"`
	OpenAIBaseURL         string        `yaml:"openai_base_url"`
	OllamaURL             string        `yaml:"ollama_url"`
	MainModel             string        `yaml:"main_model"`
	ClassifierModel       string        `yaml:"classifier_model"`
	MainTemperature       float64       `yaml:"main_temperature"`
	ClassifierTemperature float64       `yaml:"classifier_temperature"`
	MaxTokens             int           `yaml:"max_tokens"`
	ClassifierMaxTokens   int           `yaml:"classifier_max_tokens"`
	Timeout               time.Duration `yaml:"timeout"`
	RequestsPerSecond     float64       `yaml:"requests_per_second"`
	Burst                 int           `yaml:"burst"`
}

// AdvisorConfig holds pipeline thresholds and policy constants.
type AdvisorConfig struct {
	TopK                int           `yaml:"top_k"`
	HighThreshold       float64       `yaml:"high_threshold"`
	MediumThreshold     float64       `yaml:"medium_threshold"`
	EscalationThreshold float64       `yaml:"escalation_threshold"`
	ReplaceThreshold    float64       `yaml:"replace_threshold"`
	NoDocsScore         float64       `yaml:"no_docs_score"`
	GenericRelevance    float64       `yaml:"generic_relevance"`
	ComplexTurns        *int          `yaml:"complex_turns"`
	LowRatingThreshold  int           `yaml:"low_rating_threshold"`
	QueryTimeout        time.Duration `yaml:"query_timeout"`
	MaxHistoryMessages  int           `yaml:"max_history_messages"`
	MaxHistoryTokens    int           `yaml:"max_history_tokens"`
	BookingURL          string        `yaml:"booking_url"`
	EnableHandoff       *bool         `yaml:"enable_handoff"`
	Departments         []string      `yaml:"departments"`
}

// ComplexTurnsOrDefault returns the history length that triggers complex_multi_part_query.
// Zero disables the trigger; unset means 6.
func (a *AdvisorConfig) ComplexTurnsOrDefault() int {
	if a.ComplexTurns != nil {
		return *a.ComplexTurns
	}
	return 6
}

// HandoffEnabled reports whether escalation messages are attached to answers; defaults to true.
func (a *AdvisorConfig) HandoffEnabled() bool {
	if a.EnableHandoff != nil {
		return *a.EnableHandoff
	}
	return true
}

// SessionConfig selects the conversation context backend.
type SessionConfig struct {
	Backend       string        `yaml:"backend"` // memory or redis
	Timeout       time.Duration `yaml:"timeout"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	KeyPrefix     string        `yaml:"key_prefix"`
	ReapSchedule  string        `yaml:"reap_schedule"`
}

// KnowledgeConfig lists knowledge sources ingested into the retrieval index.
type KnowledgeConfig struct {
	Directories      []string `yaml:"directories"`
	Extensions       []string `yaml:"extensions"`
	SeedFiles        []string `yaml:"seed_files"`
	Watch            bool     `yaml:"watch"`
	SnapshotSchedule string   `yaml:"snapshot_schedule"`
	ChunkSize        int      `yaml:"chunk_size"`
	ChunkOverlap     int      `yaml:"chunk_overlap"`
}

// HandoffConfig holds optional advisor notification settings.
type HandoffConfig struct {
	SlackToken    string        `yaml:"slack_token"`
	SlackChannel  string        `yaml:"slack_channel"`
	NotifyTimeout time.Duration `yaml:"notify_timeout"`
}

// Load reads and parses the config file at path, expands paths and ${ENV} references, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	expandSecrets(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Storage.EmbeddingCachePath = expandPath(cfg.Storage.EmbeddingCachePath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	for i := range cfg.Knowledge.Directories {
		cfg.Knowledge.Directories[i] = expandPath(cfg.Knowledge.Directories[i], configDir)
	}
	for i := range cfg.Knowledge.SeedFiles {
		cfg.Knowledge.SeedFiles[i] = expandPath(cfg.Knowledge.SeedFiles[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandSecrets resolves ${VAR} references in credential fields and falls back to the
// conventional environment variables when a key is left empty.
func expandSecrets(cfg *Config) {
	cfg.LLM.AnthropicAPIKey = envOr(os.ExpandEnv(cfg.LLM.AnthropicAPIKey), "ANTHROPIC_API_KEY")
	cfg.LLM.OpenAIAPIKey = envOr(os.ExpandEnv(cfg.LLM.OpenAIAPIKey), "OPENAI_API_KEY")
	cfg.Session.RedisPassword = os.ExpandEnv(cfg.Session.RedisPassword)
	cfg.Handoff.SlackToken = envOr(os.ExpandEnv(cfg.Handoff.SlackToken), "SLACK_BOT_TOKEN")
}

func envOr(value, name string) string {
	if value != "" {
		return value
	}
	return os.Getenv(name)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
