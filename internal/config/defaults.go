package config

import "time"

// DefaultBookingURL is the advisor appointment page linked from handoff messages.
const DefaultBookingURL = "https://sjsu.campus.eab.com/student/appointments/new"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/hal/data/db/hal.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/hal/data/indices/bleve"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/hal/data/indices/vectors.bin"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "hash"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/hal/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	applyLLMDefaults(&cfg.LLM)
	applyAdvisorDefaults(&cfg.Advisor)
	if cfg.Session.Backend == "" {
		cfg.Session.Backend = "memory"
	}
	if cfg.Session.Timeout == 0 {
		cfg.Session.Timeout = 30 * time.Minute
	}
	if cfg.Session.RedisAddr == "" {
		cfg.Session.RedisAddr = "localhost:6379"
	}
	if cfg.Session.KeyPrefix == "" {
		cfg.Session.KeyPrefix = "hal:session:"
	}
	if cfg.Session.ReapSchedule == "" {
		cfg.Session.ReapSchedule = "*/5 * * * *"
	}
	if cfg.Knowledge.Extensions == nil {
		cfg.Knowledge.Extensions = []string{".txt", ".md", ".pdf", ".docx", ".rtf", ".odt", ".xlsx", ".yaml", ".yml"}
	}
	if cfg.Knowledge.SnapshotSchedule == "" {
		cfg.Knowledge.SnapshotSchedule = "*/15 * * * *"
	}
	if cfg.Knowledge.ChunkSize == 0 {
		cfg.Knowledge.ChunkSize = 200
	}
	if cfg.Knowledge.ChunkOverlap == 0 {
		cfg.Knowledge.ChunkOverlap = 30
	}
}

func applyLLMDefaults(l *LLMConfig) {
	if l.Provider == "" {
		l.Provider = "claude"
	}
	if l.MainModel == "" {
		switch l.Provider {
		case "openai":
			l.MainModel = "gpt-4o"
		case "ollama":
			l.MainModel = "llama3.1"
		default:
			l.MainModel = "claude-sonnet-4-20250514"
		}
	}
	if l.ClassifierModel == "" {
		switch l.Provider {
		case "openai":
			l.ClassifierModel = "gpt-4o-mini"
		case "ollama":
			l.ClassifierModel = l.MainModel
		default:
			l.ClassifierModel = "claude-3-5-haiku-20241022"
		}
	}
	if l.MainTemperature == 0 {
		l.MainTemperature = 0.2
	}
	if l.MaxTokens == 0 {
		l.MaxTokens = 1024
	}
	if l.ClassifierMaxTokens == 0 {
		l.ClassifierMaxTokens = 500
	}
	if l.OpenAIBaseURL == "" {
		l.OpenAIBaseURL = "https://api.openai.com/v1"
	}
	if l.OllamaURL == "" {
		l.OllamaURL = "http://localhost:11434"
	}
	if l.Timeout == 0 {
		l.Timeout = 60 * time.Second
	}
	if l.RequestsPerSecond == 0 {
		l.RequestsPerSecond = 5
	}
	if l.Burst == 0 {
		l.Burst = 10
	}
}

func applyAdvisorDefaults(a *AdvisorConfig) {
	if a.TopK == 0 {
		a.TopK = 5
	}
	if a.HighThreshold == 0 {
		a.HighThreshold = 0.8
	}
	if a.MediumThreshold == 0 {
		a.MediumThreshold = 0.5
	}
	if a.EscalationThreshold == 0 {
		a.EscalationThreshold = 0.4
	}
	if a.ReplaceThreshold == 0 {
		a.ReplaceThreshold = 0.3
	}
	if a.NoDocsScore == 0 {
		a.NoDocsScore = 0.3
	}
	if a.GenericRelevance == 0 {
		a.GenericRelevance = 0.5
	}
	if a.LowRatingThreshold == 0 {
		a.LowRatingThreshold = 2
	}
	if a.QueryTimeout == 0 {
		a.QueryTimeout = 30 * time.Second
	}
	if a.MaxHistoryMessages == 0 {
		a.MaxHistoryMessages = 10
	}
	if a.MaxHistoryTokens == 0 {
		a.MaxHistoryTokens = 2000
	}
	if a.BookingURL == "" {
		a.BookingURL = DefaultBookingURL
	}
	if a.Departments == nil {
		a.Departments = []string{"CS", "CMPE", "ENGR", "ISE", "MATH"}
	}
}
