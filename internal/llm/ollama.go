package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaConfig holds the Ollama client configuration.
type OllamaConfig struct {
	URL     string // Default: http://localhost:11434
	Model   string // Default: llama3.1
	Timeout time.Duration
}

// DefaultOllamaConfig returns the default configuration.
func DefaultOllamaConfig() *OllamaConfig {
	return &OllamaConfig{
		URL:     "http://localhost:11434",
		Model:   "llama3.1",
		Timeout: 5 * time.Minute,
	}
}

// Ollama calls a local Ollama server's /api/chat endpoint without streaming.
type Ollama struct {
	config     *OllamaConfig
	httpClient *http.Client
}

type ollamaChatRequest struct {
	Model    string                 `json:"model"`
	Messages []openAIMessage        `json:"messages"`
	Stream   bool                   `json:"stream"`
	Format   string                 `json:"format,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// NewOllama creates a new Ollama generator; nil config uses DefaultOllamaConfig.
func NewOllama(cfg *OllamaConfig) *Ollama {
	def := DefaultOllamaConfig()
	if cfg == nil {
		cfg = def
	}
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Ollama{config: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}
}

// Model returns the configured model name.
func (o *Ollama) Model() string { return o.config.Model }

// Generate performs a synchronous chat call.
func (o *Ollama) Generate(ctx context.Context, req Request) (string, error) {
	body := ollamaChatRequest{
		Model:    o.config.Model,
		Messages: chatMessages(req),
		Stream:   false,
		Options:  map[string]interface{}{"temperature": req.Temperature},
	}
	if req.MaxTokens > 0 {
		body.Options["num_predict"] = req.MaxTokens
	}
	if req.JSON {
		body.Format = "json"
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(o.config.URL, "/")+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ollama error: %s", parsed.Error)
	}
	if parsed.Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return parsed.Message.Content, nil
}
