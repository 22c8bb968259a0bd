// Package llm provides a uniform text-generation capability over Claude, OpenAI, and Ollama.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/config"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
	"go.uber.org/zap"
)

var (
	// ErrEmptyResponse is returned when a provider answers without any text.
	ErrEmptyResponse = errors.New("llm returned an empty response")
	// ErrRateLimited is returned when the local limiter rejects a call.
	ErrRateLimited = errors.New("llm rate limit exceeded")
)

// Request is one generation call. History precedes Prompt, which is sent as the final user turn.
type Request struct {
	System      string
	History     []models.Message
	Prompt      string
	Temperature float64
	MaxTokens   int
	// JSON asks providers that support it to constrain output to a JSON object.
	JSON bool
}

// Generator turns a prompt plus optional history into text.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Model() string
}

// Role selects which configured model a generator uses.
type Role int

const (
	RoleMain Role = iota
	RoleClassifier
)

// New builds the generator for cfg.Provider, wrapped with the configured rate limit.
func New(cfg config.LLMConfig, role Role, logger *zap.Logger) (Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	model := cfg.MainModel
	if role == RoleClassifier {
		model = cfg.ClassifierModel
	}

	var gen Generator
	switch strings.ToLower(cfg.Provider) {
	case "claude", "anthropic", "":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic api key is not set")
		}
		gen = NewAnthropic(cfg.AnthropicAPIKey, model)
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai api key is not set")
		}
		gen = NewOpenAI(&OpenAIConfig{APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL, Model: model, Timeout: cfg.Timeout})
	case "ollama":
		gen = NewOllama(&OllamaConfig{URL: cfg.OllamaURL, Model: model, Timeout: cfg.Timeout})
	case "mock":
		gen = NewMock(model)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}

	logger.Info("llm generator ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", model),
		zap.Float64("rps", cfg.RequestsPerSecond))

	if cfg.RequestsPerSecond > 0 {
		gen = NewRateLimited(gen, cfg.RequestsPerSecond, cfg.Burst)
	}
	return gen, nil
}
