package llm

import (
	"context"
	"fmt"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 1024

// Anthropic calls the Claude Messages API.
type Anthropic struct {
	client anthropic.Client
	model  string
}

// NewAnthropic creates a Claude generator for model.
func NewAnthropic(apiKey, model string, opts ...option.RequestOption) *Anthropic {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Anthropic{client: anthropic.NewClient(opts...), model: model}
}

// Model returns the configured model name.
func (a *Anthropic) Model() string { return a.model }

// Generate sends req as a single Messages call and returns the first text block.
func (a *Anthropic) Generate(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	messages := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, m := range req.History {
		switch m.Role {
		case models.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case models.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)))

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   int64(maxTokens),
		Messages:    messages,
		Temperature: anthropic.Float(req.Temperature),
	}
	if system := joinSystem(req); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}
	for _, block := range message.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", ErrEmptyResponse
}

// joinSystem folds system-role history entries into the system prompt; the Messages API
// accepts only user and assistant turns.
func joinSystem(req Request) string {
	system := req.System
	for _, m := range req.History {
		if m.Role != models.RoleSystem {
			continue
		}
		if system != "" {
			system += "\n\n"
		}
		system += m.Content
	}
	return system
}
