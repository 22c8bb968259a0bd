package intent

import (
	"context"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/entity"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/llm"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
	"go.uber.org/zap"
)

// ruleShortCircuit is the rule score at or above which the model tier is skipped.
const ruleShortCircuit = 0.9

// Classifier runs the rule tier and falls back to the model tier.
type Classifier struct {
	rules       *Rules
	extractor   entity.Extractor
	model       llm.Generator
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithGeneration sets the model-tier sampling temperature and token cap.
func WithGeneration(temperature float64, maxTokens int) Option {
	return func(c *Classifier) {
		c.temperature = temperature
		c.maxTokens = maxTokens
	}
}

// NewClassifier creates a classifier. A nil model disables the model tier.
func NewClassifier(extractor entity.Extractor, model llm.Generator, opts ...Option) *Classifier {
	if extractor == nil {
		extractor = entity.NewExtractor(nil)
	}
	c := &Classifier{
		rules:     NewRules(extractor),
		extractor: extractor,
		model:     model,
		maxTokens: 500,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify never fails: model-tier problems degrade to conservative defaults.
func (c *Classifier) Classify(ctx context.Context, query string, history []models.Message) *Result {
	ruleResult := c.rules.Match(query)
	if ruleResult != nil && ruleResult.Confidence >= ruleShortCircuit {
		c.logger.Debug("rule tier matched",
			zap.String("intent", string(ruleResult.Intent)),
			zap.Float64("confidence", ruleResult.Confidence))
		return ruleResult
	}

	if c.model == nil {
		if ruleResult != nil {
			return ruleResult
		}
		return providerFailure()
	}

	raw, err := c.model.Generate(ctx, llm.Request{
		Prompt:      BuildPrompt(query, history),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		JSON:        true,
	})
	if err != nil {
		c.logger.Warn("model tier classification failed", zap.Error(err))
		return providerFailure()
	}

	res, err := ParseModelOutput(raw)
	if err != nil {
		c.logger.Warn("model tier returned malformed output", zap.Error(err), zap.String("raw", raw))
		res = malformedOutput(raw)
	}
	if len(res.CourseCodes()) == 0 {
		if codes := c.extractor.CourseCodes(query); len(codes) > 0 {
			res.Entities[EntityCourseCodes] = codes
		}
	}
	c.logger.Debug("model tier classified",
		zap.String("intent", string(res.Intent)),
		zap.Float64("confidence", res.Confidence))
	return res
}

func providerFailure() *Result {
	return newResult(GeneralQuestion, 0.3, nil, true, "fallback")
}

func malformedOutput(raw string) *Result {
	r := newResult(GeneralQuestion, 0.5, nil, true, "fallback")
	r.Raw = raw
	return r
}
