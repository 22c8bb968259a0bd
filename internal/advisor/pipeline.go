// Package advisor runs one student question through classification, reference resolution,
// retrieval, confidence scoring and answer shaping.
package advisor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/config"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/conversation"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/handoff"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/intent"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/llm"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/retrieval"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/scoring"
)

const apology = "I'm sorry, I ran into a problem while answering your question. " +
	"Please try again in a moment, or contact your academic advisor: "

const caveat = "\n\n---\nI'm not very confident about this answer. Please verify with your academic advisor: "

// Classifier labels a query with an intent.
type Classifier interface {
	Classify(ctx context.Context, query string, history []models.Message) *intent.Result
}

// RatingCounter counts unhelpful ratings for a session.
type RatingCounter interface {
	CountLowRatings(ctx context.Context, sessionID string, maxRating int) (int, error)
}

// Config holds the answer-shaping policy.
type Config struct {
	TopK int
	// ReplaceThreshold is the overall score below which an escalation replaces the answer.
	ReplaceThreshold float64
	BookingURL       string
	// DisableHandoff flags escalations without attaching the handoff message.
	DisableHandoff     bool
	LowRatingThreshold int
	QueryTimeout       time.Duration
	MaxHistoryMessages int
	MaxHistoryTokens   int
	Temperature        float64
	MaxTokens          int
}

// ConfigFrom extracts the pipeline policy from the application config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		TopK:               cfg.Advisor.TopK,
		ReplaceThreshold:   cfg.Advisor.ReplaceThreshold,
		BookingURL:         cfg.Advisor.BookingURL,
		DisableHandoff:     !cfg.Advisor.HandoffEnabled(),
		LowRatingThreshold: cfg.Advisor.LowRatingThreshold,
		QueryTimeout:       cfg.Advisor.QueryTimeout,
		MaxHistoryMessages: cfg.Advisor.MaxHistoryMessages,
		MaxHistoryTokens:   cfg.Advisor.MaxHistoryTokens,
		Temperature:        cfg.LLM.MainTemperature,
		MaxTokens:          cfg.LLM.MaxTokens,
	}
}

// Deps are the collaborators a Pipeline calls. Handoffs and Ratings are optional.
type Deps struct {
	Classifier Classifier
	Sessions   *conversation.Manager
	Retriever  retrieval.Retriever
	Generator  llm.Generator
	Scorer     *scoring.Scorer
	Handoffs   *handoff.Manager
	Ratings    RatingCounter
}

// Pipeline answers student questions.
type Pipeline struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline wires a pipeline. Zero config values fall back to the standard policy.
func NewPipeline(deps Deps, cfg Config, opts ...Option) *Pipeline {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.ReplaceThreshold == 0 {
		cfg.ReplaceThreshold = 0.3
	}
	if cfg.BookingURL == "" {
		cfg.BookingURL = config.DefaultBookingURL
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 30 * time.Second
	}
	if cfg.MaxHistoryMessages <= 0 {
		cfg.MaxHistoryMessages = 10
	}
	if cfg.MaxHistoryTokens <= 0 {
		cfg.MaxHistoryTokens = 2000
	}
	if deps.Classifier == nil {
		deps.Classifier = intent.NewClassifier(nil, nil)
	}
	if deps.Sessions == nil {
		deps.Sessions = conversation.NewManager(nil, nil)
	}
	if deps.Scorer == nil {
		deps.Scorer = scoring.NewScorer(scoring.DefaultConfig())
	}
	p := &Pipeline{deps: deps, cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Sessions exposes the conversation manager for session administration.
func (p *Pipeline) Sessions() *conversation.Manager { return p.deps.Sessions }

// Ask answers one question. It only fails for an invalid request; every downstream
// problem is folded into the response.
func (p *Pipeline) Ask(ctx context.Context, req models.AskRequest) (*models.AskResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.cfg.QueryTimeout)
	defer cancel()

	var sess *conversation.Session
	if req.SessionID != "" {
		s, err := p.deps.Sessions.Open(ctx, req.SessionID)
		if err != nil {
			p.logger.Warn("session unavailable, answering without context",
				zap.String("session_id", req.SessionID), zap.Error(err))
		} else {
			sess = s
			defer func() {
				if err := sess.Close(context.WithoutCancel(ctx)); err != nil {
					p.logger.Warn("failed to save session", zap.String("session_id", req.SessionID), zap.Error(err))
				}
			}()
		}
	}

	prior := req.History
	if len(prior) == 0 && sess != nil {
		prior = sess.Context().RecentMessages(0)
	}

	t := &turn{req: req, prior: prior, resolved: req.Query, contextResolved: true}

	t.class = p.deps.Classifier.Classify(ctx, req.Query, prior)
	p.logger.Debug("classified",
		zap.String("intent", string(t.class.Intent)),
		zap.Float64("confidence", t.class.Confidence),
		zap.String("source", t.class.Source))

	var summary string
	if sess != nil {
		if t.class.RequiresContext {
			resolved, modified := sess.ResolveReferences(req.Query)
			t.resolved = resolved
			t.contextResolved = modified
			p.logger.Debug("context resolution", zap.Bool("modified", modified), zap.String("resolved", resolved))
		}
		sess.AddUserMessage(req.Query)
		sess.SetIntent(string(t.class.Intent))
		summary = sess.Summary()
	}

	t.candidates = p.retrieve(ctx, t)
	t.score = p.deps.Scorer.Calculate(t.resolved, t.candidates, t.class.Confidence, t.contextResolved, req.History)
	p.decideEscalation(ctx, t)

	resp := p.shape(ctx, t, summary)
	if sess != nil {
		sess.AddAssistantMessage(resp.Answer)
	}
	if resp.EscalateToHuman {
		resp.HandoffID = p.openHandoff(ctx, t, sess)
	}
	resp.QueryTime = time.Since(start).Milliseconds()

	p.logger.Info("query answered",
		zap.String("intent", resp.Intent),
		zap.Float64("confidence", resp.Confidence),
		zap.String("level", resp.ConfidenceLevel),
		zap.Bool("escalate", resp.EscalateToHuman),
		zap.String("reason", resp.EscalationReason),
		zap.Duration("duration", time.Since(start)))
	return resp, nil
}

// turn carries the state of one Ask call between steps.
type turn struct {
	req             models.AskRequest
	prior           []models.Message
	class           *intent.Result
	resolved        string
	contextResolved bool
	candidates      []retrieval.Candidate
	score           *scoring.Score
	escalate        bool
	reason          scoring.Reason
}

func (p *Pipeline) retrieve(ctx context.Context, t *turn) []retrieval.Candidate {
	if p.deps.Retriever == nil {
		return nil
	}
	filter := models.SourceType(t.class.Intent.SourceFilter())
	candidates, err := p.deps.Retriever.Retrieve(ctx, t.resolved, p.cfg.TopK, filter)
	if err != nil {
		p.logger.Warn("retrieval failed", zap.String("filter", string(filter)), zap.Error(err))
		return nil
	}
	if initial := t.class.LastNameInitial(); initial != "" {
		candidates = retrieval.PreferLastNameRange(candidates, initial)
	}
	p.logger.Debug("retrieved", zap.String("filter", string(filter)), zap.Int("candidates", len(candidates)))
	return candidates
}

// decideEscalation combines the scorer's verdict with the classifier's and, last, the
// session's rating history.
func (p *Pipeline) decideEscalation(ctx context.Context, t *turn) {
	if t.score.ShouldEscalate {
		t.escalate = true
		t.reason = t.score.Reason
		return
	}
	if t.class.EscalateToHuman || t.class.Intent == intent.OutOfScope {
		t.escalate = true
		if r, ok := scoring.ParseReason(t.class.EscalationReason); ok {
			t.reason = r
		} else if t.class.Intent == intent.OutOfScope {
			t.reason = scoring.OutOfScope
		} else {
			t.reason = scoring.LowConfidence
		}
		return
	}
	if p.deps.Ratings == nil || t.req.SessionID == "" || p.cfg.LowRatingThreshold <= 0 {
		return
	}
	n, err := p.deps.Ratings.CountLowRatings(ctx, t.req.SessionID, models.LowRating)
	if err != nil {
		p.logger.Warn("failed to count low ratings", zap.String("session_id", t.req.SessionID), zap.Error(err))
		return
	}
	if n >= p.cfg.LowRatingThreshold {
		t.escalate = true
		t.reason = scoring.RepeatedLowRatings
	}
}

func (p *Pipeline) shape(ctx context.Context, t *turn, summary string) *models.AskResponse {
	resp := &models.AskResponse{
		Confidence:      t.score.Overall,
		ConfidenceLevel: string(t.score.Level),
		Intent:          string(t.class.Intent),
		Sources:         sources(t.candidates),
		EscalateToHuman: t.escalate,
		ContextResolved: t.contextResolved,
		SessionID:       t.req.SessionID,
	}
	if t.resolved != t.req.Query {
		resp.QueryRewritten = true
		resp.ResolvedQuery = t.resolved
	}
	if t.escalate {
		resp.EscalationReason = string(t.reason)
	}

	var message string
	if t.escalate && !p.cfg.DisableHandoff {
		message = handoff.Compose(t.reason, p.cfg.BookingURL, "")
		resp.EscalationMessage = message
	}
	if message != "" && t.score.Overall < p.cfg.ReplaceThreshold {
		p.logger.Debug("escalation replaces answer", zap.String("reason", string(t.reason)))
		resp.Answer = message
		resp.QuickReplies = QuickReplies(t.class.Intent, resp.Answer, true)
		return resp
	}

	answer, err := p.generate(ctx, t, summary)
	if err != nil {
		p.logger.Warn("generation failed", zap.Error(err))
		return p.degraded(t)
	}
	if p.deps.Generator != nil {
		resp.Model = p.deps.Generator.Model()
	}

	switch {
	case message != "":
		answer += "\n\n" + message
	case !t.escalate && t.score.Level == intent.Low:
		answer += caveat + p.cfg.BookingURL
	}
	resp.Answer = answer
	resp.QuickReplies = QuickReplies(t.class.Intent, answer, t.escalate)
	return resp
}

func (p *Pipeline) generate(ctx context.Context, t *turn, summary string) (string, error) {
	if p.deps.Generator == nil {
		return "", llm.ErrEmptyResponse
	}
	history := conversation.TruncateHistory(t.prior, p.cfg.MaxHistoryMessages, p.cfg.MaxHistoryTokens, nil)
	return p.deps.Generator.Generate(ctx, llm.Request{
		System:      SystemPrompt,
		History:     history,
		Prompt:      UserMessage(ContextBlock(t.candidates, summary), t.resolved),
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
	})
}

// degraded is the apology returned when no answer could be generated.
func (p *Pipeline) degraded(t *turn) *models.AskResponse {
	resp := &models.AskResponse{
		Answer:          apology + p.cfg.BookingURL,
		Confidence:      0,
		ConfidenceLevel: string(intent.Low),
		Intent:          string(t.class.Intent),
		Sources:         []models.Source{},
		EscalateToHuman: t.escalate,
		ContextResolved: t.contextResolved,
		SessionID:       t.req.SessionID,
		QuickReplies:    clone(escalationReplies),
	}
	if t.escalate {
		resp.EscalationReason = string(t.reason)
	}
	if t.resolved != t.req.Query {
		resp.QueryRewritten = true
		resp.ResolvedQuery = t.resolved
	}
	return resp
}

func (p *Pipeline) openHandoff(ctx context.Context, t *turn, sess *conversation.Session) string {
	if p.deps.Handoffs == nil || t.req.SessionID == "" {
		return ""
	}
	history := t.prior
	if sess != nil {
		history = sess.Context().RecentMessages(0)
	}
	hc := handoff.BuildContext(t.req.SessionID, t.req.Query, history, t.reason, t.score, p.deps.Handoffs.Now())
	ticket, err := p.deps.Handoffs.Open(context.WithoutCancel(ctx), hc)
	if err != nil {
		p.logger.Warn("failed to open handoff", zap.String("session_id", t.req.SessionID), zap.Error(err))
		return ""
	}
	return ticket.ID
}

func sources(candidates []retrieval.Candidate) []models.Source {
	out := make([]models.Source, len(candidates))
	for i, c := range candidates {
		out[i] = models.Source{Type: c.SourceType, Score: c.Score, Metadata: c.Metadata}
	}
	return out
}
