package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/entity"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
	"go.uber.org/zap"
)

// DefaultTimeout is the idle period after which a session starts over.
const DefaultTimeout = 30 * time.Minute

// Manager owns all session contexts. Access to one session is serialized;
// different sessions never share a lock.
type Manager struct {
	store     Store
	extractor entity.Extractor
	timeout   time.Duration
	now       func() time.Time
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout overrides the session idle timeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a manager over store. A nil store uses memory.
func NewManager(store Store, extractor entity.Extractor, opts ...Option) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	if extractor == nil {
		extractor = entity.NewExtractor(nil)
	}
	m := &Manager{
		store:     store,
		extractor: extractor,
		timeout:   DefaultTimeout,
		now:       time.Now,
		logger:    zap.NewNop(),
		locks:     make(map[string]*sessionLock),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Timeout returns the configured idle timeout.
func (m *Manager) Timeout() time.Duration { return m.timeout }

func (m *Manager) lock(sessionID string) func() {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		m.locks[sessionID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, sessionID)
		}
		m.mu.Unlock()
	}
}

// Session is exclusive access to one context for the length of a unit of work.
// Changes are written back by Close.
type Session struct {
	m      *Manager
	ctx    *Context
	unlock func()
	dirty  bool
	closed bool
}

// Open locks sessionID and loads its context, replacing it with a fresh one if it has expired.
// The caller must Close the session.
func (m *Manager) Open(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	unlock := m.lock(sessionID)

	now := m.now()
	c, err := m.store.Load(ctx, sessionID)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	dirty := false
	switch {
	case c == nil:
		c = NewContext(sessionID, now)
		dirty = true
	case c.Expired(now, m.timeout):
		m.logger.Debug("session expired, starting fresh", zap.String("session_id", sessionID))
		c = NewContext(sessionID, now)
		dirty = true
	}
	return &Session{m: m, ctx: c, unlock: unlock, dirty: dirty}, nil
}

// Context returns the live context. It must not be retained after Close.
func (s *Session) Context() *Context { return s.ctx }

// AddUserMessage records a student turn and updates topic tracking.
func (s *Session) AddUserMessage(content string) {
	s.ctx.AddMessage(models.RoleUser, content, s.m.now(), s.m.extractor)
	s.dirty = true
}

// AddAssistantMessage records a bot turn.
func (s *Session) AddAssistantMessage(content string) {
	s.ctx.AddMessage(models.RoleAssistant, content, s.m.now(), s.m.extractor)
	s.dirty = true
}

// SetIntent records the last classified intent.
func (s *Session) SetIntent(intent string) {
	s.ctx.LastIntent = intent
	s.dirty = true
}

// ResolveReferences rewrites reference phrases using this session's topic.
func (s *Session) ResolveReferences(query string) (string, bool) {
	return s.ctx.Resolve(query)
}

// MessagesForLLM returns the bounded history for generation.
func (s *Session) MessagesForLLM(maxMessages, maxTokens int) []models.Message {
	return TruncateHistory(s.ctx.Messages, maxMessages, maxTokens, s.m.extractor)
}

// Summary renders the session for the generation prompt.
func (s *Session) Summary() string { return s.ctx.Summary() }

// Close saves pending changes and releases the session lock.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	defer s.unlock()
	if !s.dirty {
		return nil
	}
	if err := s.m.store.Save(ctx, s.ctx); err != nil {
		return fmt.Errorf("save session %s: %w", s.ctx.SessionID, err)
	}
	return nil
}

func (m *Manager) with(ctx context.Context, sessionID string, fn func(*Session)) error {
	s, err := m.Open(ctx, sessionID)
	if err != nil {
		return err
	}
	fn(s)
	return s.Close(ctx)
}

// GetContext returns a snapshot of the session's context, creating it if needed.
func (m *Manager) GetContext(ctx context.Context, sessionID string) (*Context, error) {
	var snapshot *Context
	err := m.with(ctx, sessionID, func(s *Session) { snapshot = s.ctx.Clone() })
	return snapshot, err
}

// AddUserMessage records a student turn.
func (m *Manager) AddUserMessage(ctx context.Context, sessionID, content string) error {
	return m.with(ctx, sessionID, func(s *Session) { s.AddUserMessage(content) })
}

// AddAssistantMessage records a bot turn.
func (m *Manager) AddAssistantMessage(ctx context.Context, sessionID, content string) error {
	return m.with(ctx, sessionID, func(s *Session) { s.AddAssistantMessage(content) })
}

// SetIntent records the last classified intent.
func (m *Manager) SetIntent(ctx context.Context, sessionID, intent string) error {
	return m.with(ctx, sessionID, func(s *Session) { s.SetIntent(intent) })
}

// ResolveReferences rewrites query against the session's topic.
func (m *Manager) ResolveReferences(ctx context.Context, sessionID, query string) (string, bool, error) {
	var (
		resolved string
		modified bool
	)
	err := m.with(ctx, sessionID, func(s *Session) { resolved, modified = s.ResolveReferences(query) })
	return resolved, modified, err
}

// Clear forgets a session.
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidSession
	}
	unlock := m.lock(sessionID)
	defer unlock()
	return m.store.Delete(ctx, sessionID)
}

// Reap drops every context idle for longer than the timeout.
func (m *Manager) Reap(ctx context.Context) (int, error) {
	n, err := m.store.Reap(ctx, m.now().Add(-m.timeout))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.logger.Info("reaped expired sessions", zap.Int("count", n))
	}
	return n, nil
}

// Close releases the underlying store.
func (m *Manager) Close() error { return m.store.Close() }
