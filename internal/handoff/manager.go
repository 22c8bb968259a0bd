package handoff

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/storage"
)

// DefaultNotifyTimeout bounds a single advisor notification.
const DefaultNotifyTimeout = 5 * time.Second

// Manager records handoff tickets and notifies advisors.
type Manager struct {
	store         storage.Storage
	notifier      Notifier
	notifyTimeout time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithNotifier sets the advisor notifier.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithNotifyTimeout bounds how long Open waits on the notifier. Non-positive values keep the default.
func WithNotifyTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.notifyTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a handoff manager backed by store.
func NewManager(store storage.Storage, opts ...Option) *Manager {
	m := &Manager{store: store, notifyTimeout: DefaultNotifyTimeout, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return m
}

// Now returns the manager's clock reading.
func (m *Manager) Now() time.Time { return m.now() }

// Open persists a ticket for hc. A notifier failure or timeout is logged, not returned.
func (m *Manager) Open(ctx context.Context, hc *Context) (*models.HandoffTicket, error) {
	ticket := hc.Ticket()
	if err := m.store.CreateHandoff(ctx, ticket); err != nil {
		return nil, fmt.Errorf("open handoff: %w", err)
	}
	m.logger.Info("handoff opened",
		zap.String("id", ticket.ID),
		zap.String("session_id", ticket.SessionID),
		zap.String("reason", ticket.Reason),
	)
	if m.notifier != nil {
		nctx, cancel := context.WithTimeout(ctx, m.notifyTimeout)
		err := m.notifier.Notify(nctx, ticket)
		cancel()
		if err != nil {
			m.logger.Warn("handoff notification failed", zap.String("id", ticket.ID), zap.Error(err))
		}
	}
	return ticket, nil
}

// ListOpen returns open tickets, oldest first.
func (m *Manager) ListOpen(ctx context.Context, limit int) ([]*models.HandoffTicket, error) {
	return m.store.ListHandoffs(ctx, models.HandoffOpen, limit)
}

// Resolve closes an open ticket.
func (m *Manager) Resolve(ctx context.Context, id string) (*models.HandoffTicket, error) {
	if err := m.store.ResolveHandoff(ctx, id, m.now()); err != nil {
		return nil, err
	}
	m.logger.Info("handoff resolved", zap.String("id", id))
	return m.store.GetHandoff(ctx, id)
}
