package conversation

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInvalidSession is returned for an empty session id or nil context.
var ErrInvalidSession = errors.New("invalid session")

// Store persists contexts by session id. Load returns nil, nil for an unknown session.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Context, error)
	Save(ctx context.Context, c *Context) error
	Delete(ctx context.Context, sessionID string) error
	// Reap removes contexts idle since before cutoff and reports how many were removed.
	Reap(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}

// MemoryStore keeps contexts in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	contexts map[string]*Context
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{contexts: make(map[string]*Context)}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (*Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contexts[sessionID]
	if !ok {
		return nil, nil
	}
	return c.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, c *Context) error {
	if c == nil || c.SessionID == "" {
		return ErrInvalidSession
	}
	s.mu.Lock()
	s.contexts[c.SessionID] = c.Clone()
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.contexts, sessionID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Reap(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, c := range s.contexts {
		if c.LastActivity.Before(cutoff) {
			delete(s.contexts, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored contexts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contexts)
}

func (s *MemoryStore) Close() error { return nil }
